package portfolio

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_FullHeader(t *testing.T) {
	input := `Ticker,Shares,Purchase_Price,Purchase_Date,Current_Price,Sector,Industry,Asset_Class
aapl,50,140,2023-03-15,175.50,Technology,Consumer Electronics,Stock
BND,100,$75,,72,Fixed Income,Bond Fund,bond
`
	res := ParseCSV(strings.NewReader(input))

	require.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Holdings, 2)

	aapl := res.Holdings[0]
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.Equal(t, 50.0, aapl.Shares)
	assert.Equal(t, 140.0, aapl.PurchasePrice)
	assert.Equal(t, 175.50, aapl.CurrentPrice)
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), aapl.PurchaseDate)
	assert.Equal(t, "Technology", aapl.Sector)
	assert.Equal(t, "stock", aapl.AssetClass)

	bnd := res.Holdings[1]
	assert.Equal(t, 75.0, bnd.PurchasePrice)
	assert.True(t, bnd.PurchaseDate.IsZero())
}

func TestParseCSV_MinimalHeaderWarnsAboutCurrentPrice(t *testing.T) {
	res := ParseCSV(strings.NewReader("ticker,shares,purchase_price\nMSFT,10,300\n"))

	require.True(t, res.OK())
	require.Len(t, res.Holdings, 1)
	assert.Equal(t, 300.0, res.Holdings[0].CurrentPrice)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "row 2: no current_price for MSFT")
}

func TestParseCSV_MergesDuplicates(t *testing.T) {
	input := "ticker,shares,purchase_price,current_price\nAAPL,10,100,150\nMSFT,5,300,310\naapl,30,120,155\n"
	res := ParseCSV(strings.NewReader(input))

	require.True(t, res.OK())
	require.Len(t, res.Holdings, 2)

	aapl := res.Holdings[0]
	assert.Equal(t, 40.0, aapl.Shares)
	assert.InDelta(t, 115.0, aapl.PurchasePrice, 1e-9) // (1000 + 3600) / 40
	assert.Equal(t, 155.0, aapl.CurrentPrice)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "row 4: duplicate ticker AAPL")
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty file", "", "file is empty"},
		{"missing column", "ticker,shares\nAAPL,1\n", `missing required column "purchase_price"`},
		{"header only", "ticker,shares,purchase_price\n", "no holdings found"},
		{"bad shares", "ticker,shares,purchase_price\nAAPL,ten,100\n", `row 2: invalid shares "ten" for AAPL`},
		{"zero shares", "ticker,shares,purchase_price\nAAPL,0,100\n", "row 2: shares must be positive for AAPL"},
		{"negative price", "ticker,shares,purchase_price\nAAPL,1,-5\n", "row 2: purchase_price must be non-negative for AAPL"},
		{"missing ticker", "ticker,shares,purchase_price\n,1,5\n", "row 2: ticker is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseCSV(strings.NewReader(tt.input))
			assert.False(t, res.OK())
			assert.Empty(t, res.Holdings)
			require.NotEmpty(t, res.Errors)
			assert.Contains(t, strings.Join(res.Errors, "\n"), tt.want)
		})
	}
}

func TestParseCSV_RowErrorDiscardsWholeFile(t *testing.T) {
	input := "ticker,shares,purchase_price\nAAPL,1,100\nMSFT,x,200\n"
	res := ParseCSV(strings.NewReader(input))

	assert.False(t, res.OK())
	assert.Empty(t, res.Holdings)
	assert.Len(t, res.Errors, 1)
}

func TestParseCSV_WarningsForUnknownColumnsAndBadOptionalFields(t *testing.T) {
	input := "ticker,shares,purchase_price,notes,purchase_date,current_price\nAAPL,1,100,hello,03/15/2023,abc\n\n"
	res := ParseCSV(strings.NewReader(input))

	require.True(t, res.OK())
	require.Len(t, res.Warnings, 3)
	assert.Contains(t, res.Warnings[0], `ignoring unknown column "notes"`)
	assert.Contains(t, res.Warnings[1], "unparseable purchase_date")
	assert.Contains(t, res.Warnings[2], "invalid current_price")
	assert.Equal(t, 100.0, res.Holdings[0].CurrentPrice)
}
