// Command analytics runs the portfolio analyses offline against a JSON
// snapshot file and prints the result as JSON.
//
//	analytics risk -f snapshot.json --window 1Y --confidence 0.95,0.99
//	analytics diversify -f snapshot.json
//	analytics hedge -f snapshot.json --target-protection 0.9
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/diversification"
	"github.com/aristath/portfolio-analytics/internal/modules/hedging"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
	"github.com/aristath/portfolio-analytics/pkg/logger"
)

// Build-time variables (set via -ldflags).
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	snapshot string
	pretty   bool
	logLevel string
	log      zerolog.Logger
	now      func() time.Time
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{now: time.Now}

	root := &cobra.Command{
		Use:           "analytics",
		Short:         "Offline portfolio risk, diversification and hedging analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.log = logger.New(logger.Config{
				Level:  opts.logLevel,
				Pretty: true,
				Output: cmd.ErrOrStderr(),
			})
		},
	}
	root.PersistentFlags().StringVarP(&opts.snapshot, "snapshot", "f", "", "snapshot JSON file (- for stdin)")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newRiskCmd(opts),
		newDiversifyCmd(opts),
		newHedgeCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "analytics %s\n", version)
			},
		},
	)
	return root
}

func (o *rootOptions) load() (*snapshotFile, error) {
	if o.snapshot == "" {
		return nil, fmt.Errorf("--snapshot is required")
	}
	snap, err := readSnapshot(o.snapshot)
	if err != nil {
		return nil, err
	}
	o.log.Debug().Int("holdings", len(snap.Holdings)).Str("file", o.snapshot).Msg("Snapshot loaded")
	return snap, nil
}

func (o *rootOptions) print(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	if o.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func newRiskCmd(opts *rootOptions) *cobra.Command {
	var (
		window      string
		confidences []float64
		rate        float64
		correlated  bool
		minObs      int
	)
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Volatility, VaR, Sharpe ratio, drawdown and beta",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := domain.ParseWindow(window)
			if err != nil {
				return err
			}
			file, err := opts.load()
			if err != nil {
				return err
			}
			snap, err := file.riskSnapshot(opts.now(), w, rate, correlated, minObs)
			if err != nil {
				return err
			}
			engine := risk.NewEngine(returns.Policy{MinObservations: minObs}, 0)
			result, err := engine.Analyze(snap, risk.Request{Window: w, ConfidenceLevels: confidences})
			if err != nil {
				return err
			}
			for _, ex := range result.Excluded {
				opts.log.Warn().Str("ticker", ex.Ticker).Str("reason", ex.Reason).Msg("Ticker excluded")
			}
			return opts.print(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&window, "window", string(domain.DefaultWindow), "lookback window (30D, 90D, 1Y, 3Y, 5Y)")
	cmd.Flags().Float64SliceVar(&confidences, "confidence", nil, "VaR confidence levels (default 0.95)")
	cmd.Flags().Float64Var(&rate, "risk-free-rate", 0.02, "annual risk-free rate when the snapshot has none")
	cmd.Flags().BoolVar(&correlated, "correlated", false, "use the covariance form of portfolio volatility")
	cmd.Flags().IntVar(&minObs, "min-observations", returns.DefaultMinObservations, "minimum closes per ticker")
	return cmd
}

func newDiversifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diversify",
		Short: "Sector, asset-class and holding-count diversification score",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := opts.load()
			if err != nil {
				return err
			}
			asOf, err := file.asOf(opts.now())
			if err != nil {
				return err
			}
			result := diversification.Score(file.Holdings)
			result.AsOf = asOf
			return opts.print(cmd.OutOrStdout(), result)
		},
	}
}

func newHedgeCmd(opts *rootOptions) *cobra.Command {
	req := hedging.DefaultRequest()
	cmd := &cobra.Command{
		Use:   "hedge",
		Short: "Protective put and covered call suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := req.Validate(); err != nil {
				return err
			}
			file, err := opts.load()
			if err != nil {
				return err
			}
			asOf, err := file.asOf(opts.now())
			if err != nil {
				return err
			}
			result, err := hedging.Analyze(hedging.Snapshot{
				AsOf:     asOf,
				Holdings: file.Holdings,
				Chains:   file.chains(),
			}, req)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Float64Var(&req.TargetProtection, "target-protection", req.TargetProtection, "put strike as a fraction of the current price")
	cmd.Flags().Float64Var(&req.TargetPremium, "target-premium", req.TargetPremium, "minimum call premium as a fraction of the current price")
	return cmd
}
