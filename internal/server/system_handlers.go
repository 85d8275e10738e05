package server

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/aristath/portfolio-analytics/internal/di"
	"github.com/aristath/portfolio-analytics/internal/scheduler"
)

// SystemHandlers serves host status and manual job triggers.
type SystemHandlers struct {
	container *di.Container
	jobs      *di.JobInstances
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers. jobs may be nil.
func NewSystemHandlers(container *di.Container, jobs *di.JobInstances, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container: container,
		jobs:      jobs,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// DatabaseStatus describes one database file.
type DatabaseStatus struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Size      string `json:"size"`
}

// SystemStatusResponse is the body of GET /api/system/status.
type SystemStatusResponse struct {
	Status               string           `json:"status"`
	Uptime               string           `json:"uptime"`
	StartedAt            string           `json:"started_at"`
	CPUPercent           float64          `json:"cpu_percent"`
	MemoryPercent        float64          `json:"memory_percent"`
	Goroutines           int              `json:"goroutines"`
	Databases            []DatabaseStatus `json:"databases"`
	ScheduledJobs        int              `json:"scheduled_jobs"`
	UpstreamEnabled      bool             `json:"upstream_enabled"`
	UpstreamRequestsLeft *int             `json:"upstream_requests_left,omitempty"`
	AdvisorLive          bool             `json:"advisor_live"`
}

// HandleSystemStatus returns host and service status
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	resp := SystemStatusResponse{
		Status:        "ok",
		Uptime:        humanize.RelTime(h.startedAt, time.Now(), "", ""),
		StartedAt:     h.startedAt.UTC().Format(time.RFC3339),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Databases:     []DatabaseStatus{},
	}

	c := h.container
	for _, db := range []*database.DB{c.AnalyticsDB, c.CacheDB} {
		if db == nil {
			continue
		}
		var size int64
		if info, err := os.Stat(db.Path()); err == nil {
			size = info.Size()
		}
		resp.Databases = append(resp.Databases, DatabaseStatus{
			Name:      db.Name(),
			SizeBytes: size,
			Size:      humanize.Bytes(uint64(size)),
		})
	}
	if c.Scheduler != nil {
		resp.ScheduledJobs = c.Scheduler.Entries()
	}
	if c.AlphaVantageClient != nil {
		left := c.AlphaVantageClient.GetRemainingRequests()
		resp.UpstreamEnabled = true
		resp.UpstreamRequestsLeft = &left
	}
	if c.Advisor != nil {
		resp.AdvisorLive = c.Advisor.Enabled()
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleTriggerJob runs a registered job immediately in the background
// POST /api/jobs/{job}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "job")
	job := h.lookupJob(name)
	if job == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown or disabled job: " + name})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")
	go func() {
		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"job":     name,
		"message": "Job started",
	})
}

func (h *SystemHandlers) lookupJob(name string) scheduler.Job {
	if h.jobs == nil {
		return nil
	}
	switch name {
	case "refresh-prices":
		if h.jobs.RefreshPrices != nil {
			return h.jobs.RefreshPrices
		}
	case "sync-metadata":
		if h.jobs.SyncMetadata != nil {
			return h.jobs.SyncMetadata
		}
	case "maintenance":
		if h.jobs.Maintenance != nil {
			return h.jobs.Maintenance
		}
	}
	return nil
}

// getSystemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// short sampling window keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}
