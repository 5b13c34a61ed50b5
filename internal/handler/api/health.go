package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/dukerupert/shrimptech/internal/email"
	"github.com/dukerupert/shrimptech/internal/handler"
)

// MailStatus exposes the cached SMTP verification state.
// Implemented by *email.Dispatcher.
type MailStatus interface {
	Status() email.VerifyStatus
	Stats() email.PoolStats
	Provider() email.Provider
}

// HealthHandler answers liveness probes without touching SMTP.
type HealthHandler struct {
	mail    MailStatus
	started time.Time
	now     func() time.Time
}

// NewHealthHandler creates a health handler; uptime is measured from started.
func NewHealthHandler(mail MailStatus, started time.Time) *HealthHandler {
	return &HealthHandler{
		mail:    mail,
		started: started,
		now:     time.Now,
	}
}

type healthResponse struct {
	Status    string      `json:"status"`
	Uptime    float64     `json:"uptime"`
	Memory    memoryStats `json:"memory"`
	Timestamp string      `json:"timestamp"`
	SMTP      smtpStatus  `json:"smtp"`
}

type memoryStats struct {
	AllocBytes     uint64 `json:"alloc_bytes"`
	HeapInuseBytes uint64 `json:"heap_inuse_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
	NumGC          uint32 `json:"num_gc"`
	Goroutines     int    `json:"goroutines"`
}

type smtpStatus struct {
	Provider  string `json:"provider"`
	Verified  bool   `json:"verified"`
	CheckedAt string `json:"checked_at,omitempty"`
	Error     string `json:"error,omitempty"` // classification only
	InUse     int    `json:"connections_in_use"`
	Idle      int    `json:"connections_idle"`
}

// Health handles GET /api/health.
// Returns 500 when the last SMTP verification failed. Before the first
// verification has completed the service reports healthy.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := h.mail.Status()
	stats := h.mail.Stats()
	now := h.now()

	resp := healthResponse{
		Status:    "healthy",
		Uptime:    now.Sub(h.started).Seconds(),
		Timestamp: now.UTC().Format(time.RFC3339),
		Memory: memoryStats{
			AllocBytes:     mem.Alloc,
			HeapInuseBytes: mem.HeapInuse,
			SysBytes:       mem.Sys,
			NumGC:          mem.NumGC,
			Goroutines:     runtime.NumGoroutine(),
		},
		SMTP: smtpStatus{
			Provider: h.mail.Provider().Name,
			Verified: status.OK,
			InUse:    stats.InUse,
			Idle:     stats.Idle,
		},
	}

	if !status.CheckedAt.IsZero() {
		resp.SMTP.CheckedAt = status.CheckedAt.UTC().Format(time.RFC3339)
	}

	code := http.StatusOK
	if !status.CheckedAt.IsZero() && !status.OK {
		resp.Status = "unhealthy"
		resp.SMTP.Error = string(email.KindOf(status.Err))
		code = http.StatusInternalServerError
	}

	handler.JSON(w, code, resp)
}
