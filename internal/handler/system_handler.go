package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/database"
	"github.com/stemsi/motoquiz-backend/internal/response"
)

const metricsInterval = 7 * time.Second

// ActiveCounter reports how many exam attempts are running.
type ActiveCounter interface {
	ActiveCount() int
}

// SystemHandler serves the health probe and streams runtime metrics via SSE.
type SystemHandler struct {
	db        database.Pinger
	rdb       *redis.Client
	exams     ActiveCounter
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. rdb may be nil.
func NewSystemHandler(db database.Pinger, rdb *redis.Client, exams ActiveCounter, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		exams:     exams,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Reports Postgres and Redis reachability. Responds 503 when either is down.
func (h *SystemHandler) Health(c *gin.Context) {
	var redisPing func(context.Context) error
	if h.rdb != nil {
		redisPing = func(ctx context.Context) error { return h.rdb.Ping(ctx).Err() }
	}

	st := database.Check(c.Request.Context(), h.db, redisPing)
	if !st.OK() {
		response.FailWithData(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable, st)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":       st,
		"uptime":       formatDuration(time.Since(h.startTime)),
		"active_exams": h.exams.ActiveCount(),
	})
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	StackInuse uint64 `json:"stack_inuse"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	ActiveExams  int   `json:"active_exams"`
	QueueAnswers int64 `json:"queue_answers"`
}

// SystemMetricsSSE godoc
// GET /api/v1/admin/system/metrics
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Msg("Admin connected to system metrics SSE")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	// Send immediately on connect, then every tick
	h.writeMetrics(c)

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from system metrics SSE")
			return
		case <-ticker.C:
			h.writeMetrics(c)
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context) {
	c.SSEvent("metrics", h.collect(c.Request.Context()))
	c.Writer.Flush()
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m := systemMetrics{
		Timestamp:   time.Now().Unix(),
		Uptime:      formatDuration(time.Since(h.startTime)),
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   ms.HeapAlloc,
		HeapSys:     ms.Sys,
		StackInuse:  ms.StackInuse,
		NumGC:       ms.NumGC,
		GoVersion:   runtime.Version(),
		NumCPU:      runtime.NumCPU(),
		ActiveExams: h.exams.ActiveCount(),
	}

	if h.rdb != nil {
		m.QueueAnswers, _ = h.rdb.LLen(ctx, config.WorkerKey.AttemptAnswersQueue).Result()
	}
	return m
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
