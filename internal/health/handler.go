package health

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/baoagent/voice-gateway/internal/shared"
	"github.com/baoagent/voice-gateway/internal/voicesession"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type SessionStats struct {
	ActiveVoiceSessions int `json:"active_voice_sessions"`
}

type Stats struct {
	Sessions SessionStats `json:"sessions"`
	Runtime  RuntimeStats `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type SessionsResponse struct {
	Total    int                        `json:"total"`
	Sessions []voicesession.SessionInfo `json:"sessions"`
}

type SessionDetailResponse struct {
	ID        string             `json:"id"`
	State     voicesession.State `json:"state"`
	StartedAt time.Time          `json:"started_at"`
	Turns     int                `json:"turns"`
}

type Handler struct {
	redis         *redis.Client
	schedulingURL string
	httpClient    *http.Client
	sessions      *voicesession.Manager
	version       string
	startTime     time.Time
}

func NewHandler(redisClient *redis.Client, schedulingURL string, sessions *voicesession.Manager, version string) *Handler {
	return &Handler{
		redis:         redisClient,
		schedulingURL: schedulingURL,
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		sessions:      sessions,
		version:       version,
		startTime:     time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
	e.GET("/api/v1/sessions", h.Sessions)
	e.GET("/api/v1/sessions/:id", h.SessionDetail)
	e.DELETE("/api/v1/sessions/:id", h.CloseSession)
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	components := make(map[string]ComponentStatus)
	var mu sync.Mutex
	var wg sync.WaitGroup

	checks := []struct {
		name  string
		check func(context.Context) ComponentStatus
	}{
		{"redis", h.checkRedis},
		{"scheduling", h.checkScheduling},
	}

	wg.Add(len(checks))
	for _, check := range checks {
		go func(name string, fn func(context.Context) ComponentStatus) {
			defer wg.Done()
			status := fn(ctx)
			mu.Lock()
			components[name] = status
			mu.Unlock()
		}(check.name, check.check)
	}
	wg.Wait()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := HealthResponse{
		Status:        h.computeOverallStatus(components),
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Sessions: SessionStats{
				ActiveVoiceSessions: h.sessions.SessionCount(),
			},
			Runtime: RuntimeStats{
				Goroutines:         runtime.NumGoroutine(),
				MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
				MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
				MemorySysMB:        memStats.Sys / 1024 / 1024,
				NumGC:              memStats.NumGC,
			},
		},
		Components: components,
	}

	code := http.StatusOK
	if resp.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

func (h *Handler) Sessions(c echo.Context) error {
	infos := h.sessions.ListSessions()
	return c.JSON(http.StatusOK, SessionsResponse{
		Total:    len(infos),
		Sessions: infos,
	})
}

func (h *Handler) SessionDetail(c echo.Context) error {
	id := c.Param("id")
	s, ok := h.sessions.GetSession(id)
	if !ok {
		return shared.NotFound("session_not_found", "no session with id "+id)
	}
	return c.JSON(http.StatusOK, SessionDetailResponse{
		ID:        s.ID(),
		State:     s.State(),
		StartedAt: s.StartedAt(),
		Turns:     len(s.History()),
	})
}

func (h *Handler) CloseSession(c echo.Context) error {
	id := c.Param("id")
	if _, ok := h.sessions.GetSession(id); !ok {
		return shared.NotFound("session_not_found", "no session with id "+id)
	}
	h.sessions.RemoveSession(id)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	if h.redis == nil {
		return ComponentStatus{Status: StatusDegraded, Error: "not configured"}
	}
	start := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     err.Error(),
		}
	}
	return ComponentStatus{Status: StatusHealthy, LatencyMs: time.Since(start).Milliseconds()}
}

func (h *Handler) checkScheduling(ctx context.Context) ComponentStatus {
	if h.schedulingURL == "" {
		return ComponentStatus{Status: StatusDegraded, Error: "not configured"}
	}
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.schedulingURL+"/health", nil)
	if err != nil {
		return ComponentStatus{Status: StatusUnhealthy, Error: err.Error()}
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     err.Error(),
		}
	}
	resp.Body.Close()
	status := StatusHealthy
	if resp.StatusCode >= 500 {
		status = StatusUnhealthy
	}
	return ComponentStatus{Status: status, LatencyMs: time.Since(start).Milliseconds()}
}

// computeOverallStatus degrades rather than fails when optional
// collaborators are down; the voice loop itself only needs the socket.
func (h *Handler) computeOverallStatus(components map[string]ComponentStatus) Status {
	overall := StatusHealthy
	for _, cs := range components {
		switch cs.Status {
		case StatusUnhealthy:
			overall = StatusDegraded
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return overall
}
