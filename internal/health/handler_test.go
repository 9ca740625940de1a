package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baoagent/voice-gateway/internal/dispatch"
	"github.com/baoagent/voice-gateway/internal/generation"
	"github.com/baoagent/voice-gateway/internal/stream"
	"github.com/baoagent/voice-gateway/internal/transport"
	"github.com/baoagent/voice-gateway/internal/voicesession"
	"github.com/labstack/echo/v4"
)

type nullTranscriber struct{}

func (nullTranscriber) Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	return "", nil
}

type nullGenerator struct{}

func (nullGenerator) Generate(ctx context.Context, messages []generation.Message) (string, error) {
	return "", nil
}

type nullSynthesizer struct{}

func (nullSynthesizer) Synthesize(ctx context.Context, text string) ([]int16, int, error) {
	return nil, 0, nil
}

type idleConn struct {
	frames chan transport.InboundFrame
}

func (c *idleConn) Send(ctx context.Context, msg transport.ServerMessage) error { return nil }
func (c *idleConn) Frames() <-chan transport.InboundFrame                       { return c.frames }
func (c *idleConn) IsConnected() bool                                           { return true }
func (c *idleConn) Close() error                                                { return nil }

func newTestHandler(t *testing.T) (*Handler, *voicesession.Manager) {
	t.Helper()
	manager := voicesession.NewManager(voicesession.ManagerConfig{
		Pool:        dispatch.NewPool(dispatch.Config{Workers: 1, QueueDepth: 4}, nil),
		Transcriber: nullTranscriber{},
		Generator:   nullGenerator{},
		Synthesizer: nullSynthesizer{},
		Streamer:    stream.New(stream.Config{}, nil),
	}, nil)
	t.Cleanup(manager.Close)
	return NewHandler(nil, "", manager, "test"), manager
}

func TestHandler_Liveness(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	if err := h.Liveness(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandler_Readiness(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()

	if err := h.Readiness(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Redis and scheduling are unconfigured here, so degraded, never fatal.
	if resp.Status != StatusDegraded {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q", resp.Version)
	}
	if _, ok := resp.Components["redis"]; !ok {
		t.Error("missing redis component status")
	}
}

func TestHandler_Sessions(t *testing.T) {
	h, manager := newTestHandler(t)
	s := manager.CreateSession(&idleConn{frames: make(chan transport.InboundFrame)})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()

	if err := h.Sessions(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp SessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Sessions[0].ID != s.ID() {
		t.Errorf("unexpected listing: %+v", resp)
	}
}

func TestHandler_SessionDetail(t *testing.T) {
	h, manager := newTestHandler(t)
	s := manager.CreateSession(&idleConn{frames: make(chan transport.InboundFrame)})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(s.ID())

	if err := h.SessionDetail(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp SessionDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != s.ID() || resp.State != voicesession.StateListening {
		t.Errorf("unexpected detail: %+v", resp)
	}
}

func TestHandler_SessionDetailNotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.SessionDetail(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_CloseSession(t *testing.T) {
	h, manager := newTestHandler(t)
	s := manager.CreateSession(&idleConn{frames: make(chan transport.InboundFrame)})

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(s.ID())

	if err := h.CloseSession(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if manager.SessionCount() != 0 {
		t.Errorf("session not removed, count = %d", manager.SessionCount())
	}
}
