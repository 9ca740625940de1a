package voicesession

import (
	"log/slog"
	"sync"
	"time"

	"github.com/baoagent/voice-gateway/internal/dispatch"
	"github.com/baoagent/voice-gateway/internal/generation"
	"github.com/baoagent/voice-gateway/internal/stream"
	"github.com/baoagent/voice-gateway/internal/synthesis"
	"github.com/baoagent/voice-gateway/internal/transcription"
	"github.com/baoagent/voice-gateway/internal/transport"
)

// SessionInfo is the read-only view of one live session exposed over the
// admin API.
type SessionInfo struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

// Manager owns the shared worker pool and capability clients and tracks
// every live session. Connections come and go; the pool and clients live
// for the process.
type Manager struct {
	pool        *dispatch.Pool
	transcriber transcription.Transcriber
	generator   generation.Generator
	synthesizer synthesis.Synthesizer
	streamer    *stream.Streamer
	sessionCfg  Config

	mu       sync.RWMutex
	sessions map[string]*VoiceSession

	log *slog.Logger
}

type ManagerConfig struct {
	Pool        *dispatch.Pool
	Transcriber transcription.Transcriber
	Generator   generation.Generator
	Synthesizer synthesis.Synthesizer
	Streamer    *stream.Streamer
	Session     Config
}

func NewManager(cfg ManagerConfig, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		pool:        cfg.Pool,
		transcriber: cfg.Transcriber,
		generator:   cfg.Generator,
		synthesizer: cfg.Synthesizer,
		streamer:    cfg.Streamer,
		sessionCfg:  cfg.Session,
		sessions:    make(map[string]*VoiceSession),
		log:         log.With("component", "session_manager"),
	}
}

// CreateSession builds and starts a session for conn and registers it.
func (m *Manager) CreateSession(conn transport.Connection) *VoiceSession {
	s := New(conn, Capabilities{
		Pool:        m.pool,
		Transcriber: m.transcriber,
		Generator:   m.generator,
		Synthesizer: m.synthesizer,
		Streamer:    m.streamer,
	}, m.sessionCfg, m.log)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	s.Start()
	m.log.Info("session registered", "session_id", s.ID(), "total", m.SessionCount())
	return s
}

func (m *Manager) GetSession(id string) (*VoiceSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// RemoveSession closes the session and drops it from the registry.
func (m *Manager) RemoveSession(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
		m.log.Info("session removed", "session_id", id, "total", m.SessionCount())
	}
}

func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ListSessions returns a snapshot of every live session.
func (m *Manager) ListSessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, SessionInfo{
			ID:        s.ID(),
			State:     s.State(),
			StartedAt: s.StartedAt(),
		})
	}
	return out
}

// Close shuts down every session and then the worker pool.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*VoiceSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*VoiceSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		s.Wait()
	}
	m.pool.Close()
	m.log.Info("manager closed", "sessions_closed", len(sessions))
}
