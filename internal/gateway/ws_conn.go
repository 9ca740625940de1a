package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/baoagent/voice-gateway/internal/shared"
	"github.com/baoagent/voice-gateway/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// wsConnection adapts one websocket to transport.Connection. The read pump
// decodes inbound envelopes into raw audio frames; the write pump owns the
// socket write side so outbound envelopes and pings never interleave.
type wsConnection struct {
	ws     *websocket.Conn
	logger *slog.Logger

	send   chan transport.ServerMessage
	frames chan transport.InboundFrame

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func newWSConnection(ws *websocket.Conn, logger *slog.Logger) *wsConnection {
	return &wsConnection{
		ws:     ws,
		logger: logger,
		send:   make(chan transport.ServerMessage, 256),
		frames: make(chan transport.InboundFrame, 256),
		done:   make(chan struct{}),
	}
}

// Send blocks while the outbound buffer is full so reply frames are never
// silently dropped mid-stream; a slow client stalls its own reply until the
// write pump drains or the connection dies.
func (c *wsConnection) Send(ctx context.Context, msg transport.ServerMessage) error {
	select {
	case <-c.done:
		return shared.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.send <- msg:
		return nil
	}
}

func (c *wsConnection) Frames() <-chan transport.InboundFrame {
	return c.frames
}

func (c *wsConnection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

func (c *wsConnection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	return c.ws.Close()
}

func (c *wsConnection) readPump() {
	defer func() {
		c.Close()
		close(c.frames)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}

		var msg transport.ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Warn("unmarshal error", "error", err)
			c.sendErrorMessage("malformed message")
			continue
		}

		if msg.Type != transport.MessageTypeAudio {
			c.logger.Debug("ignoring non-audio message", "type", msg.Type)
			continue
		}

		data, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			c.logger.Warn("audio payload is not valid base64", "error", err)
			c.sendErrorMessage("malformed audio payload")
			continue
		}

		select {
		case c.frames <- transport.InboundFrame{
			Format:     msg.Format,
			Data:       data,
			SampleRate: msg.SampleRate,
		}:
		case <-c.done:
			return
		default:
			c.logger.Warn("frame buffer full, dropping frame", "bytes", len(data))
		}
	}
}

func (c *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))

			data, err := msg.Marshal()
			if err != nil {
				c.logger.Error("marshal error", "error", err)
				continue
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("write error", "error", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConnection) sendErrorMessage(message string) {
	select {
	case c.send <- transport.ServerMessage{Type: transport.MessageTypeError, Message: message}:
	default:
	}
}
