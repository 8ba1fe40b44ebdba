// Package ws runs the authentication protocol over a gorilla websocket
package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/layer-3/keygate/internal/logging"
	"github.com/layer-3/keygate/service"
)

// CloseAuthTimeout is the close code sent when a client does not
// authenticate within the deadline
const CloseAuthTimeout = 4001

const (
	DefaultAuthTimeout  = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultPongWait     = 60 * time.Second
	DefaultMaxFrameSize = 64 << 10
)

// Settings bound the resources one connection may hold
type Settings struct {
	AuthTimeout  time.Duration // zero disables the deadline
	WriteTimeout time.Duration
	PongWait     time.Duration // zero disables keepalive pings
	MaxFrameSize int64
}

// DefaultSettings returns the transport defaults
func DefaultSettings() Settings {
	return Settings{
		AuthTimeout:  DefaultAuthTimeout,
		WriteTimeout: DefaultWriteTimeout,
		PongWait:     DefaultPongWait,
		MaxFrameSize: DefaultMaxFrameSize,
	}
}

// sender serializes writes to the socket. gorilla allows one concurrent writer.
type sender struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (s *sender) Send(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(s.deadline()); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (s *sender) control(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(messageType, data, s.deadline())
}

func (s *sender) deadline() time.Time {
	if s.writeTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.writeTimeout)
}

// Serve runs the protocol on an upgraded websocket until the peer goes away,
// a send fails, the authentication deadline passes or ctx is cancelled.
// It closes conn before returning.
func Serve(ctx context.Context, conn *websocket.Conn, auth *service.Authenticator, settings Settings, logger logging.Logger) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("remote_addr", conn.RemoteAddr().String())
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := &sender{conn: conn, writeTimeout: settings.WriteTimeout}
	if settings.MaxFrameSize > 0 {
		conn.SetReadLimit(settings.MaxFrameSize)
	}

	c, err := auth.Accept(ctx, out)
	if err != nil {
		logger.Error(ctx, "failed to start authentication", "error", err)
		return
	}
	logger = logger.With("connection_id", c.ID())
	defer c.OnClose(context.WithoutCancel(ctx))

	if settings.AuthTimeout > 0 {
		timer := time.AfterFunc(settings.AuthTimeout, func() {
			if _, ok := c.UserID(); ok {
				return
			}
			logger.Info(ctx, "authentication deadline passed")
			msg := websocket.FormatCloseMessage(CloseAuthTimeout, "authentication timeout")
			_ = out.control(websocket.CloseMessage, msg)
			_ = conn.Close()
		})
		defer timer.Stop()
	}

	if settings.PongWait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(settings.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(settings.PongWait))
		})
		go keepalive(ctx, out, settings.PongWait*9/10, logger)
	}

	// Unblock the read loop on shutdown
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		mt, frame, err := conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) {
				logger.Debug(ctx, "read failed", "error", err)
			}
			return
		}

		if err := c.OnFrame(ctx, frame, mt == websocket.BinaryMessage); err != nil {
			logger.Warn(ctx, "dropping connection", "error", err)
			return
		}
	}
}

func keepalive(ctx context.Context, out *sender, period time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := out.control(websocket.PingMessage, nil); err != nil {
				logger.Debug(ctx, "ping failed", "error", err)
				return
			}
		}
	}
}

func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, websocket.ErrCloseSent)
}
