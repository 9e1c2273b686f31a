package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	stenoerrors "github.com/stenoweb/steno/pkg/errors"
	"github.com/stenoweb/steno/pkg/logging"
	"github.com/stenoweb/steno/pkg/session"
	"github.com/stenoweb/steno/pkg/wire"
)

const (
	readTimeout    = 60 * time.Second
	writeTimeout   = 10 * time.Second
	pingInterval   = 54 * time.Second
	sendBufferSize = 16
)

// agentConn is one connected capture agent. A session has at most one at a
// time; the read pump is the session's single structural writer.
type agentConn struct {
	sessionID string
	conn      *websocket.Conn
	send      chan wire.Envelope
	writeMu   sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// attach registers conn as the session's writer. A second agent presenting
// the same session is refused; the first connection keeps the session.
func (s *Server) attach(sessionID string, conn *websocket.Conn) (*agentConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[sessionID]; ok {
		return nil, stenoerrors.New(stenoerrors.ErrCodeWriterConflict, "session already has a connected agent").
			WithContext("session_id", sessionID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ac := &agentConn{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan wire.Envelope, sendBufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.conns[sessionID] = ac
	metricActiveConnections.Inc()
	return ac, nil
}

// detach unregisters the connection and cancels its context. The send
// channel is never closed: SendCommand may still hold a reference, and
// cancellation is the single termination signal both sides select on.
func (s *Server) detach(ac *agentConn) {
	s.mu.Lock()
	current, ok := s.conns[ac.sessionID]
	if ok && current == ac {
		delete(s.conns, ac.sessionID)
	}
	s.mu.Unlock()

	if ok && current == ac {
		ac.cancel()
		metricActiveConnections.Dec()
	}
}

// SendCommand queues a command for the session's connected agent. It never
// blocks: a full buffer drops the command and reports overflow.
func (s *Server) SendCommand(sessionID string, action wire.CommandAction) error {
	s.mu.Lock()
	ac, ok := s.conns[sessionID]
	s.mu.Unlock()
	if !ok {
		return stenoerrors.New(stenoerrors.ErrCodeTransportSend, "no agent connected").
			WithContext("session_id", sessionID)
	}

	env := wire.NewCommandEnvelope(sessionID, action)
	select {
	case <-ac.ctx.Done():
		return stenoerrors.New(stenoerrors.ErrCodeTransportClosed, "agent connection closed").
			WithContext("session_id", sessionID)
	default:
	}

	select {
	case ac.send <- env:
		return nil
	case <-ac.ctx.Done():
		return stenoerrors.New(stenoerrors.ErrCodeTransportClosed, "agent connection closed").
			WithContext("session_id", sessionID)
	default:
		metricCommandDrops.Inc()
		return stenoerrors.New(stenoerrors.ErrCodeQueueOverflow, "agent command buffer full").
			WithContext("session_id", sessionID)
	}
}

// ConnectedAgents returns the number of attached agent connections.
func (s *Server) ConnectedAgents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// readPump consumes envelopes from the agent until the connection drops.
func (s *Server) readPump(ac *agentConn, rec *session.Recording) {
	defer func() {
		s.detach(ac)
		ac.writeMu.Lock()
		ac.conn.Close()
		ac.writeMu.Unlock()
	}()

	ac.conn.SetReadDeadline(time.Now().Add(readTimeout))
	ac.conn.SetPongHandler(func(string) error {
		ac.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var env wire.Envelope
		if err := ac.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn(logging.CategoryTransport, "ws_read_error", ac.sessionID, err.Error(), nil)
			}
			return
		}

		switch env.Type {
		case wire.TypeEvent:
			s.ingestEnvelope(rec, env, "duplex")
		case wire.TypeHeartbeat:
			ac.conn.SetReadDeadline(time.Now().Add(readTimeout))
		case wire.TypeStatus:
			s.log.Info(logging.CategoryTransport, "agent_status", ac.sessionID, "agent status report",
				map[string]any{"payload": string(env.Payload)})
		default:
			s.log.Warn(logging.CategoryTransport, "unknown_envelope", ac.sessionID,
				"dropping envelope of unknown type", map[string]any{"type": env.Type})
		}
	}
}

// writePump pushes queued commands and keepalive pings to the agent.
func (ac *agentConn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case env := <-ac.send:
			ac.writeMu.Lock()
			ac.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := ac.conn.WriteJSON(env)
			ac.writeMu.Unlock()
			if err != nil {
				return
			}

		case <-ticker.C:
			ac.writeMu.Lock()
			ac.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := ac.conn.WriteMessage(websocket.PingMessage, nil)
			ac.writeMu.Unlock()
			if err != nil {
				return
			}

		case <-ac.ctx.Done():
			ac.writeMu.Lock()
			_ = ac.conn.WriteMessage(websocket.CloseMessage, []byte{})
			ac.writeMu.Unlock()
			return
		}
	}
}

// ingestEnvelope decodes and admits one event envelope. Admission rejections
// are counted and logged, never surfaced as transport errors.
func (s *Server) ingestEnvelope(rec *session.Recording, env wire.Envelope, transport string) bool {
	e, err := wire.DecodeEvent(env)
	if err != nil {
		s.log.Warn(logging.CategoryIngest, "envelope_decode_failed", rec.ID(), err.Error(), nil)
		return false
	}

	if !rec.AddEvent(e) {
		metricAdmissionRejects.WithLabelValues(transport).Inc()
		s.log.Info(logging.CategoryIngest, "event_rejected", rec.ID(), "admission control rejected event",
			map[string]any{"kind": string(e.Kind), "status": string(rec.Status()), "count": rec.EventCount()})
		return false
	}

	metricEventsIngested.WithLabelValues(string(e.Kind), transport).Inc()
	s.log.Debug(logging.CategoryIngest, "event_admitted", rec.ID(), "event admitted",
		map[string]any{"kind": string(e.Kind), "transport": transport})
	return true
}
