// Package ingest is the server half of the recording protocol: the duplex
// channel agents stream events over, the HTTP fallback they degrade to, and
// the REST surface for session lifecycle and code generation.
package ingest

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stenoweb/steno/pkg/codegen"
	"github.com/stenoweb/steno/pkg/config"
	stenoerrors "github.com/stenoweb/steno/pkg/errors"
	"github.com/stenoweb/steno/pkg/event"
	"github.com/stenoweb/steno/pkg/logging"
	"github.com/stenoweb/steno/pkg/session"
	"github.com/stenoweb/steno/pkg/storage"
	"github.com/stenoweb/steno/pkg/wire"
)

// SessionKeyHeader authenticates event submissions and lifecycle calls.
const SessionKeyHeader = wire.SessionKeyHeader

const maxFallbackBody = 1 << 20

// Server wires the session manager, code generator, and snapshot store into
// one HTTP surface.
type Server struct {
	cfg     *config.Config
	manager *session.Manager
	gen     *codegen.Service
	store   storage.SnapshotStore
	log     *logging.Logger

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*agentConn
}

func NewServer(cfg *config.Config, manager *session.Manager, gen *codegen.Service, store storage.SnapshotStore, log *logging.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		manager: manager,
		gen:     gen,
		store:   store,
		log:     log,
		conns:   make(map[string]*agentConn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/ws/recorder/{sessionID}", s.handleWebSocket)

	r.Route("/api/recorder", func(r chi.Router) {
		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions", s.handleListSessions)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/pause", s.lifecycleHandler("pause"))
			r.Post("/resume", s.lifecycleHandler("resume"))
			r.Post("/complete", s.lifecycleHandler("complete"))
			r.Post("/fail", s.lifecycleHandler("fail"))
			r.Post("/command", s.handleCommand)
			r.Post("/generate", s.handleGenerateSession)
		})
		r.Post("/events/{sessionID}", s.handleFallbackEvents)
		r.Post("/generate", s.handleGenerate)
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", s.handleListSnapshots)
			r.Get("/{sessionID}", s.handleGetSnapshot)
			r.Delete("/{sessionID}", s.handleDeleteSnapshot)
		})
	})

	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.Server.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, a := range allowed {
		if au, err := url.Parse(a); err == nil && au.Hostname() == u.Hostname() {
			return true
		}
	}
	return false
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.manager.Snapshots()),
		"agents":   s.ConnectedAgents(),
	})
}

// handleMetrics serves prometheus metrics, restricted to loopback callers
// unless the config opens them up.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Server.PublicMetrics {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil || net.ParseIP(host) == nil || !net.ParseIP(host).IsLoopback() {
			respondError(w, stenoerrors.New(stenoerrors.ErrCodeConfigInvalid, "metrics restricted to loopback"))
			return
		}
	}
	promhttp.Handler().ServeHTTP(w, r)
}

type startSessionRequest struct {
	Name      string `json:"name"`
	ProjectID string `json:"projectId"`
}

type startSessionResponse struct {
	SessionID     string `json:"sessionId"`
	SessionKey    string `json:"sessionKey"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	MaxEventCount int    `json:"maxEventCount"`
	FallbackPath  string `json:"fallbackPath"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, stenoerrors.Wrap(err, stenoerrors.ErrCodeEnvelopeDecode, "decoding session request"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = "recording"
	}

	rec := s.manager.Start(req.Name, req.ProjectID)
	s.log.Info(logging.CategorySession, "session_started", rec.ID(), "recording started",
		map[string]any{"name": req.Name, "project_id": req.ProjectID})

	respondJSON(w, http.StatusCreated, startSessionResponse{
		SessionID:     rec.ID(),
		SessionKey:    rec.SessionKey(),
		Name:          rec.Name(),
		Status:        string(rec.Status()),
		MaxEventCount: s.cfg.Recording.MaxEventCount,
		FallbackPath:  wire.FallbackPath(rec.ID()),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.manager.Snapshots())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec.Snapshot())
}

// lifecycleHandler mutates the session state machine and best-effort notifies
// the connected agent. Terminal transitions archive the snapshot.
func (s *Server) lifecycleHandler(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.authorizedRecording(r)
		if err != nil {
			respondError(w, err)
			return
		}

		var applied bool
		var notify wire.CommandAction
		switch op {
		case "pause":
			applied, notify = rec.Pause(), wire.CommandPause
		case "resume":
			applied, notify = rec.Resume(), wire.CommandResume
		case "complete":
			applied, notify = rec.Complete(), wire.CommandStop
		case "fail":
			applied, notify = rec.Fail(), wire.CommandStop
		}

		if !applied {
			respondError(w, stenoerrors.New(stenoerrors.ErrCodeSessionClosed, "recording is already terminal").
				WithContext("session_id", rec.ID()).
				WithContext("status", string(rec.Status())))
			return
		}

		_ = s.SendCommand(rec.ID(), notify)

		if rec.Status().Terminal() {
			snap := rec.Snapshot()
			if err := s.store.Save(snap); err != nil {
				s.log.Error(logging.CategoryStorage, "snapshot_save_failed", rec.ID(), err.Error(), nil)
			}
			s.manager.Remove(rec.ID())
		}

		s.log.Info(logging.CategorySession, "session_"+op, rec.ID(), "lifecycle transition applied",
			map[string]any{"status": string(rec.Status())})
		respondJSON(w, http.StatusOK, rec.Snapshot())
	}
}

type commandRequest struct {
	Action wire.CommandAction `json:"action"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	rec, err := s.authorizedRecording(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, stenoerrors.Wrap(err, stenoerrors.ErrCodeEnvelopeDecode, "decoding command request"))
		return
	}
	if !req.Action.Known() {
		respondError(w, stenoerrors.New(stenoerrors.ErrCodeCommandUnknown, "unknown command action").
			WithContext("action", string(req.Action)))
		return
	}

	if err := s.SendCommand(rec.ID(), req.Action); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"dispatched": string(req.Action)})
}

// handleWebSocket upgrades the duplex channel. The session key travels as a
// query parameter because browser WebSocket clients cannot set headers.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.Header.Get(SessionKeyHeader)
	}

	rec, err := s.manager.Authorize(id, key)
	if err != nil {
		respondError(w, err)
		return
	}

	s.mu.Lock()
	_, busy := s.conns[id]
	s.mu.Unlock()
	if busy {
		respondError(w, stenoerrors.New(stenoerrors.ErrCodeWriterConflict, "session already has a connected agent").
			WithContext("session_id", id))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error(logging.CategoryTransport, "ws_upgrade_failed", id, err.Error(), nil)
		return
	}

	ac, err := s.attach(id, conn)
	if err != nil {
		// Lost the race to another agent between the check and the upgrade.
		conn.Close()
		return
	}

	s.log.Info(logging.CategoryTransport, "agent_connected", id, "duplex channel established",
		map[string]any{"remote_addr": r.RemoteAddr})

	go ac.writePump()
	go s.readPump(ac, rec)
}

type fallbackResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// handleFallbackEvents ingests events over plain HTTP. The body is either one
// envelope or an array of envelopes (the agent drains its retry queue in
// batches). Admission rejections are reported in the body, not as an HTTP
// error.
func (s *Server) handleFallbackEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	rec, err := s.manager.Authorize(id, r.Header.Get(SessionKeyHeader))
	if err != nil {
		respondError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFallbackBody))
	if err != nil {
		respondError(w, stenoerrors.Wrap(err, stenoerrors.ErrCodeEnvelopeDecode, "reading fallback body"))
		return
	}

	var envs []wire.Envelope
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(body, &envs)
	} else {
		var env wire.Envelope
		if err = json.Unmarshal(body, &env); err == nil {
			envs = []wire.Envelope{env}
		}
	}
	if err != nil {
		respondError(w, stenoerrors.Wrap(err, stenoerrors.ErrCodeEnvelopeDecode, "decoding fallback envelope"))
		return
	}

	var resp fallbackResponse
	for _, env := range envs {
		if s.ingestEnvelope(rec, env, "fallback") {
			resp.Accepted++
		} else {
			resp.Rejected++
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

type generateRequest struct {
	Steps     []*event.Event     `json:"steps"`
	Variables []codegen.Variable `json:"variables"`
	Options   codegen.Options    `json:"options"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, stenoerrors.Wrap(err, stenoerrors.ErrCodeEnvelopeDecode, "decoding generation request"))
		return
	}
	s.generate(w, req.Steps, req.Variables, req.Options, "")
}

func (s *Server) handleGenerateSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, err)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, stenoerrors.Wrap(err, stenoerrors.ErrCodeEnvelopeDecode, "decoding generation request"))
		return
	}
	s.generate(w, rec.Events(), req.Variables, req.Options, rec.ID())
}

func (s *Server) generate(w http.ResponseWriter, steps []*event.Event, vars []codegen.Variable, opts codegen.Options, sessionID string) {
	start := time.Now()
	res, err := s.gen.Generate(steps, vars, opts)
	metricGenerationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		respondError(w, err)
		return
	}

	s.log.Info(logging.CategoryCodegen, "script_generated", sessionID, "generated test script",
		map[string]any{
			"language":  string(opts.Language),
			"framework": string(opts.Framework),
			"steps":     event.Count(steps),
			"hash":      res.Hash,
		})
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.store.List()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Load(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "sessionID")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": chi.URLParam(r, "sessionID")})
}

func (s *Server) authorizedRecording(r *http.Request) (*session.Recording, error) {
	return s.manager.Authorize(chi.URLParam(r, "sessionID"), r.Header.Get(SessionKeyHeader))
}
