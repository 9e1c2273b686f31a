// Package agent is the capture side of the recording protocol: it buffers
// interaction events, delivers them over the duplex channel while it is up,
// degrades to HTTP fallback with a bounded retry queue when it is not, and
// answers server commands.
package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stenoweb/steno/pkg/config"
	stenoerrors "github.com/stenoweb/steno/pkg/errors"
	"github.com/stenoweb/steno/pkg/event"
	"github.com/stenoweb/steno/pkg/logging"
	"github.com/stenoweb/steno/pkg/wire"
)

const outboundBufferSize = 64

// Options configures one capture agent for one recording session.
type Options struct {
	// ServerURL is the recording server's HTTP base, e.g. "http://127.0.0.1:4590".
	ServerURL  string
	SessionID  string
	SessionKey string

	// SecurePage makes the first duplex dial try wss before ws.
	SecurePage bool

	Transport config.TransportConfig

	// Dialer overrides the duplex dialer. Nil means the gorilla default.
	Dialer Dialer

	// HTTPClient is used for fallback delivery. Nil means a 10s-timeout client.
	HTTPClient *http.Client

	Logger *logging.Logger

	// OnScreenshot runs when the server issues CAPTURE_SCREENSHOT.
	OnScreenshot func()
}

// Agent owns event delivery for a session. Record never blocks the caller:
// events land in a buffered channel and a worker goroutine pushes them out,
// duplex first, HTTP fallback second, retry queue last.
type Agent struct {
	opts        Options
	conn        *Conn
	queue       *RetryQueue
	httpClient  *http.Client
	fallbackURL string

	outbound chan wire.Envelope
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu        sync.Mutex
	started   bool
	recording bool

	eventsSent    atomic.Int64
	eventsDropped atomic.Int64
}

// New builds an agent. Start must be called before events are delivered.
func New(opts Options) (*Agent, error) {
	base, err := url.Parse(opts.ServerURL)
	if err != nil || base.Host == "" {
		return nil, stenoerrors.New(stenoerrors.ErrCodeInvalidInput, fmt.Sprintf("invalid server URL %q", opts.ServerURL))
	}
	if opts.SessionID == "" {
		return nil, stenoerrors.New(stenoerrors.ErrCodeInvalidInput, "session id is required")
	}
	opts.Transport = transportWithDefaults(opts.Transport)

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	a := &Agent{
		opts:        opts,
		queue:       NewRetryQueue(opts.Transport.RetryQueueCapacity),
		httpClient:  client,
		fallbackURL: base.ResolveReference(&url.URL{Path: wire.FallbackPath(opts.SessionID)}).String(),
		outbound:    make(chan wire.Envelope, outboundBufferSize),
		stopCh:      make(chan struct{}),
		recording:   true,
	}

	a.conn = NewConn(ConnConfig{
		Dialer:            opts.Dialer,
		SecureURL:         duplexURL(base, opts.SessionID, opts.SessionKey, true),
		InsecureURL:       duplexURL(base, opts.SessionID, opts.SessionKey, false),
		SecurePage:        opts.SecurePage,
		SessionID:         opts.SessionID,
		HeartbeatInterval: opts.Transport.HeartbeatInterval,
		MaxAttempts:       opts.Transport.MaxReconnectAttempts,
		OnEnvelope:        a.handleEnvelope,
		Logger:            opts.Logger,
	})
	return a, nil
}

// transportWithDefaults fills zero-value tuning knobs so an agent built from
// a bare TransportConfig behaves like one built from config.Default().
func transportWithDefaults(t config.TransportConfig) config.TransportConfig {
	if t.HeartbeatInterval <= 0 {
		t.HeartbeatInterval = config.DefaultHeartbeatInterval
	}
	if t.MaxReconnectAttempts <= 0 {
		t.MaxReconnectAttempts = config.DefaultMaxReconnectAttempts
	}
	if t.RetryQueueCapacity <= 0 {
		t.RetryQueueCapacity = config.DefaultRetryQueueCapacity
	}
	if t.RetryBatchSize <= 0 {
		t.RetryBatchSize = config.DefaultRetryBatchSize
	}
	if t.RetryMaxAge <= 0 {
		t.RetryMaxAge = config.DefaultRetryMaxAge
	}
	if t.RetryInterval <= 0 {
		t.RetryInterval = config.DefaultRetryInterval
	}
	return t
}

// duplexURL derives the websocket endpoint from the HTTP base.
func duplexURL(base *url.URL, sessionID, sessionKey string, secure bool) string {
	u := *base
	if secure {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws/recorder/" + sessionID
	u.RawQuery = url.Values{"key": {sessionKey}}.Encode()
	return u.String()
}

// Start launches the duplex connection and the delivery workers.
func (a *Agent) Start() {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.mu.Unlock()

	a.conn.Start()

	a.wg.Add(2)
	go a.deliveryLoop()
	go a.retryLoop()
}

// Stop flushes nothing and tears everything down. Queued envelopes are
// abandoned; the server's idle reaper handles the session.
func (a *Agent) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	a.mu.Unlock()

	close(a.stopCh)
	a.conn.Stop()
	a.wg.Wait()
}

// Record submits one captured event. It never blocks: when the outbound
// buffer is full the event is counted as dropped and the caller moves on.
func (a *Agent) Record(e *event.Event) {
	if !a.Recording() {
		return
	}
	env, err := wire.NewEventEnvelope(a.opts.SessionID, e)
	if err != nil {
		a.eventsDropped.Add(1)
		return
	}
	select {
	case a.outbound <- env:
	default:
		a.eventsDropped.Add(1)
	}
}

// Recording reports whether capture is active (not paused or stopped).
func (a *Agent) Recording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recording
}

// State exposes the duplex channel state.
func (a *Agent) State() ConnState {
	return a.conn.State()
}

// Status snapshots the agent for a STATUS reply.
func (a *Agent) Status() wire.StatusReport {
	return wire.StatusReport{
		ConnectionState: string(a.conn.State()),
		Recording:       a.Recording(),
		QueueDepth:      a.queue.Len(),
		EventsSent:      a.eventsSent.Load(),
		EventsDropped:   a.eventsDropped.Load() + a.queue.Evicted(),
	}
}

func (a *Agent) deliveryLoop() {
	defer a.wg.Done()
	for {
		select {
		case env := <-a.outbound:
			a.deliver(env)
		case <-a.stopCh:
			return
		}
	}
}

// deliver pushes one envelope: duplex when connected, HTTP fallback
// otherwise, retry queue when both fail.
func (a *Agent) deliver(env wire.Envelope) {
	if a.conn.State() == StateConnected {
		if err := a.conn.Send(env); err == nil {
			a.eventsSent.Add(1)
			return
		}
	}
	if err := a.postFallback([]wire.Envelope{env}); err != nil {
		a.queue.Push(env)
		return
	}
	a.eventsSent.Add(1)
}

func (a *Agent) retryLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.opts.Transport.RetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.flushRetries()
		case <-a.stopCh:
			return
		}
	}
}

// flushRetries replays one batch from the retry queue over the fallback. A
// failed batch goes back on the queue with its enqueue times intact so the
// age cap counts from first enqueue, not from the latest failed replay.
func (a *Agent) flushRetries() {
	batch := a.queue.Drain(a.opts.Transport.RetryBatchSize, a.opts.Transport.RetryMaxAge)
	if len(batch) == 0 {
		return
	}
	envs := make([]wire.Envelope, len(batch))
	for i, item := range batch {
		envs[i] = item.env
	}
	if err := a.postFallback(envs); err != nil {
		a.queue.Restore(batch)
		return
	}
	a.eventsSent.Add(int64(len(batch)))
}

// postFallback POSTs envelopes to the HTTP fallback endpoint. A single
// envelope is sent bare; more than one is sent as a JSON array.
func (a *Agent) postFallback(envs []wire.Envelope) error {
	var body any = envs
	if len(envs) == 1 {
		body = envs[0]
	}
	data, err := json.Marshal(body)
	if err != nil {
		return stenoerrors.Wrap(err, stenoerrors.ErrCodeTransportSend, "failed to encode fallback batch")
	}

	req, err := http.NewRequest(http.MethodPost, a.fallbackURL, bytes.NewReader(data))
	if err != nil {
		return stenoerrors.Wrap(err, stenoerrors.ErrCodeTransportSend, "failed to build fallback request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(wire.SessionKeyHeader, a.opts.SessionKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return stenoerrors.Wrap(err, stenoerrors.ErrCodeTransportSend, "fallback request failed").
			WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return stenoerrors.New(stenoerrors.ErrCodeTransportSend, fmt.Sprintf("fallback rejected with status %d", resp.StatusCode)).
			WithContext("status", resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500)
	}
	return nil
}

// handleEnvelope reacts to server-to-agent traffic on the duplex channel.
func (a *Agent) handleEnvelope(env wire.Envelope) {
	if env.Type != wire.TypeCommand {
		return
	}
	cmd, err := wire.DecodeCommand(env)
	if err != nil {
		a.logWarn("command_decode_failed", err.Error())
		return
	}

	switch cmd.Action {
	case wire.CommandPause:
		a.setRecording(false)
	case wire.CommandResume:
		a.setRecording(true)
	case wire.CommandStop:
		a.setRecording(false)
	case wire.CommandStatus:
		report := a.Status()
		if err := a.conn.Send(wire.NewStatusEnvelope(a.opts.SessionID, report)); err != nil {
			a.logWarn("status_reply_failed", err.Error())
		}
	case wire.CommandScreenshot:
		if a.opts.OnScreenshot != nil {
			a.opts.OnScreenshot()
		}
	}
}

func (a *Agent) setRecording(on bool) {
	a.mu.Lock()
	a.recording = on
	a.mu.Unlock()
}

func (a *Agent) logWarn(eventType, message string) {
	if a.opts.Logger == nil {
		return
	}
	a.opts.Logger.Warn(logging.CategoryAgent, eventType, a.opts.SessionID, message, nil)
}
