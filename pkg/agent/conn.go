package agent

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	stenoerrors "github.com/stenoweb/steno/pkg/errors"
	"github.com/stenoweb/steno/pkg/logging"
	"github.com/stenoweb/steno/pkg/wire"
)

// ConnState is the duplex channel's lifecycle state.
type ConnState string

const (
	StateIdle         ConnState = "IDLE"
	StateConnecting   ConnState = "CONNECTING"
	StateConnected    ConnState = "CONNECTED"
	StateDisconnected ConnState = "DISCONNECTED"
	StateReconnecting ConnState = "RECONNECTING"

	// StateFallback is terminal for the page lifetime: the attempt cap was
	// exhausted and every send goes over HTTP from here on.
	StateFallback ConnState = "FALLBACK"
)

// Socket is the minimal duplex surface the connection manager needs. The
// production implementation wraps a gorilla websocket connection.
type Socket interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a Socket to the given URL.
type Dialer interface {
	Dial(url string) (Socket, error)
}

// WebSocketDialer is the production Dialer.
type WebSocketDialer struct{}

func (WebSocketDialer) Dial(url string) (Socket, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Conn owns the duplex channel: dialing, the reconnect counter and backoff
// timers, the heartbeat ticker, and inbound command reads. All of that state
// is private to one Conn, so concurrent recordings never share counters.
type Conn struct {
	dialer      Dialer
	secureURL   string
	insecureURL string
	securePage  bool
	sessionID   string

	heartbeatInterval time.Duration
	maxAttempts       int
	backoffBase       time.Duration

	onEnvelope func(wire.Envelope)
	log        *logging.Logger

	mu       sync.Mutex
	state    ConnState
	sock     Socket
	attempts int
	stopCh   chan struct{}
	started  bool
	writeMu  sync.Mutex
	wg       sync.WaitGroup
}

// ConnConfig collects the knobs for one duplex connection.
type ConnConfig struct {
	Dialer            Dialer
	SecureURL         string
	InsecureURL       string
	SecurePage        bool
	SessionID         string
	HeartbeatInterval time.Duration
	MaxAttempts       int
	BackoffBase       time.Duration
	OnEnvelope        func(wire.Envelope)
	Logger            *logging.Logger
}

func NewConn(cfg ConnConfig) *Conn {
	if cfg.Dialer == nil {
		cfg.Dialer = WebSocketDialer{}
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 250 * time.Millisecond
	}
	return &Conn{
		dialer:            cfg.Dialer,
		secureURL:         cfg.SecureURL,
		insecureURL:       cfg.InsecureURL,
		securePage:        cfg.SecurePage,
		sessionID:         cfg.SessionID,
		heartbeatInterval: cfg.HeartbeatInterval,
		maxAttempts:       cfg.MaxAttempts,
		backoffBase:       cfg.BackoffBase,
		onEnvelope:        cfg.OnEnvelope,
		log:               cfg.Logger,
		state:             StateIdle,
	}
}

// Start launches the connect loop. Calling Start twice is a no-op.
func (c *Conn) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run()
}

// Stop tears the connection down and waits for the loop to exit.
func (c *Conn) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	close(c.stopCh)
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	c.wg.Wait()
}

// State returns the current connection state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Conn) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// run is the connect loop. The attempt counter is absolute for the page
// lifetime: once maxAttempts dials have failed, the channel is abandoned for
// good and the state goes FALLBACK.
func (c *Conn) run() {
	defer c.wg.Done()

	for {
		if c.stopped() {
			return
		}

		c.mu.Lock()
		attempts := c.attempts
		c.mu.Unlock()

		if attempts >= c.maxAttempts {
			c.setState(StateFallback)
			c.logEvent("duplex_abandoned", "reconnect attempts exhausted, switching to HTTP fallback")
			return
		}

		if attempts == 0 {
			c.setState(StateConnecting)
		} else {
			c.setState(StateReconnecting)
		}

		sock, err := c.dialOnce(attempts)
		if err != nil {
			c.mu.Lock()
			c.attempts++
			attempts = c.attempts
			c.mu.Unlock()
			c.setState(StateDisconnected)

			if !c.sleep(time.Duration(attempts) * c.backoffBase) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.attempts++
		c.sock = sock
		c.mu.Unlock()
		c.setState(StateConnected)
		c.logEvent("duplex_connected", "duplex channel established")

		c.serve(sock)

		c.mu.Lock()
		c.sock = nil
		c.mu.Unlock()
		sock.Close()

		if c.stopped() {
			return
		}
		c.setState(StateDisconnected)
	}
}

// dialOnce performs one connection attempt. The very first attempt on a
// secure page tries the secure URL and falls through to the insecure URL
// immediately; later attempts go straight to the insecure URL.
func (c *Conn) dialOnce(attempt int) (Socket, error) {
	if attempt == 0 && c.securePage && c.secureURL != "" {
		if sock, err := c.dialer.Dial(c.secureURL); err == nil {
			return sock, nil
		}
	}
	return c.dialer.Dial(c.insecureURL)
}

// serve pumps the connection: a heartbeat ticker on the write side and a
// blocking read loop for inbound commands. Returns when either side fails.
func (c *Conn) serve(sock Socket) {
	done := make(chan struct{})
	defer close(done)

	if c.heartbeatInterval > 0 {
		go func() {
			ticker := time.NewTicker(c.heartbeatInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := c.writeJSON(sock, wire.NewHeartbeat(c.sessionID)); err != nil {
						sock.Close()
						return
					}
				case <-done:
					return
				case <-c.stopCh:
					return
				}
			}
		}()
	}

	for {
		var env wire.Envelope
		if err := sock.ReadJSON(&env); err != nil {
			return
		}
		if c.onEnvelope != nil {
			c.onEnvelope(env)
		}
	}
}

// Send writes an envelope over the duplex channel. A write failure closes the
// socket so the connect loop notices, making failed sends count toward the
// reconnect cap.
func (c *Conn) Send(env wire.Envelope) error {
	c.mu.Lock()
	sock := c.sock
	state := c.state
	c.mu.Unlock()

	if state != StateConnected || sock == nil {
		return stenoerrors.New(stenoerrors.ErrCodeTransportClosed, "duplex channel not connected").
			WithContext("state", string(state)).
			WithRetryable(true)
	}

	if err := c.writeJSON(sock, env); err != nil {
		sock.Close()
		return stenoerrors.Wrap(err, stenoerrors.ErrCodeTransportSend, "duplex send failed").
			WithRetryable(true)
	}
	return nil
}

func (c *Conn) writeJSON(sock Socket, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return sock.WriteJSON(v)
}

func (c *Conn) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-c.stopCh:
		return false
	}
}

func (c *Conn) logEvent(eventType, message string) {
	if c.log == nil {
		return
	}
	c.log.Info(logging.CategoryAgent, eventType, c.sessionID, message, map[string]any{
		"state": string(c.State()),
	})
}
