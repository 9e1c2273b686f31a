package agent

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stenoweb/steno/pkg/config"
	"github.com/stenoweb/steno/pkg/event"
	"github.com/stenoweb/steno/pkg/wire"
)

// fallbackRecorder is an httptest handler that captures fallback POSTs.
type fallbackRecorder struct {
	mu        sync.Mutex
	envelopes []wire.Envelope
	keys      []string
	reject    atomic.Bool
}

func (f *fallbackRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.reject.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	body, _ := io.ReadAll(r.Body)

	var batch []wire.Envelope
	if len(body) > 0 && body[0] == '[' {
		_ = json.Unmarshal(body, &batch)
	} else {
		var env wire.Envelope
		_ = json.Unmarshal(body, &env)
		batch = append(batch, env)
	}

	f.mu.Lock()
	f.envelopes = append(f.envelopes, batch...)
	f.keys = append(f.keys, r.Header.Get(wire.SessionKeyHeader))
	f.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func (f *fallbackRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.envelopes)
}

func testTransport() config.TransportConfig {
	return config.TransportConfig{
		HeartbeatInterval:    0,
		MaxReconnectAttempts: 2,
		RetryQueueCapacity:   50,
		RetryBatchSize:       5,
		RetryMaxAge:          time.Minute,
		RetryInterval:        10 * time.Millisecond,
	}
}

func newTestAgent(t *testing.T, serverURL string, dialer Dialer) *Agent {
	t.Helper()
	a, err := New(Options{
		ServerURL:  serverURL,
		SessionID:  "s1",
		SessionKey: "k1",
		Transport:  testTransport(),
		Dialer:     dialer,
	})
	require.NoError(t, err)
	return a
}

func clickEvent() *event.Event {
	e := event.New(event.KindClick, "https://app.test/checkout")
	return e
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestNewDefaultsZeroTransportConfig(t *testing.T) {
	a, err := New(Options{
		ServerURL:  "http://recorder.test",
		SessionID:  "s1",
		SessionKey: "k1",
		Dialer:     &fakeDialer{refuse: true},
	})
	require.NoError(t, err)

	assert.Equal(t, config.DefaultMaxReconnectAttempts, a.conn.maxAttempts)
	assert.Equal(t, config.DefaultHeartbeatInterval, a.conn.heartbeatInterval)
	assert.Equal(t, config.DefaultRetryInterval, a.opts.Transport.RetryInterval)
	assert.Equal(t, config.DefaultRetryBatchSize, a.opts.Transport.RetryBatchSize)
	assert.Equal(t, config.DefaultRetryMaxAge, a.opts.Transport.RetryMaxAge)

	// The retry queue must hold events rather than panic on its first push.
	a.queue.Push(queueEnvelope(0))
	assert.Equal(t, 1, a.queue.Len())
	assert.Equal(t, int64(0), a.queue.Evicted())
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(Options{ServerURL: "://nope", SessionID: "s1"})
	require.Error(t, err)

	_, err = New(Options{ServerURL: "http://127.0.0.1:4590"})
	require.Error(t, err)
}

func TestAgentDeliversOverDuplex(t *testing.T) {
	dialer := &fakeDialer{}
	a := newTestAgent(t, "http://recorder.test", dialer)
	a.Start()
	defer a.Stop()

	waitUntil(t, func() bool { return a.State() == StateConnected }, "duplex never connected")

	a.Record(clickEvent())

	select {
	case env := <-dialer.lastSocket().out:
		assert.Equal(t, wire.TypeEvent, env.Type)
		e, err := wire.DecodeEvent(env)
		require.NoError(t, err)
		assert.Equal(t, event.KindClick, e.Kind)
	case <-time.After(time.Second):
		t.Fatal("event never reached the duplex socket")
	}
	waitUntil(t, func() bool { return a.Status().EventsSent == 1 }, "sent counter never updated")
}

func TestAgentFallsBackToHTTPWhenDuplexDown(t *testing.T) {
	rec := &fallbackRecorder{}
	ts := httptest.NewServer(rec)
	defer ts.Close()

	a := newTestAgent(t, ts.URL, &fakeDialer{refuse: true})
	a.Start()
	defer a.Stop()

	a.Record(clickEvent())

	waitUntil(t, func() bool { return rec.count() == 1 }, "event never arrived over fallback")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, wire.TypeEvent, rec.envelopes[0].Type)
	assert.Equal(t, "k1", rec.keys[0])
}

func TestAgentQueuesAndRetriesWhenFallbackFails(t *testing.T) {
	rec := &fallbackRecorder{}
	rec.reject.Store(true)
	ts := httptest.NewServer(rec)
	defer ts.Close()

	a := newTestAgent(t, ts.URL, &fakeDialer{refuse: true})
	a.Start()
	defer a.Stop()

	a.Record(clickEvent())
	a.Record(clickEvent())

	waitUntil(t, func() bool { return a.queue.Len() == 2 }, "failed sends never queued")

	rec.reject.Store(false)
	waitUntil(t, func() bool { return rec.count() == 2 && a.queue.Len() == 0 }, "retry never flushed the queue")
	waitUntil(t, func() bool { return a.Status().EventsSent == 2 }, "sent counter never updated")
}

func TestAgentRecordNeverBlocks(t *testing.T) {
	// No Start: nothing drains the outbound buffer, so overflow must be
	// dropped rather than block the caller.
	a := newTestAgent(t, "http://recorder.test", &fakeDialer{refuse: true})

	done := make(chan struct{})
	go func() {
		for i := 0; i < outboundBufferSize+20; i++ {
			a.Record(clickEvent())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
	assert.Equal(t, int64(20), a.Status().EventsDropped)
}

func TestAgentPauseAndResumeCommands(t *testing.T) {
	a := newTestAgent(t, "http://recorder.test", &fakeDialer{refuse: true})

	a.handleEnvelope(wire.NewCommandEnvelope("s1", wire.CommandPause))
	assert.False(t, a.Recording())

	a.Record(clickEvent())
	assert.Empty(t, a.outbound)

	a.handleEnvelope(wire.NewCommandEnvelope("s1", wire.CommandResume))
	assert.True(t, a.Recording())

	a.Record(clickEvent())
	assert.Len(t, a.outbound, 1)
}

func TestAgentStopCommandEndsCapture(t *testing.T) {
	a := newTestAgent(t, "http://recorder.test", &fakeDialer{refuse: true})

	a.handleEnvelope(wire.NewCommandEnvelope("s1", wire.CommandStop))
	assert.False(t, a.Recording())
}

func TestAgentAnswersStatusCommand(t *testing.T) {
	dialer := &fakeDialer{}
	a := newTestAgent(t, "http://recorder.test", dialer)
	a.Start()
	defer a.Stop()

	waitUntil(t, func() bool { return a.State() == StateConnected }, "duplex never connected")

	dialer.lastSocket().in <- wire.NewCommandEnvelope("s1", wire.CommandStatus)

	select {
	case env := <-dialer.lastSocket().out:
		require.Equal(t, wire.TypeStatus, env.Type)
		var report wire.StatusReport
		require.NoError(t, json.Unmarshal(env.Payload, &report))
		assert.Equal(t, string(StateConnected), report.ConnectionState)
		assert.True(t, report.Recording)
	case <-time.After(time.Second):
		t.Fatal("no status reply")
	}
}

func TestAgentScreenshotHook(t *testing.T) {
	called := make(chan struct{}, 1)
	a, err := New(Options{
		ServerURL:    "http://recorder.test",
		SessionID:    "s1",
		SessionKey:   "k1",
		Transport:    testTransport(),
		Dialer:       &fakeDialer{refuse: true},
		OnScreenshot: func() { called <- struct{}{} },
	})
	require.NoError(t, err)

	a.handleEnvelope(wire.NewCommandEnvelope("s1", wire.CommandScreenshot))
	select {
	case <-called:
	default:
		t.Fatal("screenshot hook not invoked")
	}
}

func TestAgentDuplexURLs(t *testing.T) {
	dialer := &fakeDialer{refuse: true}
	a, err := New(Options{
		ServerURL:  "http://127.0.0.1:4590",
		SessionID:  "abc",
		SessionKey: "secret",
		SecurePage: true,
		Transport:  testTransport(),
		Dialer:     dialer,
	})
	require.NoError(t, err)
	a.Start()
	defer a.Stop()

	waitUntil(t, func() bool { return dialer.dialCount() >= 2 }, "no dial attempts made")

	urls := dialer.dialedURLs()
	assert.Equal(t, "wss://127.0.0.1:4590/ws/recorder/abc?key=secret", urls[0])
	assert.Equal(t, "ws://127.0.0.1:4590/ws/recorder/abc?key=secret", urls[1])
}
