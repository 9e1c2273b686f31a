package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stenoweb/steno/pkg/codegen"
	"github.com/stenoweb/steno/pkg/config"
	stenoerrors "github.com/stenoweb/steno/pkg/errors"
	"github.com/stenoweb/steno/pkg/event"
	"github.com/stenoweb/steno/pkg/logging"
	"github.com/stenoweb/steno/pkg/session"
	"github.com/stenoweb/steno/pkg/storage"
	"github.com/stenoweb/steno/pkg/wire"
)

type testEnv struct {
	server *Server
	ts     *httptest.Server
	store  storage.SnapshotStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Server.PublicMetrics = true

	log, err := logging.NewLogger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	store := storage.NewMemoryStore()
	s := NewServer(cfg, session.NewManager(cfg.Recording.MaxEventCount), codegen.NewService(), store, log)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	return &testEnv{server: s, ts: ts, store: store}
}

func (te *testEnv) startSession(t *testing.T) startSessionResponse {
	t.Helper()
	resp := te.post(t, "/api/recorder/sessions", "", map[string]string{"name": "login flow"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out startSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.SessionID)
	require.NotEmpty(t, out.SessionKey)
	return out
}

func (te *testEnv) post(t *testing.T, path, key string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, te.ts.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set(SessionKeyHeader, key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (te *testEnv) getSnapshot(t *testing.T, id string) (session.Snapshot, int) {
	t.Helper()
	resp, err := http.Get(te.ts.URL + "/api/recorder/sessions/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	var snap session.Snapshot
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	}
	return snap, resp.StatusCode
}

func clickEnvelope(t *testing.T, sessionID, selector string) wire.Envelope {
	t.Helper()
	e := event.New(event.KindClick, "https://app.test")
	e.Element = &event.ElementInfo{Strategy: event.LocatorCSS, Selector: selector}
	e.Click = &event.ClickPayload{}
	env, err := wire.NewEventEnvelope(sessionID, e)
	require.NoError(t, err)
	return env
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionLifecycleOverREST(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	resp := te.post(t, "/api/recorder/sessions/"+sess.SessionID+"/pause", sess.SessionKey, struct{}{})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	snap, _ := te.getSnapshot(t, sess.SessionID)
	assert.Equal(t, session.StatusPaused, snap.Status)

	resp = te.post(t, "/api/recorder/sessions/"+sess.SessionID+"/resume", sess.SessionKey, struct{}{})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = te.post(t, "/api/recorder/sessions/"+sess.SessionID+"/complete", sess.SessionKey, struct{}{})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Terminal sessions leave the live registry and land in the snapshot store.
	_, status := te.getSnapshot(t, sess.SessionID)
	assert.Equal(t, http.StatusNotFound, status)

	archived, err := te.store.Load(sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, archived.Status)

	// A second terminal transition is rejected.
	resp = te.post(t, "/api/recorder/sessions/"+sess.SessionID+"/fail", sess.SessionKey, struct{}{})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLifecycleRequiresSessionKey(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	resp := te.post(t, "/api/recorder/sessions/"+sess.SessionID+"/pause", "wrong-key", struct{}{})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFallbackIngest(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	resp := te.post(t, wire.FallbackPath(sess.SessionID), sess.SessionKey, clickEnvelope(t, sess.SessionID, "#one"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out fallbackResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Accepted)
	assert.Equal(t, 0, out.Rejected)

	snap, _ := te.getSnapshot(t, sess.SessionID)
	assert.Equal(t, 1, snap.EventCount)
}

func TestFallbackIngestBatch(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	batch := []wire.Envelope{
		clickEnvelope(t, sess.SessionID, "#one"),
		clickEnvelope(t, sess.SessionID, "#two"),
	}
	resp := te.post(t, wire.FallbackPath(sess.SessionID), sess.SessionKey, batch)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out fallbackResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 2, out.Accepted)

	snap, _ := te.getSnapshot(t, sess.SessionID)
	assert.Equal(t, 2, snap.EventCount)
}

func TestFallbackRejectsWrongKey(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	resp := te.post(t, wire.FallbackPath(sess.SessionID), "wrong", clickEnvelope(t, sess.SessionID, "#one"))
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFallbackAdmissionRejectedWhilePaused(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	resp := te.post(t, "/api/recorder/sessions/"+sess.SessionID+"/pause", sess.SessionKey, struct{}{})
	resp.Body.Close()

	resp = te.post(t, wire.FallbackPath(sess.SessionID), sess.SessionKey, clickEnvelope(t, sess.SessionID, "#one"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out fallbackResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 0, out.Accepted)
	assert.Equal(t, 1, out.Rejected)
}

func (te *testEnv) dial(t *testing.T, sess startSessionResponse) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := strings.Replace(te.ts.URL, "http://", "ws://", 1) +
		"/ws/recorder/" + sess.SessionID + "?key=" + sess.SessionKey
	return websocket.DefaultDialer.Dial(wsURL, nil)
}

func TestWebSocketIngest(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	conn, _, err := te.dial(t, sess)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(clickEnvelope(t, sess.SessionID, "#ws")))

	waitFor(t, "event ingestion", func() bool {
		snap, _ := te.getSnapshot(t, sess.SessionID)
		return snap.EventCount == 1
	})
}

func TestWebSocketSingleWriter(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	first, _, err := te.dial(t, sess)
	require.NoError(t, err)
	defer first.Close()

	waitFor(t, "first agent attach", func() bool { return te.server.ConnectedAgents() == 1 })

	_, resp, err := te.dial(t, sess)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The first writer keeps the session after the conflict.
	require.NoError(t, first.WriteJSON(clickEnvelope(t, sess.SessionID, "#still-mine")))
	waitFor(t, "event from first writer", func() bool {
		snap, _ := te.getSnapshot(t, sess.SessionID)
		return snap.EventCount == 1
	})
}

func TestWebSocketRejectsBadKey(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)
	sess.SessionKey = "wrong"

	_, resp, err := te.dial(t, sess)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCommandDispatchedToAgent(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	conn, _, err := te.dial(t, sess)
	require.NoError(t, err)
	defer conn.Close()

	waitFor(t, "agent attach", func() bool { return te.server.ConnectedAgents() == 1 })

	resp := te.post(t, "/api/recorder/sessions/"+sess.SessionID+"/command", sess.SessionKey,
		commandRequest{Action: wire.CommandStatus})
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env wire.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, wire.TypeCommand, env.Type)

	cmd, err := wire.DecodeCommand(env)
	require.NoError(t, err)
	assert.Equal(t, wire.CommandStatus, cmd.Action)
}

func TestCommandWithoutAgent(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	resp := te.post(t, "/api/recorder/sessions/"+sess.SessionID+"/command", sess.SessionKey,
		commandRequest{Action: wire.CommandScreenshot})
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSendCommandRacingDetach(t *testing.T) {
	te := newTestEnv(t)
	s := te.server

	ctx, cancel := context.WithCancel(context.Background())
	ac := &agentConn{
		sessionID: "race-session",
		send:      make(chan wire.Envelope, sendBufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.mu.Lock()
	s.conns[ac.sessionID] = ac
	s.mu.Unlock()
	// detach decrements the gauge.
	metricActiveConnections.Inc()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = s.SendCommand("race-session", wire.CommandPause)
			}
		}()
	}
	s.detach(ac)
	wg.Wait()

	err := s.SendCommand("race-session", wire.CommandPause)
	require.Error(t, err)
	assert.True(t, stenoerrors.IsCode(err, stenoerrors.ErrCodeTransportSend))
}

func TestGenerateEndpoint(t *testing.T) {
	te := newTestEnv(t)

	click := event.New(event.KindClick, "https://app.test")
	click.Element = &event.ElementInfo{Strategy: event.LocatorCSS, Selector: "#go"}
	click.Click = &event.ClickPayload{}

	req := generateRequest{
		Steps:   []*event.Event{click},
		Options: codegen.Options{Language: codegen.LangJava, Framework: codegen.FWSelenium, IncludeImports: true},
	}
	resp := te.post(t, "/api/recorder/generate", "", req)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res codegen.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Contains(t, res.Code, "driver.findElement")
	assert.Equal(t, ".java", res.Extension)
	assert.NotEmpty(t, res.Hash)
}

func TestGenerateUnknownLanguage(t *testing.T) {
	te := newTestEnv(t)
	req := generateRequest{Options: codegen.Options{Language: "ruby", Framework: codegen.FWSelenium}}
	resp := te.post(t, "/api/recorder/generate", "", req)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateFromSession(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	resp := te.post(t, wire.FallbackPath(sess.SessionID), sess.SessionKey, clickEnvelope(t, sess.SessionID, "#go"))
	resp.Body.Close()

	req := generateRequest{Options: codegen.Options{Language: codegen.LangPython, Framework: codegen.FWSelenium}}
	resp = te.post(t, "/api/recorder/sessions/"+sess.SessionID+"/generate", "", req)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res codegen.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Contains(t, res.Code, "driver.find_element(By.CSS_SELECTOR, '#go').click()")
}

func TestSnapshotEndpoints(t *testing.T) {
	te := newTestEnv(t)
	sess := te.startSession(t)

	resp := te.post(t, wire.FallbackPath(sess.SessionID), sess.SessionKey, clickEnvelope(t, sess.SessionID, "#go"))
	resp.Body.Close()
	resp = te.post(t, "/api/recorder/sessions/"+sess.SessionID+"/complete", sess.SessionKey, struct{}{})
	resp.Body.Close()

	get, err := http.Get(te.ts.URL + "/api/recorder/snapshots/" + sess.SessionID)
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)

	var snap session.Snapshot
	require.NoError(t, json.NewDecoder(get.Body).Decode(&snap))
	assert.Equal(t, session.StatusCompleted, snap.Status)
	assert.Equal(t, 1, snap.EventCount)

	list, err := http.Get(te.ts.URL + "/api/recorder/snapshots/")
	require.NoError(t, err)
	defer list.Body.Close()
	var snaps []session.Snapshot
	require.NoError(t, json.NewDecoder(list.Body).Decode(&snaps))
	assert.Len(t, snaps, 1)

	del, err := http.NewRequest(http.MethodDelete, te.ts.URL+"/api/recorder/snapshots/"+sess.SessionID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(del)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	get2, err := http.Get(te.ts.URL + "/api/recorder/snapshots/" + sess.SessionID)
	require.NoError(t, err)
	get2.Body.Close()
	assert.Equal(t, http.StatusNotFound, get2.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	te := newTestEnv(t)
	resp, err := http.Get(te.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	te := newTestEnv(t)
	resp, err := http.Get(te.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
