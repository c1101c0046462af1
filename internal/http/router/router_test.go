package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopair/internal/directory"
	"github.com/dropDatabas3/hellopair/internal/dispatch"
	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	healthsvc "github.com/dropDatabas3/hellopair/internal/http/services/health"
	"github.com/dropDatabas3/hellopair/internal/lock"
	"github.com/dropDatabas3/hellopair/internal/matching"
	runner "github.com/dropDatabas3/hellopair/internal/pairing"
	"github.com/dropDatabas3/hellopair/internal/scheduler"
	"github.com/dropDatabas3/hellopair/internal/store/adapters/memory"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []pairing.Message
}

func (n *recordingNotifier) Send(_ context.Context, msg pairing.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type env struct {
	srv      *httptest.Server
	conn     *memory.Connection
	notifier *recordingNotifier
}

func newEnv(t *testing.T, adminKey string, ready error) *env {
	t.Helper()
	conn := memory.New()
	n := &recordingNotifier{}
	d := dispatch.New(dispatch.Options{
		Directory: directory.NewStatic(map[string]string{"U1": "Ada", "U2": "Bob"}),
		Notifier:  n,
		Profiles:  conn.Profiles(),
		OptIns:    conn.OptIns(),
	})
	r := runner.NewRunner(conn.OptIns(), matching.New(conn.History(), matching.Options{}), d, lock.NewMemory())
	s := scheduler.New(conn.OptIns(), r, scheduler.Config{})

	h := New(Deps{
		OptIns:   conn.OptIns(),
		History:  conn.History(),
		Profiles: conn.Profiles(),
		Welcomer: d,
		Sweeper:  s,
		Runner:   r,
		Health: healthsvc.Deps{
			Version: "test",
			Checks:  map[string]healthsvc.Check{"store": func(context.Context) error { return ready }},
		},
		AdminKey: adminKey,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &env{srv: srv, conn: conn, notifier: n}
}

func (e *env) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestReadyz(t *testing.T) {
	e := newEnv(t, "", nil)
	resp, body := e.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ready", body["status"])
	require.Equal(t, "test", resp.Header.Get("X-Service-Version"))

	down := newEnv(t, "", errors.New("dial tcp"))
	resp, body = down.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "unavailable", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, "", nil)
	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOptInLifecycle(t *testing.T) {
	e := newEnv(t, "", nil)

	resp, body := e.do(t, http.MethodPut, "/v1/tenants/T1/optins/U1", map[string]string{"annotation": "hi"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "U1", body["participant"])
	require.Equal(t, 1, e.notifier.count(), "welcome message on first opt-in")

	resp, _ = e.do(t, http.MethodPut, "/v1/tenants/T1/optins/U1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, e.notifier.count(), "no welcome on re-opt-in")

	resp, body = e.do(t, http.MethodGet, "/v1/tenants/T1/optins", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["count"])

	resp, _ = e.do(t, http.MethodDelete, "/v1/tenants/T1/optins/U1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodDelete, "/v1/tenants/T1/optins/U1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/v1/tenants/T1/optins/U1", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", body["code"])
}

func TestManualRunAndHistory(t *testing.T) {
	e := newEnv(t, "", nil)
	for _, p := range []string{"U1", "U2"} {
		resp, _ := e.do(t, http.MethodPut, "/v1/tenants/T1/optins/"+p, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := e.do(t, http.MethodPost, "/v1/tenants/T1/runs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "matched", body["outcome"])

	resp, body = e.do(t, http.MethodGet, "/v1/tenants/T1/history?participant=U1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["count"])

	resp, body = e.do(t, http.MethodGet, "/v1/tenants/T1/optins", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 0, body["count"])
}

func TestSweep(t *testing.T) {
	e := newEnv(t, "", nil)
	for _, p := range []string{"U1", "U2"} {
		e.do(t, http.MethodPut, "/v1/tenants/T1/optins/"+p, nil)
		e.do(t, http.MethodPut, "/v1/tenants/T2/optins/"+p, nil)
	}

	resp, body := e.do(t, http.MethodPost, "/v1/sweeps", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["sweep_id"])
	require.Len(t, body["tenants"], 2)
	require.EqualValues(t, 0, body["failed"])
}

func TestProfiles(t *testing.T) {
	e := newEnv(t, "", nil)

	resp, body := e.do(t, http.MethodPut, "/v1/tenants/T1/profiles/U1", map[string]any{
		"attributes": map[string]string{"Pronouns": " she/her ", "hobbies": "chess", "bio": ""},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	attrs := body["attributes"].(map[string]any)
	require.Equal(t, "she/her", attrs["pronouns"])
	require.NotContains(t, attrs, "bio")

	resp, _ = e.do(t, http.MethodGet, "/v1/tenants/T1/profiles/U1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, "/v1/tenants/T1/profiles/U1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/v1/tenants/T1/profiles/U1", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminKeyAndErrors(t *testing.T) {
	e := newEnv(t, "s3cret", nil)

	resp, body := e.do(t, http.MethodGet, "/v1/tenants/T1/optins", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "UNAUTHORIZED", body["code"])

	resp, _ = e.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "ROUTE_NOT_FOUND", body["code"])
}

func TestInvalidJSON(t *testing.T) {
	e := newEnv(t, "", nil)
	req, err := http.NewRequest(http.MethodPut, e.srv.URL+"/v1/tenants/T1/optins/U1", bytes.NewReader([]byte("{nope")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
