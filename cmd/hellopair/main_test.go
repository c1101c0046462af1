package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	Method string
	Path   string
	Query  string
	Key    string
	Body   map[string]any
}

func newAPI(t *testing.T, status int) (*httptest.Server, func() []seenRequest) {
	t.Helper()
	var mu sync.Mutex
	var seen []seenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := seenRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Key: r.Header.Get("X-Admin-Key")}
		if r.ContentLength > 0 {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&sr.Body))
		}
		mu.Lock()
		seen = append(seen, sr)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []seenRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]seenRequest(nil), seen...)
	}
}

func run(t *testing.T, srvURL string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--admin-api-url", srvURL, "--admin-api-key", "k"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands_MapToAdminAPI(t *testing.T) {
	srv, seen := newAPI(t, http.StatusOK)

	cases := [][]string{
		{"ping"},
		{"optin", "T1", "U1", "--annotation", "hola"},
		{"optout", "T1", "U1"},
		{"optins", "T1"},
		{"optins", "T1", "U1"},
		{"history", "T1", "--participant", "U1"},
		{"profile", "set", "T1", "U1", "--attr", "pronouns=they/them", "--attr", "location=Lima"},
		{"profile", "get", "T1", "U1"},
		{"sweep"},
		{"run", "T1"},
	}
	for _, args := range cases {
		_, err := run(t, srv.URL, args...)
		require.NoError(t, err, args)
	}

	reqs := seen()
	require.Len(t, reqs, len(cases))
	require.Equal(t, "/readyz", reqs[0].Path)
	require.Equal(t, http.MethodPut, reqs[1].Method)
	require.Equal(t, "/v1/tenants/T1/optins/U1", reqs[1].Path)
	require.Equal(t, "hola", reqs[1].Body["annotation"])
	require.Equal(t, "k", reqs[1].Key)
	require.Equal(t, http.MethodDelete, reqs[2].Method)
	require.Equal(t, "/v1/tenants/T1/optins", reqs[3].Path)
	require.Equal(t, "participant=U1", reqs[5].Query)
	require.Equal(t, map[string]any{"pronouns": "they/them", "location": "Lima"}, reqs[6].Body["attributes"])
	require.Equal(t, "/v1/sweeps", reqs[8].Path)
	require.Equal(t, "/v1/tenants/T1/runs", reqs[9].Path)
}

func TestCommand_FailsOnErrorStatus(t *testing.T) {
	srv, _ := newAPI(t, http.StatusServiceUnavailable)
	_, err := run(t, srv.URL, "sweep")
	require.Error(t, err)
}

func TestParseAttrs(t *testing.T) {
	m, err := parseAttrs([]string{"a=1", "b=x=y"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "1", "b": "x=y"}, m)

	_, err = parseAttrs([]string{"nope"})
	require.Error(t, err)
}
