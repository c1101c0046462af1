package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopair/internal/cache"
	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/slack"
	"github.com/dropDatabas3/hellopair/internal/store/adapters/memory"
)

func TestSlack_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		switch r.Form.Get("user") {
		case "U1":
			_, _ = w.Write([]byte(`{"ok":true,"user":{"id":"U1","name":"ada","profile":{"real_name":"Ada Lovelace","image_192":"http://img/ada","email":"ada@example.com"}}}`))
		case "U404":
			_, _ = w.Write([]byte(`{"ok":false,"error":"user_not_found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	d := NewSlack(slack.New(srv.URL, time.Second, func(string) string { return "xoxb" }))
	ctx := context.Background()

	id, err := d.Resolve(ctx, "T1", "U1")
	require.NoError(t, err)
	require.Equal(t, pairing.Identity{DisplayName: "Ada Lovelace", AvatarRef: "http://img/ada", Email: "ada@example.com"}, id)

	_, err = d.Resolve(ctx, "T1", "U404")
	require.ErrorIs(t, err, pairing.ErrNotFound)

	_, err = d.Resolve(ctx, "T1", "U500")
	require.ErrorIs(t, err, pairing.ErrUnavailable)
}

func TestProfile_Resolve(t *testing.T) {
	ctx := context.Background()
	conn := memory.New()
	require.NoError(t, conn.Profiles().Upsert(ctx, pairing.Profile{
		Tenant:      "T1",
		Participant: "U1",
		Attributes:  map[string]string{pairing.ProfileFullName: "Grace Hopper"},
	}))
	require.NoError(t, conn.Profiles().Upsert(ctx, pairing.Profile{
		Tenant:      "T1",
		Participant: "U2",
		Attributes:  map[string]string{pairing.ProfileHobbies: "chess"},
	}))

	d := NewProfile(conn.Profiles())
	id, err := d.Resolve(ctx, "T1", "U1")
	require.NoError(t, err)
	require.Equal(t, "Grace Hopper", id.DisplayName)

	_, err = d.Resolve(ctx, "T1", "U2")
	require.ErrorIs(t, err, pairing.ErrNotFound)

	_, err = d.Resolve(ctx, "T2", "U1")
	require.ErrorIs(t, err, pairing.ErrNotFound)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New("ldap", Deps{})
	require.Error(t, err)

	d, err := New("static", Deps{Static: map[string]string{"U1": "Ada"}})
	require.NoError(t, err)
	id, err := d.Resolve(context.Background(), "T", "U1")
	require.NoError(t, err)
	require.Equal(t, "Ada", id.DisplayName)
}

type countingDirectory struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (c *countingDirectory) Resolve(_ context.Context, _ pairing.TenantID, p pairing.ParticipantID) (pairing.Identity, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	if c.err != nil {
		return pairing.Identity{}, c.err
	}
	return pairing.Identity{DisplayName: "name-" + string(p)}, nil
}

func TestCached_HitsCacheAfterFirstLookup(t *testing.T) {
	next := &countingDirectory{}
	d := NewCached(next, cache.NewMemory("test:", time.Minute), 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := d.Resolve(ctx, "T1", "U1")
		require.NoError(t, err)
		require.Equal(t, "name-U1", id.DisplayName)
	}
	require.Equal(t, int32(1), next.calls.Load())

	// Otro tenant, otra entrada.
	_, err := d.Resolve(ctx, "T2", "U1")
	require.NoError(t, err)
	require.Equal(t, int32(2), next.calls.Load())

	require.NoError(t, d.Invalidate(ctx, "T1", "U1"))
	_, err = d.Resolve(ctx, "T1", "U1")
	require.NoError(t, err)
	require.Equal(t, int32(3), next.calls.Load())
}

func TestCached_CollapsesConcurrentLookups(t *testing.T) {
	next := &countingDirectory{delay: 50 * time.Millisecond}
	d := NewCached(next, cache.NewMemory("test:", time.Minute), 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Resolve(context.Background(), "T1", "U1")
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, next.calls.Load(), int32(2))
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	next := &countingDirectory{err: errors.Join(pairing.ErrUnavailable, errors.New("boom"))}
	d := NewCached(next, cache.NewMemory("test:", time.Minute), 0)

	for i := 0; i < 2; i++ {
		_, err := d.Resolve(context.Background(), "T1", "U1")
		require.ErrorIs(t, err, pairing.ErrUnavailable)
	}
	require.Equal(t, int32(2), next.calls.Load())
}
