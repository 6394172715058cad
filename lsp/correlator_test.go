package lsp

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/octofhir/console-lsp/lsp/lsptest"

	"github.com/stretchr/testify/require"
)

func TestRequestIDsIncreaseFromOne(t *testing.T) {
	srv := lsptest.NewServer(t)
	srv.Handle("console/echo", func(params json.RawMessage) (any, error) {
		return map[string]any{}, nil
	})
	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	// The handshake's initialize call consumed id 1.
	require.NoError(t, c.SendRequest("console/echo", nil, nil, 0))
	require.NoError(t, c.SendRequest("console/echo", nil, nil, 0))

	c.mu.Lock()
	next := c.nextID
	pending := len(c.pending)
	c.mu.Unlock()

	require.Equal(t, int64(3), next)
	require.Zero(t, pending)
}

func TestRequestTimeoutRemovesPendingEntry(t *testing.T) {
	srv := lsptest.NewServer(t)
	block := make(chan struct{})
	defer close(block)
	srv.Handle("console/slow", func(params json.RawMessage) (any, error) {
		<-block
		return nil, nil
	})

	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	err := c.SendRequest("console/slow", nil, nil, 30*time.Millisecond)
	require.ErrorIs(t, err, ErrRequestTimeout)

	c.mu.Lock()
	pending := len(c.pending)
	c.mu.Unlock()
	require.Zero(t, pending)

	// The connection survives the timeout.
	require.Equal(t, StateReady, c.State())
}

func TestStrayResponseIsIgnored(t *testing.T) {
	srv := lsptest.NewServer(t)
	srv.Handle("console/echo", func(params json.RawMessage) (any, error) {
		return map[string]any{"ok": true}, nil
	})
	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	// A response for an id nobody is waiting on must be dropped without
	// disturbing anything else.
	require.NoError(t, srv.ReplyRaw(9999, map[string]any{"bogus": true}))

	var result struct {
		Ok bool `json:"ok"`
	}
	require.NoError(t, c.SendRequest("console/echo", nil, &result, 0))
	require.True(t, result.Ok)
	require.Equal(t, StateReady, c.State())
}

func TestServerErrorResponseSurfacesToCaller(t *testing.T) {
	srv := lsptest.NewServer(t)
	srv.Handle("console/fails", func(params json.RawMessage) (any, error) {
		return nil, errors.New("query engine unavailable")
	})
	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Start())

	err := c.SendRequest("console/fails", nil, nil, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "query engine unavailable")
}

func TestDecodeNumericID(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{raw: `7`, want: 7, ok: true},
		{raw: `"12"`, want: 12, ok: true},
		{raw: `"abc"`, ok: false},
		{raw: `null`, ok: false},
		{raw: `{}`, ok: false},
		{raw: ``, ok: false},
	}

	for _, tc := range cases {
		got, ok := decodeNumericID(json.RawMessage(tc.raw))
		require.Equal(t, tc.ok, ok, "raw=%s", tc.raw)
		if tc.ok {
			require.Equal(t, tc.want, got, "raw=%s", tc.raw)
		}
	}
}
