package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetupServerReportsListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	ctx, fail := context.WithCancelCause(context.Background())
	defer fail(nil)
	stop := setupServer(ctx, http.NotFoundHandler(), busy.Addr().String(), fail)
	defer stop(context.Background())

	select {
	case <-ctx.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("serve kept waiting after the listener failed")
	}
	require.ErrorContains(t, context.Cause(ctx), "webserver")
	require.NotErrorIs(t, context.Cause(ctx), context.Canceled)
}

func TestSetupServerShutdown(t *testing.T) {
	free, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := free.Addr().String()
	require.NoError(t, free.Close())

	ctx, fail := context.WithCancelCause(context.Background())
	defer fail(nil)
	stop := setupServer(ctx, http.NotFoundHandler(), addr, fail)

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 3*time.Second, 20*time.Millisecond)

	stop(context.Background())
	require.NoError(t, ctx.Err(), "a clean shutdown is not a failure")
}
