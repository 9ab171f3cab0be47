package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func newTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(http.NewServeMux(), 0, time.Second, time.Second, time.Second, logger)
}

func TestGracefulShutdown_LIFOOrder(t *testing.T) {
	t.Parallel()

	srv := newTestServer()

	var order []string
	srv.OnShutdown("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	srv.OnShutdown("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})
	srv.OnShutdown("third", func(ctx context.Context) error {
		order = append(order, "third")
		return nil
	})

	if err := srv.gracefulShutdown(); err != nil {
		t.Fatalf("graceful shutdown: %v", err)
	}

	want := []string{"third", "second", "first"}
	if len(order) != len(want) {
		t.Fatalf("ran %d shutdown funcs, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("shutdown order = %v, want %v", order, want)
		}
	}
}

func TestGracefulShutdown_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	srv := newTestServer()

	var ran []string
	wantErr := errors.New("drain failed")
	srv.OnShutdown("database", func(ctx context.Context) error {
		ran = append(ran, "database")
		return nil
	})
	srv.OnShutdown("worker", func(ctx context.Context) error {
		ran = append(ran, "worker")
		return wantErr
	})

	err := srv.gracefulShutdown()
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the component error to surface, got %v", err)
	}
	if len(ran) != 2 {
		t.Fatalf("a failing component must not stop the others: ran %v", ran)
	}
}
