package common

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestLoadTimeoutConfig(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "7")
	t.Setenv("WRITE_TIMEOUT", "nope")
	cfg := LoadTimeoutConfig(DefaultTimeouts)
	if cfg.Read != 7*time.Second {
		t.Errorf("expected read timeout from env, got %v", cfg.Read)
	}
	if cfg.Write != DefaultTimeouts.Write {
		t.Errorf("expected default write timeout, got %v", cfg.Write)
	}
}

func TestRunServerWithShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := NewServer("127.0.0.1:0", http.NotFoundHandler(), DefaultTimeouts)
	hookRan := false
	done := make(chan error, 1)
	go func() {
		done <- RunServerWithShutdown(ctx, server, "test", DefaultTimeouts, func(ctx context.Context) error {
			hookRan = true
			return nil
		})
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	if !hookRan {
		t.Error("expected shutdown hook to run")
	}
}
