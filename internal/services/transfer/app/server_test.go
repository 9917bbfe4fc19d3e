package server

import (
	"context"
	"testing"
	"time"
)

func newTestServerConfig() Config {
	return Config{
		HTTPAddr:         "127.0.0.1:0",
		LiveKitHost:      "wss://example.livekit.cloud",
		LiveKitAPIKey:    "api-key",
		LiveKitAPISecret: "api-secret",
	}
}

func TestNewServer(t *testing.T) {
	server, err := NewServer(newTestServerConfig())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer server.Close()
}

func TestNewServerRequiresHTTPAddr(t *testing.T) {
	cfg := newTestServerConfig()
	cfg.HTTPAddr = "  "
	if _, err := NewServer(cfg); err == nil {
		t.Fatal("NewServer() accepted empty HTTP address")
	}
}

func TestNewServerRequiresPlatformCredentials(t *testing.T) {
	cfg := newTestServerConfig()
	cfg.LiveKitAPISecret = ""
	if _, err := NewServer(cfg); err == nil {
		t.Fatal("NewServer() accepted missing API secret")
	}
}

func TestNewServerRequiresCompleteTwilioConfig(t *testing.T) {
	cfg := newTestServerConfig()
	cfg.TwilioAccountSID = "AC123"
	// Account SID alone is not enough to dial.
	if _, err := NewServer(cfg); err == nil {
		t.Fatal("NewServer() accepted partial Twilio config")
	}
}

func TestServerListenAndServeStopsOnContext(t *testing.T) {
	server, err := NewServer(newTestServerConfig())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.ListenAndServe(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}

func TestMediaStreamURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"wss://example.livekit.cloud", "wss://example.livekit.cloud"},
		{"https://example.livekit.cloud/", "wss://example.livekit.cloud"},
		{"example.livekit.cloud", "wss://example.livekit.cloud"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := mediaStreamURL(tc.host); got != tc.want {
			t.Errorf("mediaStreamURL(%q) = %q, want %q", tc.host, got, tc.want)
		}
	}
}
