package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/livekit"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/timeouts"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/services/transfer/domain"
)

// Config defines the inputs for the transfer HTTP boundary.
//
// Room platform credentials are mandatory; summarization and outbound dialing
// are optional and their endpoints report NOT_CONFIGURED when their settings
// are absent.
type Config struct {
	HTTPAddr string

	LiveKitHost      string
	LiveKitAPIKey    string
	LiveKitAPISecret string
	TokenTTL         time.Duration

	AgentAIdentity string
	AgentBIdentity string

	GroqAPIKey string
	GroqModel  string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	PublicBaseURL    string

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the warm transfer HTTP process.
//
// It owns the in-memory transfer registry, so pending transfers do not
// survive a restart.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// Run builds the transfer app and serves it until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init transfer server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve transfer: %w", err)
	}
	return nil
}

// NewServer builds a configured transfer server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	issuer, err := livekit.NewTokenIssuer(livekit.TokenConfig{
		APIKey:    config.LiveKitAPIKey,
		APISecret: config.LiveKitAPISecret,
		TTL:       config.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}
	client, err := livekit.NewClient(livekit.ClientConfig{
		Host:   config.LiveKitHost,
		Issuer: issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("init room client: %w", err)
	}

	coordinator, err := NewCoordinator(CoordinatorConfig{
		AgentAIdentity: config.AgentAIdentity,
		AgentBIdentity: config.AgentBIdentity,
		Directory:      client,
		Signals:        client,
		Grants:         issuer,
		Registry:       domain.NewRegistry(),
	})
	if err != nil {
		return nil, fmt.Errorf("init coordinator: %w", err)
	}

	var summarizer Summarizer
	if strings.TrimSpace(config.GroqAPIKey) != "" {
		summarizer, err = NewGroqSummarizer(GroqConfig{
			APIKey: config.GroqAPIKey,
			Model:  config.GroqModel,
		})
		if err != nil {
			return nil, fmt.Errorf("init summarizer: %w", err)
		}
	} else {
		log.Printf("transfer: summarization disabled, no API key configured")
	}

	var dialer Dialer
	if strings.TrimSpace(config.TwilioAccountSID) != "" {
		dialer, err = NewTwilioDialer(TwilioConfig{
			AccountSID:       config.TwilioAccountSID,
			AuthToken:        config.TwilioAuthToken,
			FromNumber:       config.TwilioFromNumber,
			VoiceCallbackURL: strings.TrimRight(strings.TrimSpace(config.PublicBaseURL), "/"),
		})
		if err != nil {
			return nil, fmt.Errorf("init dialer: %w", err)
		}
	} else {
		log.Printf("transfer: outbound dialing disabled, no account configured")
	}

	httpServer := &http.Server{
		Addr: httpAddr,
		Handler: newHandler(handlerDeps{
			coordinator:    coordinator,
			grants:         issuer,
			rooms:          client,
			summarizer:     summarizer,
			dialer:         dialer,
			mediaStreamURL: mediaStreamURL(config.LiveKitHost),
		}),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
	}, nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("transfer server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("transfer server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
}

// mediaStreamURL derives the websocket endpoint Twilio forks call audio into
// from the room platform host.
func mediaStreamURL(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	parsed, err := url.Parse(host)
	if err != nil || parsed.Host == "" {
		return "wss://" + strings.TrimRight(host, "/")
	}
	return "wss://" + parsed.Host
}
