// Package transfer parses transfer command flags and composes the HTTP entrypoint.
package transfer

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/cmd"
	server "github.com/ThatGuyChandan/livekit-warm-transfer/internal/services/transfer/app"
)

// Config holds transfer command configuration.
type Config struct {
	HTTPAddr string `env:"WARM_TRANSFER_HTTP_ADDR" envDefault:":8087"`

	LiveKitHost      string        `env:"WARM_TRANSFER_LIVEKIT_HOST"`
	LiveKitAPIKey    string        `env:"WARM_TRANSFER_LIVEKIT_API_KEY"`
	LiveKitAPISecret string        `env:"WARM_TRANSFER_LIVEKIT_API_SECRET"`
	TokenTTL         time.Duration `env:"WARM_TRANSFER_TOKEN_TTL" envDefault:"6h"`

	AgentAIdentity string `env:"WARM_TRANSFER_AGENT_A_IDENTITY" envDefault:"agentA"`
	AgentBIdentity string `env:"WARM_TRANSFER_AGENT_B_IDENTITY" envDefault:"agentB"`

	GroqAPIKey string `env:"WARM_TRANSFER_GROQ_API_KEY"`
	GroqModel  string `env:"WARM_TRANSFER_GROQ_MODEL"`

	TwilioAccountSID string `env:"WARM_TRANSFER_TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"WARM_TRANSFER_TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `env:"WARM_TRANSFER_TWILIO_FROM_NUMBER"`
	PublicBaseURL    string `env:"WARM_TRANSFER_PUBLIC_BASE_URL"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "transfer HTTP listen address")
	fs.StringVar(&cfg.LiveKitHost, "livekit-host", cfg.LiveKitHost, "room platform host URL")
	fs.StringVar(&cfg.LiveKitAPIKey, "livekit-api-key", cfg.LiveKitAPIKey, "room platform API key")
	fs.StringVar(&cfg.LiveKitAPISecret, "livekit-api-secret", cfg.LiveKitAPISecret, "room platform API secret")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "access token lifetime")
	fs.StringVar(&cfg.AgentAIdentity, "agent-a-identity", cfg.AgentAIdentity, "identity of the first agent")
	fs.StringVar(&cfg.AgentBIdentity, "agent-b-identity", cfg.AgentBIdentity, "identity of the second agent")
	fs.StringVar(&cfg.GroqAPIKey, "groq-api-key", cfg.GroqAPIKey, "summarization API key")
	fs.StringVar(&cfg.GroqModel, "groq-model", cfg.GroqModel, "summarization model name")
	fs.StringVar(&cfg.TwilioAccountSID, "twilio-account-sid", cfg.TwilioAccountSID, "outbound dialing account SID")
	fs.StringVar(&cfg.TwilioAuthToken, "twilio-auth-token", cfg.TwilioAuthToken, "outbound dialing auth token")
	fs.StringVar(&cfg.TwilioFromNumber, "twilio-from-number", cfg.TwilioFromNumber, "outbound dialing caller ID")
	fs.StringVar(&cfg.PublicBaseURL, "public-base-url", cfg.PublicBaseURL, "public base URL for voice callbacks")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the transfer app and serves the HTTP surface.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTransfer, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:         cfg.HTTPAddr,
			LiveKitHost:      cfg.LiveKitHost,
			LiveKitAPIKey:    cfg.LiveKitAPIKey,
			LiveKitAPISecret: cfg.LiveKitAPISecret,
			TokenTTL:         cfg.TokenTTL,
			AgentAIdentity:   cfg.AgentAIdentity,
			AgentBIdentity:   cfg.AgentBIdentity,
			GroqAPIKey:       cfg.GroqAPIKey,
			GroqModel:        cfg.GroqModel,
			TwilioAccountSID: cfg.TwilioAccountSID,
			TwilioAuthToken:  cfg.TwilioAuthToken,
			TwilioFromNumber: cfg.TwilioFromNumber,
			PublicBaseURL:    cfg.PublicBaseURL,
		}); err != nil {
			return fmt.Errorf("serve transfer: %w", err)
		}
		return nil
	})
}
