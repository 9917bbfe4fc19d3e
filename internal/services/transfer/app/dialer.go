package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/errors"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/timeouts"
)

const defaultTwilioAPIBaseURL = "https://api.twilio.com"

// Dialer places an outbound phone call that pulls agent B into a room.
type Dialer interface {
	Dial(ctx context.Context, toNumber, roomName string) (string, error)
}

// TwilioConfig configures outbound dialing through the Twilio REST API.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	// VoiceCallbackURL is this service's public base URL; Twilio fetches
	// TwiML from {VoiceCallbackURL}/twilio_voice when the callee answers.
	VoiceCallbackURL string
	APIBaseURL       string
	HTTPClient       *http.Client
}

type twilioDialer struct {
	cfg TwilioConfig
}

type twilioCallResponse struct {
	SID string `json:"sid"`
}

// NewTwilioDialer validates the Twilio configuration and returns a dialer.
func NewTwilioDialer(cfg TwilioConfig) (Dialer, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" {
		return nil, fmt.Errorf("twilio account sid is required")
	}
	if strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, fmt.Errorf("twilio auth token is required")
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, fmt.Errorf("twilio from number is required")
	}
	if strings.TrimSpace(cfg.VoiceCallbackURL) == "" {
		return nil, fmt.Errorf("voice callback url is required")
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = defaultTwilioAPIBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.UpstreamRequest}
	}
	return &twilioDialer{cfg: cfg}, nil
}

func (d *twilioDialer) Dial(ctx context.Context, toNumber, roomName string) (string, error) {
	toNumber = strings.TrimSpace(toNumber)
	if toNumber == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, "agent_b_number is required")
	}
	roomName = strings.TrimSpace(roomName)
	if roomName == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, "room_name is required")
	}

	callback := strings.TrimRight(strings.TrimSpace(d.cfg.VoiceCallbackURL), "/") +
		"/twilio_voice?room_name=" + url.QueryEscape(roomName)

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", d.cfg.FromNumber)
	form.Set("Url", callback)
	form.Set("Method", http.MethodPost)

	endpoint := strings.TrimRight(d.cfg.APIBaseURL, "/") +
		"/2010-04-01/Accounts/" + url.PathEscape(d.cfg.AccountSID) + "/Calls.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build dial request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(d.cfg.AccountSID, d.cfg.AuthToken)

	res, err := d.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "dial request failed", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", apperrors.New(apperrors.CodeUpstreamUnavailable,
			fmt.Sprintf("dial status %d: %s", res.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload twilioCallResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "decode dial response", err)
	}
	if strings.TrimSpace(payload.SID) == "" {
		return "", apperrors.New(apperrors.CodeUpstreamUnavailable, "dial response has no call sid")
	}
	return payload.SID, nil
}
