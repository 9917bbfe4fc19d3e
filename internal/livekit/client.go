package livekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/errors"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/timeouts"
)

const roomServicePath = "/twirp/livekit.RoomService/"

// dataPacketKindReliable requests at-least-once delivery to connected
// destinations.
const dataPacketKindReliable = "RELIABLE"

// ClientConfig defines how the RoomService client reaches the platform.
type ClientConfig struct {
	// Host is the LiveKit server URL. ws:// and wss:// schemes are accepted
	// and rewritten to their HTTP equivalents.
	Host       string
	Issuer     *TokenIssuer
	HTTPClient *http.Client
}

// Client calls the LiveKit RoomService API. Rooms are owned by the platform
// once created; the client only references them by name.
type Client struct {
	baseURL    string
	issuer     *TokenIssuer
	httpClient *http.Client
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type roomParticipant struct {
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
	State    string `json:"state,omitempty"`
}

type listParticipantsRequest struct {
	Room string `json:"room"`
}

type listParticipantsResponse struct {
	Participants []roomParticipant `json:"participants"`
}

type sendDataRequest struct {
	Room                  string   `json:"room"`
	Data                  []byte   `json:"data"`
	Kind                  string   `json:"kind"`
	DestinationIdentities []string `json:"destination_identities,omitempty"`
	Topic                 string   `json:"topic,omitempty"`
}

// NewClient validates the configuration and returns a RoomService client.
func NewClient(cfg ClientConfig) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("livekit host is required")
	}
	if cfg.Issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.UpstreamRequest}
	}
	return &Client{
		baseURL:    normalizeHost(host),
		issuer:     cfg.Issuer,
		httpClient: httpClient,
	}, nil
}

// normalizeHost rewrites websocket schemes to HTTP and strips the trailing
// slash so Twirp paths join cleanly.
func normalizeHost(host string) string {
	switch {
	case strings.HasPrefix(host, "wss://"):
		host = "https://" + strings.TrimPrefix(host, "wss://")
	case strings.HasPrefix(host, "ws://"):
		host = "http://" + strings.TrimPrefix(host, "ws://")
	}
	return strings.TrimRight(host, "/")
}

// CreateRoom creates a room by name. Callers supply fresh unique names, so
// duplicate-name collisions are not handled here.
func (c *Client) CreateRoom(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "room name is required")
	}
	if err := c.call(ctx, "CreateRoom", name, createRoomRequest{Name: name}, nil); err != nil {
		return apperrors.Wrap(apperrors.CodeRoomUnavailable, fmt.Sprintf("create room %q", name), err)
	}
	return nil
}

// ListParticipants returns the identities currently connected to room. The
// result reflects point-in-time membership.
func (c *Client) ListParticipants(ctx context.Context, room string) ([]string, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "room is required")
	}

	var resp listParticipantsResponse
	if err := c.call(ctx, "ListParticipants", room, listParticipantsRequest{Room: room}, &resp); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRoomUnavailable, fmt.Sprintf("list participants of %q", room), err)
	}

	identities := make([]string, 0, len(resp.Participants))
	for _, participant := range resp.Participants {
		if identity := strings.TrimSpace(participant.Identity); identity != "" {
			identities = append(identities, identity)
		}
	}
	return identities, nil
}

// SendData delivers payload to the given identities inside room over the
// platform's reliable data channel, tagged with topic. Other participants in
// the room do not receive the message.
func (c *Client) SendData(ctx context.Context, room string, payload []byte, identities []string, topic string) error {
	room = strings.TrimSpace(room)
	if room == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "room is required")
	}
	if len(identities) == 0 {
		return apperrors.New(apperrors.CodeInvalidArgument, "destination identities are required")
	}

	req := sendDataRequest{
		Room:                  room,
		Data:                  payload,
		Kind:                  dataPacketKindReliable,
		DestinationIdentities: identities,
		Topic:                 topic,
	}
	if err := c.call(ctx, "SendData", room, req, nil); err != nil {
		return apperrors.Wrap(apperrors.CodeDeliveryFailed, fmt.Sprintf("send data to %q", room), err)
	}
	return nil
}

// call performs one Twirp JSON request authorized by a room-scoped admin
// token. A nil out skips response decoding.
func (c *Client) call(ctx context.Context, method string, room string, payload any, out any) error {
	token, err := c.issuer.IssueAdmin(room)
	if err != nil {
		return fmt.Errorf("issue admin token: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeouts.UpstreamRequest)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+roomServicePath+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
