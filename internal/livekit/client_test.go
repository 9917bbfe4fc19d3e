package livekit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/errors"
)

type recordedCall struct {
	path string
	auth string
	body map[string]any
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	issuer := newTestIssuer(t)
	client, err := NewClient(ClientConfig{Host: server.URL, Issuer: issuer})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server
}

func decodeCall(t *testing.T, r *http.Request) recordedCall {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return recordedCall{
		path: r.URL.Path,
		auth: r.Header.Get("Authorization"),
		body: body,
	}
}

func TestNewClientValidation(t *testing.T) {
	issuer := newTestIssuer(t)
	if _, err := NewClient(ClientConfig{Issuer: issuer}); err == nil {
		t.Fatal("expected error for empty host")
	}
	if _, err := NewClient(ClientConfig{Host: "http://localhost"}); err == nil {
		t.Fatal("expected error for nil issuer")
	}
}

func TestNormalizeHost(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://livekit.example.com/", "https://livekit.example.com"},
		{"wss://livekit.example.com", "https://livekit.example.com"},
		{"ws://localhost:7880", "http://localhost:7880"},
		{"http://localhost:7880", "http://localhost:7880"},
	}
	for _, tc := range cases {
		if got := normalizeHost(tc.in); got != tc.want {
			t.Fatalf("normalizeHost(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreateRoom(t *testing.T) {
	var call recordedCall
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		call = decodeCall(t, r)
		_, _ = w.Write([]byte("{}"))
	})

	if err := client.CreateRoom(context.Background(), "hold-room"); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if call.path != "/twirp/livekit.RoomService/CreateRoom" {
		t.Fatalf("path = %q", call.path)
	}
	if !strings.HasPrefix(call.auth, "Bearer ") {
		t.Fatalf("expected bearer auth, got %q", call.auth)
	}
	if call.body["name"] != "hold-room" {
		t.Fatalf("name = %v, want hold-room", call.body["name"])
	}
}

func TestCreateRoomPlatformError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "twirp error", http.StatusInternalServerError)
	})

	err := client.CreateRoom(context.Background(), "hold-room")
	if !errors.Is(err, apperrors.New(apperrors.CodeRoomUnavailable, "")) {
		t.Fatalf("expected room unavailable, got %v", err)
	}
}

func TestListParticipants(t *testing.T) {
	var call recordedCall
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		call = decodeCall(t, r)
		_, _ = w.Write([]byte(`{"participants":[{"identity":"agentA"},{"identity":"caller1"},{"identity":"  "}]}`))
	})

	identities, err := client.ListParticipants(context.Background(), "R1")
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if call.path != "/twirp/livekit.RoomService/ListParticipants" {
		t.Fatalf("path = %q", call.path)
	}
	if call.body["room"] != "R1" {
		t.Fatalf("room = %v, want R1", call.body["room"])
	}
	if len(identities) != 2 || identities[0] != "agentA" || identities[1] != "caller1" {
		t.Fatalf("identities = %v", identities)
	}
}

func TestSendDataTargetsIdentities(t *testing.T) {
	var call recordedCall
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		call = decodeCall(t, r)
		_, _ = w.Write([]byte("{}"))
	})

	payload := []byte(`{"action":"move"}`)
	if err := client.SendData(context.Background(), "R1", payload, []string{"caller1"}, "move_room"); err != nil {
		t.Fatalf("send data: %v", err)
	}
	if call.path != "/twirp/livekit.RoomService/SendData" {
		t.Fatalf("path = %q", call.path)
	}
	if call.body["kind"] != "RELIABLE" {
		t.Fatalf("kind = %v, want RELIABLE", call.body["kind"])
	}
	if call.body["topic"] != "move_room" {
		t.Fatalf("topic = %v, want move_room", call.body["topic"])
	}

	destinations, ok := call.body["destination_identities"].([]any)
	if !ok || len(destinations) != 1 || destinations[0] != "caller1" {
		t.Fatalf("destination_identities = %v", call.body["destination_identities"])
	}

	encoded, ok := call.body["data"].(string)
	if !ok {
		t.Fatalf("data = %v, want base64 string", call.body["data"])
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if string(decoded) != string(payload) {
		t.Fatalf("data = %q, want %q", decoded, payload)
	}
}

func TestSendDataDeliveryFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	err := client.SendData(context.Background(), "R1", []byte("{}"), []string{"caller1"}, "move_room")
	if !errors.Is(err, apperrors.New(apperrors.CodeDeliveryFailed, "")) {
		t.Fatalf("expected delivery failed, got %v", err)
	}
}

func TestSendDataRequiresIdentities(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	err := client.SendData(context.Background(), "R1", []byte("{}"), nil, "move_room")
	if !errors.Is(err, apperrors.New(apperrors.CodeInvalidArgument, "")) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
