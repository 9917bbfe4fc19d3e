package server

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/errors"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/id"
)

type tokenRequest struct {
	Room     string `json:"room"`
	Identity string `json:"identity"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type createRoomResponse struct {
	RoomName string `json:"room_name"`
}

type initiateRequest struct {
	CurrentRoom string `json:"current_room"`
}

type initiateResponse struct {
	NewRoomName string `json:"new_room_name"`
	AgentBToken string `json:"agent_b_token"`
}

type completeRequest struct {
	FromRoom string `json:"from_room"`
	ToRoom   string `json:"to_room"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type summarizeRequest struct {
	Transcript string `json:"transcript"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

type dialRequest struct {
	AgentBNumber string `json:"agent_b_number"`
	RoomName     string `json:"room_name"`
}

type dialResponse struct {
	CallSID string `json:"call_sid"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// twimlResponse instructs Twilio to fork the answered call's audio into the
// realtime platform's media stream.
type twimlResponse struct {
	XMLName xml.Name   `xml:"Response"`
	Start   twimlStart `xml:"Start"`
}

type twimlStart struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL string `xml:"url,attr"`
}

// handlerDeps carries the collaborators the HTTP surface dispatches into.
// summarizer and dialer stay nil when their upstreams are not configured.
type handlerDeps struct {
	coordinator    *Coordinator
	grants         GrantIssuer
	rooms          RoomDirectory
	newRoomName    func() (string, error)
	summarizer     Summarizer
	dialer         Dialer
	mediaStreamURL string
}

func newHandler(deps handlerDeps) http.Handler {
	if deps.newRoomName == nil {
		deps.newRoomName = id.NewID
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		handleToken(w, r, deps)
	})
	mux.HandleFunc("/create_room", func(w http.ResponseWriter, r *http.Request) {
		handleCreateRoom(w, r, deps)
	})
	mux.HandleFunc("/initiate_transfer", func(w http.ResponseWriter, r *http.Request) {
		handleInitiateTransfer(w, r, deps)
	})
	mux.HandleFunc("/complete_transfer", func(w http.ResponseWriter, r *http.Request) {
		handleCompleteTransfer(w, r, deps)
	})
	mux.HandleFunc("/summarize", func(w http.ResponseWriter, r *http.Request) {
		handleSummarize(w, r, deps)
	})
	mux.HandleFunc("/dial_agent_b", func(w http.ResponseWriter, r *http.Request) {
		handleDialAgentB(w, r, deps)
	})
	mux.HandleFunc("/twilio_voice", func(w http.ResponseWriter, r *http.Request) {
		handleTwilioVoice(w, r, deps)
	})

	return withCORS(mux)
}

// withCORS mirrors the permissive browser policy of the upstream frontend;
// HTTP caller authentication is out of scope for this service.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleToken(w http.ResponseWriter, r *http.Request, deps handlerDeps) {
	if !requirePost(w, r) {
		return
	}
	var payload tokenRequest
	if !decodeJSONBody(w, r, &payload) {
		return
	}

	token, err := deps.grants.Issue(payload.Room, payload.Identity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func handleCreateRoom(w http.ResponseWriter, r *http.Request, deps handlerDeps) {
	if !requirePost(w, r) {
		return
	}

	name, err := deps.newRoomName()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, string(apperrors.CodeUnknown), "failed to generate room name")
		return
	}
	if err := deps.rooms.CreateRoom(r.Context(), name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createRoomResponse{RoomName: name})
}

func handleInitiateTransfer(w http.ResponseWriter, r *http.Request, deps handlerDeps) {
	if !requirePost(w, r) {
		return
	}
	var payload initiateRequest
	if !decodeJSONBody(w, r, &payload) {
		return
	}

	result, err := deps.coordinator.Initiate(r.Context(), payload.CurrentRoom)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initiateResponse{
		NewRoomName: result.TargetRoom,
		AgentBToken: result.AgentBToken,
	})
}

func handleCompleteTransfer(w http.ResponseWriter, r *http.Request, deps handlerDeps) {
	if !requirePost(w, r) {
		return
	}
	var payload completeRequest
	if !decodeJSONBody(w, r, &payload) {
		return
	}

	if err := deps.coordinator.Complete(r.Context(), payload.FromRoom, payload.ToRoom); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func handleSummarize(w http.ResponseWriter, r *http.Request, deps handlerDeps) {
	if !requirePost(w, r) {
		return
	}
	if deps.summarizer == nil {
		writeJSONError(w, http.StatusServiceUnavailable, string(apperrors.CodeNotConfigured), "summarization is not configured")
		return
	}
	var payload summarizeRequest
	if !decodeJSONBody(w, r, &payload) {
		return
	}

	summary, err := deps.summarizer.Summarize(r.Context(), payload.Transcript)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{Summary: summary})
}

func handleDialAgentB(w http.ResponseWriter, r *http.Request, deps handlerDeps) {
	if !requirePost(w, r) {
		return
	}
	if deps.dialer == nil {
		writeJSONError(w, http.StatusServiceUnavailable, string(apperrors.CodeNotConfigured), "outbound dialing is not configured")
		return
	}
	var payload dialRequest
	if !decodeJSONBody(w, r, &payload) {
		return
	}

	callSID, err := deps.dialer.Dial(r.Context(), payload.AgentBNumber, payload.RoomName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dialResponse{CallSID: callSID})
}

func handleTwilioVoice(w http.ResponseWriter, r *http.Request, deps handlerDeps) {
	if !requirePost(w, r) {
		return
	}
	// Twilio sends the callback as a form POST; the room name rides on the
	// query string set when the call was placed.
	roomName := strings.TrimSpace(r.URL.Query().Get("room_name"))
	if roomName == "" {
		writeJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidArgument), "room_name is required")
		return
	}

	body, err := xml.Marshal(twimlResponse{
		Start: twimlStart{Stream: twimlStream{URL: deps.mediaStreamURL}},
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, string(apperrors.CodeUnknown), "failed to render voice response")
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONError(w, http.StatusMethodNotAllowed, string(apperrors.CodeInvalidArgument), "method not allowed")
		return false
	}
	return true
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidArgument), "invalid JSON body")
		return false
	}
	return true
}

// writeDomainError maps a coded error onto the HTTP response. Foreign errors
// surface as a generic 500 without leaking internals.
func writeDomainError(w http.ResponseWriter, err error) {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		log.Printf("transfer: unexpected error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, string(apperrors.CodeUnknown), "internal error")
		return
	}

	status := domainErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("transfer: upstream failure code=%s err=%v", domainErr.Code, err)
	}
	writeJSONError(w, status, string(domainErr.Code), domainErr.Message)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Error: code, ErrorDescription: description})
}
