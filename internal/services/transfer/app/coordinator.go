package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/errors"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/id"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/services/transfer/domain"
)

const (
	// moveTopic is the data-channel topic caller clients listen on for
	// room-switch instructions.
	moveTopic = "move_room"

	actionMove = "move"

	defaultAgentAIdentity = "agentA"
	defaultAgentBIdentity = "agentB"
)

// RoomDirectory creates rooms on the realtime platform and enumerates their
// current participants.
type RoomDirectory interface {
	CreateRoom(ctx context.Context, name string) error
	ListParticipants(ctx context.Context, room string) ([]string, error)
}

// SignalSender delivers a reliable, targeted control message to specific
// identities inside a room.
type SignalSender interface {
	SendData(ctx context.Context, room string, payload []byte, identities []string, topic string) error
}

// GrantIssuer mints a scoped access token binding one identity to one room.
type GrantIssuer interface {
	Issue(room, identity string) (string, error)
}

// moveInstruction is the control message telling one client to switch rooms.
type moveInstruction struct {
	Action string `json:"action"`
	Room   string `json:"room"`
	Token  string `json:"token"`
}

// CoordinatorConfig wires the transfer state machine to the platform.
type CoordinatorConfig struct {
	AgentAIdentity string
	AgentBIdentity string
	Directory      RoomDirectory
	Signals        SignalSender
	Grants         GrantIssuer
	Registry       *domain.Registry
	NewRoomName    func() (string, error)
	Now            func() time.Time
}

// Coordinator sequences warm transfers: it parks the caller in a hold room,
// hands agent B a credential for a fresh target room, and later moves the
// caller into the target room. Per originating room the state is either
// absent or pending; initiate creates a pending record and complete retires
// it.
type Coordinator struct {
	agentA      string
	agentB      string
	directory   RoomDirectory
	signals     SignalSender
	grants      GrantIssuer
	registry    *domain.Registry
	newRoomName func() (string, error)
	now         func() time.Time
}

// InitiateResult carries what the first agent's client needs to brief
// agent B: the target room and a credential that already works.
type InitiateResult struct {
	TargetRoom     string
	HoldRoom       string
	CallerIdentity string
	AgentBToken    string
}

// NewCoordinator validates dependencies and returns a coordinator.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Directory == nil {
		return nil, errors.New("room directory is required")
	}
	if cfg.Signals == nil {
		return nil, errors.New("signal sender is required")
	}
	if cfg.Grants == nil {
		return nil, errors.New("grant issuer is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("transfer registry is required")
	}

	agentA := strings.TrimSpace(cfg.AgentAIdentity)
	if agentA == "" {
		agentA = defaultAgentAIdentity
	}
	agentB := strings.TrimSpace(cfg.AgentBIdentity)
	if agentB == "" {
		agentB = defaultAgentBIdentity
	}
	newRoomName := cfg.NewRoomName
	if newRoomName == nil {
		newRoomName = id.NewID
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Coordinator{
		agentA:      agentA,
		agentB:      agentB,
		directory:   cfg.Directory,
		signals:     cfg.Signals,
		grants:      cfg.Grants,
		registry:    cfg.Registry,
		newRoomName: newRoomName,
		now:         now,
	}, nil
}

// Initiate starts a warm transfer out of originRoom. It resolves the caller,
// allocates hold and target rooms, parks the caller in the hold room via a
// move instruction, and records the transfer as pending.
//
// The caller's move instruction is only sent once both rooms exist, so the
// client never tries to join a room the platform does not know yet.
func (c *Coordinator) Initiate(ctx context.Context, originRoom string) (InitiateResult, error) {
	originRoom = strings.TrimSpace(originRoom)
	if originRoom == "" {
		return InitiateResult{}, apperrors.New(apperrors.CodeInvalidArgument, "current_room is required")
	}

	identities, err := c.directory.ListParticipants(ctx, originRoom)
	if err != nil {
		return InitiateResult{}, err
	}

	roster := domain.ClassifyParticipants(identities, c.agentA)
	caller, ok := roster.Caller()
	if !ok {
		return InitiateResult{}, apperrors.WithMetadata(
			apperrors.CodeCallerNotFound,
			"no caller present in origin room",
			map[string]string{"Room": originRoom},
		)
	}

	holdRoom, err := c.newRoomName()
	if err != nil {
		return InitiateResult{}, fmt.Errorf("generate hold room name: %w", err)
	}
	targetRoom, err := c.newRoomName()
	if err != nil {
		return InitiateResult{}, fmt.Errorf("generate target room name: %w", err)
	}

	holdToken, err := c.grants.Issue(holdRoom, caller)
	if err != nil {
		return InitiateResult{}, err
	}
	agentBToken, err := c.grants.Issue(targetRoom, c.agentB)
	if err != nil {
		return InitiateResult{}, err
	}

	if err := c.directory.CreateRoom(ctx, holdRoom); err != nil {
		return InitiateResult{}, err
	}
	if err := c.directory.CreateRoom(ctx, targetRoom); err != nil {
		return InitiateResult{}, err
	}

	if err := c.sendMove(ctx, originRoom, caller, holdRoom, holdToken); err != nil {
		return InitiateResult{}, err
	}

	record, err := domain.NewRecord(originRoom, holdRoom, targetRoom, caller, c.now)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("build transfer record: %w", err)
	}
	c.registry.Put(record)

	log.Printf("transfer: initiated origin=%q hold=%q target=%q caller=%q", originRoom, holdRoom, targetRoom, caller)
	return InitiateResult{
		TargetRoom:     targetRoom,
		HoldRoom:       holdRoom,
		CallerIdentity: caller,
		AgentBToken:    agentBToken,
	}, nil
}

// Complete finishes a pending transfer: the caller parked in the hold room is
// instructed to join targetRoom with a fresh credential, and the pending
// record is retired. Completion is exactly-once; a repeat reports
// TransferNotFound rather than resending.
func (c *Coordinator) Complete(ctx context.Context, originRoom, targetRoom string) error {
	originRoom = strings.TrimSpace(originRoom)
	if originRoom == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "from_room is required")
	}
	targetRoom = strings.TrimSpace(targetRoom)
	if targetRoom == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "to_room is required")
	}

	record, ok := c.registry.Get(originRoom)
	if !ok {
		return apperrors.WithMetadata(
			apperrors.CodeTransferNotFound,
			"no pending transfer for origin room",
			map[string]string{"Room": originRoom},
		)
	}
	if record.TargetRoom != targetRoom {
		return apperrors.WithMetadata(
			apperrors.CodeTransferMismatch,
			"target room does not match pending transfer",
			map[string]string{"Room": originRoom, "Target": targetRoom},
		)
	}

	callerToken, err := c.grants.Issue(record.TargetRoom, record.CallerIdentity)
	if err != nil {
		return err
	}

	// The caller is listening in the hold room now, not the origin room.
	if err := c.sendMove(ctx, record.HoldRoom, record.CallerIdentity, record.TargetRoom, callerToken); err != nil {
		return err
	}

	c.registry.Remove(originRoom)
	log.Printf("transfer: completed origin=%q target=%q caller=%q", originRoom, record.TargetRoom, record.CallerIdentity)
	return nil
}

// sendMove delivers a move instruction to a single identity. Delivery is
// fire-and-forget beyond the platform's reliable class; the client's actual
// rejoin is outside this service's control.
func (c *Coordinator) sendMove(ctx context.Context, viaRoom, identity, toRoom, token string) error {
	payload, err := json.Marshal(moveInstruction{
		Action: actionMove,
		Room:   toRoom,
		Token:  token,
	})
	if err != nil {
		return fmt.Errorf("encode move instruction: %w", err)
	}
	return c.signals.SendData(ctx, viaRoom, payload, []string{identity}, moveTopic)
}
