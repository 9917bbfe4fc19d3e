package domain

import (
	"errors"
	"strings"
	"time"
)

// Role classifies a participant of an originating room.
type Role int

const (
	// RoleUnspecified represents an identity not present in the room.
	RoleUnspecified Role = iota
	// RoleAgentA is the first agent, the one handing the call off.
	RoleAgentA
	// RoleCaller is the human being transferred.
	RoleCaller
)

var (
	// ErrEmptyOriginRoom indicates a missing originating room name.
	ErrEmptyOriginRoom = errors.New("origin room is required")
	// ErrEmptyHoldRoom indicates a missing hold room name.
	ErrEmptyHoldRoom = errors.New("hold room is required")
	// ErrEmptyTargetRoom indicates a missing target room name.
	ErrEmptyTargetRoom = errors.New("target room is required")
	// ErrEmptyCallerIdentity indicates a missing caller identity.
	ErrEmptyCallerIdentity = errors.New("caller identity is required")
)

// Record tracks one in-flight transfer, keyed by the originating room.
// CreatedAt is bookkeeping for a future expiry sweep; the two state
// transitions never read it.
type Record struct {
	OriginRoom     string
	HoldRoom       string
	TargetRoom     string
	CallerIdentity string
	CreatedAt      time.Time
}

// NewRecord validates and builds a transfer record.
func NewRecord(originRoom, holdRoom, targetRoom, callerIdentity string, now func() time.Time) (Record, error) {
	if now == nil {
		now = time.Now
	}

	originRoom = strings.TrimSpace(originRoom)
	if originRoom == "" {
		return Record{}, ErrEmptyOriginRoom
	}
	holdRoom = strings.TrimSpace(holdRoom)
	if holdRoom == "" {
		return Record{}, ErrEmptyHoldRoom
	}
	targetRoom = strings.TrimSpace(targetRoom)
	if targetRoom == "" {
		return Record{}, ErrEmptyTargetRoom
	}
	callerIdentity = strings.TrimSpace(callerIdentity)
	if callerIdentity == "" {
		return Record{}, ErrEmptyCallerIdentity
	}

	return Record{
		OriginRoom:     originRoom,
		HoldRoom:       holdRoom,
		TargetRoom:     targetRoom,
		CallerIdentity: callerIdentity,
		CreatedAt:      now().UTC(),
	}, nil
}

// Roster classifies the participants of an originating room by role.
// Any identity other than agent A counts as the caller.
type Roster struct {
	agentA     string
	identities []string
}

// ClassifyParticipants builds a roster from point-in-time room membership.
func ClassifyParticipants(identities []string, agentAIdentity string) Roster {
	agentAIdentity = strings.TrimSpace(agentAIdentity)
	cleaned := make([]string, 0, len(identities))
	for _, identity := range identities {
		if identity = strings.TrimSpace(identity); identity != "" {
			cleaned = append(cleaned, identity)
		}
	}
	return Roster{agentA: agentAIdentity, identities: cleaned}
}

// Role reports the role of identity within the roster.
func (r Roster) Role(identity string) Role {
	identity = strings.TrimSpace(identity)
	for _, member := range r.identities {
		if member != identity {
			continue
		}
		if member == r.agentA {
			return RoleAgentA
		}
		return RoleCaller
	}
	return RoleUnspecified
}

// Caller returns the identity being transferred: the first participant that
// is not agent A. The second return is false when no such participant exists.
func (r Roster) Caller() (string, bool) {
	for _, member := range r.identities {
		if member != r.agentA {
			return member, true
		}
	}
	return "", false
}
