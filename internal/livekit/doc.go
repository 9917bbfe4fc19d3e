// Package livekit adapts the LiveKit server surface used by the transfer
// service: scoped access token minting and the RoomService HTTP API for
// creating rooms, listing participants, and targeted data delivery.
//
// The package speaks the platform's Twirp JSON protocol directly so the
// service carries no realtime SDK; media transport stays between clients
// and the platform.
package livekit
