// Package transfer implements warm transfer orchestration for live calls.
//
// A caller is parked in a temporary hold room while a second agent is
// engaged in a fresh target room, then moved into the target room without
// dropping. The package is organized into two subpackages:
//   - domain: transfer records, participant roles, and the in-flight registry.
//   - app: the HTTP surface and the coordinator sequencing rooms, grants,
//     and move signals against the realtime platform.
package transfer
