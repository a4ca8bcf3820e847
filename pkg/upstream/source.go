// Package upstream defines the connector's view of the live/VOD packet
// source: an external collaborator referenced by interface only (spec.md
// §1 "Out of scope"). The real implementation lives behind a process's own
// socket/pipe to the media core; this package only describes the contract
// the Connection Driver and Fragment Assembler drive it through, plus a
// minimal in-memory fake used by tests.
package upstream

import (
	"errors"

	"github.com/go-webdl/hssorigin/pkg/metadata"
)

// PacketKind classifies one packet arriving from the upstream source.
type PacketKind int

const (
	PacketAudio PacketKind = iota
	PacketVideo
	// PacketPauseMark terminates the current fragment: no more payload
	// packets will arrive for it.
	PacketPauseMark
	PacketMetadata
)

// Packet is one unit of data read from the upstream source.
type Packet struct {
	Kind    PacketKind
	Payload []byte
}

// ErrNotConnected is returned when the upstream source could not be reached,
// surfaced by the Connection Driver as a 404 (§4.6, §7).
var ErrNotConnected = errors.New("upstream: stream not available")

// Source is a per-connection handle to the upstream media source.
//
// SendCommand delivers one or more newline-terminated text commands exactly
// as the Fragment Assembler built them ("t <id>\ns <ms>\np [<ms>]\n") — the
// upstream wire protocol is opaque text by design (§6), so the core never
// constructs individual track-select/seek/play calls against this
// interface, only the already-assembled command block.
//
// Poll is non-blocking: it returns (Packet{}, false, nil) immediately when
// no packet is currently available, letting the Connection Driver fall back
// to its bounded sleep instead of blocking the event loop.
type Source interface {
	// Meta returns the current presentation metadata.
	Meta() *metadata.Meta
	// SendCommand writes raw, already newline-terminated command text.
	SendCommand(raw string) error
	// Poll returns the next available packet without blocking.
	Poll() (pkt Packet, ok bool, err error)
	// SendStats delivers one opaque stats line to the upstream source.
	SendStats(line string) error
	// Connected reports whether the upstream source is still reachable.
	Connected() bool
	// Close releases the upstream handle.
	Close() error
}

// Dialer opens a Source for the named stream, returning ErrNotConnected if
// the stream does not exist or the upstream could not be reached.
type Dialer interface {
	Dial(streamName string) (Source, error)
}
