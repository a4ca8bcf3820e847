// Package metadata models the read-only view of a presentation served by the
// upstream media source: tracks, key (fragment) schedules, and the raw parts
// that make up the byte payload of each key.
//
// All durations and timestamps in this package are expressed in milliseconds,
// matching the upstream source's native unit. The HSS wire protocol instead
// counts 100-nanosecond ticks; conversion happens only at the package
// boundary, via MsToTicks/TicksToMs.
package metadata

// TicksPerMillisecond is the HSS wire timescale (10,000,000 ticks/sec) divided
// by 1000 ms/sec.
const TicksPerMillisecond = 10000

// MsToTicks converts a millisecond duration/timestamp to HSS 100ns ticks.
func MsToTicks(ms uint64) uint64 {
	return ms * TicksPerMillisecond
}

// TicksToMs converts HSS 100ns ticks to milliseconds, truncating any
// remainder smaller than a millisecond.
func TicksToMs(ticks uint64) uint64 {
	return ticks / TicksPerMillisecond
}

// TrackType distinguishes the two media kinds this connector serves.
type TrackType string

const (
	Video TrackType = "video"
	Audio TrackType = "audio"
)

// Part is a single sample within a track: one encoded video frame or one
// audio frame.
type Part struct {
	// Size is the byte length of the sample payload.
	Size uint32
	// Duration is the sample's presentation duration, in milliseconds.
	Duration uint32
	// Offset is the video composition time offset, in milliseconds. Always 0
	// for audio.
	Offset uint32
}

// Key is a random-access point: a GOP-aligned run of Parts served together as
// one fMP4 fragment.
type Key struct {
	// Time is the key's start time, in milliseconds.
	Time uint64
	// Length is the key's duration, in milliseconds.
	Length uint64
	// Number is the 1-based ordinal of this key within the track.
	Number uint32
	// Parts is the count of Part entries belonging to this key.
	Parts uint32
}

// Track describes one elementary stream: its codec, init data, and the full
// key/part schedule covering the track.
type Track struct {
	TrackID uint32
	Type    TrackType
	Codec   string

	Width  uint32
	Height uint32
	Rate   uint32

	// Bps is the byte-rate of the track; HSS bitrate is Bps*8.
	Bps uint32

	// Init holds codec-specific initialization data: an AVCC blob for H.264,
	// an AudioSpecificConfig for AAC.
	Init []byte

	// Keys is ordered by ascending Time.
	Keys []Key

	// Parts covers the whole track; each Key refers to a contiguous slice,
	// found by summing the Parts count of every earlier Key.
	Parts []Part
}

// PartOffset returns the index into t.Parts at which keyIndex's samples
// begin, computed by summing the Parts counts of every earlier key.
func (t *Track) PartOffset(keyIndex int) int {
	offset := 0
	for i := 0; i < keyIndex; i++ {
		offset += int(t.Keys[i].Parts)
	}
	return offset
}

// KeyParts returns the slice of t.Parts belonging to t.Keys[keyIndex].
func (t *Track) KeyParts(keyIndex int) []Part {
	offset := t.PartOffset(keyIndex)
	n := int(t.Keys[keyIndex].Parts)
	return t.Parts[offset : offset+n]
}

// KeyDurationMs returns the duration of t.Keys[keyIndex] in milliseconds,
// computed as the gap to the next key's start, or -1 if this is the last key
// (an open-ended "play to end" fragment).
func (t *Track) KeyDurationMs(keyIndex int) int64 {
	if keyIndex+1 >= len(t.Keys) {
		return -1
	}
	return int64(t.Keys[keyIndex+1].Time) - int64(t.Keys[keyIndex].Time)
}

// FindKey returns the index of the first key with Time >= requestedMs, and
// ok=false if no such key exists yet.
func (t *Track) FindKey(requestedMs uint64) (index int, ok bool) {
	for i, k := range t.Keys {
		if k.Time >= requestedMs {
			return i, true
		}
	}
	return 0, false
}

// Meta is the read-only presentation metadata supplied by the upstream media
// source.
type Meta struct {
	Live         bool
	Vod          bool
	BufferWindow uint64 // ms
	// Tracks maps trackID to Track. Enumeration order is not significant;
	// callers that need a stable order should sort by TrackID.
	Tracks map[uint32]*Track
}

// TrackOfKind returns the first track of the given type and codec whose
// presence makes it eligible for HSS (H264 video, AAC audio), preferring the
// lowest TrackID on ties. Returns nil if no such track exists.
func (m *Meta) TrackOfKind(t TrackType) *Track {
	var best *Track
	for _, track := range m.Tracks {
		if track.Type != t {
			continue
		}
		if t == Video && track.Codec != "H264" {
			continue
		}
		if t == Audio && track.Codec != "AAC" {
			continue
		}
		if best == nil || track.TrackID < best.TrackID {
			best = track
		}
	}
	return best
}

// TracksOfKind returns every eligible track of the given kind (H264 for
// video, AAC for audio), ordered by ascending TrackID. Tracks using any other
// codec are silently excluded, matching the Manifest Builder's contract for
// unknown codecs.
func (m *Meta) TracksOfKind(t TrackType) []*Track {
	var out []*Track
	for _, track := range m.Tracks {
		if track.Type != t {
			continue
		}
		if t == Video && track.Codec != "H264" {
			continue
		}
		if t == Audio && track.Codec != "AAC" {
			continue
		}
		out = append(out, track)
	}
	// Insertion sort keeps this readable for the small track counts HSS
	// presentations actually have.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].TrackID < out[j-1].TrackID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
