// Package boxes builds the fMP4 boxes an HSS fragment response is made of:
// MOOF, MFHD, TRAF, TFHD, TRUN, SDTP, and the live-only UUID
// TrackFragmentReference ("TfrfBox"). Every type here is a value-owning
// struct with an Encode method, rather than the pointer-owned, child-holding
// trees of the C++ core this is ported from (see SPEC_FULL.md, §9 "Design
// Notes") — that keeps the two-pass data_offset patch in Fragment Assembler
// (build once to learn the size, patch, rebuild) a matter of calling Encode
// twice instead of mutating aliased box trees.
package boxes

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Box is any fMP4 box this package can produce.
type Box interface {
	// Encode returns the complete box bytes: 4-byte size, 4-byte type, then
	// payload (and any child boxes).
	Encode() []byte
}

// Size returns the encoded length of b without retaining the bytes.
func Size(b Box) uint32 {
	return uint32(len(b.Encode()))
}

func putU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putI32(buf []byte, v int32) []byte {
	return putU32(buf, uint32(v))
}

// boxHeader prepends the 4-byte size and 4-byte ASCII type to payload,
// returning the complete box.
func boxHeader(boxType string, payload []byte) []byte {
	out := make([]byte, 0, 8+len(payload))
	out = putU32(out, uint32(8+len(payload)))
	out = append(out, []byte(boxType)...)
	out = append(out, payload...)
	return out
}

// fullBoxHeader is the 1-byte version + 3-byte flags prefix shared by every
// "full box" (ISO/IEC 14496-12 §4.2).
func fullBoxHeader(version uint8, flags uint32) []byte {
	out := make([]byte, 4)
	out[0] = version
	out[1] = byte(flags >> 16)
	out[2] = byte(flags >> 8)
	out[3] = byte(flags)
	return out
}

// container concatenates child box bytes under boxType.
func container(boxType string, children ...Box) []byte {
	var payload []byte
	for _, c := range children {
		payload = append(payload, c.Encode()...)
	}
	return boxHeader(boxType, payload)
}

// TfrfBoxUUID is the extended type of the MS Smooth Streaming
// TrackFragmentReference box (§4.5), the "uuid" box carrying forward-looking
// fragment references for live presentations.
var TfrfBoxUUID = uuid.MustParse("6D1D9B05-42D5-44E6-80E2-141DAFF757B2")
