// Package annexb implements the one boundary conversion spec.md calls out as
// "out of scope: referenced by interface only" — turning an AVCC-formatted
// H.264 extradata blob (length-prefixed SPS/PPS, as stored in
// metadata.Track.Init) into Annex-B form (start-code-prefixed NAL units),
// which is what the HSS CodecPrivateData manifest attribute requires.
//
// The core never constructs a converter itself; it depends on the Converter
// interface. DefaultConverter is the concrete implementation a process
// wires in, grounded on the AVCDecoderConfigurationRecord layout
// (ISO/IEC 14496-15 §5.2.4.1) and classified with the pack's own NALU type
// vocabulary (bluenviron/mediacommon's h264 package) for diagnostics.
package annexb

import (
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// ErrTruncated is returned when an AVCC blob is shorter than its declared
// NAL unit lengths claim.
var ErrTruncated = errors.New("annexb: truncated AVCDecoderConfigurationRecord")

// startCode is the Annex-B NAL unit delimiter.
var startCode = []byte{0x00, 0x00, 0x00, 0x01}

// Converter turns AVCC extradata into Annex-B form.
type Converter interface {
	ToAnnexB(avcc []byte) ([]byte, error)
}

// DefaultConverter is the pack-grounded implementation used outside of
// tests.
type DefaultConverter struct{}

// ToAnnexB parses avcc as an AVCDecoderConfigurationRecord and re-emits its
// SPS and PPS entries as Annex-B: 00 00 00 01 <SPS> 00 00 00 01 <PPS> ...,
// one start code per NAL unit, SPS entries first.
func (DefaultConverter) ToAnnexB(avcc []byte) ([]byte, error) {
	// configurationVersion(1) AVCProfileIndication(1) profile_compatibility(1)
	// AVCLevelIndication(1) lengthSizeMinusOne&0x03(1, top 6 bits reserved)
	if len(avcc) < 6 {
		return nil, fmt.Errorf("%w: record too short", ErrTruncated)
	}
	pos := 5
	numSPS := int(avcc[pos] & 0x1f)
	pos++

	var out []byte
	for i := 0; i < numSPS; i++ {
		nalu, next, err := readLengthPrefixedNALU(avcc, pos)
		if err != nil {
			return nil, err
		}
		if t := h264.NALUType(nalu[0] & 0x1f); t != h264.NALUTypeSPS {
			return nil, fmt.Errorf("annexb: expected SPS NALU, got type %d", t)
		}
		out = append(out, startCode...)
		out = append(out, nalu...)
		pos = next
	}

	if pos >= len(avcc) {
		return nil, fmt.Errorf("%w: missing PPS count", ErrTruncated)
	}
	numPPS := int(avcc[pos])
	pos++
	for i := 0; i < numPPS; i++ {
		nalu, next, err := readLengthPrefixedNALU(avcc, pos)
		if err != nil {
			return nil, err
		}
		if t := h264.NALUType(nalu[0] & 0x1f); t != h264.NALUTypePPS {
			return nil, fmt.Errorf("annexb: expected PPS NALU, got type %d", t)
		}
		out = append(out, startCode...)
		out = append(out, nalu...)
		pos = next
	}

	return out, nil
}

// readLengthPrefixedNALU reads a 2-byte big-endian length followed by that
// many bytes, starting at pos.
func readLengthPrefixedNALU(data []byte, pos int) (nalu []byte, next int, err error) {
	if pos+2 > len(data) {
		return nil, 0, fmt.Errorf("%w: missing NALU length", ErrTruncated)
	}
	n := int(data[pos])<<8 | int(data[pos+1])
	pos += 2
	if pos+n > len(data) {
		return nil, 0, fmt.Errorf("%w: NALU length exceeds record", ErrTruncated)
	}
	return data[pos : pos+n], pos + n, nil
}
