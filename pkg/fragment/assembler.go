// Package fragment implements the Fragment Assembler (§4.4): given a
// selected track and the key the Liveness Gate matched, it computes the
// per-sample arrays, builds the MOOF + mdat header bytes, and produces the
// three newline-terminated commands that drive the upstream packet source.
package fragment

import (
	"encoding/binary"
	"fmt"

	"github.com/go-webdl/hssorigin/pkg/boxes"
	"github.com/go-webdl/hssorigin/pkg/metadata"
)

// Result is everything the Connection Driver needs to start streaming a
// fragment response.
type Result struct {
	// Commands are the upstream protocol lines, in order, each already
	// newline-terminated: "t <id>\n", "s <ms>\n", "p [<ms>]\n".
	Commands string
	// Moof is the complete, self-consistent MOOF box.
	Moof []byte
	// MdatHeader is the 4-byte big-endian mdat box length followed by the
	// literal bytes "mdat". The media payload streamed after it must total
	// exactly KeySize bytes.
	MdatHeader []byte
	KeySize    uint32
}

// Assemble builds the fragment response header for track's key at keyIndex.
// live controls whether a TFRF (UUID TrackFragmentReference) box is
// attached; requestedMs is the original client request time, used only to
// pick the forward-looking TFRF entries.
func Assemble(track *metadata.Track, keyIndex int, live bool, requestedMs uint64) (Result, error) {
	if keyIndex < 0 || keyIndex >= len(track.Keys) {
		return Result{}, fmt.Errorf("fragment: key index %d out of range", keyIndex)
	}
	key := track.Keys[keyIndex]
	parts := track.KeyParts(keyIndex)
	video := track.Type == metadata.Video

	var keySize uint32
	samples := make([]boxes.TrunSample, len(parts))
	for i, p := range parts {
		keySize += p.Size
		samples[i] = boxes.TrunSample{
			Duration: p.Duration * metadata.TicksPerMillisecond,
			Size:     p.Size,
		}
		if video {
			samples[i].CompositionOffset = int32(p.Offset * metadata.TicksPerMillisecond)
		}
	}

	defaultFlags := uint32(boxes.DefaultSampleFlagsAudio)
	if video {
		defaultFlags = boxes.DefaultSampleFlagsVideo
	}

	tfhd := boxes.TFHD{TrackID: track.TrackID, DefaultSampleFlags: defaultFlags}
	trun := boxes.TRUN{Video: video, DataOffset: 0, Samples: samples}
	sdtp := boxes.SDTP{Video: video, Count: len(parts)}
	traf := boxes.TRAF{Tfhd: tfhd, Trun: trun, Sdtp: sdtp}
	if live {
		traf.Tfrf = buildTfrf(track, requestedMs)
	}
	moof := boxes.MOOF{
		Mfhd: boxes.MFHD{SequenceNumber: boxes.SequenceNumberFor(key.Number, track.TrackID)},
		Traf: traf,
	}

	// First pass: learn the size with a placeholder data_offset, then patch
	// and rebuild once — the two-pass discipline design note §9 calls for,
	// since these are value-owning structs rather than aliased box trees.
	firstSize := boxes.Size(moof)
	trun.DataOffset = int32(firstSize) + 8
	traf.Trun = trun
	moof.Traf = traf
	moofBytes := moof.Encode()

	var mdatHeader [8]byte
	binary.BigEndian.PutUint32(mdatHeader[0:4], keySize+8)
	copy(mdatHeader[4:8], "mdat")

	return Result{
		Commands:   commandsFor(track.TrackID, key, track.KeyDurationMs(keyIndex)),
		Moof:       moofBytes,
		MdatHeader: mdatHeader[:],
		KeySize:    keySize,
	}, nil
}

func commandsFor(trackID uint32, key metadata.Key, keyDurMs int64) string {
	cmds := fmt.Sprintf("t %d\ns %d\n", trackID, key.Time)
	if keyDurMs == -1 {
		cmds += "p\n"
	} else {
		cmds += fmt.Sprintf("p %d\n", key.Time+uint64(keyDurMs))
	}
	return cmds
}

// buildTfrf scans forward from requestedMs for up to two upcoming keys, per
// §4.5.
func buildTfrf(track *metadata.Track, requestedMs uint64) *boxes.TFRF {
	var entries []boxes.TfrfEntry
	// The last key is the open-ended live tail and is never offered as a
	// lookahead reference.
	for _, k := range track.Keys[:max(0, len(track.Keys)-1)] {
		if len(entries) >= 2 {
			break
		}
		if k.Time > requestedMs {
			entries = append(entries, boxes.TfrfEntry{
				Time:     metadata.MsToTicks(k.Time),
				Duration: metadata.MsToTicks(k.Length),
			})
		}
	}
	return &boxes.TFRF{Entries: entries}
}
