package boxes

// TRUN flag bits (ISO/IEC 14496-12 §8.8.8).
const (
	TrunDataOffsetPresent       = 0x000001
	TrunFirstSampleFlagsPresent = 0x000004
	TrunSampleDurationPresent   = 0x000100
	TrunSampleSizePresent       = 0x000200
	TrunSampleCompositionOffset = 0x000800

	videoTrunFlags = TrunDataOffsetPresent | TrunFirstSampleFlagsPresent | TrunSampleDurationPresent | TrunSampleSizePresent | TrunSampleCompositionOffset
	audioTrunFlags = TrunDataOffsetPresent | TrunSampleDurationPresent | TrunSampleSizePresent
)

// TrunSample is one sample entry in a TRUN box.
type TrunSample struct {
	// Duration is the sample duration in HSS ticks (ms*10000).
	Duration uint32
	// Size is the sample byte size.
	Size uint32
	// CompositionOffset is the composition time offset in HSS ticks. Video
	// only; ignored for audio TRUNs.
	CompositionOffset int32
}

// TRUN is the Track Run box.
type TRUN struct {
	Video bool
	// DataOffset is the byte offset from the start of the containing MOOF to
	// the first byte of sample data (i.e. the first mdat payload byte).
	// Patched to Size(moof)+8 after a first assembly pass; see
	// Fragment Assembler.
	DataOffset int32
	Samples    []TrunSample
}

func (t TRUN) flags() uint32 {
	if t.Video {
		return videoTrunFlags
	}
	return audioTrunFlags
}

func (t TRUN) Encode() []byte {
	payload := fullBoxHeader(0, t.flags())
	payload = putU32(payload, uint32(len(t.Samples)))
	payload = putI32(payload, t.DataOffset)
	if t.Video {
		payload = putU32(payload, FirstSampleFlagsVideo)
	}
	for _, s := range t.Samples {
		payload = putU32(payload, s.Duration)
		payload = putU32(payload, s.Size)
		if t.Video {
			payload = putI32(payload, s.CompositionOffset)
		}
	}
	return boxHeader("trun", payload)
}
