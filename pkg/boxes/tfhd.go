package boxes

// DefaultSampleFlagsPresent is the tf_flags bit designating
// default_sample_flags_present in a TFHD box (ISO/IEC 14496-12 §8.8.7). This
// core only ever sets this single bit.
const DefaultSampleFlagsPresent = 0x000020

// Default sample flags values the HSS wire protocol expects, byte-exact.
const (
	DefaultSampleFlagsVideo = 0x00004001
	DefaultSampleFlagsAudio = 0x00008002
	FirstSampleFlagsVideo   = 0x00004002
)

// TFHD is the Track Fragment Header box.
type TFHD struct {
	TrackID            uint32
	DefaultSampleFlags uint32
}

func (t TFHD) Encode() []byte {
	payload := fullBoxHeader(0, DefaultSampleFlagsPresent)
	payload = putU32(payload, t.TrackID)
	payload = putU32(payload, t.DefaultSampleFlags)
	return boxHeader("tfhd", payload)
}
