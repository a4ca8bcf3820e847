package boxes

// TfrfEntry is one upcoming-fragment reference, in HSS ticks.
type TfrfEntry struct {
	Time     uint64
	Duration uint64
}

// TFRF is the MS Smooth Streaming "TfrfBox": a version-1 "uuid" extended box
// carrying up to two forward-looking fragment references, emitted only for
// live presentations so clients can prefetch without guessing.
type TFRF struct {
	Entries []TfrfEntry
}

func (t TFRF) Encode() []byte {
	payload := fullBoxHeader(1, 0)
	payload = append(payload, byte(len(t.Entries)))
	for _, e := range t.Entries {
		payload = putU64(payload, e.Time)
		payload = putU64(payload, e.Duration)
	}

	out := make([]byte, 0, 8+16+len(payload))
	out = putU32(out, uint32(8+16+len(payload)))
	out = append(out, []byte("uuid")...)
	extType, _ := TfrfBoxUUID.MarshalBinary()
	out = append(out, extType...)
	out = append(out, payload...)
	return out
}
