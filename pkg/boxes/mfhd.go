package boxes

// MFHD is the Movie Fragment Header box.
//
// SequenceNumber must be (key.Number-1)*2 + trackID; see SequenceNumberFor
// below. That formula is load-bearing for client playback and is verified by
// TestMFHDSequenceNumberFormula in boxes_test.go.
type MFHD struct {
	SequenceNumber uint32
}

// SequenceNumberFor computes the MFHD sequence_number for a given 1-based key
// number and track ID, per §4.5: (keyNumber-1)*2 + trackID.
func SequenceNumberFor(keyNumber uint32, trackID uint32) uint32 {
	return (keyNumber-1)*2 + trackID
}

func (m MFHD) Encode() []byte {
	payload := fullBoxHeader(0, 0)
	payload = putU32(payload, m.SequenceNumber)
	return boxHeader("mfhd", payload)
}
