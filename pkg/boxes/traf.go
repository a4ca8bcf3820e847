package boxes

// TRAF is the Track Fragment box. Children are always emitted in the order
// TFHD, TRUN, SDTP, and — for live presentations only — TFRF.
type TRAF struct {
	Tfhd TFHD
	Trun TRUN
	Sdtp SDTP
	// Tfrf is nil for VOD fragments.
	Tfrf *TFRF
}

func (t TRAF) Encode() []byte {
	children := []Box{t.Tfhd, t.Trun, t.Sdtp}
	if t.Tfrf != nil {
		children = append(children, *t.Tfrf)
	}
	return container("traf", children...)
}

// MOOF is the Movie Fragment box: MFHD followed by one TRAF.
type MOOF struct {
	Mfhd MFHD
	Traf TRAF
}

func (m MOOF) Encode() []byte {
	return container("moof", m.Mfhd, m.Traf)
}
