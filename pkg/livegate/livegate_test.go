package livegate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-webdl/hssorigin/pkg/metadata"
)

func liveTrack() *metadata.Track {
	return &metadata.Track{
		Keys: []metadata.Key{
			{Time: 10000, Length: 4000, Number: 1, Parts: 1},
			{Time: 14000, Length: 4000, Number: 2, Parts: 1},
			{Time: 18000, Length: 4000, Number: 3, Parts: 1},
			{Time: 22000, Length: 4000, Number: 4, Parts: 1},
			{Time: 26000, Length: 4000, Number: 5, Parts: 1},
			{Time: 30000, Length: 0, Number: 6, Parts: 1},
		},
	}
}

func TestTooOldBeforeWindow(t *testing.T) {
	track := liveTrack()
	r := Check(track, true, 5000)
	assert.Equal(t, TooOld, r.Verdict)
}

func TestNotYetAvailablePastWindow(t *testing.T) {
	track := liveTrack()
	r := Check(track, true, 40000)
	assert.Equal(t, NotYetAvailable, r.Verdict)
}

func TestNotYetAvailableForPenultimateKey(t *testing.T) {
	track := liveTrack()
	// 26000 matches the penultimate key (index 4 of 6): the key after it
	// (index 5) exists but nothing follows it yet.
	r := Check(track, true, 26000)
	assert.Equal(t, NotYetAvailable, r.Verdict)
}

func TestServableMidWindow(t *testing.T) {
	track := liveTrack()
	r := Check(track, true, 18000)
	assert.Equal(t, Servable, r.Verdict)
	assert.Equal(t, 2, r.KeyIndex)
}

func TestServableMatchesFirstKeyAtOrAfter(t *testing.T) {
	track := liveTrack()
	r := Check(track, true, 15000)
	assert.Equal(t, Servable, r.Verdict)
	assert.Equal(t, 2, r.KeyIndex) // key at 18000 is first >= 15000
}

func TestVODLookup(t *testing.T) {
	track := liveTrack()
	r := Check(track, false, 19000)
	assert.Equal(t, Servable, r.Verdict)
	assert.Equal(t, 3, r.KeyIndex)
}

func TestVODNotFound(t *testing.T) {
	track := liveTrack()
	r := Check(track, false, 99999)
	assert.Equal(t, NotFound, r.Verdict)
}

func TestPropertyAllBeforeFrontIsTooOld(t *testing.T) {
	track := liveTrack()
	for ms := uint64(0); ms < track.Keys[0].Time; ms += 1000 {
		r := Check(track, true, ms)
		assert.Equal(t, TooOld, r.Verdict, "ms=%d", ms)
	}
}

func TestPropertyAllAfterBackIsNotYetAvailable(t *testing.T) {
	track := liveTrack()
	back := track.Keys[len(track.Keys)-1].Time
	for ms := back + 1; ms < back+10000; ms += 1000 {
		r := Check(track, true, ms)
		assert.Equal(t, NotYetAvailable, r.Verdict, "ms=%d", ms)
	}
}

func TestNotYetAvailableForLastKeyExactly(t *testing.T) {
	track := liveTrack()
	// requestedMs matches the last key exactly: nothing follows it yet.
	back := track.Keys[len(track.Keys)-1].Time
	r := Check(track, true, back)
	assert.Equal(t, NotYetAvailable, r.Verdict)
}
