package boxes

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMFHDSequenceNumberFormula(t *testing.T) {
	// Property 3: MFHD sequence_number is a pure function of (key.number,
	// trackID) and matches (key.number-1)*2 + trackID.
	cases := []struct {
		keyNumber, trackID, want uint32
	}{
		{1, 1, 1},
		{1, 2, 2},
		{2, 1, 3},
		{10, 3, 21},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SequenceNumberFor(c.keyNumber, c.trackID))
	}

	mfhd := MFHD{SequenceNumber: SequenceNumberFor(2, 1)}
	encoded := mfhd.Encode()
	require.Len(t, encoded, 16)
	assert.Equal(t, "mfhd", string(encoded[4:8]))
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(encoded[12:16]))
}

func TestTFHDFlagsAndDefaults(t *testing.T) {
	tfhd := TFHD{TrackID: 7, DefaultSampleFlags: DefaultSampleFlagsVideo}
	b := tfhd.Encode()
	require.Len(t, b, 20)
	flags := uint32(b[9])<<16 | uint32(b[10])<<8 | uint32(b[11])
	assert.Equal(t, uint32(DefaultSampleFlagsPresent), flags)
	assert.Equal(t, uint32(7), binary.BigEndian.Uint32(b[12:16]))
}

func TestTRUNVideoLayoutAndSize(t *testing.T) {
	trun := TRUN{
		Video:      true,
		DataOffset: 99,
		Samples: []TrunSample{
			{Duration: 400000, Size: 500, CompositionOffset: 0},
			{Duration: 400000, Size: 300, CompositionOffset: 0},
		},
	}
	b := trun.Encode()
	// header(8) + fullbox(4) + sample_count(4) + data_offset(4) +
	// first_sample_flags(4) + 2*(duration+size+composition)(12 each)
	require.Len(t, b, 8+4+4+4+4+2*12)
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(b[12:16]))
}

func TestTRUNAudioOmitsFirstSampleFlagsAndOffsets(t *testing.T) {
	trun := TRUN{
		Video:      false,
		DataOffset: 42,
		Samples:    []TrunSample{{Duration: 10240, Size: 200}},
	}
	b := trun.Encode()
	require.Len(t, b, 8+4+4+4+8) // no first_sample_flags, no composition offset
}

func TestSDTPValues(t *testing.T) {
	video := SDTP{Video: true, Count: 3}
	vb := video.Encode()
	require.Len(t, vb, 12+3)
	assert.Equal(t, byte(SdtpKeySample), vb[12])
	assert.Equal(t, byte(SdtpDependent), vb[13])
	assert.Equal(t, byte(SdtpDependent), vb[14])

	audio := SDTP{Video: false, Count: 2}
	ab := audio.Encode()
	assert.Equal(t, byte(SdtpAudioSample), ab[12])
	assert.Equal(t, byte(SdtpAudioSample), ab[13])
}

func TestTFRFEntriesAndUUID(t *testing.T) {
	tfrf := TFRF{Entries: []TfrfEntry{{Time: 40000000, Duration: 10000000}}}
	b := tfrf.Encode()
	require.Len(t, b, 8+16+4+1+16)
	assert.Equal(t, "uuid", string(b[4:8]))
	extType, _ := TfrfBoxUUID.MarshalBinary()
	assert.Equal(t, extType, b[8:24])
	assert.Equal(t, uint8(1), b[24]) // version 1
	assert.Equal(t, byte(1), b[28])  // fragment_count
}

func TestMOOFDataOffsetSelfConsistency(t *testing.T) {
	// Property 2: trun.data_offset == moof.boxedSize + 8, reached by the
	// two-pass assembly discipline the Fragment Assembler drives.
	trun := TRUN{
		Video:      true,
		DataOffset: 0,
		Samples:    []TrunSample{{Duration: 400000, Size: 500}},
	}
	tfhd := TFHD{TrackID: 1, DefaultSampleFlags: DefaultSampleFlagsVideo}
	sdtp := SDTP{Video: true, Count: 1}
	traf := TRAF{Tfhd: tfhd, Trun: trun, Sdtp: sdtp}
	moof := MOOF{Mfhd: MFHD{SequenceNumber: 1}, Traf: traf}

	firstPassSize := Size(moof)
	trun.DataOffset = int32(firstPassSize) + 8
	traf.Trun = trun
	moof.Traf = traf

	finalBytes := moof.Encode()
	assert.Equal(t, firstPassSize, uint32(len(finalBytes)), "rebuilding with the patched data_offset must not change moof size")

	// Re-encode the patched TRUN and read its data_offset back to confirm
	// it points just past the rebuilt MOOF and the mdat header.
	trunBytes := traf.Trun.Encode()
	dataOffset := int32(binary.BigEndian.Uint32(trunBytes[16:20]))
	assert.Equal(t, int32(len(finalBytes))+8, dataOffset)
}
