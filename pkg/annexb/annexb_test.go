package annexb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAVCC(sps, pps []byte) []byte {
	out := []byte{0x01, 0x64, 0x00, 0x1f, 0xff}
	out = append(out, 0xe0|0x01) // numSPS=1, top 3 bits reserved-set
	out = append(out, byte(len(sps)>>8), byte(len(sps)))
	out = append(out, sps...)
	out = append(out, 0x01) // numPPS=1
	out = append(out, byte(len(pps)>>8), byte(len(pps)))
	out = append(out, pps...)
	return out
}

func TestToAnnexB(t *testing.T) {
	sps := []byte{0x67, 0x64, 0x00, 0x1f, 0xac}
	pps := []byte{0x68, 0xeb, 0x8f, 0x2c}
	avcc := buildAVCC(sps, pps)

	out, err := DefaultConverter{}.ToAnnexB(avcc)
	require.NoError(t, err)

	expected := append([]byte{0, 0, 0, 1}, sps...)
	expected = append(expected, 0, 0, 0, 1)
	expected = append(expected, pps...)
	assert.Equal(t, expected, out)
}

func TestToAnnexBTruncated(t *testing.T) {
	_, err := DefaultConverter{}.ToAnnexB([]byte{0x01, 0x64})
	require.ErrorIs(t, err, ErrTruncated)
}
