package manifest

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-webdl/hssorigin/pkg/metadata"
)

func identityAnnexB(b []byte) ([]byte, error) { return b, nil }

func vodMeta() *metadata.Meta {
	return &metadata.Meta{
		Vod: true,
		Tracks: map[uint32]*metadata.Track{
			1: {
				TrackID: 1,
				Type:    metadata.Video,
				Codec:   "H264",
				Width:   1280,
				Height:  720,
				Bps:     1000000,
				Init:    []byte{0xAA, 0xBB},
				Keys: []metadata.Key{
					{Time: 0, Length: 4000, Number: 1, Parts: 1},
					{Time: 4000, Length: 4000, Number: 2, Parts: 1},
					{Time: 8000, Length: 0, Number: 3, Parts: 1},
				},
			},
			2: {
				TrackID: 2,
				Type:    metadata.Audio,
				Codec:   "AAC",
				Rate:    48000,
				Bps:     128000 / 8,
				Init:    []byte{0x11, 0x22},
				Keys: []metadata.Key{
					{Time: 0, Length: 4000, Number: 1, Parts: 1},
					{Time: 4000, Length: 4000, Number: 2, Parts: 1},
					{Time: 8000, Length: 0, Number: 3, Parts: 1},
				},
			},
		},
	}
}

func TestBuildVODManifest(t *testing.T) {
	m, err := Build(vodMeta(), identityAnnexB)
	require.NoError(t, err)

	assert.Equal(t, uint64(80000000), m.Duration)
	require.Len(t, m.Streams, 2)

	var video, audio *StreamIndex
	for i := range m.Streams {
		switch m.Streams[i].Type {
		case "video":
			video = &m.Streams[i]
		case "audio":
			audio = &m.Streams[i]
		}
	}
	require.NotNil(t, video)
	require.NotNil(t, audio)

	require.Len(t, video.QualityLevelList, 1)
	assert.Equal(t, uint32(8000000), video.QualityLevelList[0].Bitrate)
	require.Len(t, video.Fragments, 2)
	require.NotNil(t, video.Fragments[0].Time)
	assert.Equal(t, uint64(0), *video.Fragments[0].Time)
	assert.Equal(t, uint64(40000000), video.Fragments[0].Duration)
	assert.Equal(t, uint64(40000000), video.Fragments[1].Duration)
	assert.Nil(t, video.Fragments[1].Time)
}

func TestWrapProducesUTF16BOMAndWellFormedXML(t *testing.T) {
	m, err := Build(vodMeta(), identityAnnexB)
	require.NoError(t, err)

	wire, err := Wrap(m)
	require.NoError(t, err)
	require.True(t, len(wire) > 2)
	assert.Equal(t, byte(0xFF), wire[0])
	assert.Equal(t, byte(0xFE), wire[1])

	// Property 5: UTF-16 decoding yields well-formed XML with the expected
	// root element and timescale.
	decoded := decodeUTF16LE(t, wire[2:])
	var out SmoothStreamingMedia
	// The text is already decoded, but its declaration still names utf-16,
	// so the decoder is given a pass-through charset reader.
	dec := xml.NewDecoder(strings.NewReader(decoded))
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	require.NoError(t, dec.Decode(&out))
	assert.Equal(t, uint64(10000000), out.TimeScale)
}

func decodeUTF16LE(t *testing.T, b []byte) string {
	t.Helper()
	require.Equal(t, 0, len(b)%2)
	runes := make([]rune, 0, len(b)/2)
	for i := 0; i < len(b); i += 2 {
		runes = append(runes, rune(uint16(b[i])|uint16(b[i+1])<<8))
	}
	return string(runes)
}

func TestUnknownCodecSilentlyExcluded(t *testing.T) {
	meta := vodMeta()
	meta.Tracks[3] = &metadata.Track{TrackID: 3, Type: metadata.Audio, Codec: "WMAP"}
	m, err := Build(meta, identityAnnexB)
	require.NoError(t, err)

	for _, s := range m.Streams {
		if s.Type == "audio" {
			assert.Len(t, s.QualityLevelList, 1)
		}
	}
}

func TestLiveManifestAttributes(t *testing.T) {
	meta := vodMeta()
	meta.Vod = false
	meta.Live = true
	meta.BufferWindow = 30000
	m, err := Build(meta, identityAnnexB)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), m.Duration)
	require.NotNil(t, m.IsLive)
	assert.Equal(t, "TRUE", *m.IsLive)
	require.NotNil(t, m.LookAheadFragmentCount)
	assert.Equal(t, uint32(2), *m.LookAheadFragmentCount)
	require.NotNil(t, m.DVRWindowLength)
	assert.Equal(t, uint64(300000000), *m.DVRWindowLength)
}
