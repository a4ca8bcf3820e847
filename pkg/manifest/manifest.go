// Package manifest renders the SmoothStreamingMedia XML manifest and wraps
// it for the wire as UTF-16LE with a byte-order mark.
//
// The XML element types here are adapted from the teacher library's
// client-side parsing structs (go-webdl/smoothstreaming): same schema, now
// driven by encoding/xml's Marshal path instead of Unmarshal, and trimmed to
// the fields an HSS origin actually emits (no Protection/DRM, no sparse
// ParentStreamIndex, no inline ManifestOutputSample — all out of this core's
// scope).
package manifest

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"golang.org/x/text/encoding/unicode"

	"github.com/go-webdl/encodetype"
	"github.com/go-webdl/hssorigin/pkg/metadata"
)

// SmoothStreamingMedia is the XML root element (§4.2).
type SmoothStreamingMedia struct {
	XMLName xml.Name `xml:"SmoothStreamingMedia"`

	MajorVersion uint   `xml:"MajorVersion,attr"`
	MinorVersion uint   `xml:"MinorVersion,attr"`
	TimeScale    uint64 `xml:"TimeScale,attr"`
	Duration     uint64 `xml:"Duration,attr"`

	IsLive                 *string `xml:"IsLive,attr,omitempty"`
	LookAheadFragmentCount *uint32 `xml:"LookAheadFragmentCount,attr,omitempty"`
	DVRWindowLength        *uint64 `xml:"DVRWindowLength,attr,omitempty"`
	CanSeek                *string `xml:"CanSeek,attr,omitempty"`
	CanPause               *string `xml:"CanPause,attr,omitempty"`

	Streams []StreamIndex `xml:"StreamIndex"`
}

// StreamIndex is one audio or video stream (§4.2).
type StreamIndex struct {
	Type          string `xml:"Type,attr"`
	QualityLevels uint32 `xml:"QualityLevels,attr"`
	Name          string `xml:"Name,attr"`
	Chunks        uint32 `xml:"Chunks,attr"`
	URL           string `xml:"Url,attr"`

	MaxWidth      *uint32 `xml:"MaxWidth,attr,omitempty"`
	MaxHeight     *uint32 `xml:"MaxHeight,attr,omitempty"`
	DisplayWidth  *uint32 `xml:"DisplayWidth,attr,omitempty"`
	DisplayHeight *uint32 `xml:"DisplayHeight,attr,omitempty"`

	QualityLevelList []QualityLevel `xml:"QualityLevel"`
	Fragments        []StreamFragment `xml:"c"`
}

// QualityLevel is one track's entry within a StreamIndex (§4.2).
type QualityLevel struct {
	Index            uint32              `xml:"Index,attr"`
	Bitrate          uint32              `xml:"Bitrate,attr"`
	CodecPrivateData encodetype.HexBytes `xml:"CodecPrivateData,attr"`

	MaxWidth  *uint32 `xml:"MaxWidth,attr,omitempty"`
	MaxHeight *uint32 `xml:"MaxHeight,attr,omitempty"`

	SamplingRate  *uint32 `xml:"SamplingRate,attr,omitempty"`
	Channels      *uint16 `xml:"Channels,attr,omitempty"`
	BitsPerSample *uint16 `xml:"BitsPerSample,attr,omitempty"`
	PacketSize    *uint32 `xml:"PacketSize,attr,omitempty"`
	AudioTag      *uint32 `xml:"AudioTag,attr,omitempty"`

	FourCC string `xml:"FourCC,attr"`

	CustomAttributes CustomAttributes `xml:"CustomAttributes"`
}

// CustomAttributes disambiguates tracks; this core only ever emits the
// originating TrackID.
type CustomAttributes struct {
	Attributes []Attribute `xml:"Attribute"`
}

// Attribute is one name/value pair within CustomAttributes.
type Attribute struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

// StreamFragment is one "<c>" chunk entry.
type StreamFragment struct {
	Time     *uint64 `xml:"t,attr,omitempty"`
	Duration uint64  `xml:"d,attr"`
}

func strPtr(s string) *string { return &s }

// Build renders the SmoothStreamingMedia manifest for meta, following the
// codec-inclusion and URL-template rules in §4.2. The returned value is the
// parsed-data form; call Wrap to get the wire bytes.
func Build(meta *metadata.Meta, annexB func(avcc []byte) ([]byte, error)) (*SmoothStreamingMedia, error) {
	timeScale := uint64(10000000)
	m := &SmoothStreamingMedia{
		MajorVersion: 2,
		MinorVersion: 0,
		TimeScale:    timeScale,
	}

	audioTracks := meta.TracksOfKind(metadata.Audio)
	videoTracks := meta.TracksOfKind(metadata.Video)

	if meta.Vod {
		var lastms uint64
		if len(videoTracks) > 0 && len(videoTracks[0].Keys) > 0 {
			lastms = videoTracks[0].Keys[len(videoTracks[0].Keys)-1].Time
		} else if len(audioTracks) > 0 && len(audioTracks[0].Keys) > 0 {
			lastms = audioTracks[0].Keys[len(audioTracks[0].Keys)-1].Time
		}
		m.Duration = metadata.MsToTicks(lastms)
	} else {
		m.Duration = 0
		m.IsLive = strPtr("TRUE")
		lookAhead := uint32(2)
		m.LookAheadFragmentCount = &lookAhead
		dvr := metadata.MsToTicks(meta.BufferWindow)
		m.DVRWindowLength = &dvr
		m.CanSeek = strPtr("TRUE")
		m.CanPause = strPtr("TRUE")
	}

	if len(audioTracks) > 0 {
		si, err := buildAudioStreamIndex(audioTracks)
		if err != nil {
			return nil, err
		}
		m.Streams = append(m.Streams, si)
	}
	if len(videoTracks) > 0 {
		si, err := buildVideoStreamIndex(videoTracks, annexB)
		if err != nil {
			return nil, err
		}
		m.Streams = append(m.Streams, si)
	}

	return m, nil
}

func chunksFor(track *metadata.Track) []StreamFragment {
	keys := track.Keys
	if len(keys) == 0 {
		return nil
	}
	// The live tail key is unpublished: emit every key except the last.
	out := make([]StreamFragment, 0, len(keys)-1)
	for i, k := range keys {
		if i == len(keys)-1 {
			break
		}
		frag := StreamFragment{Duration: metadata.MsToTicks(k.Length)}
		if i == 0 {
			t := metadata.MsToTicks(k.Time)
			frag.Time = &t
		}
		out = append(out, frag)
	}
	return out
}

func buildAudioStreamIndex(tracks []*metadata.Track) (StreamIndex, error) {
	si := StreamIndex{
		Type:          string(metadata.Audio),
		QualityLevels: uint32(len(tracks)),
		Name:          "audio",
		Chunks:        uint32(len(tracks[0].Keys)),
		URL:           "Q({bitrate},{CustomAttributes})/A({start time})",
		Fragments:     chunksFor(tracks[0]),
	}
	for i, tr := range tracks {
		rate := tr.Rate
		channels := uint16(2)
		bps := uint16(16)
		packetSize := uint32(4)
		audioTag := uint32(255)
		si.QualityLevelList = append(si.QualityLevelList, QualityLevel{
			Index:            uint32(i),
			Bitrate:          tr.Bps * 8,
			CodecPrivateData: encodetype.HexBytes(tr.Init),
			SamplingRate:     &rate,
			Channels:         &channels,
			BitsPerSample:    &bps,
			PacketSize:       &packetSize,
			AudioTag:         &audioTag,
			FourCC:           "AACL",
			CustomAttributes: CustomAttributes{
				Attributes: []Attribute{{Name: "TrackID", Value: fmt.Sprint(tr.TrackID)}},
			},
		})
	}
	return si, nil
}

func buildVideoStreamIndex(tracks []*metadata.Track, annexB func([]byte) ([]byte, error)) (StreamIndex, error) {
	var maxWidth, maxHeight uint32
	for _, tr := range tracks {
		if tr.Width > maxWidth {
			maxWidth = tr.Width
		}
		if tr.Height > maxHeight {
			maxHeight = tr.Height
		}
	}
	si := StreamIndex{
		Type:          string(metadata.Video),
		QualityLevels: uint32(len(tracks)),
		Name:          "video",
		Chunks:        uint32(len(tracks[0].Keys)),
		URL:           "Q({bitrate},{CustomAttributes})/V({start time})",
		MaxWidth:      &maxWidth,
		MaxHeight:     &maxHeight,
		DisplayWidth:  &maxWidth,
		DisplayHeight: &maxHeight,
		Fragments:     chunksFor(tracks[0]),
	}
	for i, tr := range tracks {
		annexBData, err := annexB(tr.Init)
		if err != nil {
			return StreamIndex{}, fmt.Errorf("manifest: track %d codec private data: %w", tr.TrackID, err)
		}
		width, height := tr.Width, tr.Height
		si.QualityLevelList = append(si.QualityLevelList, QualityLevel{
			Index:            uint32(i),
			Bitrate:          tr.Bps * 8,
			CodecPrivateData: encodetype.HexBytes(annexBData),
			MaxWidth:         &width,
			MaxHeight:        &height,
			FourCC:           "AVC1",
			CustomAttributes: CustomAttributes{
				Attributes: []Attribute{{Name: "TrackID", Value: fmt.Sprint(tr.TrackID)}},
			},
		})
	}
	return si, nil
}

// Wrap serializes m as XML and encodes it UTF-16LE with a leading BOM, which
// is the literal response body for a Manifest request (§4.2, §6).
func Wrap(m *SmoothStreamingMedia) ([]byte, error) {
	xmlBytes, err := xml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest: marshal: %w", err)
	}
	const header = `<?xml version="1.0" encoding="utf-16"?>` + "\n"
	full := append([]byte(header), xmlBytes...)

	var buf bytes.Buffer
	w := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Writer(&buf)
	if _, err := w.Write(full); err != nil {
		return nil, fmt.Errorf("manifest: utf16 encode: %w", err)
	}
	return buf.Bytes(), nil
}
