// Package urlparser extracts routing information from HSS request URLs:
// the Manifest endpoint, the embedded Silverlight client (.xap), and
// fragment requests of the form
//
//	.../QualityLevels(<bitrate>,TrackID=<id>)/Fragments(<A|V>(<startTimeTicks>))
//
// The bitrate field is accepted but ignored: routing is keyed purely on
// TrackID, kind, and start time, matching the upstream connector this is
// grounded on (src/connectors/conn_http_smooth.cpp parses the same shape by
// substring search rather than full grammar matching).
package urlparser

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-webdl/hssorigin/pkg/metadata"
)

// ErrMalformed is returned for any URL that does not match one of the
// recognized HSS request shapes. Callers surface this as an HTTP 400, never
// as a process crash.
var ErrMalformed = errors.New("urlparser: malformed HSS request URL")

// Kind classifies a route.
type Kind int

const (
	// KindManifest is a request for the SmoothStreamingMedia XML.
	KindManifest Kind = iota
	// KindXAP is a request for the embedded Silverlight client binary.
	KindXAP
	// KindFragment is a request for one fMP4 fragment.
	KindFragment
)

// Request is the result of parsing one HSS URL.
type Request struct {
	Kind Kind

	// The following are only populated when Kind == KindFragment.
	TrackID    uint32
	Track      metadata.TrackType
	StartTicks uint64
}

// Parse classifies rawURL and, for fragment requests, extracts
// (trackID, track kind, startTicks).
func Parse(rawURL string) (Request, error) {
	if strings.HasSuffix(rawURL, ".xap") {
		return Request{Kind: KindXAP}, nil
	}
	if strings.Contains(rawURL, "Manifest") {
		return Request{Kind: KindManifest}, nil
	}

	const trackMarker = "TrackID="
	idx := strings.Index(rawURL, trackMarker)
	if idx < 0 {
		return Request{}, ErrMalformed
	}
	rest := rawURL[idx+len(trackMarker):]
	closeParen := strings.IndexByte(rest, ')')
	if closeParen < 0 {
		return Request{}, ErrMalformed
	}
	trackID, err := strconv.ParseUint(rest[:closeParen], 10, 32)
	if err != nil {
		return Request{}, ErrMalformed
	}

	const fragMarker = "Fragments("
	fragIdx := strings.Index(rawURL, fragMarker)
	if fragIdx < 0 {
		return Request{}, ErrMalformed
	}
	fragPart := rawURL[fragIdx+len(fragMarker):]
	if len(fragPart) == 0 {
		return Request{}, ErrMalformed
	}

	var kind metadata.TrackType
	switch fragPart[0] {
	case 'A':
		kind = metadata.Audio
	case 'V':
		kind = metadata.Video
	default:
		return Request{}, ErrMalformed
	}

	openParen := strings.IndexByte(fragPart, '(')
	if openParen < 0 {
		return Request{}, ErrMalformed
	}
	tail := fragPart[openParen+1:]
	closeParen2 := strings.IndexByte(tail, ')')
	if closeParen2 < 0 {
		return Request{}, ErrMalformed
	}
	startTicks, err := strconv.ParseUint(tail[:closeParen2], 10, 64)
	if err != nil {
		return Request{}, ErrMalformed
	}

	return Request{
		Kind:       KindFragment,
		TrackID:    uint32(trackID),
		Track:      kind,
		StartTicks: startTicks,
	}, nil
}
