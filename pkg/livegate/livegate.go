// Package livegate implements the Liveness Gate (§4.3): classifying a
// requested fragment time against a track's key window.
package livegate

import (
	"github.com/go-webdl/hssorigin/pkg/metadata"
)

// Verdict is the outcome of gating a fragment request.
type Verdict int

const (
	// Servable means the key at KeyIndex may be streamed now.
	Servable Verdict = iota
	// TooOld means the fragment has already scrolled out of the DVR window;
	// respond 412.
	TooOld
	// NotYetAvailable means the fragment (or the one after it, for live
	// lookahead) hasn't arrived yet; respond 208.
	NotYetAvailable
	// NotFound means a VOD lookup found no matching key; respond 404.
	NotFound
)

// Result carries the verdict and, when Servable, which key to serve.
type Result struct {
	Verdict  Verdict
	KeyIndex int
}

// Check classifies requestedMs against track's key schedule, applying live
// or VOD rules per §4.3.
func Check(track *metadata.Track, live bool, requestedMs uint64) Result {
	if !live {
		idx, ok := track.FindKey(requestedMs)
		if !ok {
			return Result{Verdict: NotFound}
		}
		return Result{Verdict: Servable, KeyIndex: idx}
	}

	if len(track.Keys) == 0 {
		return Result{Verdict: NotYetAvailable}
	}

	windowLo := track.Keys[0].Time

	if requestedMs < windowLo {
		return Result{Verdict: TooOld}
	}

	idx, ok := track.FindKey(requestedMs)
	if !ok {
		// No key at or after requestedMs: requestedMs is past the last
		// key's time, i.e. past the servable window's high end.
		return Result{Verdict: NotYetAvailable}
	}

	// mstime==0 with requestedMs>1ms means nothing satisfied the scan before
	// wrapping to the first key by coincidence; mirror the original core's
	// extra too-old guard for that edge case.
	if track.Keys[idx].Time == 0 && requestedMs > 1 {
		return Result{Verdict: TooOld}
	}

	// The matched key must have a next-next key available, i.e. it must not
	// be the last or penultimate key in the schedule.
	if idx == len(track.Keys)-1 {
		return Result{Verdict: NotYetAvailable}
	}
	if idx == len(track.Keys)-2 {
		return Result{Verdict: NotYetAvailable}
	}

	return Result{Verdict: Servable, KeyIndex: idx}
}

// Bodies are the fixed HTTP response bodies for non-Servable verdicts (§4.3,
// §7).
const (
	TooOldBody          = "The requested fragment is no longer kept in memory on the server and cannot be served.\n"
	NotYetAvailableBody = "Proxy, re-request this in a second or two.\n"
)
