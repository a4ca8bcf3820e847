// Package connection implements the Connection Driver (§4.6): the
// per-client state machine that reads one HTTP request at a time off a raw
// socket, routes it through the Liveness Gate and Fragment Assembler, and
// writes the response back, looping for as long as the client keeps the
// connection open.
//
// The driver owns no blocking reads: the socket is polled on a bounded
// sleep, the same non-blocking discipline the original core used around its
// own connection object, so one goroutine per connection never parks a
// kernel thread waiting on a client that is slow or idle.
package connection

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-webdl/hssorigin/internal/httpresp"
	"github.com/go-webdl/hssorigin/internal/logging"
	"github.com/go-webdl/hssorigin/internal/metrics"
	"github.com/go-webdl/hssorigin/pkg/annexb"
	"github.com/go-webdl/hssorigin/pkg/fragment"
	"github.com/go-webdl/hssorigin/pkg/livegate"
	"github.com/go-webdl/hssorigin/pkg/manifest"
	"github.com/go-webdl/hssorigin/pkg/metadata"
	"github.com/go-webdl/hssorigin/pkg/upstream"
	"github.com/go-webdl/hssorigin/pkg/urlparser"
)

// pollInterval is how long a read attempt is given before it is treated as
// "no data yet"; idleSleep and busySleep bound how long the driver waits
// before trying again, per §4.6's non-blocking polling rule.
const (
	pollInterval = 5 * time.Millisecond
	idleSleep    = 250 * time.Millisecond
	busySleep    = 10 * time.Millisecond
	statsPeriod  = time.Second
)

// Driver runs the request loop for one accepted client connection.
type Driver struct {
	conn   net.Conn
	dialer upstream.Dialer
	conv   annexb.Converter
	xap    []byte
	log    zerolog.Logger

	sources map[string]upstream.Source
}

// New constructs a Driver for conn. xap is the embedded Silverlight client
// binary served verbatim for ".xap" requests; it may be nil if the
// deployment doesn't serve one.
func New(conn net.Conn, dialer upstream.Dialer, conv annexb.Converter, xap []byte) *Driver {
	return &Driver{
		conn:    conn,
		dialer:  dialer,
		conv:    conv,
		xap:     xap,
		log:     logging.With("connection"),
		sources: make(map[string]upstream.Source),
	}
}

// Run drives the connection until the client disconnects, a write fails, or
// the upstream drops while a fragment is streaming.
// It always closes conn and every upstream source it dialed before
// returning.
func (d *Driver) Run() {
	start := time.Now()
	metrics.ConnectionsAccepted.Inc()
	defer func() {
		metrics.ObserveConnectionDuration(start)
		for _, s := range d.sources {
			_ = s.SendStats("closed\n")
			_ = s.Close()
		}
		_ = d.conn.Close()
	}()

	var buf []byte
	tmp := make([]byte, 4096)
	for {
		req, rest, err := d.readRequest(buf, tmp)
		buf = rest
		if err != nil {
			if !errors.Is(err, io.EOF) {
				d.log.Debug().Err(err).Msg("reading request")
			}
			return
		}
		if !d.dispatch(req) {
			return
		}
	}
}

// readRequest accumulates bytes from the connection until a full HTTP
// request head ("\r\n\r\n") has arrived, then parses it. It never blocks
// longer than pollInterval per attempt, sleeping between attempts so an idle
// client costs nothing but a timer tick.
func (d *Driver) readRequest(buf, tmp []byte) (*http.Request, []byte, error) {
	for {
		if idx := bytes.Index(buf, []byte("\r\n\r\n")); idx >= 0 {
			head := buf[:idx+4]
			rest := buf[idx+4:]
			req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(head)))
			if err != nil {
				return nil, rest, fmt.Errorf("connection: malformed request: %w", err)
			}
			return req, rest, nil
		}

		_ = d.conn.SetReadDeadline(time.Now().Add(pollInterval))
		n, err := d.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			if len(buf) == 0 {
				time.Sleep(idleSleep)
			} else {
				time.Sleep(busySleep)
			}
			continue
		}
		if err != nil {
			return nil, buf, err
		}
	}
}

// dispatch handles one parsed request and reports whether the connection
// should keep reading (keep-alive) or close.
func (d *Driver) dispatch(req *http.Request) bool {
	route, err := urlparser.Parse(req.URL.Path)
	if err != nil {
		return d.respondFixed("400 Bad Request", "Malformed request.\n")
	}

	streamName := streamNameFor(req)

	switch route.Kind {
	case urlparser.KindXAP:
		return d.serveXAP()
	case urlparser.KindManifest:
		return d.serveManifest(streamName)
	case urlparser.KindFragment:
		return d.serveFragment(streamName, route)
	default:
		return d.respondFixed("400 Bad Request", "Malformed request.\n")
	}
}

// streamNameFor extracts the upstream stream identity from the proxy's
// X-Stream header when present (the reverse proxy in front of this
// connector already resolved routing), falling back to the path segment
// preceding ".ism". The X-Origin header is not read.
func streamNameFor(req *http.Request) string {
	if v := req.Header.Get("X-Stream"); v != "" {
		return v
	}
	path := req.URL.Path
	idx := strings.Index(path, ".ism")
	if idx < 0 {
		return ""
	}
	trimmed := strings.TrimPrefix(path[:idx], "/")
	if slash := strings.LastIndex(trimmed, "/"); slash >= 0 {
		trimmed = trimmed[slash+1:]
	}
	return trimmed
}

func (d *Driver) serveXAP() bool {
	resp := httpresp.Response{
		Status: "200 OK",
		Headers: [][2]string{
			{"Content-Type", "application/silverlight"},
			{"Cache-Control", "cache"},
		},
		Body: d.xap,
	}
	if err := resp.Send(d.conn); err != nil {
		d.log.Debug().Err(err).Msg("writing xap response")
		return false
	}
	return true
}

func (d *Driver) serveManifest(streamName string) bool {
	src, err := d.source(streamName)
	if err != nil {
		metrics.ManifestRequestsTotal.WithLabelValues("not_found").Inc()
		return d.respondNotFound()
	}

	built, err := manifest.Build(src.Meta(), d.conv.ToAnnexB)
	if err != nil {
		d.log.Error().Err(err).Str("stream", streamName).Msg("building manifest")
		metrics.ManifestRequestsTotal.WithLabelValues("error").Inc()
		return d.respondFixed("500 Internal Server Error", "Could not build manifest.\n")
	}
	body, err := manifest.Wrap(built)
	if err != nil {
		d.log.Error().Err(err).Str("stream", streamName).Msg("wrapping manifest")
		metrics.ManifestRequestsTotal.WithLabelValues("error").Inc()
		return d.respondFixed("500 Internal Server Error", "Could not build manifest.\n")
	}

	resp := httpresp.Response{
		Status: "200 OK",
		Headers: [][2]string{
			{"Content-Type", "text/xml"},
			{"Cache-Control", "no-cache"},
		},
		Body: body,
	}
	if err := resp.Send(d.conn); err != nil {
		d.log.Debug().Err(err).Msg("writing manifest response")
		return false
	}
	metrics.ManifestRequestsTotal.WithLabelValues("ok").Inc()
	return true
}

func (d *Driver) serveFragment(streamName string, route urlparser.Request) bool {
	src, err := d.source(streamName)
	if err != nil {
		metrics.FragmentRequestsTotal.WithLabelValues("not_found").Inc()
		return d.respondNotFound()
	}

	meta := src.Meta()
	track, ok := meta.Tracks[route.TrackID]
	if !ok {
		metrics.FragmentRequestsTotal.WithLabelValues("not_found").Inc()
		return d.respondNotFound()
	}

	requestedMs := metadata.TicksToMs(route.StartTicks)
	gate := livegate.Check(track, meta.Live, requestedMs)

	switch gate.Verdict {
	case livegate.TooOld:
		metrics.FragmentRequestsTotal.WithLabelValues("too_old").Inc()
		return d.respondFixed("412 Fragment out of range", livegate.TooOldBody)
	case livegate.NotYetAvailable:
		metrics.FragmentRequestsTotal.WithLabelValues("not_yet_available").Inc()
		return d.respondFixed("208 Ask again later", livegate.NotYetAvailableBody)
	case livegate.NotFound:
		metrics.FragmentRequestsTotal.WithLabelValues("not_found").Inc()
		return d.respondNotFound()
	}
	metrics.FragmentRequestsTotal.WithLabelValues("servable").Inc()

	result, err := fragment.Assemble(track, gate.KeyIndex, meta.Live, requestedMs)
	if err != nil {
		d.log.Error().Err(err).Uint32("track", track.TrackID).Msg("assembling fragment")
		return d.respondFixed("500 Internal Server Error", "Could not assemble fragment.\n")
	}

	if err := src.SendCommand(result.Commands); err != nil {
		d.log.Debug().Err(err).Msg("upstream command send failed")
		return d.respondNotFound()
	}

	return d.streamFragment(src, result)
}

// streamFragment writes the MOOF and mdat header, then relays packets
// polled from src until the upstream sends its pause-mark packet, emitting
// one stats line per wall-clock second of elapsed streaming (§4.6
// "Streaming"). If the upstream drops mid-fragment it reports false so the
// client connection is closed.
func (d *Driver) streamFragment(src upstream.Source, result fragment.Result) bool {
	cw, err := httpresp.StartResponse(d.conn, "200 OK", [][2]string{
		{"Content-Type", "video/mp4"},
		{"Pragma", "IISMS/5.0,IIS Media Services Premium by Microsoft"},
		{"ETag", "3b517e5a0586303"},
	})
	if err != nil {
		return false
	}
	if err := cw.Chunkify(result.Moof); err != nil {
		return false
	}
	if err := cw.Chunkify(result.MdatHeader); err != nil {
		return false
	}

	var written uint32
	lastStat := time.Now()

streamLoop:
	for {
		if !src.Connected() {
			return false
		}
		if time.Since(lastStat) >= statsPeriod {
			_ = src.SendStats(fmt.Sprintf("bytes=%d\n", written))
			lastStat = time.Now()
		}
		pkt, ok, err := src.Poll()
		if err != nil {
			d.log.Debug().Err(err).Msg("upstream poll failed")
			return false
		}
		if !ok {
			time.Sleep(busySleep)
			continue
		}

		switch pkt.Kind {
		case upstream.PacketPauseMark:
			break streamLoop
		case upstream.PacketAudio, upstream.PacketVideo:
			if err := cw.Chunkify(pkt.Payload); err != nil {
				return false
			}
			written += uint32(len(pkt.Payload))
			metrics.FragmentBytesStreamed.Add(float64(len(pkt.Payload)))
		case upstream.PacketMetadata:
			// Metadata packets carry no fragment payload.
		}
	}

	if err := cw.Chunkify(nil); err != nil {
		return false
	}
	return true
}

func (d *Driver) respondFixed(status, body string) bool {
	resp := httpresp.Response{
		Status:  status,
		Headers: [][2]string{{"Content-Type", "text/plain"}},
		Body:    []byte(body),
	}
	if err := resp.Send(d.conn); err != nil {
		d.log.Debug().Err(err).Msg("writing response")
		return false
	}
	return true
}

func (d *Driver) respondNotFound() bool {
	return d.respondFixed("404 Not Found", "No such stream is available on the system. Please try again.\n")
}

// source returns a cached upstream handle for streamName, dialing one if
// this is the connection's first request for it or the previous handle
// dropped.
func (d *Driver) source(streamName string) (upstream.Source, error) {
	if src, ok := d.sources[streamName]; ok && src.Connected() {
		return src, nil
	}
	src, err := d.dialer.Dial(streamName)
	if err != nil {
		metrics.UpstreamDialFailures.Inc()
		return nil, err
	}
	d.sources[streamName] = src
	return src, nil
}
