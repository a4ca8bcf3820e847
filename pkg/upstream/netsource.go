package upstream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/go-webdl/hssorigin/pkg/metadata"
)

// NetDialer opens a Source by dialing a unix socket shared with the media
// core and identifying the wanted stream on a single handshake line. The
// core's own packet/metadata model is an external collaborator referenced
// by interface only; this file defines this connector's own half of that
// wire contract (handshake, framing) since the upstream process is not part
// of this repo.
type NetDialer struct {
	SocketPath string
}

func (d NetDialer) Dial(streamName string) (Source, error) {
	conn, err := net.Dial("unix", d.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	if _, err := fmt.Fprintf(conn, "STREAM %s\n", streamName); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	const metaPrefix = "META "
	if len(line) < len(metaPrefix) || line[:len(metaPrefix)] != metaPrefix {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: unexpected handshake %q", ErrNotConnected, line)
	}

	var wire metaWire
	if err := json.Unmarshal([]byte(line[len(metaPrefix):]), &wire); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: malformed metadata: %v", ErrNotConnected, err)
	}

	src := &netSource{
		conn:   conn,
		reader: reader,
		meta:   wire.toMeta(),
		queue:  make(chan Packet, 256),
	}
	src.connected.Store(true)
	go src.pump()
	return src, nil
}

// netSource is the concrete Source talking to one dialed upstream
// connection. Reads happen on a background goroutine so Poll never blocks
// the Connection Driver's cooperative loop.
type netSource struct {
	conn   net.Conn
	reader *bufio.Reader
	meta   *metadata.Meta

	queue     chan Packet
	connected atomic.Bool

	writeMu sync.Mutex
}

func (s *netSource) Meta() *metadata.Meta { return s.meta }

func (s *netSource) SendCommand(raw string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := io.WriteString(s.conn, raw)
	return err
}

func (s *netSource) SendStats(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := fmt.Fprintf(s.conn, "STATS %s", line)
	return err
}

func (s *netSource) Poll() (Packet, bool, error) {
	select {
	case pkt, ok := <-s.queue:
		if !ok {
			return Packet{}, false, io.EOF
		}
		return pkt, true, nil
	default:
		return Packet{}, false, nil
	}
}

func (s *netSource) Connected() bool { return s.connected.Load() }

func (s *netSource) Close() error {
	s.connected.Store(false)
	return s.conn.Close()
}

// pump reads one framed packet at a time: a header line "<kind> <len>\n"
// followed by exactly len raw payload bytes, and pushes it to queue. It
// exits (closing queue) on any read error, which Poll then surfaces as
// io.EOF once the queue drains.
func (s *netSource) pump() {
	defer close(s.queue)
	defer s.connected.Store(false)
	for {
		header, err := s.reader.ReadString('\n')
		if err != nil {
			return
		}
		var kindRune rune
		var length int
		if _, err := fmt.Sscanf(header, "%c %d", &kindRune, &length); err != nil {
			return
		}
		payload := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(s.reader, payload); err != nil {
				return
			}
		}
		kind, ok := packetKindFor(byte(kindRune))
		if !ok {
			continue
		}
		s.queue <- Packet{Kind: kind, Payload: payload}
	}
}

func packetKindFor(ch byte) (PacketKind, bool) {
	switch ch {
	case 'A':
		return PacketAudio, true
	case 'V':
		return PacketVideo, true
	case 'P':
		return PacketPauseMark, true
	case 'M':
		return PacketMetadata, true
	default:
		return 0, false
	}
}

// metaWire is the JSON shape of the handshake's metadata snapshot.
type metaWire struct {
	Live         bool        `json:"live"`
	Vod          bool        `json:"vod"`
	BufferWindow uint64      `json:"bufferWindowMs"`
	Tracks       []trackWire `json:"tracks"`
}

type trackWire struct {
	TrackID uint32     `json:"trackId"`
	Type    string     `json:"type"`
	Codec   string     `json:"codec"`
	Width   uint32     `json:"width"`
	Height  uint32     `json:"height"`
	Rate    uint32     `json:"rate"`
	Bps     uint32     `json:"bps"`
	Init    []byte     `json:"init"`
	Keys    []keyWire  `json:"keys"`
	Parts   []partWire `json:"parts"`
}

type keyWire struct {
	Time   uint64 `json:"time"`
	Length uint64 `json:"length"`
	Number uint32 `json:"number"`
	Parts  uint32 `json:"parts"`
}

type partWire struct {
	Size     uint32 `json:"size"`
	Duration uint32 `json:"duration"`
	Offset   uint32 `json:"offset"`
}

func (w metaWire) toMeta() *metadata.Meta {
	tracks := make(map[uint32]*metadata.Track, len(w.Tracks))
	for _, t := range w.Tracks {
		keys := make([]metadata.Key, len(t.Keys))
		for i, k := range t.Keys {
			keys[i] = metadata.Key{Time: k.Time, Length: k.Length, Number: k.Number, Parts: k.Parts}
		}
		parts := make([]metadata.Part, len(t.Parts))
		for i, p := range t.Parts {
			parts[i] = metadata.Part{Size: p.Size, Duration: p.Duration, Offset: p.Offset}
		}
		tracks[t.TrackID] = &metadata.Track{
			TrackID: t.TrackID,
			Type:    metadata.TrackType(t.Type),
			Codec:   t.Codec,
			Width:   t.Width,
			Height:  t.Height,
			Rate:    t.Rate,
			Bps:     t.Bps,
			Init:    t.Init,
			Keys:    keys,
			Parts:   parts,
		}
	}
	return &metadata.Meta{
		Live:         w.Live,
		Vod:          w.Vod,
		BufferWindow: w.BufferWindow,
		Tracks:       tracks,
	}
}
