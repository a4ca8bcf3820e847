package upstream

import (
	"sync"

	"github.com/go-webdl/hssorigin/pkg/metadata"
)

// FakeSource is an in-memory Source used by Connection Driver tests. Queue
// packets with Enqueue; Poll drains them in FIFO order.
type FakeSource struct {
	mu        sync.Mutex
	meta      *metadata.Meta
	packets   []Packet
	commands  []string
	stats     []string
	connected bool
}

// NewFakeSource returns a connected FakeSource serving meta.
func NewFakeSource(meta *metadata.Meta) *FakeSource {
	return &FakeSource{meta: meta, connected: true}
}

func (f *FakeSource) Meta() *metadata.Meta {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meta
}

func (f *FakeSource) SendCommand(raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, raw)
	return nil
}

// Commands returns every command block sent so far, in order.
func (f *FakeSource) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commands))
	copy(out, f.commands)
	return out
}

// Enqueue appends packets to be returned by subsequent Poll calls.
func (f *FakeSource) Enqueue(pkts ...Packet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packets = append(f.packets, pkts...)
}

func (f *FakeSource) Poll() (Packet, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.packets) == 0 {
		return Packet{}, false, nil
	}
	pkt := f.packets[0]
	f.packets = f.packets[1:]
	return pkt, true, nil
}

func (f *FakeSource) SendStats(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, line)
	return nil
}

// Stats returns every stats line recorded so far.
func (f *FakeSource) Stats() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.stats))
	copy(out, f.stats)
	return out
}

func (f *FakeSource) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Disconnect marks the source as no longer connected, simulating an upstream
// drop mid-stream.
func (f *FakeSource) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

// FakeDialer dispenses preconfigured FakeSources by stream name for tests.
type FakeDialer struct {
	Sources map[string]*FakeSource
}

func (d *FakeDialer) Dial(streamName string) (Source, error) {
	s, ok := d.Sources[streamName]
	if !ok {
		return nil, ErrNotConnected
	}
	return s, nil
}
