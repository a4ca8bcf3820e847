package connection

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/go-webdl/hssorigin/pkg/metadata"
	"github.com/go-webdl/hssorigin/pkg/upstream"
)

type identityConverter struct{}

func (identityConverter) ToAnnexB(avcc []byte) ([]byte, error) { return avcc, nil }

func vodMeta() *metadata.Meta {
	return &metadata.Meta{
		Vod: true,
		Tracks: map[uint32]*metadata.Track{
			1: {
				TrackID: 1,
				Type:    metadata.Video,
				Codec:   "H264",
				Width:   640,
				Height:  360,
				Bps:     500000,
				Init:    []byte{0x01, 0x42, 0x00, 0x1e, 0xff, 0x00},
				Keys: []metadata.Key{
					{Time: 0, Length: 2000, Number: 1, Parts: 1},
					{Time: 2000, Length: 0, Number: 2, Parts: 0},
				},
				Parts: []metadata.Part{
					{Size: 100, Duration: 2000, Offset: 0},
				},
			},
		},
	}
}

func runDriver(t *testing.T, dialer upstream.Dialer) (clientConn net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	d := New(server, dialer, identityConverter{}, []byte("XAP-BYTES"))
	go d.Run()
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sendRequest(t *testing.T, conn net.Conn, path string) *http.Response {
	t.Helper()
	req := "GET " + path + " HTTP/1.1\r\nHost: origin\r\n\r\n"
	_, err := io.WriteString(conn, req)
	require.NoError(t, err)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	return resp
}

func TestServeXAP(t *testing.T) {
	dialer := &upstream.FakeDialer{Sources: map[string]*upstream.FakeSource{}}
	conn := runDriver(t, dialer)

	resp := sendRequest(t, conn, "/smooth/show.xap")
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/silverlight", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "XAP-BYTES", string(body))
}

func TestServeManifestNotFound(t *testing.T) {
	dialer := &upstream.FakeDialer{Sources: map[string]*upstream.FakeSource{}}
	conn := runDriver(t, dialer)

	resp := sendRequest(t, conn, "/smooth/missing.ism/Manifest")
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestServeManifestKeepAlive(t *testing.T) {
	src := upstream.NewFakeSource(vodMeta())
	dialer := &upstream.FakeDialer{Sources: map[string]*upstream.FakeSource{"show": src}}
	conn := runDriver(t, dialer)

	for i := 0; i < 2; i++ {
		resp := sendRequest(t, conn, "/smooth/show.ism/Manifest")
		assert.Equal(t, 200, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()

		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(body)
		require.NoError(t, err)
		assert.Contains(t, string(decoded), "SmoothStreamingMedia")
	}
}

func TestServeFragmentServable(t *testing.T) {
	src := upstream.NewFakeSource(vodMeta())
	src.Enqueue(
		upstream.Packet{Kind: upstream.PacketVideo, Payload: make([]byte, 100)},
		upstream.Packet{Kind: upstream.PacketPauseMark},
	)
	dialer := &upstream.FakeDialer{Sources: map[string]*upstream.FakeSource{"show": src}}
	conn := runDriver(t, dialer)

	resp := sendRequest(t, conn, "/smooth/show.ism/QualityLevels(500000,TrackID=1)/Fragments(V(0))")
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body[4:8]), "moof"))
	assert.Contains(t, string(body), "mdat")

	cmds := src.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "t 1\ns 0\np 2000\n", cmds[0])
}

func TestServeFragmentTooOld(t *testing.T) {
	meta := &metadata.Meta{
		Live: true,
		Tracks: map[uint32]*metadata.Track{
			1: {
				TrackID: 1,
				Type:    metadata.Video,
				Codec:   "H264",
				Keys: []metadata.Key{
					{Time: 10000, Length: 1000, Number: 5, Parts: 1},
					{Time: 11000, Length: 1000, Number: 6, Parts: 1},
					{Time: 12000, Length: 0, Number: 7, Parts: 1},
				},
				Parts: []metadata.Part{{Size: 10}, {Size: 10}, {Size: 10}},
			},
		},
	}
	src := upstream.NewFakeSource(meta)
	dialer := &upstream.FakeDialer{Sources: map[string]*upstream.FakeSource{"live": src}}
	conn := runDriver(t, dialer)

	resp := sendRequest(t, conn, "/smooth/live.ism/QualityLevels(500000,TrackID=1)/Fragments(V(0))")
	defer resp.Body.Close()
	assert.Equal(t, 412, resp.StatusCode)
}

func TestServeFragmentUnknownStreamIs404(t *testing.T) {
	dialer := &upstream.FakeDialer{Sources: map[string]*upstream.FakeSource{}}
	conn := runDriver(t, dialer)

	resp := sendRequest(t, conn, "/smooth/ghost.ism/QualityLevels(500000,TrackID=1)/Fragments(V(0))")
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

