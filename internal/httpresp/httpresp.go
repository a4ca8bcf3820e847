// Package httpresp implements §4.7's two response disciplines: a buffered
// Response.Send for short bodies (manifest, XAP, gate rejections), and a
// StartResponse/Chunkify pair for the fragment response's HTTP/1.1 chunked
// transfer encoding, where a zero-length Chunkify ends the body.
package httpresp

import (
	"bufio"
	"fmt"
	"io"
)

// Response is a buffered HTTP response: headers plus a complete body,
// written atomically.
type Response struct {
	Status  string // e.g. "200 OK", "412 Fragment out of range"
	Headers [][2]string
	Body    []byte
}

// Send writes the full response to w.
func (r Response) Send(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "HTTP/1.1 %s\r\n", r.Status); err != nil {
		return err
	}
	for _, h := range r.Headers {
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", h[0], h[1]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "Content-Length: %d\r\n\r\n", len(r.Body)); err != nil {
		return err
	}
	if _, err := bw.Write(r.Body); err != nil {
		return err
	}
	return bw.Flush()
}

// ChunkWriter drives an HTTP/1.1 chunked response body: StartResponse writes
// the status line and headers (with Transfer-Encoding: chunked), Chunkify
// emits one chunk per call, and a final zero-length Chunkify call closes the
// body (§4.4 step 7, §4.6 "Streaming").
type ChunkWriter struct {
	w *bufio.Writer
}

// StartResponse writes the response head for a chunked body.
func StartResponse(w io.Writer, status string, headers [][2]string) (*ChunkWriter, error) {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "HTTP/1.1 %s\r\n", status); err != nil {
		return nil, err
	}
	for _, h := range headers {
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", h[0], h[1]); err != nil {
			return nil, err
		}
	}
	if _, err := fmt.Fprintf(bw, "Transfer-Encoding: chunked\r\n\r\n"); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return &ChunkWriter{w: bw}, nil
}

// Chunkify writes one HTTP chunk. A zero-length payload writes the
// terminating chunk that ends the body.
func (c *ChunkWriter) Chunkify(payload []byte) error {
	if _, err := fmt.Fprintf(c.w, "%x\r\n", len(payload)); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := c.w.Write(payload); err != nil {
			return err
		}
	}
	if _, err := c.w.Write([]byte("\r\n")); err != nil {
		return err
	}
	return c.w.Flush()
}
