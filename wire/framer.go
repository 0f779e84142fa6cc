// Package wire implements the transport layer the master/slave protocol
// rides on (component C3): a connection wrapper that optionally runs
// every byte through a persistent, partial-flush deflate stream, plus a
// generic length-prefixed frame primitive for opaque blobs (checkpoint
// transfers, population dumps) that don't have their own self-delimiting
// format the way individuals and strings do.
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/klauspost/compress/flate"
)

// Conn wraps a net.Conn, transparently compressing/decompressing all
// traffic when compress is true. It implements io.Reader and io.Writer
// so the individual and fitness codecs can operate on it directly.
type Conn struct {
	raw net.Conn
	br  *bufio.Reader
	bw  *bufio.Writer

	flateW *flate.Writer
	flateR io.ReadCloser
}

// Wrap establishes the (optionally compressing) framing layer over an
// already-connected socket.
func Wrap(raw net.Conn, compress bool) (*Conn, error) {
	c := &Conn{
		raw: raw,
		br:  bufio.NewReader(raw),
		bw:  bufio.NewWriter(raw),
	}
	if compress {
		fw, err := flate.NewWriter(c.bw, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("wire: creating compressing writer: %w", err)
		}
		c.flateW = fw
		c.flateR = flate.NewReader(c.br)
	}
	return c, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	if c.flateW != nil {
		return c.flateW.Write(p)
	}
	return c.bw.Write(p)
}

func (c *Conn) Read(p []byte) (int, error) {
	if c.flateR != nil {
		return c.flateR.Read(p)
	}
	return c.br.Read(p)
}

// Flush pushes buffered writes to the socket. When compression is
// enabled this calls the flate writer's sync flush — a marker in the
// deflate stream that lets the peer's reader drain exactly what's been
// written so far without the stream being closed — matching "framed
// deflate, partial-flush mode".
func (c *Conn) Flush() error {
	if c.flateW != nil {
		if err := c.flateW.Flush(); err != nil {
			return err
		}
	}
	return c.bw.Flush()
}

func (c *Conn) Close() error {
	if c.flateW != nil {
		_ = c.flateW.Close()
	}
	if c.flateR != nil {
		_ = c.flateR.Close()
	}
	return c.raw.Close()
}

// WriteFrame writes a uint32 length-prefixed opaque blob.
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads a blob previously written by WriteFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
