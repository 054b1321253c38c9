// File: protocol/framereader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package protocol

import "io"

// FrameReader accumulates bytes from an underlying stream and yields one
// decoded Frame at a time. It is not safe for concurrent use; each
// connection's reader task owns exactly one.
type FrameReader struct {
	r   io.Reader
	buf []byte
}

// NewFrameReader wraps r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, buf: make([]byte, 0, 4096)}
}

// ReadFrame blocks until a complete frame is available, reading further
// from the underlying stream as needed. It returns the underlying read
// error (including io.EOF) once the stream is exhausted with no frame
// pending.
func (fr *FrameReader) ReadFrame() (*Frame, error) {
	chunk := make([]byte, 4096)
	for {
		f, n, err := DecodeFrame(fr.buf)
		if err != nil {
			return nil, err
		}
		if f != nil {
			fr.buf = fr.buf[n:]
			return f, nil
		}

		nRead, rerr := fr.r.Read(chunk)
		if nRead > 0 {
			fr.buf = append(fr.buf, chunk[:nRead]...)
			continue
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}
