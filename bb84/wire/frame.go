package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/alan-christopher/bb84sim/bb84"
)

// MaxFrameSize bounds the payload a Reader will allocate for a single frame.
const MaxFrameSize = 1 << 28

// A Writer writes framed results to the wire.
// The structure of the frame is trivial:  payload-length | payload
// with the length a little-endian int32.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer framing results onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes res and writes it as a single frame.
func (fw *Writer) Write(res *bb84.Result) error {
	marshalled, err := Marshal(res)
	if err != nil {
		return err
	}
	if len(marshalled) > MaxFrameSize {
		return fmt.Errorf("result of %d bytes exceeds max frame size %d", len(marshalled), MaxFrameSize)
	}
	if err := binary.Write(fw.w, binary.LittleEndian, int32(len(marshalled))); err != nil {
		return err
	}
	if _, err := fw.w.Write(marshalled); err != nil {
		return err
	}
	return nil
}

// A Reader reads results framed by a Writer.
type Reader struct {
	r io.Reader
}

// NewReader returns a Reader consuming frames from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read returns the next result. It returns io.EOF when r is exhausted exactly
// at a frame boundary, and io.ErrUnexpectedEOF for a truncated frame.
func (fr *Reader) Read() (*bb84.Result, error) {
	var mLen int32
	if err := binary.Read(fr.r, binary.LittleEndian, &mLen); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	if mLen < 0 || mLen > MaxFrameSize {
		return nil, fmt.Errorf("invalid frame length %d", mLen)
	}
	marshalled := make([]byte, mLen)
	if _, err := io.ReadFull(fr.r, marshalled); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return Unmarshal(marshalled)
}
