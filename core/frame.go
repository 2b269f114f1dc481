package core

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Wire layout of one transfer, all lengths little-endian uint32:
//
//	[nameLen][name][captionLen][caption][encrypted payload ... EOF]
//
// captionLen == 0 means no caption.
const (
	LengthSize = 4

	MaxNameLength    uint32 = 4096      // 4 KB
	MaxCaptionLength uint32 = 64 * 1024 // 64 KB

	DefaultMaxPayload int64 = 512 * 1024 * 1024 // 512 MB
)

// FrameHeader holds the length-prefixed fields that precede the payload.
type FrameHeader struct {
	Name    string
	Caption string
}

// Frame is one complete wire message.
type Frame struct {
	FrameHeader
	Payload []byte
}

func (h *FrameHeader) HasCaption() bool {
	return h.Caption != ""
}

// Proto reads and writes frames.
type Proto struct {
	maxPayload int64
}

// NewProto creates a frame codec. maxPayload <= 0 disables the payload bound.
func NewProto(maxPayload int64) *Proto {
	return &Proto{maxPayload: maxPayload}
}

// SerializeHeader encodes the name and caption fields.
func (p *Proto) SerializeHeader(h *FrameHeader) ([]byte, error) {
	if err := p.validateHeader(h); err != nil {
		return nil, fmt.Errorf("header validation failed: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, 2*LengthSize+len(h.Name)+len(h.Caption)))

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(h.Name))); err != nil {
		return nil, fmt.Errorf("failed to write name length: %w", err)
	}
	buf.WriteString(h.Name)

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(h.Caption))); err != nil {
		return nil, fmt.Errorf("failed to write caption length: %w", err)
	}
	buf.WriteString(h.Caption)

	return buf.Bytes(), nil
}

// WriteFrame writes the header fields followed by the payload.
// The caller closes the stream to mark the end of the payload.
func (p *Proto) WriteFrame(w io.Writer, f *Frame) error {
	header, err := p.SerializeHeader(&f.FrameHeader)
	if err != nil {
		return err
	}

	if err := p.validatePayload(len(f.Payload)); err != nil {
		return err
	}

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if _, err := w.Write(f.Payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}

	return nil
}

// ReadHeader reads exactly the two length-prefixed fields.
// A stream ending before both are complete yields ErrFrameTruncated.
func (p *Proto) ReadHeader(r io.Reader) (*FrameHeader, error) {
	cr := &countingReader{r: r}

	name, err := readField(cr, MaxNameLength, "name")
	if err != nil {
		if cr.n == 0 && errors.Is(err, ErrFrameTruncated) {
			return nil, ErrEmptyStream
		}
		return nil, err
	}

	caption, err := readField(cr, MaxCaptionLength, "caption")
	if err != nil {
		return nil, err
	}

	return &FrameHeader{
		Name:    string(name),
		Caption: string(caption),
	}, nil
}

// ReadPayload reads the rest of the stream.
func (p *Proto) ReadPayload(r io.Reader) ([]byte, error) {
	if p.maxPayload <= 0 {
		return io.ReadAll(r)
	}

	payload, err := io.ReadAll(io.LimitReader(r, p.maxPayload+1))
	if err != nil {
		return nil, err
	}

	if int64(len(payload)) > p.maxPayload {
		return nil, ErrPayloadTooLarge
	}

	return payload, nil
}

// ReadFrame reads a header and then everything up to EOF.
func (p *Proto) ReadFrame(r io.Reader) (*Frame, error) {
	header, err := p.ReadHeader(r)
	if err != nil {
		return nil, err
	}

	payload, err := p.ReadPayload(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	return &Frame{
		FrameHeader: *header,
		Payload:     payload,
	}, nil
}

func (p *Proto) validateHeader(h *FrameHeader) error {
	if uint64(len(h.Name)) > uint64(MaxNameLength) {
		return fmt.Errorf("%w: name is %d bytes", ErrFieldTooLong, len(h.Name))
	}

	if uint64(len(h.Caption)) > uint64(MaxCaptionLength) {
		return fmt.Errorf("%w: caption is %d bytes", ErrFieldTooLong, len(h.Caption))
	}

	return nil
}

func (p *Proto) validatePayload(n int) error {
	if p.maxPayload > 0 && int64(n) > p.maxPayload {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, n)
	}
	return nil
}

func readField(r io.Reader, max uint32, field string) ([]byte, error) {
	var lenBuf [LengthSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, truncated(err, field+" length")
	}

	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > max {
		return nil, fmt.Errorf("%w: %s length %d > %d", ErrFieldTooLong, field, n, max)
	}

	if n == 0 {
		return nil, nil
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, truncated(err, field)
	}

	return data, nil
}

func truncated(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: stream closed while reading %s", ErrFrameTruncated, what)
	}
	return fmt.Errorf("failed to read %s: %w", what, err)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
