// Package wire implements JBW's framed, length-prefixed, little-endian
// fixed-width binary protocol (§6): request/response tags, primitive
// encoding, and the higher-level message shapes built on top of them.
package wire

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"jellybeanworld/world"
)

// maxFrameLength bounds a single frame's payload to guard a server worker
// against an unbounded allocation from a malformed length prefix.
const maxFrameLength = 64 << 20

// frameHeaderLength is tag (u8) + sequence (u64) + payload length (u32).
const frameHeaderLength = 1 + 8 + 4

// ReadFrame reads one tag-prefixed, sequence-prefixed, length-prefixed
// frame: tag (u8), sequence (u64 little-endian), length (u32 little-endian),
// payload (length bytes). The sequence number is how a client's single
// reader task demultiplexes responses to pending calls (§4.6); the server
// echoes back whatever sequence a request frame carried. STEP broadcasts
// (server -> client, unsolicited) always carry sequence 0, which no client
// call ever uses as its own sequence.
func ReadFrame(r io.Reader) (Tag, uint64, []byte, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, 0, nil, err
	}
	tag := Tag(header[0])
	seq := binary.LittleEndian.Uint64(header[1:9])
	length := binary.LittleEndian.Uint32(header[9:13])
	if length > maxFrameLength {
		return 0, 0, nil, world.StatusServerParseError.Errf("frame length %d exceeds limit", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, 0, nil, err
	}
	return tag, seq, payload, nil
}

// WriteFrame writes one tag-prefixed, sequence-prefixed, length-prefixed
// frame.
func WriteFrame(w io.Writer, tag Tag, seq uint64, payload []byte) error {
	var header [frameHeaderLength]byte
	header[0] = byte(tag)
	binary.LittleEndian.PutUint64(header[1:9], seq)
	binary.LittleEndian.PutUint32(header[9:13], uint32(len(payload)))
	bw, ok := w.(*bufio.Writer)
	if ok {
		if _, err := bw.Write(header[:]); err != nil {
			return err
		}
		if _, err := bw.Write(payload); err != nil {
			return err
		}
		return bw.Flush()
	}
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Encoder accumulates fixed-width little-endian fields into a byte slice.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty encoder with capacity hinted by sizeHint.
func NewEncoder(sizeHint int) *Encoder {
	return &Encoder{buf: make([]byte, 0, sizeHint)}
}

func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) PutU8(v uint8) { e.buf = append(e.buf, v) }

func (e *Encoder) PutU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) PutU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) PutU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) PutI64(v int64) { e.PutU64(uint64(v)) }

func (e *Encoder) PutF32(v float32) { e.PutU32(math.Float32bits(v)) }

func (e *Encoder) PutBool(v bool) {
	if v {
		e.PutU8(1)
	} else {
		e.PutU8(0)
	}
}

// PutBytes writes a length-prefixed (u32) opaque byte string.
func (e *Encoder) PutBytes(b []byte) {
	e.PutU32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// PutString writes a length-prefixed UTF-8 string.
func (e *Encoder) PutString(s string) { e.PutBytes([]byte(s)) }

// PutF32Slice writes a length-prefixed (u32 element count) run of f32s.
func (e *Encoder) PutF32Slice(v []float32) {
	e.PutU32(uint32(len(v)))
	for _, x := range v {
		e.PutF32(x)
	}
}

// PutI32Slice writes a length-prefixed (u32 element count) run of i32s.
func (e *Encoder) PutI32Slice(v []int32) {
	e.PutU32(uint32(len(v)))
	for _, x := range v {
		e.PutU32(uint32(x))
	}
}

// PutU32Slice writes a length-prefixed (u32 element count) run of u32s.
func (e *Encoder) PutU32Slice(v []uint32) {
	e.PutU32(uint32(len(v)))
	for _, x := range v {
		e.PutU32(x)
	}
}

// Decoder reads fixed-width little-endian fields from a byte slice,
// tracking a single parse error so callers can chain reads without
// checking after every call.
type Decoder struct {
	buf []byte
	pos int
	err error
}

func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Err returns the first parse error encountered, if any.
func (d *Decoder) Err() error {
	if d.err != nil {
		return d.err
	}
	return nil
}

func (d *Decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.pos+n > len(d.buf) {
		d.err = world.StatusServerParseError.Errf("unexpected end of frame: need %d bytes at offset %d, have %d", n, d.pos, len(d.buf))
		return false
	}
	return true
}

func (d *Decoder) U8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.buf[d.pos]
	d.pos++
	return v
}

func (d *Decoder) U16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v
}

func (d *Decoder) U32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v
}

func (d *Decoder) U64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v
}

func (d *Decoder) I64() int64 { return int64(d.U64()) }

func (d *Decoder) F32() float32 { return math.Float32frombits(d.U32()) }

func (d *Decoder) Bool() bool { return d.U8() != 0 }

func (d *Decoder) Bytes() []byte {
	n := d.U32()
	if !d.need(int(n)) {
		return nil
	}
	v := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return v
}

func (d *Decoder) String() string { return string(d.Bytes()) }

func (d *Decoder) F32Slice() []float32 {
	n := d.U32()
	out := make([]float32, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		out = append(out, d.F32())
	}
	return out
}

func (d *Decoder) I32Slice() []int32 {
	n := d.U32()
	out := make([]int32, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		out = append(out, int32(d.U32()))
	}
	return out
}

func (d *Decoder) U32Slice() []uint32 {
	n := d.U32()
	out := make([]uint32, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		out = append(out, d.U32())
	}
	return out
}
