package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteFrameReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{1, 2, 3, 4, 5}
	if err := WriteFrame(&buf, TagMove, 42, payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	tag, seq, got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if tag != TagMove {
		t.Fatalf("expected tag %v, got %v", TagMove, tag)
	}
	if seq != 42 {
		t.Fatalf("expected sequence 42, got %d", seq)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected payload %v, got %v", payload, got)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(TagMove))
	var seqBytes [8]byte
	buf.Write(seqBytes[:])
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], maxFrameLength+1)
	buf.Write(lenBytes[:])

	_, _, _, err := ReadFrame(&buf)
	if err == nil {
		t.Fatalf("expected an error for a frame length exceeding the limit")
	}
}

func TestEncoderDecoderPrimitivesRoundTrip(t *testing.T) {
	e := NewEncoder(64)
	e.PutU8(7)
	e.PutU16(1000)
	e.PutU32(100000)
	e.PutU64(10000000000)
	e.PutI64(-5)
	e.PutF32(3.5)
	e.PutBool(true)
	e.PutString("hello")
	e.PutF32Slice([]float32{1, 2, 3})
	e.PutI32Slice([]int32{-1, -2, -3})
	e.PutU32Slice([]uint32{9, 8, 7})

	d := NewDecoder(e.Bytes())
	if got := d.U8(); got != 7 {
		t.Fatalf("U8: got %d, want 7", got)
	}
	if got := d.U16(); got != 1000 {
		t.Fatalf("U16: got %d, want 1000", got)
	}
	if got := d.U32(); got != 100000 {
		t.Fatalf("U32: got %d, want 100000", got)
	}
	if got := d.U64(); got != 10000000000 {
		t.Fatalf("U64: got %d, want 10000000000", got)
	}
	if got := d.I64(); got != -5 {
		t.Fatalf("I64: got %d, want -5", got)
	}
	if got := d.F32(); got != 3.5 {
		t.Fatalf("F32: got %v, want 3.5", got)
	}
	if got := d.Bool(); got != true {
		t.Fatalf("Bool: got %v, want true", got)
	}
	if got := d.String(); got != "hello" {
		t.Fatalf("String: got %q, want hello", got)
	}
	if got := d.F32Slice(); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("F32Slice: got %v", got)
	}
	if got := d.I32Slice(); len(got) != 3 || got[0] != -1 || got[2] != -3 {
		t.Fatalf("I32Slice: got %v", got)
	}
	if got := d.U32Slice(); len(got) != 3 || got[0] != 9 || got[2] != 7 {
		t.Fatalf("U32Slice: got %v", got)
	}
	if err := d.Err(); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
}

func TestDecoderReportsUnexpectedEOF(t *testing.T) {
	d := NewDecoder([]byte{1, 2})
	_ = d.U64()
	if d.Err() == nil {
		t.Fatalf("expected a parse error reading past the end of a short buffer")
	}
	// Once an error is latched, further reads stay inert rather than panicking.
	if got := d.U32(); got != 0 {
		t.Fatalf("expected 0 from a read after a latched error, got %d", got)
	}
}
