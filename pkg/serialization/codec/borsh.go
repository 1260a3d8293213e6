// Package codec reads and writes the little endian, length prefixed layout
// shared by account data, instruction arguments, events and wire messages.
//
// Encoder and Decoder keep the first error they hit and turn every later
// call into a no-op, so a record can be written field by field and checked
// once at the end.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"lukechampine.com/uint128"
)

// MaxLength bounds any length prefix accepted by the decoder.
const MaxLength = 1 << 20

var ErrLengthTooLarge = errors.New("codec: length prefix too large")

type Encoder struct {
	buf *bytes.Buffer
	enc *bin.Encoder
	err error
}

func NewEncoder() *Encoder {
	buf := new(bytes.Buffer)
	return &Encoder{buf: buf, enc: bin.NewBorshEncoder(buf)}
}

func (e *Encoder) U8(v uint8) *Encoder {
	if e.err == nil {
		e.err = e.enc.WriteUint8(v)
	}
	return e
}

func (e *Encoder) U16(v uint16) *Encoder {
	if e.err == nil {
		e.err = e.enc.WriteUint16(v, binary.LittleEndian)
	}
	return e
}

func (e *Encoder) U32(v uint32) *Encoder {
	if e.err == nil {
		e.err = e.enc.WriteUint32(v, binary.LittleEndian)
	}
	return e
}

func (e *Encoder) U64(v uint64) *Encoder {
	if e.err == nil {
		e.err = e.enc.WriteUint64(v, binary.LittleEndian)
	}
	return e
}

// U128 writes the low word first.
func (e *Encoder) U128(v uint128.Uint128) *Encoder {
	return e.U64(v.Lo).U64(v.Hi)
}

func (e *Encoder) Bool(v bool) *Encoder {
	if v {
		return e.U8(1)
	}
	return e.U8(0)
}

// Fixed writes b without a length prefix.
func (e *Encoder) Fixed(b []byte) *Encoder {
	if e.err == nil {
		e.err = e.enc.WriteBytes(b, false)
	}
	return e
}

// Vec writes b behind a u32 length prefix.
func (e *Encoder) Vec(b []byte) *Encoder {
	if uint64(len(b)) > math.MaxUint32 {
		e.err = ErrLengthTooLarge
		return e
	}
	return e.U32(uint32(len(b))).Fixed(b)
}

func (e *Encoder) Str(s string) *Encoder {
	return e.Vec([]byte(s))
}

// Bytes returns everything written so far or the first error.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buf.Bytes(), nil
}

type Decoder struct {
	dec *bin.Decoder
	err error
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{dec: bin.NewBorshDecoder(data)}
}

func (d *Decoder) U8() uint8 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint8()
	d.err = err
	return v
}

func (d *Decoder) U16() uint16 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint16(binary.LittleEndian)
	d.err = err
	return v
}

func (d *Decoder) U32() uint32 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint32(binary.LittleEndian)
	d.err = err
	return v
}

func (d *Decoder) U64() uint64 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint64(binary.LittleEndian)
	d.err = err
	return v
}

func (d *Decoder) U128() uint128.Uint128 {
	lo := d.U64()
	hi := d.U64()
	return uint128.New(lo, hi)
}

func (d *Decoder) Bool() bool {
	v := d.U8()
	if d.err == nil && v > 1 {
		d.err = fmt.Errorf("codec: invalid bool %d", v)
	}
	return v == 1
}

// Fixed reads exactly len(dst) bytes into dst.
func (d *Decoder) Fixed(dst []byte) {
	if d.err != nil {
		return
	}
	b, err := d.dec.ReadNBytes(len(dst))
	if err != nil {
		d.err = err
		return
	}
	copy(dst, b)
}

// Vec reads a u32 length prefixed byte string.
func (d *Decoder) Vec() []byte {
	n := d.U32()
	if d.err != nil {
		return nil
	}
	if n > MaxLength {
		d.err = ErrLengthTooLarge
		return nil
	}
	out := make([]byte, n)
	d.Fixed(out)
	return out
}

func (d *Decoder) Str() string {
	return string(d.Vec())
}

// Remaining is the number of unread bytes.
func (d *Decoder) Remaining() int {
	return d.dec.Remaining()
}

func (d *Decoder) Err() error {
	return d.err
}
