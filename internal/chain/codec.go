package chain

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var errShortBuffer = errors.New("unexpected end of serialized data")

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) uint8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *encoder) uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) varuint32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		e.buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func (e *encoder) bytes(b []byte) {
	e.varuint32(uint32(len(b)))
	e.buf.Write(b)
}

func (e *encoder) name(n string) {
	e.uint64(NameToUint64(n))
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) remaining() int {
	return len(d.data) - d.pos
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, errShortBuffer
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) uint8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) uint16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *decoder) uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) uint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) varuint32() (uint32, error) {
	var v uint32
	var shift uint
	for {
		b, err := d.uint8()
		if err != nil {
			return 0, err
		}
		if shift >= 35 {
			return 0, fmt.Errorf("varuint32 overflow")
		}
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
}

func (d *decoder) bytes() ([]byte, error) {
	n, err := d.varuint32()
	if err != nil {
		return nil, err
	}
	b, err := d.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (d *decoder) name() (string, error) {
	v, err := d.uint64()
	if err != nil {
		return "", err
	}
	return Uint64ToName(v), nil
}
