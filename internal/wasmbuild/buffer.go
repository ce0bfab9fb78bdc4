package wasmbuild

import (
	"encoding/binary"
	"math"
)

type buffer struct {
	bytes []byte
}

func (b *buffer) byte(v byte) {
	b.bytes = append(b.bytes, v)
}

func (b *buffer) write(v []byte) {
	b.bytes = append(b.bytes, v...)
}

// u32 writes unsigned LEB128 encoding.
func (b *buffer) u32(v uint32) {
	b.bytes = appendU32(b.bytes, v)
}

func (b *buffer) name(s string) {
	b.u32(uint32(len(s)))
	b.write([]byte(s))
}

func (b *buffer) limits(min uint32, max *uint32) {
	if max != nil {
		b.byte(0x01)
		b.u32(min)
		b.u32(*max)
		return
	}
	b.byte(0x00)
	b.u32(min)
}

func (b *buffer) section(id byte, content *buffer) {
	b.byte(id)
	b.u32(uint32(len(content.bytes)))
	b.write(content.bytes)
}

func appendU32(dst []byte, v uint32) []byte {
	for {
		byt := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			byt |= 0x80
		}
		dst = append(dst, byt)
		if v == 0 {
			return dst
		}
	}
}

// appendI64 writes signed LEB128 encoding.
func appendI64(dst []byte, v int64) []byte {
	for {
		byt := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && byt&0x40 == 0) || (v == -1 && byt&0x40 != 0) {
			return append(dst, byt)
		}
		dst = append(dst, byt|0x80)
	}
}

func appendF64(dst []byte, v float64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return append(dst, buf[:]...)
}
