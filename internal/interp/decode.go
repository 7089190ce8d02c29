package interp

import "oovm-go/internal/core"

// decoder reads a ByteMethod's instruction stream (spec §6 "Byte-code
// binary layout"). Every Read* method is bounds-checked; running past the
// end of code or hitting a malformed varint panics with a *core.Fatal
// carrying FatalInvalidInstruction, which the interpreter loop's own
// recover turns into a terminated thread (spec §4.G: "an undecodable byte
// ... terminates the thread with invalid instruction").
type decoder struct {
	code []byte
	pos  int
}

func newDecoder(code []byte, pc int) *decoder {
	return &decoder{code: code, pos: pc}
}

func (d *decoder) fail(msg string) {
	panic(core.NewFatal(core.FatalInvalidInstruction, msg))
}

func (d *decoder) byte() byte {
	if d.pos >= len(d.code) {
		d.fail("read past end of byte-code")
	}
	b := d.code[d.pos]
	d.pos++
	return b
}

func (d *decoder) Op() Op {
	return Op(d.byte())
}

// UVarint reads an unsigned variable-length integer whose first byte
// carries a 3-bit length field in its low bits and the value's low 5 bits
// above it, followed by that many little-endian value bytes supplying the
// higher bits from bit 5 up (spec §6: "variable-length integers carry a
// 3-bit length field in the first byte").
func (d *decoder) UVarint() uint64 {
	head := d.byte()
	n := int(head & 0x7)
	v := uint64(head >> 3)
	for i := 0; i < n; i++ {
		v |= uint64(d.byte()) << (8*uint(i) + 5)
	}
	return v
}

// Varint reads a signed varint using zigzag decoding over UVarint.
func (d *decoder) Varint() int64 {
	u := d.UVarint()
	return int64(u>>1) ^ -int64(u&1)
}

// Offset reads a signed stack offset operand.
func (d *decoder) Offset() int { return int(d.Varint()) }

// BranchOffset reads a signed byte offset for branch targets.
func (d *decoder) BranchOffset() int { return int(d.Varint()) }

// Hash reads a 32-bit selector/string hash, big-endian (spec §6: "4 ...
// big-endian bytes stacked from MSB to LSB").
func (d *decoder) Hash() uint32 {
	var v uint32
	for i := 0; i < 4; i++ {
		v = v<<8 | uint32(d.byte())
	}
	return v
}

// String reads a size-prefixed UTF-8 string: an unsigned varint length
// followed by that many raw bytes.
func (d *decoder) String() string {
	n := int(d.UVarint())
	if n < 0 || d.pos+n > len(d.code) {
		d.fail("string operand runs past end of byte-code")
	}
	s := string(d.code[d.pos : d.pos+n])
	d.pos += n
	return s
}

func (d *decoder) Byte() byte { return d.byte() }

func (d *decoder) AtEnd() bool { return d.pos >= len(d.code) }
