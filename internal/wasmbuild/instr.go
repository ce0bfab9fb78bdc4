package wasmbuild

// Opcodes used by the instruction helpers.
const (
	opUnreachable = 0x00
	opEnd         = 0x0b
	opCall        = 0x10
	opDrop        = 0x1a
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Load     = 0x28
	opI32Store    = 0x36
	opI32Const    = 0x41
	opI64Const    = 0x42
	opF64Const    = 0x44
	opI32Add      = 0x6a
	opI32Sub      = 0x6b
	opI32Mul      = 0x6c
	opI64Add      = 0x7c
	opF64Add      = 0xa0
	opF64Mul      = 0xa2
)

// Instr is an encoded instruction sequence.
type Instr []byte

func Unreachable() Instr { return Instr{opUnreachable} }
func Drop() Instr        { return Instr{opDrop} }
func I32Add() Instr      { return Instr{opI32Add} }
func I32Sub() Instr      { return Instr{opI32Sub} }
func I32Mul() Instr      { return Instr{opI32Mul} }
func I64Add() Instr      { return Instr{opI64Add} }
func F64Add() Instr      { return Instr{opF64Add} }
func F64Mul() Instr      { return Instr{opF64Mul} }

func LocalGet(idx uint32) Instr  { return appendU32(Instr{opLocalGet}, idx) }
func LocalSet(idx uint32) Instr  { return appendU32(Instr{opLocalSet}, idx) }
func GlobalGet(idx uint32) Instr { return appendU32(Instr{opGlobalGet}, idx) }
func GlobalSet(idx uint32) Instr { return appendU32(Instr{opGlobalSet}, idx) }
func Call(funcIdx uint32) Instr  { return appendU32(Instr{opCall}, funcIdx) }

func I32Const(v int32) Instr   { return appendI64(Instr{opI32Const}, int64(v)) }
func I64Const(v int64) Instr   { return appendI64(Instr{opI64Const}, v) }
func F64Const(v float64) Instr { return appendF64(Instr{opF64Const}, v) }

// I32Load loads from the address on the stack plus offset (align 4).
func I32Load(offset uint32) Instr {
	return appendU32(Instr{opI32Load, 0x02}, offset)
}

// I32Store stores to the address on the stack plus offset (align 4).
func I32Store(offset uint32) Instr {
	return appendU32(Instr{opI32Store, 0x02}, offset)
}

// Body concatenates instructions and appends the terminating end.
func Body(instrs ...Instr) []byte {
	var out []byte
	for _, in := range instrs {
		out = append(out, in...)
	}
	return append(out, opEnd)
}
