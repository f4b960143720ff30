package blt

// field is an inclusive bit range inside a 32-bit instruction word.
// Values placed into a field are masked to its width, matching hardware
// bitfield truncation.
type field struct {
	lo, hi uint
}

func bitrange(lo, hi uint) field {
	return field{lo: lo, hi: hi}
}

func (f field) mask() uint32 {
	return (1 << (f.hi - f.lo + 1)) - 1
}

// max returns the highest value the field can hold. Chunking limits derive
// from this so they track the field width instead of hardcoded constants.
func (f field) max() uint32 {
	return f.mask()
}

func (f field) place(v uint32) uint32 {
	return (v & f.mask()) << f.lo
}

func (f field) get(w uint32) uint32 {
	return (w >> f.lo) & f.mask()
}

// Word 0 fields shared by every copy command.
var (
	lengthField = bitrange(0, 7)
	opcodeField = bitrange(22, 28)
	clientField = bitrange(29, 31)
)

// clientBlt is the client code carried by all blitter instructions.
const clientBlt = 0x2

// Halves of a packed (x, y) coordinate word.
var (
	coordLo = bitrange(0, 15)
	coordHi = bitrange(16, 31)
)

func packCoords(x, y int32) uint32 {
	return coordLo.place(uint32(x)) | coordHi.place(uint32(y))
}

func unpackCoords(w uint32) (x, y int32) {
	return int32(int16(coordLo.get(w))), int32(int16(coordHi.get(w)))
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
