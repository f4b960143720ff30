package blt

import "errors"

var (
	// ErrNilDescriptor reports a missing required operation descriptor.
	ErrNilDescriptor = errors.New("nil operation descriptor")
	// ErrBatchOverflow reports an append that would run past the batch
	// buffer capacity. The batch is left unmodified beyond the last
	// successful write.
	ErrBatchOverflow = errors.New("batch buffer capacity exceeded")
	// ErrCompressedSystemMemory reports compression requested on a
	// surface outside device-local memory.
	ErrCompressedSystemMemory = errors.New("compression requires device-local memory")
	// ErrCCSSizeMismatch reports a control-surface copy whose destination
	// metadata area is smaller than the source's.
	ErrCCSSizeMismatch = errors.New("destination CCS size smaller than source")
	// ErrUnsupportedDepth reports a color depth the command cannot encode.
	ErrUnsupportedDepth = errors.New("unsupported color depth")
	// ErrUnknownCommand reports an opcode the decoder does not recognize.
	ErrUnknownCommand = errors.New("unknown command opcode")
	// ErrTruncatedBatch reports an instruction stream that ends in the
	// middle of an instruction.
	ErrTruncatedBatch = errors.New("truncated instruction stream")
)
