package blt

import (
	"context"
	"fmt"
)

// OffsetResolver assigns GPU virtual addresses to buffer handles. Resolve
// is idempotent per handle: repeated calls return the same address until
// Release drops the reservation. A zero alignment means the resolver's
// default granularity.
type OffsetResolver interface {
	Resolve(handle uint32, size, alignment uint64, pat uint8) (uint64, error)
	Release(handle uint32)
}

// ExecFlags describe how the engine touches an object during execution.
type ExecFlags uint32

const (
	ExecPinned ExecFlags = 1 << iota
	ExecWrite
	Exec48BAddress
)

// ExecObject pairs a buffer handle with its resolved address and access
// flags for one submission.
type ExecObject struct {
	Handle uint32
	Offset uint64
	Flags  ExecFlags
}

// EngineClass names an execution engine family.
type EngineClass uint8

const (
	EngineCopy EngineClass = iota
)

func (c EngineClass) String() string {
	if c == EngineCopy {
		return "copy"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Engine selects the engine instance a batch runs on. The zero value is
// the first copy engine.
type Engine struct {
	Class    EngineClass
	Instance uint16
}

func (e Engine) String() string {
	return fmt.Sprintf("%s%d", e.Class, e.Instance)
}

// Submitter hands a finished batch to an execution backend. objects holds
// the non-batch buffers in engine order (destination first); batch carries
// the instruction stream and always rides last. Submission is asynchronous
// with respect to completion: callers synchronize externally before
// touching any involved buffer.
type Submitter interface {
	Submit(ctx context.Context, batch ExecObject, objects []ExecObject, engine Engine, contextID uint32) error
}

func (e *Encoder) execObject(buf Buffer, alignment uint64, pat uint8, flags ExecFlags) (ExecObject, error) {
	off, err := e.res.Resolve(buf.Handle(), buf.Size(), alignment, pat)
	if err != nil {
		return ExecObject{}, fmt.Errorf("resolve exec object %d: %w", buf.Handle(), err)
	}
	return ExecObject{Handle: buf.Handle(), Offset: off, Flags: flags}, nil
}

// SubmitBlockCopy encodes op at the start of its batch, terminates the
// stream and submits it. The offsets stay resolved afterwards so the
// caller can inspect or resubmit.
func (e *Encoder) SubmitBlockCopy(ctx context.Context, sub Submitter, op *CopyOp, ext *BlockCopyExt, engine Engine, contextID uint32) error {
	if op == nil || op.Src.Buf == nil || op.Dst.Buf == nil || op.Batch.Buf == nil {
		return fmt.Errorf("block copy submit: %w", ErrNilDescriptor)
	}
	if _, err := e.BlockCopy(op, ext, 0, true); err != nil {
		return err
	}

	dst, err := e.execObject(op.Dst.Buf, 0, op.Dst.PAT, ExecPinned|ExecWrite|Exec48BAddress)
	if err != nil {
		return err
	}
	src, err := e.execObject(op.Src.Buf, 0, op.Src.PAT, ExecPinned|Exec48BAddress)
	if err != nil {
		return err
	}
	batch, err := e.execObject(op.Batch.Buf, 0, 0, ExecPinned|Exec48BAddress)
	if err != nil {
		return err
	}

	return sub.Submit(ctx, batch, []ExecObject{dst, src}, engine, contextID)
}

// SubmitCtrlSurfCopy encodes op at the start of its batch, terminates the
// stream and submits it, releasing all three offsets afterwards.
func (e *Encoder) SubmitCtrlSurfCopy(ctx context.Context, sub Submitter, op *CtrlSurfOp, engine Engine, contextID uint32) error {
	if op == nil || op.Src.Buf == nil || op.Dst.Buf == nil || op.Batch.Buf == nil {
		return fmt.Errorf("ctrl surf copy submit: %w", ErrNilDescriptor)
	}
	if _, err := e.CtrlSurfCopy(op, 0, true); err != nil {
		return err
	}

	const alignment = 1 << 16
	dst, err := e.execObject(op.Dst.Buf, alignment, op.Dst.PAT, ExecPinned|ExecWrite|Exec48BAddress)
	if err != nil {
		return err
	}
	src, err := e.execObject(op.Src.Buf, alignment, op.Src.PAT, ExecPinned|Exec48BAddress)
	if err != nil {
		return err
	}
	batch, err := e.execObject(op.Batch.Buf, alignment, 0, ExecPinned|Exec48BAddress)
	if err != nil {
		return err
	}

	err = sub.Submit(ctx, batch, []ExecObject{dst, src}, engine, contextID)
	e.res.Release(op.Dst.Buf.Handle())
	e.res.Release(op.Src.Buf.Handle())
	e.res.Release(op.Batch.Buf.Handle())
	return err
}

// SubmitFastCopy encodes op at the start of its batch, terminates the
// stream and submits it, releasing the offsets afterwards.
func (e *Encoder) SubmitFastCopy(ctx context.Context, sub Submitter, op *CopyOp, engine Engine, contextID uint32) error {
	if op == nil || op.Src.Buf == nil || op.Dst.Buf == nil || op.Batch.Buf == nil {
		return fmt.Errorf("fast copy submit: %w", ErrNilDescriptor)
	}
	if _, err := e.FastCopy(op, 0, true); err != nil {
		return err
	}

	dst, err := e.execObject(op.Dst.Buf, 0, op.Dst.PAT, ExecPinned|ExecWrite|Exec48BAddress)
	if err != nil {
		return err
	}
	src, err := e.execObject(op.Src.Buf, 0, op.Src.PAT, ExecPinned|Exec48BAddress)
	if err != nil {
		return err
	}
	batch, err := e.execObject(op.Batch.Buf, 0, 0, ExecPinned|Exec48BAddress)
	if err != nil {
		return err
	}

	err = sub.Submit(ctx, batch, []ExecObject{dst, src}, engine, contextID)
	e.res.Release(op.Dst.Buf.Handle())
	e.res.Release(op.Src.Buf.Handle())
	e.res.Release(op.Batch.Buf.Handle())
	return err
}

// SubmitMemCopy encodes op at the start of its batch, terminates the
// stream and submits it, releasing the offsets afterwards.
func (e *Encoder) SubmitMemCopy(ctx context.Context, sub Submitter, op *MemCopyOp, engine Engine, contextID uint32) error {
	if op == nil || op.Src.Buf == nil || op.Dst.Buf == nil || op.Batch.Buf == nil {
		return fmt.Errorf("mem copy submit: %w", ErrNilDescriptor)
	}
	if _, err := e.MemCopy(op, 0, true); err != nil {
		return err
	}

	dst, err := e.execObject(op.Dst.Buf, 0, op.Dst.PAT, ExecPinned|ExecWrite|Exec48BAddress)
	if err != nil {
		return err
	}
	src, err := e.execObject(op.Src.Buf, 0, op.Src.PAT, ExecPinned|Exec48BAddress)
	if err != nil {
		return err
	}
	batch, err := e.execObject(op.Batch.Buf, 0, 0, ExecPinned|Exec48BAddress)
	if err != nil {
		return err
	}

	err = sub.Submit(ctx, batch, []ExecObject{dst, src}, engine, contextID)
	e.res.Release(op.Dst.Buf.Handle())
	e.res.Release(op.Src.Buf.Handle())
	e.res.Release(op.Batch.Buf.Handle())
	return err
}

// SubmitMemSet encodes op at the start of its batch, terminates the stream
// and submits it, releasing the offsets afterwards.
func (e *Encoder) SubmitMemSet(ctx context.Context, sub Submitter, op *MemSetOp, engine Engine, contextID uint32) error {
	if op == nil || op.Dst.Buf == nil || op.Batch.Buf == nil {
		return fmt.Errorf("mem set submit: %w", ErrNilDescriptor)
	}
	if _, err := e.MemSet(op, 0, true); err != nil {
		return err
	}

	dst, err := e.execObject(op.Dst.Buf, 0, op.Dst.PAT, ExecPinned|ExecWrite|Exec48BAddress)
	if err != nil {
		return err
	}
	batch, err := e.execObject(op.Batch.Buf, 0, 0, ExecPinned|Exec48BAddress)
	if err != nil {
		return err
	}

	err = sub.Submit(ctx, batch, []ExecObject{dst}, engine, contextID)
	e.res.Release(op.Dst.Buf.Handle())
	e.res.Release(op.Batch.Buf.Handle())
	return err
}
