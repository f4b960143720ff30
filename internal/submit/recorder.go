package submit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/copyforge/blt/pkg/blt"
)

// Record is one captured submission.
type Record struct {
	ID        string
	Time      time.Time
	Batch     blt.ExecObject
	Objects   []blt.ExecObject
	Engine    blt.Engine
	ContextID uint32
}

// Recorder is a Submitter that stores every submission instead of
// executing it.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Submit(ctx context.Context, batch blt.ExecObject, objects []blt.ExecObject, engine blt.Engine, contextID uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := Record{
		ID:        "sub_" + uuid.NewString(),
		Time:      time.Now(),
		Batch:     batch,
		Objects:   append([]blt.ExecObject(nil), objects...),
		Engine:    engine,
		ContextID: contextID,
	}
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	return nil
}

// Records returns a copy of the captured submissions in order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}
