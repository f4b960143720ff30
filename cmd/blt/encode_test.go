package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/copyforge/blt/pkg/blt"
)

func mustParse(t *testing.T, doc string) *scenario {
	t.Helper()
	sc, err := parseScenario([]byte(doc))
	if err != nil {
		t.Fatalf("parse scenario: %v", err)
	}
	return sc
}

func TestEncodeScenarioRoundTrip(t *testing.T) {
	t.Parallel()

	sc := mustParse(t, sampleScenario)
	res, err := encodeScenario(context.Background(), sc, encodeOptions{Execute: true})
	if err != nil {
		t.Fatalf("encode scenario: %v", err)
	}
	if len(res.Data) == 0 || len(res.Data)%4 != 0 {
		t.Fatalf("unexpected stream length %d", len(res.Data))
	}
	if res.Ops != 1 {
		t.Fatalf("unexpected op count %d", res.Ops)
	}

	dev := blt.NewDevice(blt.IPVersion(12, 70))
	insts, err := blt.DecodeBatch(dev, res.Data)
	if err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(insts) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(insts))
	}
	if insts[0].Kind != blt.CmdBlockCopy {
		t.Fatalf("unexpected kind %s", insts[0].Kind)
	}
	if len(insts[0].Words) != 12 {
		t.Fatalf("expected base 12-word form, got %d words", len(insts[0].Words))
	}

	if res.Exec == nil {
		t.Fatalf("execute requested but no report returned")
	}
	if res.Exec.Executed != 1 || len(res.Exec.Skipped) != 0 {
		t.Fatalf("unexpected execution report %+v", res.Exec)
	}
}

func TestEncodeScenarioChained(t *testing.T) {
	t.Parallel()

	sc := mustParse(t, `
device:
  version: "12.70"
surfaces:
  - name: scratch
    size: 4096
    fill: 0x11
  - name: out
    size: 4096
ops:
  - kind: mem-set
    dst: scratch
    width: 256
    fill: 0x7f
  - kind: mem-copy
    src: scratch
    dst: out
    width: 256
`)
	res, err := encodeScenario(context.Background(), sc, encodeOptions{Execute: true})
	if err != nil {
		t.Fatalf("encode scenario: %v", err)
	}

	dev := blt.NewDevice(blt.IPVersion(12, 70))
	insts, err := blt.DecodeBatch(dev, res.Data)
	if err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(insts) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(insts))
	}
	if insts[0].Kind != blt.CmdMemSet || insts[1].Kind != blt.CmdMemCopy {
		t.Fatalf("unexpected kinds %s, %s", insts[0].Kind, insts[1].Kind)
	}
	if insts[0].Offset != 0 {
		t.Fatalf("first instruction not at stream start: %#x", insts[0].Offset)
	}
	if want := uint64(len(insts[0].Words)) * 4; insts[1].Offset != want {
		t.Fatalf("second instruction at %#x, want %#x", insts[1].Offset, want)
	}

	if res.Exec == nil || res.Exec.Executed != 2 || len(res.Exec.Skipped) != 0 {
		t.Fatalf("unexpected execution report %+v", res.Exec)
	}
}

func TestEncodeScenarioCtrlSurf(t *testing.T) {
	t.Parallel()

	sc := mustParse(t, `
device:
  version: "12.70"
surfaces:
  - name: main
    size: 1048576
    region: local
  - name: ccs
    size: 4096
ops:
  - kind: ctrl-surf-copy
    src: main
    dst: ccs
`)
	res, err := encodeScenario(context.Background(), sc, encodeOptions{Execute: true})
	if err != nil {
		t.Fatalf("encode scenario: %v", err)
	}

	dev := blt.NewDevice(blt.IPVersion(12, 70))
	insts, err := blt.DecodeBatch(dev, res.Data)
	if err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(insts) == 0 {
		t.Fatalf("no instructions decoded")
	}
	for _, in := range insts {
		if in.Kind != blt.CmdCtrlSurfCopy {
			t.Fatalf("unexpected kind %s", in.Kind)
		}
	}
	d := insts[0].Detail.(blt.CtrlSurfDetail)
	if d.SrcAccess != blt.AccessIndirect || d.DstAccess != blt.AccessDirect {
		t.Fatalf("default access directions not applied: %+v", d)
	}

	// The soft engine decodes but does not execute control surface copies.
	if res.Exec == nil || res.Exec.Executed != 0 || len(res.Exec.Skipped) != len(insts) {
		t.Fatalf("unexpected execution report %+v", res.Exec)
	}
}

func TestEncodeScenarioVerify(t *testing.T) {
	t.Parallel()

	sc := mustParse(t, sampleScenario)
	res, err := encodeScenario(context.Background(), sc, encodeOptions{Execute: true, Verify: true})
	if err != nil {
		t.Fatalf("encode scenario: %v", err)
	}
	if len(res.Verify) != 1 {
		t.Fatalf("expected 1 verify result, got %d", len(res.Verify))
	}
	v := res.Verify[0]
	if v.Op != 0 || !v.Clean {
		t.Fatalf("executed copy reported corruption: %+v", v)
	}
	// 64x64 pixels in 8x8 blocks renders 8 rows of 8 clean marks.
	if got := strings.Count(v.Map, "\n"); got != 8 {
		t.Fatalf("expected 8 map rows, got %d: %q", got, v.Map)
	}
	if !strings.HasPrefix(v.Map, "........\n") {
		t.Fatalf("unexpected map row: %q", v.Map)
	}
}

func TestEncodeScenarioVerifySkipsPartialRuns(t *testing.T) {
	t.Parallel()

	sc := mustParse(t, `
device:
  version: "12.70"
surfaces:
  - name: main
    size: 1048576
    region: local
  - name: ccs
    size: 4096
ops:
  - kind: ctrl-surf-copy
    src: main
    dst: ccs
`)
	res, err := encodeScenario(context.Background(), sc, encodeOptions{Execute: true, Verify: true})
	if err != nil {
		t.Fatalf("encode scenario: %v", err)
	}
	if len(res.Exec.Skipped) == 0 {
		t.Fatalf("expected skipped instructions")
	}
	if res.Verify != nil {
		t.Fatalf("verify ran against a partially executed batch: %+v", res.Verify)
	}
}

func TestEncodeScenarioBatchOverflow(t *testing.T) {
	t.Parallel()

	sc := mustParse(t, `
device:
  version: "12.70"
batch:
  size: 16
surfaces:
  - name: a
    size: 4096
ops:
  - kind: mem-set
    dst: a
    width: 64
`)
	_, err := encodeScenario(context.Background(), sc, encodeOptions{})
	if !errors.Is(err, blt.ErrBatchOverflow) {
		t.Fatalf("expected batch overflow, got %v", err)
	}
}

func TestWriteReadBatchFile(t *testing.T) {
	t.Parallel()

	data := make([]byte, 96)
	for i := range data {
		data[i] = byte(i * 3)
	}

	t.Run("plain", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "batch.bin")
		if err := writeBatchFile(path, data); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := readBatchFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch")
		}
	})

	t.Run("zstd", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "batch.bin.zst")
		if err := writeBatchFile(path, data); err != nil {
			t.Fatalf("write: %v", err)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read raw: %v", err)
		}
		if !bytes.HasPrefix(raw, zstdMagic) {
			t.Fatalf("zstd output missing frame magic: % x", raw[:4])
		}
		got, err := readBatchFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch")
		}
	})
}
