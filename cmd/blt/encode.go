package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/urfave/cli/v3"

	"github.com/copyforge/blt/internal/alloc"
	"github.com/copyforge/blt/internal/logger"
	"github.com/copyforge/blt/internal/membuf"
	"github.com/copyforge/blt/internal/submit"
	"github.com/copyforge/blt/pkg/blt"
)

// Scenario buffers are pinned into one arena well clear of the null page.
const (
	arenaBase = 0x100000
	arenaSize = 1 << 32
)

func encodeCmd() *cli.Command {
	var (
		scenarioPath string
		outPath      string
		execute      bool
		verify       bool
		print        bool
	)

	return &cli.Command{
		Name:  "encode",
		Usage: "Encode a scenario file into a copy engine batch",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "scenario",
				Aliases:     []string{"s"},
				Usage:       "path to scenario YAML",
				Destination: &scenarioPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output batch file (.bin, or .bin.zst for zstd)",
				Value:       "batch.bin",
				Destination: &outPath,
			},
			&cli.BoolFlag{
				Name:        "execute",
				Usage:       "replay the encoded batch on the soft engine",
				Destination: &execute,
			},
			&cli.BoolFlag{
				Name:        "verify",
				Usage:       "replay the batch and compare 32bpp block copy surfaces (implies --execute)",
				Destination: &verify,
			},
			&cli.BoolFlag{
				Name:        "print",
				Usage:       "dump encoded instructions through the logger",
				Destination: &print,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			sc, err := loadScenario(scenarioPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			opts := encodeOptions{
				Execute: execute || verify,
				Verify:  verify,
				Print:   print,
			}
			res, err := encodeScenario(ctx, sc, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if err := writeBatchFile(outPath, res.Data); err != nil {
				return cli.Exit(fmt.Sprintf("error: write batch: %v", err), 1)
			}

			log.Info("batch written",
				"path", outPath,
				"bytes", len(res.Data),
				"ops", res.Ops,
				"device", sc.Device.Version)

			if res.Exec != nil {
				log.Info("soft engine run",
					"id", res.Exec.ID,
					"executed", res.Exec.Executed,
					"skipped", len(res.Exec.Skipped))
				for _, s := range res.Exec.Skipped {
					log.Warn("instruction skipped",
						"kind", s.Kind.String(),
						"offset", fmt.Sprintf("%#x", s.Offset),
						"reason", s.Reason)
				}
			}

			if verify && res.Exec != nil {
				switch {
				case len(res.Exec.Skipped) > 0:
					log.Warn("verify skipped, run left instructions unexecuted")
				case len(res.Verify) == 0:
					log.Info("verify found no comparable block copies")
				default:
					for _, v := range res.Verify {
						if v.Clean {
							log.Info("verify clean", "op", v.Op)
							continue
						}
						log.Warn("verify found corruption", "op", v.Op)
						fmt.Fprint(os.Stderr, v.Map)
					}
				}
			}
			return nil
		},
	}
}

// encodeOptions selects the optional stages of a scenario run.
type encodeOptions struct {
	Execute bool
	Verify  bool
	Print   bool
}

// encodeResult is what one scenario run produces: the terminated
// instruction stream and, when requested, the soft engine report and
// per-op corruption maps.
type encodeResult struct {
	Data   []byte
	Ops    int
	Exec   *submit.Execution
	Verify []verifyResult
}

// verifyResult is the block compare of one executed block copy op.
type verifyResult struct {
	Op    int
	Clean bool
	Map   string
}

func encodeScenario(ctx context.Context, sc *scenario, opts encodeOptions) (*encodeResult, error) {
	dev, err := sc.device()
	if err != nil {
		return nil, err
	}

	pool := membuf.NewPool()
	defer func() { _ = pool.Close() }()

	res := alloc.NewSimple(arenaBase, arenaSize)
	enc := blt.NewEncoder(dev, res)

	s, err := buildScene(sc, pool)
	if err != nil {
		return nil, err
	}

	var pos uint64
	for i := range sc.Ops {
		last := i == len(sc.Ops)-1
		pos, err = s.encodeOp(enc, &sc.Ops[i], pos, last, opts.Print)
		if err != nil {
			return nil, fmt.Errorf("op %d (%s): %w", i, sc.Ops[i].Kind, err)
		}
	}

	data, err := readBuffer(s.batch.Buf, pos)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}

	out := &encodeResult{Data: data, Ops: len(sc.Ops)}

	if opts.Execute {
		exec, err := runSoft(ctx, dev, res, s)
		if err != nil {
			return nil, err
		}
		out.Exec = exec
	}
	if opts.Verify && out.Exec != nil {
		out.Verify = verifyScene(sc, s, out.Exec)
	}
	return out, nil
}

// verifyScene compares the endpoints of each 32bpp block copy op in 8x8
// pixel blocks after a soft run. A run that skipped instructions left
// destinations unwritten, so nothing is compared; pairs whose rectangles
// differ are not comparable and are left out.
func verifyScene(sc *scenario, s *scene, exec *submit.Execution) []verifyResult {
	if len(exec.Skipped) > 0 {
		return nil
	}

	var out []verifyResult
	for i := range sc.Ops {
		o := &sc.Ops[i]
		if o.Kind != blt.CmdBlockCopy.String() {
			continue
		}
		src := s.objs[o.Src]
		dst := s.objs[o.Dst]
		bits := o.Depth
		if bits == 0 {
			bits = dst.def.BPP
		}
		if bits != 32 {
			continue
		}
		m, err := blt.DumpCorruption32(src.surface(), dst.surface())
		if err != nil {
			continue
		}
		out = append(out, verifyResult{Op: i, Clean: corruptionClean(m), Map: m})
	}
	return out
}

func corruptionClean(m string) bool {
	return !strings.ContainsFunc(m, func(r rune) bool {
		return r != '.' && r != '\n'
	})
}

// sceneObject is one scenario surface with its backing buffer.
type sceneObject struct {
	def    *scenarioSurface
	buf    *membuf.Buf
	region blt.MemoryRegion
	tiling blt.Tiling
	ctype  blt.CompressionType
}

type scene struct {
	objs  map[string]*sceneObject
	batch blt.Batch
}

func buildScene(sc *scenario, pool *membuf.Pool) (*scene, error) {
	s := &scene{objs: make(map[string]*sceneObject, len(sc.Surfaces))}

	for i := range sc.Surfaces {
		def := &sc.Surfaces[i]
		tiling, _ := blt.ParseTiling(def.Tiling)
		region, _ := blt.ParseRegion(def.Region)
		ctype, _ := parseCompressionType(def.CompressionType)

		size := def.Size
		if size == 0 {
			size = blt.SurfaceSize(def.Width, def.Height, def.BPP, tiling)
		}
		buf, err := pool.Create(size)
		if err != nil {
			return nil, fmt.Errorf("surface %q: %w", def.Name, err)
		}
		if def.Fill != nil {
			if err := fillBuffer(buf, *def.Fill); err != nil {
				return nil, fmt.Errorf("surface %q: %w", def.Name, err)
			}
		}
		s.objs[def.Name] = &sceneObject{
			def:    def,
			buf:    buf,
			region: region,
			tiling: tiling,
			ctype:  ctype,
		}
	}

	batchRegion, _ := blt.ParseRegion(sc.Batch.Region)
	batchBuf, err := pool.Create(sc.Batch.Size)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	s.batch = blt.Batch{Buf: batchBuf, Region: batchRegion}
	return s, nil
}

func (s *scene) object(name string) (*sceneObject, error) {
	ob, ok := s.objs[name]
	if !ok {
		return nil, fmt.Errorf("unknown surface %q", name)
	}
	return ob, nil
}

func (s *scene) encodeOp(enc *blt.Encoder, o *scenarioOp, pos uint64, terminate, print bool) (uint64, error) {
	kind, err := blt.ParseCommand(o.Kind)
	if err != nil {
		return pos, err
	}

	switch kind {
	case blt.CmdBlockCopy:
		op, err := s.copyOp(o, print)
		if err != nil {
			return pos, err
		}
		return enc.BlockCopy(op, nil, pos, terminate)
	case blt.CmdFastCopy:
		op, err := s.copyOp(o, print)
		if err != nil {
			return pos, err
		}
		return enc.FastCopy(op, pos, terminate)
	case blt.CmdMemCopy:
		op, err := s.memCopyOp(o, print)
		if err != nil {
			return pos, err
		}
		return enc.MemCopy(op, pos, terminate)
	case blt.CmdMemSet:
		op, err := s.memSetOp(o, print)
		if err != nil {
			return pos, err
		}
		return enc.MemSet(op, pos, terminate)
	case blt.CmdCtrlSurfCopy:
		op, err := s.ctrlSurfOp(o, print)
		if err != nil {
			return pos, err
		}
		return enc.CtrlSurfCopy(op, pos, terminate)
	}
	return pos, fmt.Errorf("%s cannot be encoded", kind)
}

func (s *scene) copyOp(o *scenarioOp, print bool) (*blt.CopyOp, error) {
	src, err := s.object(o.Src)
	if err != nil {
		return nil, err
	}
	dst, err := s.object(o.Dst)
	if err != nil {
		return nil, err
	}

	bits := o.Depth
	if bits == 0 {
		bits = dst.def.BPP
	}
	depth, err := blt.DepthForBits(bits)
	if err != nil {
		return nil, err
	}

	return &blt.CopyOp{
		Src:   *src.surface(),
		Dst:   *dst.surface(),
		Batch: s.batch,
		Depth: depth,
		Print: print,
	}, nil
}

func (s *scene) memCopyOp(o *scenarioOp, print bool) (*blt.MemCopyOp, error) {
	src, err := s.object(o.Src)
	if err != nil {
		return nil, err
	}
	dst, err := s.object(o.Dst)
	if err != nil {
		return nil, err
	}
	mode, err := parseCopyMode(o.Mode)
	if err != nil {
		return nil, err
	}
	shape, err := parseCopyShape(o.Shape)
	if err != nil {
		return nil, err
	}

	return &blt.MemCopyOp{
		Src:   src.memObject(o.Width, o.Height, o.Pitch),
		Dst:   dst.memObject(o.Width, o.Height, o.Pitch),
		Batch: s.batch,
		Mode:  mode,
		Shape: shape,
		Print: print,
	}, nil
}

func (s *scene) memSetOp(o *scenarioOp, print bool) (*blt.MemSetOp, error) {
	dst, err := s.object(o.Dst)
	if err != nil {
		return nil, err
	}

	return &blt.MemSetOp{
		Dst:   dst.memObject(o.Width, o.Height, o.Pitch),
		Batch: s.batch,
		Fill:  o.Fill,
		Print: print,
	}, nil
}

func (s *scene) ctrlSurfOp(o *scenarioOp, print bool) (*blt.CtrlSurfOp, error) {
	src, err := s.object(o.Src)
	if err != nil {
		return nil, err
	}
	dst, err := s.object(o.Dst)
	if err != nil {
		return nil, err
	}
	srcAccess, err := parseAccess(o.SrcAccess, blt.AccessIndirect)
	if err != nil {
		return nil, err
	}
	dstAccess, err := parseAccess(o.DstAccess, blt.AccessDirect)
	if err != nil {
		return nil, err
	}

	return &blt.CtrlSurfOp{
		Src:   src.ctrlSurf(srcAccess),
		Dst:   dst.ctrlSurf(dstAccess),
		Batch: s.batch,
		Print: print,
	}, nil
}

func (ob *sceneObject) surface() *blt.Surface {
	sp := ob.def
	s := blt.NewSurface(ob.buf, ob.region, sp.Width, sp.Height, sp.BPP,
		sp.MOCS, ob.tiling, sp.Compression, ob.ctype)
	s.PAT = sp.PAT
	return s
}

func (ob *sceneObject) memObject(width, height, pitch uint32) blt.MemObject {
	if height == 0 {
		height = 1
	}
	if pitch == 0 {
		pitch = width
	}
	return blt.MemObject{
		Buf:    ob.buf,
		Region: ob.region,
		MOCS:   ob.def.MOCS,
		PAT:    ob.def.PAT,
		Width:  width,
		Height: height,
		Pitch:  pitch,
	}
}

func (ob *sceneObject) ctrlSurf(access blt.AccessType) blt.CtrlSurf {
	return blt.CtrlSurf{
		Buf:    ob.buf,
		Region: ob.region,
		MOCS:   ob.def.MOCS,
		PAT:    ob.def.PAT,
		Access: access,
	}
}

// runSoft replays the batch through the soft engine. The resolver hands
// back the offsets the encoder already bound, so the exec objects match
// the addresses inside the stream.
func runSoft(ctx context.Context, dev *blt.Device, res *alloc.Simple, s *scene) (*submit.Execution, error) {
	eng := submit.NewSoftEngine(dev)

	objects := make([]blt.ExecObject, 0, len(s.objs))
	for _, ob := range s.objs {
		eng.Register(ob.buf)
		off, err := res.Resolve(ob.buf.Handle(), ob.buf.Size(), 0, ob.def.PAT)
		if err != nil {
			return nil, err
		}
		objects = append(objects, blt.ExecObject{
			Handle: ob.buf.Handle(),
			Offset: off,
			Flags:  blt.ExecPinned | blt.ExecWrite | blt.Exec48BAddress,
		})
	}

	eng.Register(s.batch.Buf)
	batchOff, err := res.Resolve(s.batch.Buf.Handle(), s.batch.Buf.Size(), 0, 0)
	if err != nil {
		return nil, err
	}
	batch := blt.ExecObject{
		Handle: s.batch.Buf.Handle(),
		Offset: batchOff,
		Flags:  blt.ExecPinned | blt.Exec48BAddress,
	}

	if err := eng.Submit(ctx, batch, objects, blt.Engine{Class: blt.EngineCopy}, 0); err != nil {
		return nil, err
	}

	exec, ok := eng.Last()
	if !ok {
		return nil, fmt.Errorf("soft engine recorded no execution")
	}
	return &exec, nil
}

func fillBuffer(buf *membuf.Buf, fill byte) error {
	data, err := buf.Map()
	if err != nil {
		return err
	}
	for i := range data {
		data[i] = fill
	}
	return buf.Unmap(data)
}

func readBuffer(buf blt.Buffer, n uint64) ([]byte, error) {
	data, err := buf.Map()
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), data[:n]...)
	if err := buf.Unmap(data); err != nil {
		return nil, err
	}
	return out, nil
}

func writeBatchFile(path string, data []byte) error {
	if !strings.HasSuffix(path, ".zst") {
		return os.WriteFile(path, data, 0o644)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		_ = f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
