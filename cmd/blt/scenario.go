package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/copyforge/blt/pkg/blt"
)

const defaultBatchSize = 4096

// scenario is the YAML description an encode run starts from: one device,
// one batch buffer, a set of named surfaces and the operations to encode
// against them, in order, into a single instruction stream.
type scenario struct {
	Device   scenarioDevice    `yaml:"device"`
	Batch    scenarioBatch     `yaml:"batch"`
	Surfaces []scenarioSurface `yaml:"surfaces"`
	Ops      []scenarioOp      `yaml:"ops"`
}

type scenarioDevice struct {
	Version  string  `yaml:"version"`
	CCSRatio *uint32 `yaml:"ccs_ratio"`
	// Force skips the capability check, so streams for command and tiling
	// combinations the device does not list can still be produced.
	Force bool `yaml:"force"`
}

type scenarioBatch struct {
	Size   uint64 `yaml:"size"`
	Region string `yaml:"region"`
}

type scenarioSurface struct {
	Name            string `yaml:"name"`
	Width           uint32 `yaml:"width"`
	Height          uint32 `yaml:"height"`
	BPP             uint32 `yaml:"bpp"`
	Tiling          string `yaml:"tiling"`
	Region          string `yaml:"region"`
	MOCS            uint8  `yaml:"mocs"`
	PAT             uint8  `yaml:"pat"`
	Compression     bool   `yaml:"compression"`
	CompressionType string `yaml:"compression_type"`
	// Size overrides the computed buffer size, for plain byte buffers and
	// control surfaces that have no 2D geometry.
	Size uint64 `yaml:"size"`
	// Fill writes the byte into the whole buffer before encoding.
	Fill *uint8 `yaml:"fill"`
}

type scenarioOp struct {
	Kind string `yaml:"kind"`
	Src  string `yaml:"src"`
	Dst  string `yaml:"dst"`

	// Block and fast copies. Zero means the destination surface bpp.
	Depth uint32 `yaml:"depth"`

	// Memory copies and sets. Width and pitch are in bytes; height
	// defaults to one row and pitch to the width.
	Mode   string `yaml:"mode"`
	Shape  string `yaml:"shape"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
	Pitch  uint32 `yaml:"pitch"`
	Fill   uint8  `yaml:"fill"`

	// Control surface copies. The default direction saves compression
	// metadata: indirect read from the source, direct write to the
	// destination.
	SrcAccess string `yaml:"src_access"`
	DstAccess string `yaml:"dst_access"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*scenario, error) {
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	sc.applyDefaults()
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *scenario) applyDefaults() {
	if sc.Batch.Size == 0 {
		sc.Batch.Size = defaultBatchSize
	}
	if sc.Batch.Region == "" {
		sc.Batch.Region = "system"
	}
	for i := range sc.Surfaces {
		s := &sc.Surfaces[i]
		if s.Tiling == "" {
			s.Tiling = "linear"
		}
		if s.Region == "" {
			s.Region = "system"
		}
	}
}

func (sc *scenario) validate() error {
	if sc.Device.Version == "" {
		return fmt.Errorf("scenario: device.version is required")
	}
	ipver, err := blt.ParseIPVersion(sc.Device.Version)
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	if _, err := blt.ParseRegion(sc.Batch.Region); err != nil {
		return fmt.Errorf("scenario batch: %w", err)
	}
	if len(sc.Ops) == 0 {
		return fmt.Errorf("scenario: no ops")
	}

	byName := make(map[string]*scenarioSurface, len(sc.Surfaces))
	for i := range sc.Surfaces {
		s := &sc.Surfaces[i]
		if err := s.validate(); err != nil {
			return err
		}
		if _, dup := byName[s.Name]; dup {
			return fmt.Errorf("surface %q: duplicate name", s.Name)
		}
		byName[s.Name] = s
	}

	set := blt.CommandSetFor(blt.NewDevice(ipver).Variant())
	for i := range sc.Ops {
		if err := sc.Ops[i].validate(i, byName, set, sc.Device.Force); err != nil {
			return err
		}
	}
	return nil
}

func (s *scenarioSurface) validate() error {
	if s.Name == "" {
		return fmt.Errorf("surface: name is required")
	}
	if _, err := blt.ParseTiling(s.Tiling); err != nil {
		return fmt.Errorf("surface %q: %w", s.Name, err)
	}
	if _, err := blt.ParseRegion(s.Region); err != nil {
		return fmt.Errorf("surface %q: %w", s.Name, err)
	}
	if _, err := parseCompressionType(s.CompressionType); err != nil {
		return fmt.Errorf("surface %q: %w", s.Name, err)
	}
	if s.Size == 0 && (s.Width == 0 || s.Height == 0 || s.BPP == 0) {
		return fmt.Errorf("surface %q: width, height and bpp are required without an explicit size", s.Name)
	}
	if s.BPP != 0 {
		if _, err := blt.DepthForBits(s.BPP); err != nil {
			return fmt.Errorf("surface %q: %w", s.Name, err)
		}
	}
	return nil
}

func (o *scenarioOp) validate(i int, surfs map[string]*scenarioSurface, set blt.CommandSet, force bool) error {
	kind, err := blt.ParseCommand(o.Kind)
	if err != nil {
		return fmt.Errorf("op %d: %w", i, err)
	}
	if !force && !set.Supports(kind) {
		return fmt.Errorf("op %d: %s is not supported on this device", i, kind)
	}

	need := func(name, field string) (*scenarioSurface, error) {
		if name == "" {
			return nil, fmt.Errorf("op %d (%s): %s is required", i, kind, field)
		}
		s, ok := surfs[name]
		if !ok {
			return nil, fmt.Errorf("op %d (%s): unknown surface %q", i, kind, name)
		}
		return s, nil
	}

	dst, err := need(o.Dst, "dst")
	if err != nil {
		return err
	}

	switch kind {
	case blt.CmdBlockCopy, blt.CmdFastCopy:
		src, err := need(o.Src, "src")
		if err != nil {
			return err
		}
		for _, s := range []*scenarioSurface{dst, src} {
			tiling, _ := blt.ParseTiling(s.Tiling)
			if !force && !set.SupportsTiling(kind, tiling) {
				return fmt.Errorf("op %d (%s): tiling %s is not supported on this device", i, kind, tiling)
			}
		}
		if o.Depth != 0 {
			if _, err := blt.DepthForBits(o.Depth); err != nil {
				return fmt.Errorf("op %d (%s): %w", i, kind, err)
			}
		} else if dst.BPP == 0 {
			return fmt.Errorf("op %d (%s): depth is required when surface %q has no bpp", i, kind, dst.Name)
		}
	case blt.CmdMemCopy:
		if _, err := need(o.Src, "src"); err != nil {
			return err
		}
		if _, err := parseCopyMode(o.Mode); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, kind, err)
		}
		if _, err := parseCopyShape(o.Shape); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, kind, err)
		}
		if o.Width == 0 {
			return fmt.Errorf("op %d (%s): width is required", i, kind)
		}
	case blt.CmdMemSet:
		if o.Width == 0 {
			return fmt.Errorf("op %d (%s): width is required", i, kind)
		}
	case blt.CmdCtrlSurfCopy:
		if _, err := need(o.Src, "src"); err != nil {
			return err
		}
		if _, err := parseAccess(o.SrcAccess, blt.AccessIndirect); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, kind, err)
		}
		if _, err := parseAccess(o.DstAccess, blt.AccessDirect); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, kind, err)
		}
	default:
		return fmt.Errorf("op %d: %s cannot be encoded", i, kind)
	}
	return nil
}

func parseCopyMode(s string) (blt.MemCopyMode, error) {
	switch s {
	case "", "byte":
		return blt.ModeByte, nil
	case "page":
		return blt.ModePage, nil
	}
	return 0, fmt.Errorf("unknown copy mode %q", s)
}

func parseCopyShape(s string) (blt.MemCopyShape, error) {
	switch s {
	case "", "linear":
		return blt.ShapeLinear, nil
	case "matrix":
		return blt.ShapeMatrix, nil
	}
	return 0, fmt.Errorf("unknown copy shape %q", s)
}

func parseAccess(s string, def blt.AccessType) (blt.AccessType, error) {
	switch s {
	case "":
		return def, nil
	case "indirect":
		return blt.AccessIndirect, nil
	case "direct":
		return blt.AccessDirect, nil
	}
	return 0, fmt.Errorf("unknown access type %q", s)
}

func parseCompressionType(s string) (blt.CompressionType, error) {
	switch s {
	case "", "3d":
		return blt.Compression3D, nil
	case "media":
		return blt.CompressionMedia, nil
	}
	return 0, fmt.Errorf("unknown compression type %q", s)
}

func (sc *scenario) device() (*blt.Device, error) {
	ipver, err := blt.ParseIPVersion(sc.Device.Version)
	if err != nil {
		return nil, err
	}
	dev := blt.NewDevice(ipver)
	if sc.Device.CCSRatio != nil {
		if *sc.Device.CCSRatio == 0 {
			return nil, fmt.Errorf("device: ccs_ratio must be positive")
		}
		dev.CCSRatio = *sc.Device.CCSRatio
	}
	return dev, nil
}
