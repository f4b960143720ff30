package main

import (
	"strings"
	"testing"
)

const sampleScenario = `
device:
  version: "12.70"
batch:
  size: 8192
  region: system
surfaces:
  - name: src
    width: 64
    height: 64
    bpp: 32
    tiling: linear
    region: local
    mocs: 3
    fill: 0x5a
  - name: dst
    width: 64
    height: 64
    bpp: 32
    tiling: linear
    region: local
    mocs: 3
ops:
  - kind: block-copy
    src: src
    dst: dst
`

func TestParseScenario(t *testing.T) {
	t.Parallel()

	sc, err := parseScenario([]byte(sampleScenario))
	if err != nil {
		t.Fatalf("parse scenario: %v", err)
	}
	if sc.Device.Version != "12.70" {
		t.Fatalf("unexpected device version %q", sc.Device.Version)
	}
	if sc.Batch.Size != 8192 || sc.Batch.Region != "system" {
		t.Fatalf("unexpected batch block %+v", sc.Batch)
	}
	if len(sc.Surfaces) != 2 || len(sc.Ops) != 1 {
		t.Fatalf("unexpected counts: %d surfaces, %d ops", len(sc.Surfaces), len(sc.Ops))
	}
	if sc.Surfaces[0].Fill == nil || *sc.Surfaces[0].Fill != 0x5a {
		t.Fatalf("fill not parsed: %+v", sc.Surfaces[0].Fill)
	}
	if sc.Ops[0].Kind != "block-copy" {
		t.Fatalf("unexpected op kind %q", sc.Ops[0].Kind)
	}
}

func TestParseScenarioDefaults(t *testing.T) {
	t.Parallel()

	sc, err := parseScenario([]byte(`
device:
  version: "20.1"
surfaces:
  - name: buf
    size: 4096
ops:
  - kind: mem-set
    dst: buf
    width: 256
    fill: 0xaa
`))
	if err != nil {
		t.Fatalf("parse scenario: %v", err)
	}
	if sc.Batch.Size != defaultBatchSize {
		t.Fatalf("batch size not defaulted: %d", sc.Batch.Size)
	}
	if sc.Batch.Region != "system" {
		t.Fatalf("batch region not defaulted: %q", sc.Batch.Region)
	}
	if sc.Surfaces[0].Tiling != "linear" || sc.Surfaces[0].Region != "system" {
		t.Fatalf("surface defaults not applied: %+v", sc.Surfaces[0])
	}
}

func TestParseScenarioErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing version",
			yaml: `
surfaces:
  - name: a
    size: 64
ops:
  - kind: mem-set
    dst: a
    width: 16
`,
			want: "device.version",
		},
		{
			name: "bad version",
			yaml: `
device:
  version: banana
surfaces:
  - name: a
    size: 64
ops:
  - kind: mem-set
    dst: a
    width: 16
`,
			want: "ip version",
		},
		{
			name: "no ops",
			yaml: `
device:
  version: "12.70"
surfaces:
  - name: a
    size: 64
`,
			want: "no ops",
		},
		{
			name: "duplicate surface",
			yaml: `
device:
  version: "12.70"
surfaces:
  - name: a
    size: 64
  - name: a
    size: 64
ops:
  - kind: mem-set
    dst: a
    width: 16
`,
			want: "duplicate name",
		},
		{
			name: "unknown surface",
			yaml: `
device:
  version: "12.70"
surfaces:
  - name: a
    size: 64
ops:
  - kind: mem-set
    dst: b
    width: 16
`,
			want: "unknown surface",
		},
		{
			name: "bad tiling",
			yaml: `
device:
  version: "12.70"
surfaces:
  - name: a
    width: 16
    height: 16
    bpp: 32
    tiling: spiral
ops:
  - kind: mem-set
    dst: a
    width: 16
`,
			want: "tiling",
		},
		{
			name: "unsupported tiling",
			yaml: `
device:
  version: "12.70"
surfaces:
  - name: a
    width: 16
    height: 16
    bpp: 32
    tiling: ymajor
  - name: b
    width: 16
    height: 16
    bpp: 32
    tiling: ymajor
ops:
  - kind: block-copy
    src: a
    dst: b
`,
			want: "not supported",
		},
		{
			name: "unknown kind",
			yaml: `
device:
  version: "12.70"
surfaces:
  - name: a
    size: 64
ops:
  - kind: teleport
    dst: a
`,
			want: "unknown command",
		},
		{
			name: "mem copy without width",
			yaml: `
device:
  version: "12.70"
surfaces:
  - name: a
    size: 64
  - name: b
    size: 64
ops:
  - kind: mem-copy
    src: a
    dst: b
`,
			want: "width is required",
		},
		{
			name: "bad access",
			yaml: `
device:
  version: "12.70"
surfaces:
  - name: a
    size: 64
  - name: b
    size: 64
ops:
  - kind: ctrl-surf-copy
    src: a
    dst: b
    src_access: sideways
`,
			want: "access type",
		},
		{
			name: "surface without geometry",
			yaml: `
device:
  version: "12.70"
surfaces:
  - name: a
    width: 16
ops:
  - kind: mem-set
    dst: a
    width: 16
`,
			want: "width, height and bpp",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseScenario([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestParseScenarioForce(t *testing.T) {
	t.Parallel()

	sc, err := parseScenario([]byte(`
device:
  version: "12.70"
  force: true
surfaces:
  - name: a
    width: 16
    height: 16
    bpp: 32
    tiling: ymajor
  - name: b
    width: 16
    height: 16
    bpp: 32
    tiling: ymajor
ops:
  - kind: block-copy
    src: a
    dst: b
`))
	if err != nil {
		t.Fatalf("forced scenario rejected: %v", err)
	}
	if !sc.Device.Force {
		t.Fatalf("force flag not parsed")
	}
}

func TestScenarioDeviceOverrides(t *testing.T) {
	t.Parallel()

	sc, err := parseScenario([]byte(`
device:
  version: "20.4"
  ccs_ratio: 128
surfaces:
  - name: a
    size: 4096
ops:
  - kind: mem-set
    dst: a
    width: 64
`))
	if err != nil {
		t.Fatalf("parse scenario: %v", err)
	}
	dev, err := sc.device()
	if err != nil {
		t.Fatalf("device: %v", err)
	}
	if dev.CCSRatio != 128 {
		t.Fatalf("ccs ratio override not applied: %d", dev.CCSRatio)
	}

	zero := uint32(0)
	sc.Device.CCSRatio = &zero
	if _, err := sc.device(); err == nil {
		t.Fatalf("expected zero ccs_ratio to be rejected")
	}
}
