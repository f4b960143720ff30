// Package blt encodes Intel copy-engine (blitter) instructions into batch
// buffers.
//
// The package covers five operation kinds: block copy, fast copy,
// control-surface copy, memory copy and memory set. Each encoder produces the
// exact instruction words the hardware consumes, selecting between the Gen12
// and Xe2 layouts at runtime and splitting oversized transfers into multiple
// hardware-bounded instructions.
//
// Buffer handles, address resolution and execution are external concerns:
// callers supply a Buffer for every surface, an OffsetResolver for addresses
// and a Submitter for execution. The package itself only computes geometry
// and writes bytes.
package blt

import (
	"fmt"
	"strconv"
	"strings"
)

// IPVersion packs a graphics IP version into the ordered form used for
// generation checks, e.g. IPVersion(12, 70) for DG2 or IPVersion(20, 4)
// for Xe2.
func IPVersion(major, minor uint16) uint32 {
	return uint32(major)<<8 | uint32(minor)
}

// ParseIPVersion parses a graphics IP version written as "major.minor",
// e.g. "12.70" or "20.4". A bare major version means minor zero.
func ParseIPVersion(s string) (uint32, error) {
	majorStr, minorStr, hasMinor := strings.Cut(s, ".")
	major, err := strconv.ParseUint(majorStr, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("ip version %q: %w", s, err)
	}
	var minor uint64
	if hasMinor {
		minor, err = strconv.ParseUint(minorStr, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("ip version %q: %w", s, err)
		}
	}
	return IPVersion(uint16(major), uint16(minor)), nil
}

// FormatIPVersion renders a packed IP version back to "major.minor".
func FormatIPVersion(ipver uint32) string {
	return fmt.Sprintf("%d.%d", ipver>>8, ipver&0xff)
}

// Variant selects between the two instruction layout families.
type Variant uint8

const (
	// Gen12 covers TGL through DG2 (IP versions below 20.0).
	Gen12 Variant = iota
	// Xe2 covers IP versions 20.0 and above.
	Xe2
)

func (v Variant) String() string {
	switch v {
	case Gen12:
		return "gen12"
	case Xe2:
		return "xe2"
	}
	return fmt.Sprintf("variant(%d)", uint8(v))
}

// VariantFor maps an IP version to its instruction layout family.
func VariantFor(ipver uint32) Variant {
	if ipver >= IPVersion(20, 0) {
		return Xe2
	}
	return Gen12
}

// Device carries the per-device parameters the encoders depend on. Values
// are resolved once at construction and never change afterwards.
type Device struct {
	// IPVer is the packed graphics IP version, see IPVersion.
	IPVer uint32
	// CCSRatio is the number of main-surface bytes covered by a single
	// byte of compression metadata (256 on Gen12, 512 on Xe2).
	CCSRatio uint32
}

// NewDevice returns a Device for the given IP version with the
// generation-default CCS ratio.
func NewDevice(ipver uint32) *Device {
	d := &Device{IPVer: ipver}
	if d.Variant() == Xe2 {
		d.CCSRatio = 512
	} else {
		d.CCSRatio = 256
	}
	return d
}

// Variant returns the instruction layout family of the device.
func (d *Device) Variant() Variant {
	return VariantFor(d.IPVer)
}

// CCSPageSize returns the surface page size one control-surface copy block
// covers: 64 KiB on Gen12, 4 KiB on Xe2.
func (d *Device) CCSPageSize() uint32 {
	if d.Variant() == Xe2 {
		return 4 << 10
	}
	return 64 << 10
}

// CCSPerPage returns the bytes of compression metadata covering one surface
// page.
func (d *Device) CCSPerPage() uint32 {
	return d.CCSPageSize() / d.CCSRatio
}

// ColorDepth selects the pixel width of block and fast copies.
type ColorDepth uint8

const (
	Depth8 ColorDepth = iota
	Depth16
	Depth32
	Depth64
	Depth96
	Depth128
)

var depthBits = [...]uint32{8, 16, 32, 64, 96, 128}

// Bits returns the pixel width in bits.
func (d ColorDepth) Bits() uint32 {
	if int(d) < len(depthBits) {
		return depthBits[d]
	}
	return 0
}

func (d ColorDepth) String() string {
	if b := d.Bits(); b != 0 {
		return fmt.Sprintf("%dbpp", b)
	}
	return fmt.Sprintf("depth(%d)", uint8(d))
}

// DepthForBits maps a bits-per-pixel count to its ColorDepth.
func DepthForBits(bits uint32) (ColorDepth, error) {
	for d, b := range depthBits {
		if b == bits {
			return ColorDepth(d), nil
		}
	}
	return 0, fmt.Errorf("no color depth for %d bits per pixel", bits)
}
