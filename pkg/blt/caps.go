package blt

import "fmt"

// CommandID names a blitter command for capability lookups and decoding.
type CommandID uint8

const (
	CmdBlockCopy CommandID = iota
	CmdCtrlSurfCopy
	CmdFastCopy
	CmdMemCopy
	CmdMemSet
	CmdSrcCopy
	CmdColorBlt
)

var commandNames = [...]string{
	CmdBlockCopy:    "block-copy",
	CmdCtrlSurfCopy: "ctrl-surf-copy",
	CmdFastCopy:     "fast-copy",
	CmdMemCopy:      "mem-copy",
	CmdMemSet:       "mem-set",
	CmdSrcCopy:      "src-copy",
	CmdColorBlt:     "color-blt",
}

func (c CommandID) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("command(%d)", uint8(c))
}

// ParseCommand maps a command name back to its CommandID.
func ParseCommand(name string) (CommandID, error) {
	for c, n := range commandNames {
		if n == name {
			return CommandID(c), nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", name)
}

// TilingMask is a bitmask over Tiling values.
type TilingMask uint32

// MaskOf builds a TilingMask from individual tilings.
func MaskOf(tilings ...Tiling) TilingMask {
	var m TilingMask
	for _, t := range tilings {
		m |= 1 << t
	}
	return m
}

// Has reports whether the mask includes the tiling.
func (m TilingMask) Has(t Tiling) bool {
	return m&(1<<t) != 0
}

// CapFlag is a per-command property bit.
type CapFlag uint32

const (
	// CapCompression marks commands able to read or write compressed
	// surfaces.
	CapCompression CapFlag = 1 << iota
	// CapExtendedLayout marks block copy variants that take the extended
	// 22-word form.
	CapExtendedLayout
)

// CmdCap describes what a single command supports on a platform.
type CmdCap struct {
	Tilings TilingMask
	Flags   CapFlag
}

// CommandSet is an immutable capability table resolved once by the caller
// and passed wherever applicability checks are needed. A command without an
// entry is unsupported; lookups on it report false rather than failing.
type CommandSet struct {
	cmds map[CommandID]CmdCap
}

// NewCommandSet copies the given table into a CommandSet.
func NewCommandSet(cmds map[CommandID]CmdCap) CommandSet {
	m := make(map[CommandID]CmdCap, len(cmds))
	for id, entry := range cmds {
		m[id] = entry
	}
	return CommandSet{cmds: m}
}

// Supports reports whether the command has a capability entry at all.
func (s CommandSet) Supports(cmd CommandID) bool {
	_, ok := s.cmds[cmd]
	return ok
}

// SupportsTiling reports whether the command lists the tiling. Missing
// commands report false.
func (s CommandSet) SupportsTiling(cmd CommandID, tiling Tiling) bool {
	entry, ok := s.cmds[cmd]
	if !ok {
		return false
	}
	return entry.Tilings.Has(tiling)
}

// HasFlag reports whether the command carries every property in flag.
// Missing commands report false.
func (s CommandSet) HasFlag(cmd CommandID, flag CapFlag) bool {
	entry, ok := s.cmds[cmd]
	if !ok {
		return false
	}
	return entry.Flags&flag == flag
}

// Commands returns the IDs present in the set, in numeric order.
func (s CommandSet) Commands() []CommandID {
	ids := make([]CommandID, 0, len(s.cmds))
	for id := CommandID(0); int(id) < len(commandNames); id++ {
		if _, ok := s.cmds[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Lookup returns the capability entry for a command.
func (s CommandSet) Lookup(cmd CommandID) (CmdCap, bool) {
	entry, ok := s.cmds[cmd]
	return entry, ok
}

// Gen12CommandSet returns the reference capability table for DG2-class
// hardware: block copy takes the extended layout and supports compression.
func Gen12CommandSet() CommandSet {
	copyTilings := MaskOf(TilingLinear, TilingX, Tiling4, Tiling64)
	return NewCommandSet(map[CommandID]CmdCap{
		CmdBlockCopy:    {Tilings: copyTilings, Flags: CapCompression | CapExtendedLayout},
		CmdFastCopy:     {Tilings: copyTilings},
		CmdCtrlSurfCopy: {Tilings: MaskOf(TilingLinear)},
		CmdMemCopy:      {Tilings: MaskOf(TilingLinear)},
		CmdMemSet:       {Tilings: MaskOf(TilingLinear)},
	})
}

// Xe2CommandSet returns the reference capability table for Xe2-class
// hardware: the base 12-word block copy with compression taken from the
// page table attributes.
func Xe2CommandSet() CommandSet {
	copyTilings := MaskOf(TilingLinear, TilingX, Tiling4, Tiling64)
	return NewCommandSet(map[CommandID]CmdCap{
		CmdBlockCopy:    {Tilings: copyTilings, Flags: CapCompression},
		CmdFastCopy:     {Tilings: copyTilings},
		CmdCtrlSurfCopy: {Tilings: MaskOf(TilingLinear)},
		CmdMemCopy:      {Tilings: MaskOf(TilingLinear)},
		CmdMemSet:       {Tilings: MaskOf(TilingLinear)},
	})
}

// CommandSetFor returns the reference capability table for a variant.
func CommandSetFor(v Variant) CommandSet {
	if v == Xe2 {
		return Xe2CommandSet()
	}
	return Gen12CommandSet()
}
