package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/urfave/cli/v3"

	"github.com/copyforge/blt/pkg/blt"
)

func inspectCmd() *cli.Command {
	var (
		batchPath string
		deviceVer string
		asJSON    bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Decode a batch file into an instruction listing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "batch",
				Aliases:     []string{"b"},
				Usage:       "path to batch file (.bin or .bin.zst)",
				Destination: &batchPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "device",
				Aliases:     []string{"d"},
				Usage:       "graphics IP version as major.minor",
				Value:       "12.70",
				Destination: &deviceVer,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print instructions as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			applyDeviceConfig(c, fileCfg, &deviceVer)

			data, err := readBatchFile(batchPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read batch: %v", err), 1)
			}
			ipver, err := blt.ParseIPVersion(deviceVer)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			dev := blt.NewDevice(ipver)

			insts, err := blt.DecodeBatch(dev, data)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: decode batch: %v", err), 1)
			}

			if asJSON {
				out, err := json.MarshalIndent(insts, "", "  ")
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				fmt.Println(string(out))
				return nil
			}

			printListing(batchPath, dev, len(data), insts)
			return nil
		},
	}
}

// readBatchFile loads a batch stream, transparently decompressing zstd
// frames by magic rather than by extension.
func readBatchFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return out, nil
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func printListing(path string, dev *blt.Device, size int, insts []blt.Instruction) {
	fmt.Printf("Batch Inspect: %s\n", path)
	fmt.Printf("Device: %s (%s)\n", dev.Variant(), blt.FormatIPVersion(dev.IPVer))
	fmt.Printf("Stream: %s, %d instructions\n", formatBytes(uint64(size)), len(insts))

	for i, in := range insts {
		fmt.Printf("\n#%-3d %#06x  %-14s %d words\n", i, in.Offset, in.Kind, len(in.Words))
		for _, line := range detailLines(in.Detail) {
			fmt.Printf("     %s\n", line)
		}
	}
}

func detailLines(detail any) []string {
	switch d := detail.(type) {
	case blt.BlockCopyDetail:
		return []string{
			fmt.Sprintf("depth=%db special=%d extended=%v",
				blt.ColorDepth(d.ColorDepth).Bits(), d.SpecialMode, d.Extended),
			fmt.Sprintf("dst  %s rect=(%d,%d)-(%d,%d)",
				blockSurfLine(d.Dst), d.DstX1, d.DstY1, d.DstX2, d.DstY2),
			fmt.Sprintf("src  %s origin=(%d,%d)",
				blockSurfLine(d.Src), d.SrcX1, d.SrcY1),
		}
	case blt.FastCopyDetail:
		return []string{
			fmt.Sprintf("dst  addr=%#x pitch=%d tiling=%d mocs=%d rect=(%d,%d)-(%d,%d)",
				d.DstAddress, d.DstPitch, d.DstTilingEnc, d.DstMOCS,
				d.DstX1, d.DstY1, d.DstX2, d.DstY2),
			fmt.Sprintf("src  addr=%#x pitch=%d tiling=%d mocs=%d origin=(%d,%d)",
				d.SrcAddress, d.SrcPitch, d.SrcTilingEnc, d.SrcMOCS,
				d.SrcX1, d.SrcY1),
		}
	case blt.CtrlSurfDetail:
		return []string{
			fmt.Sprintf("blocks=%d", d.Blocks),
			fmt.Sprintf("dst  addr=%#x access=%s mocs=%d", d.DstAddress, d.DstAccess, d.DstMOCS),
			fmt.Sprintf("src  addr=%#x access=%s mocs=%d", d.SrcAddress, d.SrcAccess, d.SrcMOCS),
		}
	case blt.MemCopyDetail:
		return []string{
			fmt.Sprintf("mode=%s shape=%s width=%d height=%d", d.Mode, d.Shape, d.Width, d.Height),
			fmt.Sprintf("dst  addr=%#x pitch=%d mocs=%d", d.DstAddress, d.DstPitch, d.DstMOCS),
			fmt.Sprintf("src  addr=%#x pitch=%d mocs=%d", d.SrcAddress, d.SrcPitch, d.SrcMOCS),
		}
	case blt.MemSetDetail:
		return []string{
			fmt.Sprintf("fill=%#02x width=%d height=%d pitch=%d", d.Fill, d.Width, d.Height, d.Pitch),
			fmt.Sprintf("dst  addr=%#x mocs=%d", d.Address, d.MOCS),
		}
	}
	return nil
}

func blockSurfLine(s blt.BlockCopySurface) string {
	return fmt.Sprintf("addr=%#x pitch=%d tiling=%d mocs=%d compressed=%v",
		s.Address, s.Pitch, s.TilingEnc, s.MOCS, s.Compression)
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
