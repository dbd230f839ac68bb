// Diagnostic tool for inspecting fragment metadata databases.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/arrayengine/mdarray/internal/fragment"
	"github.com/arrayengine/mdarray/internal/schema"
)

func main() {
	kind := flag.String("kind", "int32", "coordinate domain type: int32, int64, float32, float64")
	attrs := flag.Int("attrs", 1, "number of attribute ids to probe for tile locations (0..attrs-1)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mdarray-inspect [flags] <fragment.fragdb>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)
	fmt.Printf("=== Inspecting %s ===\n\n", path)

	b, err := fragment.OpenBolt(path, 0)
	if err != nil {
		fmt.Printf("ERROR: failed to open fragment: %v\n", err)
		os.Exit(1)
	}
	defer b.Close()

	fmt.Printf("Index: %d\n", b.Index())
	fmt.Printf("DimNum: %d\n", b.DimNum())
	fmt.Printf("Sparse: %v\n", b.Sparse())
	fmt.Printf("NumTiles: %d\n", b.NumTiles())
	fmt.Println()

	for tileIdx := uint64(0); tileIdx < b.NumTiles(); tileIdx++ {
		fmt.Printf("Tile %d:\n", tileIdx)
		printMBR(b, *kind, tileIdx)
		for attrID := 0; attrID < *attrs; attrID++ {
			loc, ok := b.TileLocation(schema.AttrID(attrID), tileIdx)
			if !ok {
				fmt.Printf("  attr %d: not written\n", attrID)
				continue
			}
			fmt.Printf("  attr %d: offset=%d size=%d codec=%d\n", attrID, loc.Offset, loc.Size, loc.Codec)
		}
	}
}

func printMBR(b *fragment.Bolt, kind string, tileIdx uint64) {
	switch kind {
	case "int32":
		printMBRTyped[int32](b, tileIdx)
	case "int64":
		printMBRTyped[int64](b, tileIdx)
	case "float32":
		printMBRTyped[float32](b, tileIdx)
	case "float64":
		printMBRTyped[float64](b, tileIdx)
	default:
		fmt.Printf("  MBR: ERROR unsupported -kind %q\n", kind)
	}
}

func printMBRTyped[T int32 | int64 | float32 | float64](b *fragment.Bolt, tileIdx uint64) {
	rect, ok := fragment.MBR[T](b, tileIdx)
	if !ok {
		fmt.Printf("  MBR: unset\n")
		return
	}
	fmt.Printf("  MBR: %v\n", []T(rect))
}
