package fragment

import (
	"path/filepath"
	"testing"

	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/schema"
)

func TestNewURI(t *testing.T) {
	dir := t.TempDir()
	a := NewURI(dir, 3)
	b := NewURI(dir, 3)
	if a == b {
		t.Fatalf("NewURI produced the same name twice: %s", a)
	}
	if filepath.Dir(a) != dir {
		t.Errorf("NewURI(%q, 3) = %q, want it under %q", dir, a, dir)
	}
}

func TestBuildAndOpenBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frag-0.meta")

	mbr0 := coord.AsBytes([]int32{0, 9})
	mbr1 := coord.AsBytes([]int32{10, 19})

	tiles := map[schema.AttrID]map[uint64]Location{
		0: {
			0: {Offset: 0, Size: 40, Codec: 1},
			1: {Offset: 40, Size: 40, Codec: 1},
		},
	}

	built, err := BuildBolt(path, 0, 1, false, [][]byte{mbr0, mbr1}, tiles)
	if err != nil {
		t.Fatalf("BuildBolt failed: %v", err)
	}
	built.Close()

	b, err := OpenBolt(path, 0)
	if err != nil {
		t.Fatalf("OpenBolt failed: %v", err)
	}
	defer b.Close()

	if b.Index() != 0 {
		t.Errorf("Index() = %d, want 0", b.Index())
	}
	if b.DimNum() != 1 {
		t.Errorf("DimNum() = %d, want 1", b.DimNum())
	}
	if b.Sparse() {
		t.Errorf("Sparse() = true, want false")
	}
	if got := b.NumTiles(); got != 2 {
		t.Errorf("NumTiles() = %d, want 2", got)
	}

	rect, ok := MBR[int32](b, 0)
	if !ok {
		t.Fatal("expected MBR for tile 0")
	}
	if rect.Min(0) != 0 || rect.Max(0) != 9 {
		t.Errorf("MBR(0) = %v, want [0,9]", rect)
	}

	loc, ok := b.TileLocation(0, 1)
	if !ok {
		t.Fatal("expected tile location for attr=0 tile=1")
	}
	if loc.Offset != 40 || loc.Size != 40 || loc.Codec != 1 {
		t.Errorf("TileLocation(0,1) = %+v, want {40,40,1}", loc)
	}

	if _, ok := b.TileLocation(0, 5); ok {
		t.Error("expected no tile location for tile 5")
	}
}
