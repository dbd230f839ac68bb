package storage

import (
	"context"
	"testing"

	"github.com/arrayengine/mdarray/internal/fragment"
	"github.com/arrayengine/mdarray/internal/schema"
)

func TestMemReadTilesFixed(t *testing.T) {
	frag := fragment.NewInMemory(0, "frag-0", 1, 2)
	m := NewMem(2)

	want := []byte{1, 2, 3, 4}
	encoded, err := Encode(CodecSnappy, want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	m.PutFixed(frag, schema.AttrID(0), 0, CodecSnappy, encoded)

	results, err := m.ReadTiles(context.Background(), []Request{
		{Frag: frag, AttrID: 0, TileIdx: 0, NumCells: 4},
	})
	if err != nil {
		t.Fatalf("ReadTiles failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if string(results[0].Fixed) != string(want) {
		t.Errorf("got %v, want %v", results[0].Fixed, want)
	}
}

func TestMemReadTilesVar(t *testing.T) {
	frag := fragment.NewInMemory(0, "frag-0", 1, 1)
	m := NewMem(1)

	offsets := []byte{0, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0}
	values := []byte("abc")
	m.PutVar(frag, schema.AttrID(1), 0, CodecNone, offsets, values)

	results, err := m.ReadTiles(context.Background(), []Request{
		{Frag: frag, AttrID: 1, TileIdx: 0, VarSize: true, NumCells: 1},
	})
	if err != nil {
		t.Fatalf("ReadTiles failed: %v", err)
	}
	if string(results[0].Values) != "abc" {
		t.Errorf("got %q, want %q", results[0].Values, "abc")
	}
}

func TestMemReadTilesMissing(t *testing.T) {
	frag := fragment.NewInMemory(0, "frag-0", 1, 1)
	m := NewMem(1)

	_, err := m.ReadTiles(context.Background(), []Request{
		{Frag: frag, AttrID: 0, TileIdx: 0, NumCells: 1},
	})
	if err == nil {
		t.Error("expected error for missing tile")
	}
}

func TestMemReadTilesPreservesOrder(t *testing.T) {
	frag := fragment.NewInMemory(0, "frag-0", 1, 4)
	m := NewMem(4)

	reqs := make([]Request, 4)
	for i := uint64(0); i < 4; i++ {
		data := []byte{byte(i)}
		m.PutFixed(frag, schema.AttrID(0), i, CodecNone, data)
		reqs[i] = Request{Frag: frag, AttrID: 0, TileIdx: i, NumCells: 1}
	}

	results, err := m.ReadTiles(context.Background(), reqs)
	if err != nil {
		t.Fatalf("ReadTiles failed: %v", err)
	}
	for i := range results {
		if results[i].Fixed[0] != byte(i) {
			t.Errorf("result %d: got %v, want [%d]", i, results[i].Fixed, i)
		}
	}
}
