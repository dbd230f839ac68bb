package query

import (
	"context"
	"fmt"

	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/dense"
	"github.com/arrayengine/mdarray/internal/overlap"
	"github.com/arrayengine/mdarray/internal/schema"
	"github.com/arrayengine/mdarray/internal/storage"
	"github.com/arrayengine/mdarray/internal/tile"
)

// readAllTiles batches every (overlap.Tile, attribute) pair the current
// partition needs into a single storage.Manager.ReadTiles call (spec.md
// §5: "batch every tile... into one call"), then decodes each result into
// the overlap.Tile's AttrTiles slot. The NumCells hint on each Request is
// the dense tile grid's geometric cell count for that global tile — exact
// for a dense array, an upper bound for a sparse one (a sparse tile only
// ever holds however many points actually fall in that spatial region);
// loadTile derives the tile's real cell count from the decoded payload
// length instead of trusting this hint, so both cases decode correctly.
//
// coordsForSparseFrags, when true, additionally requests a
// schema.CoordsAttrID tile for any ot whose owning fragment is
// fragment.Metadata.Sparse() even though attrIDs does not name it — the
// dense read path's way of pulling in the coordinates a sparse-written
// fragment needs for coordinate interleaving (spec.md §4.4) without asking
// a normally-dense fragment for a coordinates tile it never wrote.
func readAllTiles[T coord.Coord](ctx context.Context, r *Reader, ots []*overlap.Tile, attrIDs []schema.AttrID, domain coord.Rect[T], tileExtent []T, tilesPerDim []uint64, colMajorTiles bool, coordsForSparseFrags bool) error {
	if len(ots) == 0 {
		return nil
	}

	type target struct {
		ot     *overlap.Tile
		attrID schema.AttrID
	}

	var reqs []storage.Request
	var targets []target
	for _, ot := range ots {
		var tc []T
		if colMajorTiles {
			tc = coord.DelinearizeColMajor[T](ot.TileIdx, tilesPerDim)
		} else {
			tc = coord.DelinearizeRowMajor[T](ot.TileIdx, tilesPerDim)
		}
		hint := dense.TileDomain(domain, tileExtent, tc).NumCells()

		reqAttrs := attrIDs
		if coordsForSparseFrags && r.frags[ot.FragmentIdx].Sparse() {
			reqAttrs = append(append([]schema.AttrID(nil), attrIDs...), schema.CoordsAttrID)
		}
		for _, attrID := range reqAttrs {
			_, varSize, err := attrInfoOrCoords(r, attrID)
			if err != nil {
				return err
			}
			reqs = append(reqs, storage.Request{
				Frag:     r.frags[ot.FragmentIdx],
				AttrID:   attrID,
				TileIdx:  ot.TileIdx,
				VarSize:  varSize,
				NumCells: hint,
			})
			targets = append(targets, target{ot: ot, attrID: attrID})
		}
	}

	results, err := r.storageMgr.ReadTiles(ctx, reqs)
	if err != nil {
		return fmt.Errorf("query: %w: %v", ErrIOError, err)
	}
	if len(results) != len(targets) {
		return fmt.Errorf("query: %w: storage manager returned %d results for %d requests", ErrInternalInvariant, len(results), len(targets))
	}
	for i, res := range results {
		if res.Err != nil {
			return fmt.Errorf("query: %w: %v", ErrIOError, res.Err)
		}
		t := targets[i]
		if err := loadTile(r, t.ot, t.attrID, res); err != nil {
			return fmt.Errorf("query: %w", err)
		}
	}
	return nil
}

// attrInfoOrCoords resolves an attribute's schema.AttrInfo, synthesizing
// one for schema.CoordsAttrID (which has no entry in the array's attribute
// list).
func attrInfoOrCoords(r *Reader, attrID schema.AttrID) (schema.AttrInfo, bool, error) {
	if attrID == schema.CoordsAttrID {
		return schema.AttrInfo{ID: schema.CoordsAttrID, VarSize: false}, false, nil
	}
	info, ok := r.schema.Attribute(attrID)
	if !ok {
		return schema.AttrInfo{}, false, fmt.Errorf("query: %w: unknown attribute %d", ErrInvalidArgument, attrID)
	}
	return info, info.VarSize, nil
}

func loadTile(r *Reader, ot *overlap.Tile, attrID schema.AttrID, res storage.Result) error {
	if attrID == schema.CoordsAttrID {
		cellSize := coordsCellSize(r)
		numCells, err := exactCells(len(res.Fixed), cellSize, ot.FragmentIdx, ot.TileIdx)
		if err != nil {
			return err
		}
		info := schema.AttrInfo{ID: schema.CoordsAttrID, VarSize: false, CellSize: cellSize}
		ft, err := tile.NewTile(info, numCells)
		if err != nil {
			return err
		}
		if err := ft.Load(res.Fixed); err != nil {
			return err
		}
		ot.AttrTiles[attrID] = tile.Pair{Fixed: ft}
		return nil
	}

	info, ok := r.schema.Attribute(attrID)
	if !ok {
		return fmt.Errorf("no schema entry for attribute %d", attrID)
	}
	if info.VarSize {
		if len(res.Offsets)%8 != 0 || len(res.Offsets) < 8 {
			return fmt.Errorf("corrupt var tile for fragment %d tile %d: %d offset bytes", ot.FragmentIdx, ot.TileIdx, len(res.Offsets))
		}
		numCells := uint64(len(res.Offsets))/8 - 1
		vt, err := tile.NewVarTile(info, numCells)
		if err != nil {
			return err
		}
		if err := vt.Load(res.Offsets, res.Values); err != nil {
			return err
		}
		ot.AttrTiles[attrID] = tile.Pair{Var: vt}
		return nil
	}

	numCells, err := exactCells(len(res.Fixed), info.CellSize, ot.FragmentIdx, ot.TileIdx)
	if err != nil {
		return err
	}
	ft, err := tile.NewTile(info, numCells)
	if err != nil {
		return err
	}
	if err := ft.Load(res.Fixed); err != nil {
		return err
	}
	ot.AttrTiles[attrID] = tile.Pair{Fixed: ft}
	return nil
}

func exactCells(byteLen int, cellSize uint64, fragIdx int, tileIdx uint64) (uint64, error) {
	if cellSize == 0 || uint64(byteLen)%cellSize != 0 {
		return 0, fmt.Errorf("corrupt fixed tile for fragment %d tile %d: %d bytes does not divide by cell size %d", fragIdx, tileIdx, byteLen, cellSize)
	}
	return uint64(byteLen) / cellSize, nil
}

func coordsCellSize(r *Reader) uint64 {
	switch r.schema.DomainKind() {
	case schema.KindInt32, schema.KindFloat32:
		return uint64(r.schema.DimNum()) * 4
	default:
		return uint64(r.schema.DimNum()) * 8
	}
}
