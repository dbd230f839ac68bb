package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/arrayengine/mdarray/internal/fragment"
	"github.com/arrayengine/mdarray/internal/schema"
	"golang.org/x/sync/errgroup"
)

// memKey identifies one (fragment, attribute, tile) blob. Fragments are
// keyed by URI rather than by Go identity so that a Mem manager can be
// populated once and then handed fragment.Metadata values reconstructed
// from elsewhere (e.g. a fresh InMemory built from the same fixture).
type memKey struct {
	uri     string
	attrID  schema.AttrID
	tileIdx uint64
}

// memBlob is a stored tile, encoded exactly as the reference File manager
// would encode it on disk, so the two managers exercise the same codec
// path in tests.
type memBlob struct {
	codec   Codec
	fixed   []byte // encoded; nil for a variable-size attribute
	offsets []byte // encoded; nil for a fixed-size attribute
	values  []byte // encoded; nil for a fixed-size attribute
}

// Mem is an in-process Manager backed by a Go map. It is the fast path used
// by most of this module's tests: no filesystem, no bbolt, just the codec
// round trip every real Manager must honor. Grounded in the teacher
// library's "fake storage" test doubles are absent there (go-hdf5 always
// hits a real file), so this type instead follows the same batching/
// concurrency contract as File (errgroup over a fixed concurrency cap) to
// keep the two implementations interchangeable.
type Mem struct {
	mu          sync.RWMutex
	blobs       map[memKey]memBlob
	concurrency int
}

// NewMem creates an empty Mem manager. concurrency bounds how many
// ReadTiles requests are decoded in parallel; values <= 0 default to 4.
func NewMem(concurrency int) *Mem {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Mem{
		blobs:       make(map[memKey]memBlob),
		concurrency: concurrency,
	}
}

// PutFixed stores an already-encoded fixed-attribute tile blob.
func (m *Mem) PutFixed(frag fragment.Metadata, attrID schema.AttrID, tileIdx uint64, codec Codec, encoded []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[memKey{frag.URI(), attrID, tileIdx}] = memBlob{codec: codec, fixed: encoded}
}

// PutVar stores an already-encoded variable-attribute (offsets, values) tile
// blob pair.
func (m *Mem) PutVar(frag fragment.Metadata, attrID schema.AttrID, tileIdx uint64, codec Codec, encodedOffsets, encodedValues []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[memKey{frag.URI(), attrID, tileIdx}] = memBlob{codec: codec, offsets: encodedOffsets, values: encodedValues}
}

func (m *Mem) ReadTiles(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := m.readOne(req)
			if err != nil {
				results[i] = Result{Err: err}
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (m *Mem) readOne(req Request) (Result, error) {
	key := memKey{req.Frag.URI(), req.AttrID, req.TileIdx}
	m.mu.RLock()
	blob, ok := m.blobs[key]
	m.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("storage: no tile for fragment=%s attr=%d tile=%d", req.Frag.URI(), req.AttrID, req.TileIdx)
	}

	if req.VarSize {
		offsets, err := Decode(blob.codec, blob.offsets)
		if err != nil {
			return Result{}, err
		}
		values, err := Decode(blob.codec, blob.values)
		if err != nil {
			return Result{}, err
		}
		return Result{Offsets: offsets, Values: values}, nil
	}

	fixed, err := Decode(blob.codec, blob.fixed)
	if err != nil {
		return Result{}, err
	}
	return Result{Fixed: fixed}, nil
}
