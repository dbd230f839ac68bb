package fragment

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/arrayengine/mdarray/internal/schema"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	mbrBucket = []byte("mbrs")
	metaKey   = []byte("meta")
)

func tileBucketName(attrID schema.AttrID) []byte {
	return []byte(fmt.Sprintf("tiles:%d", attrID))
}

// Bolt is a Metadata implementation backed by a bbolt database: one bucket
// of tile MBRs plus one bucket per attribute of tile locations. This is the
// persisted analogue of the teacher library's B-tree chunk index
// (internal/btree/v1_chunk.go), traded for bbolt's B+tree since this
// module, unlike an HDF5 file, controls its own on-disk format end to end.
type Bolt struct {
	db     *bbolt.DB
	index  int
	uri    string
	dimNum int
	sparse bool
}

// OpenBolt opens an existing fragment metadata database written by
// BuildBolt.
func OpenBolt(path string, index int) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("fragment: opening %s: %w", path, err)
	}

	b := &Bolt{db: db, index: index, uri: path}
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(mbrBucket)
		if meta == nil {
			return fmt.Errorf("fragment: %s missing mbrs bucket", path)
		}
		raw := meta.Get(metaKey)
		if len(raw) != 9 {
			return fmt.Errorf("fragment: %s has corrupt metadata record", path)
		}
		b.dimNum = int(binary.LittleEndian.Uint64(raw[:8]))
		b.sparse = raw[8] != 0
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the underlying database handle.
func (b *Bolt) Close() error { return b.db.Close() }

func (b *Bolt) Index() int   { return b.index }
func (b *Bolt) URI() string  { return b.uri }
func (b *Bolt) DimNum() int  { return b.dimNum }
func (b *Bolt) Sparse() bool { return b.sparse }

func (b *Bolt) NumTiles() uint64 {
	var n uint64
	_ = b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(mbrBucket)
		if bucket == nil {
			return nil
		}
		n = uint64(bucket.Stats().KeyN - 1) // minus the meta record
		return nil
	})
	return n
}

func (b *Bolt) MBRBytes(tileIdx uint64) ([]byte, bool) {
	var out []byte
	_ = b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(mbrBucket)
		if bucket == nil {
			return nil
		}
		if v := bucket.Get(tileKey(tileIdx)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if out == nil {
		return nil, false
	}
	return out, true
}

func (b *Bolt) TileLocation(attrID schema.AttrID, tileIdx uint64) (Location, bool) {
	var loc Location
	var found bool
	_ = b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(tileBucketName(attrID))
		if bucket == nil {
			return nil
		}
		v := bucket.Get(tileKey(tileIdx))
		if v == nil || len(v) != 17 {
			return nil
		}
		loc = Location{
			Offset: binary.LittleEndian.Uint64(v[0:8]),
			Size:   binary.LittleEndian.Uint64(v[8:16]),
			Codec:  v[16],
		}
		found = true
		return nil
	})
	return loc, found
}

func tileKey(tileIdx uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, tileIdx) // big-endian keys sort numerically in bbolt
	return buf
}

// NewURI generates a fresh, collision-free fragment file name under dir.
// Fragments are immutable, time-ordered write units (spec.md §3) with no
// natural content key of their own, the same shape as tempodb's backend
// storage blocks — which that library also names by an opaque UUID rather
// than anything derived from content (tempodb/encoding/vblockpack:
// BackendBlock.BlockID). Index is embedded in the name only to make
// directory listings human-sortable by write order; it is not what the
// read path uses to order fragments (fragment.Metadata.Index is).
func NewURI(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%08d-%s.fragdb", index, uuid.NewString()))
}

// BuildBolt writes a fresh fragment metadata database to path from
// in-memory tile MBRs and per-attribute tile locations, and reopens it as a
// Bolt. It is the ingestion-side counterpart to Bolt, used by the reference
// storage manager and by tests to materialize fixtures; it is not a
// general write path for arrays (out of this module's scope per spec.md
// §1).
func BuildBolt(path string, index int, dimNum int, sparse bool, mbrs [][]byte, tiles map[schema.AttrID]map[uint64]Location) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("fragment: creating %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		mb, err := tx.CreateBucketIfNotExists(mbrBucket)
		if err != nil {
			return err
		}
		meta := make([]byte, 9)
		binary.LittleEndian.PutUint64(meta[:8], uint64(dimNum))
		if sparse {
			meta[8] = 1
		}
		if err := mb.Put(metaKey, meta); err != nil {
			return err
		}
		for idx, mbr := range mbrs {
			if mbr == nil {
				continue
			}
			if err := mb.Put(tileKey(uint64(idx)), mbr); err != nil {
				return err
			}
		}

		for attrID, byTile := range tiles {
			tb, err := tx.CreateBucketIfNotExists(tileBucketName(attrID))
			if err != nil {
				return err
			}
			for tileIdx, loc := range byTile {
				v := make([]byte, 17)
				binary.LittleEndian.PutUint64(v[0:8], loc.Offset)
				binary.LittleEndian.PutUint64(v[8:16], loc.Size)
				v[16] = loc.Codec
				if err := tb.Put(tileKey(tileIdx), v); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("fragment: building %s: %w", path, err)
	}

	return &Bolt{db: db, index: index, uri: path, dimNum: dimNum, sparse: sparse}, nil
}
