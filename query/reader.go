package query

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/arrayengine/mdarray/internal/copyengine"
	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/fragment"
	"github.com/arrayengine/mdarray/internal/partition"
	"github.com/arrayengine/mdarray/internal/schema"
	"github.com/arrayengine/mdarray/internal/storage"
)

// Status reports whether a Read call consumed the entirety of the current
// partition (StatusComplete) or stopped early because a buffer ran out of
// room (StatusIncomplete — spec.md §7, not an error).
type Status int

const (
	StatusComplete Status = iota
	StatusIncomplete
)

func (s Status) String() string {
	if s == StatusIncomplete {
		return "incomplete"
	}
	return "complete"
}

// readStateIface is the part of partition.ReadState[T] the orchestrator can
// drive without knowing T — every method that needs a typed partition
// rectangle (Init, Current) is instead called from the generic dispatch
// helpers initTyped and readTyped, which recover the concrete
// *partition.ReadState[T] via a type assertion. Go disallows generic
// methods, so this erasure is what lets Reader itself stay non-generic
// (spec.md §9: "erase T at the orchestrator boundary, monomorphize per
// array on dispatch").
type readStateIface interface {
	State() partition.State
	Advance()
	Done() bool
	Reset()
	NumPartitions() int
	Index() int
	RequireState(allowed ...partition.State) error
}

// Reader is the read-path orchestrator of spec.md §4.8/§6. It is
// deliberately not generic: its coordinate-typed state (the subarray
// rectangle, the partition cursor) is held behind the `any`-typed subarray
// field and the readStateIface interface, and recovered by type assertion
// inside the package-level generic helpers (initTyped, reached from Init,
// and readTyped, reached from Read). This mirrors the teacher's
// top-level hdf5.Dataset/hdf5.File: a thin struct holding references into
// lower-layer state, exposing a small validated API.
type Reader struct {
	schema     schema.ArraySchema
	frags      []fragment.Metadata
	storageMgr storage.Manager
	layout     schema.Order
	layoutSet  bool

	buffers   map[schema.AttrID]*AttrBuffer
	coordsBuf *AttrBuffer

	subarray    any
	state       readStateIface
	initialized bool

	live map[schema.AttrID]*liveBuf
}

type liveBuf struct {
	values  *copyengine.Buffer
	offsets *copyengine.Buffer
}

// NewReader returns an unconfigured Reader; the caller must drive it
// through the Set* calls and Init before the first Read, per spec.md §6's
// external interface table.
func NewReader() *Reader {
	return &Reader{layout: schema.RowMajor}
}

// SetArraySchema records the array's schema. Changing it invalidates any
// previously configured subarray, buffers, and partition state, since all
// of those were validated against the old schema.
func (r *Reader) SetArraySchema(s schema.ArraySchema) error {
	if s == nil {
		return fmt.Errorf("query: %w: nil array schema", ErrInvalidArgument)
	}
	r.schema = s
	r.subarray = nil
	r.state = nil
	r.buffers = nil
	r.coordsBuf = nil
	r.initialized = false
	return nil
}

// SetFragmentMetadata records the fragment list to read from, oldest to
// newest (fragment.Metadata.Index order, per spec.md §3). Changing it
// invalidates any previously computed partition state, since partitions
// are sized from fragment tile metadata.
func (r *Reader) SetFragmentMetadata(frags []fragment.Metadata) error {
	r.frags = frags
	r.resetState()
	return nil
}

// SetStorageManager records the collaborator used to fetch and decode
// tile bytes.
func (r *Reader) SetStorageManager(m storage.Manager) error {
	if m == nil {
		return fmt.Errorf("query: %w: nil storage manager", ErrInvalidArgument)
	}
	r.storageMgr = m
	return nil
}

// SetLayout records the output cell order a Read call should produce.
// Sparse reads honor it directly (internal/sparse.Sort supports all three
// values); dense reads honor it only for coordinate synthesis — attribute
// value bytes are always emitted in the array's native tile/cell order,
// per the design note in DESIGN.md ("Dense coordinate order vs.
// attribute-value order").
func (r *Reader) SetLayout(o schema.Order) error {
	switch o {
	case schema.RowMajor, schema.ColMajor, schema.GlobalOrder:
	default:
		return fmt.Errorf("query: %w: unrecognized layout", ErrInvalidArgument)
	}
	r.layout = o
	r.layoutSet = true
	r.resetState()
	return nil
}

// SetSubarray validates rect against the array's domain (must match the
// schema's domain type and lie within the domain) and records it as the
// query's region of interest. A nil rect means "the whole domain". It is a
// package-level generic function rather than a method because Go does not
// allow generic methods on a non-generic receiver.
func SetSubarray[T coord.Coord](r *Reader, rect coord.Rect[T]) error {
	if r.schema == nil {
		return fmt.Errorf("query: %w: set the array schema before the subarray", ErrInvalidArgument)
	}
	kind, err := schema.KindOf[T]()
	if err != nil {
		return fmt.Errorf("query: %w: %v", ErrTypeMismatch, err)
	}
	if kind != r.schema.DomainKind() {
		return fmt.Errorf("query: %w: subarray coordinate type does not match the schema's domain type", ErrTypeMismatch)
	}

	domain := schema.Domain[T](r.schema)
	if rect == nil {
		rect = domain
	}
	if rect.DimNum() != domain.DimNum() {
		return fmt.Errorf("query: %w: subarray has %d dimensions, domain has %d", ErrInvalidArgument, rect.DimNum(), domain.DimNum())
	}
	overlaps, contains := coord.Overlap(domain, rect)
	if !overlaps || !contains {
		return fmt.Errorf("query: %w", ErrOutOfDomain)
	}

	r.subarray = rect
	r.state = &partition.ReadState[T]{}
	r.initialized = false
	return nil
}

// SetBuffers records the output buffers a Read call writes into, one per
// requested attribute plus, for a sparse array (or a dense array that also
// wants coordinates), a coordinates buffer keyed by schema.CoordsAttrID.
// Calling it again after Init is a mid-query buffer-size reset (spec.md
// §4.7): every buffer named before must still be present and no smaller
// than it was.
func (r *Reader) SetBuffers(bufs []*AttrBuffer) error {
	if r.schema == nil {
		return fmt.Errorf("query: %w: set the array schema before buffers", ErrInvalidArgument)
	}

	next := make(map[schema.AttrID]*AttrBuffer, len(bufs))
	var coordsBuf *AttrBuffer
	for _, b := range bufs {
		if b == nil {
			return fmt.Errorf("query: %w: nil buffer", ErrInvalidArgument)
		}
		if b.AttrID == schema.CoordsAttrID {
			if b.VarSize {
				return fmt.Errorf("query: %w: the coordinates buffer cannot be variable-sized", ErrInvalidArgument)
			}
			if coordsBuf != nil {
				return fmt.Errorf("query: %w: duplicate coordinates buffer", ErrInvalidArgument)
			}
			coordsBuf = b
			continue
		}
		info, ok := r.schema.Attribute(b.AttrID)
		if !ok {
			return fmt.Errorf("query: %w: unknown attribute %d", ErrInvalidArgument, b.AttrID)
		}
		if info.VarSize != b.VarSize {
			return fmt.Errorf("query: %w: attribute %d variable-size mismatch", ErrInvalidArgument, b.AttrID)
		}
		if b.VarSize && b.Offsets == nil {
			return fmt.Errorf("query: %w: variable-size attribute %d needs an offsets buffer", ErrInvalidArgument, b.AttrID)
		}
		if _, dup := next[b.AttrID]; dup {
			return fmt.Errorf("query: %w: duplicate buffer for attribute %d", ErrInvalidArgument, b.AttrID)
		}
		next[b.AttrID] = b
	}

	if r.initialized {
		if err := r.checkBufferReset(next, coordsBuf); err != nil {
			return fmt.Errorf("query: %w: %v", ErrInvalidArgument, err)
		}
	}

	r.buffers = next
	r.coordsBuf = coordsBuf
	return nil
}

func (r *Reader) checkBufferReset(next map[schema.AttrID]*AttrBuffer, nextCoords *AttrBuffer) error {
	ids := make([]schema.AttrID, 0, len(r.buffers))
	for id := range r.buffers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var initial, wanted []uint64
	for _, id := range ids {
		old := r.buffers[id]
		nw, ok := next[id]
		if !ok {
			return fmt.Errorf("attribute %d missing from buffer reset", id)
		}
		initial = append(initial, uint64(len(old.Values)))
		wanted = append(wanted, uint64(len(nw.Values)))
		if old.VarSize {
			initial = append(initial, uint64(len(old.Offsets)))
			wanted = append(wanted, uint64(len(nw.Offsets)))
		}
	}
	if (r.coordsBuf != nil) != (nextCoords != nil) {
		return fmt.Errorf("coordinates buffer presence changed on reset")
	}
	if r.coordsBuf != nil {
		initial = append(initial, uint64(len(r.coordsBuf.Values)))
		wanted = append(wanted, uint64(len(nextCoords.Values)))
	}
	return partition.CheckResetBufferSizes(initial, wanted)
}

// Init validates that schema, fragment metadata, storage manager, subarray
// and buffers are all set, computes the subarray's partitions against the
// current buffer capacities, and transitions the read state from
// Uninitialized to Initialized. Partition computation is deferred to Init
// (rather than done eagerly in SetSubarray) because spec.md §6's call
// order sets buffers after the subarray, and partitioning needs to know
// the buffer budgets.
func (r *Reader) Init() error {
	if r.schema == nil {
		return fmt.Errorf("query: %w: array schema not set", ErrInvalidArgument)
	}
	if r.storageMgr == nil {
		return fmt.Errorf("query: %w: storage manager not set", ErrInvalidArgument)
	}
	if r.subarray == nil {
		return fmt.Errorf("query: %w: subarray not set", ErrInvalidArgument)
	}
	if len(r.buffers) == 0 && r.coordsBuf == nil {
		return fmt.Errorf("query: %w: no output buffers set", ErrInvalidArgument)
	}
	if !r.schema.Dense() && r.coordsBuf == nil {
		return fmt.Errorf("query: %w: a sparse array query requires a coordinates buffer", ErrInvalidArgument)
	}

	switch r.schema.DomainKind() {
	case schema.KindInt32:
		return initTyped[int32](r)
	case schema.KindInt64:
		return initTyped[int64](r)
	case schema.KindFloat32:
		return initTyped[float32](r)
	case schema.KindFloat64:
		return initTyped[float64](r)
	default:
		return fmt.Errorf("query: %w: unsupported domain kind", ErrInternalInvariant)
	}
}

func initTyped[T coord.Coord](r *Reader) error {
	rect, ok := r.subarray.(coord.Rect[T])
	if !ok {
		return fmt.Errorf("query: %w", ErrInternalInvariant)
	}
	rs, ok := r.state.(*partition.ReadState[T])
	if !ok {
		return fmt.Errorf("query: %w", ErrInternalInvariant)
	}

	budgets, err := attrBudgets[T](r)
	if err != nil {
		return err
	}
	partitions, err := partition.ComputeSubarrayPartitions[T](rect, r.frags, budgets)
	if err != nil {
		if errors.Is(err, partition.ErrBufferTooSmall) {
			return fmt.Errorf("query: %w: %v", ErrBufferTooSmall, err)
		}
		return fmt.Errorf("query: %w", err)
	}

	rs.Init(partitions)
	r.initialized = true
	return nil
}

func attrBudgets[T coord.Coord](r *Reader) ([]partition.AttrBudget, error) {
	ids := r.attrIDsForBuffers()
	out := make([]partition.AttrBudget, 0, len(ids)+1)
	for _, id := range ids {
		b := r.buffers[id]
		info, ok := r.schema.Attribute(id)
		if !ok {
			return nil, fmt.Errorf("query: %w: unknown attribute %d", ErrInvalidArgument, id)
		}
		out = append(out, partition.AttrBudget{
			ID:         id,
			VarSize:    info.VarSize,
			CellSize:   info.CellSize,
			FixedCap:   uint64(len(b.Values)),
			OffsetsCap: uint64(len(b.Offsets)),
			ValuesCap:  uint64(len(b.Values)),
		})
	}
	if r.coordsBuf != nil {
		cellSize := uint64(r.schema.DimNum()) * uint64(coord.SizeOf[T]())
		out = append(out, partition.AttrBudget{
			ID:        schema.CoordsAttrID,
			VarSize:   false,
			CellSize:  cellSize,
			FixedCap:  uint64(len(r.coordsBuf.Values)),
			ValuesCap: uint64(len(r.coordsBuf.Values)),
		})
	}
	return out, nil
}

func (r *Reader) attrIDsForBuffers() []schema.AttrID {
	ids := make([]schema.AttrID, 0, len(r.buffers))
	for id := range r.buffers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Read executes the current partition, copying into the configured
// buffers and reporting whether it ran out of room (StatusIncomplete) or
// finished the partition (StatusComplete, which also advances the cursor
// to the next partition).
func (r *Reader) Read(ctx context.Context) (Status, error) {
	if !r.initialized {
		return 0, fmt.Errorf("query: %w: Init has not been called", ErrInvalidArgument)
	}
	switch r.schema.DomainKind() {
	case schema.KindInt32:
		return readTyped[int32](ctx, r)
	case schema.KindInt64:
		return readTyped[int64](ctx, r)
	case schema.KindFloat32:
		return readTyped[float32](ctx, r)
	case schema.KindFloat64:
		return readTyped[float64](ctx, r)
	default:
		return 0, fmt.Errorf("query: %w: unsupported domain kind", ErrInternalInvariant)
	}
}

func readTyped[T coord.Coord](ctx context.Context, r *Reader) (Status, error) {
	rs, ok := r.state.(*partition.ReadState[T])
	if !ok {
		return 0, fmt.Errorf("query: %w", ErrInternalInvariant)
	}
	if err := rs.RequireState(partition.Initialized, partition.InProgress); err != nil {
		return 0, fmt.Errorf("query: %w: %v", ErrInvalidArgument, err)
	}
	cur, ok := rs.Current()
	if !ok {
		return 0, fmt.Errorf("query: %w: no partitions remaining", ErrInvalidArgument)
	}

	r.live = r.buildLiveBuffers()

	var status Status
	var err error
	if r.schema.Dense() {
		status, err = denseRead[T](ctx, r, cur)
	} else {
		status, err = sparseRead[T](ctx, r, cur)
	}
	if err != nil {
		return 0, fmt.Errorf("query: partition %d: %w", rs.Index(), err)
	}

	r.writeBackSizes()
	if status == StatusComplete {
		rs.Advance()
	}
	return status, nil
}

func (r *Reader) buildLiveBuffers() map[schema.AttrID]*liveBuf {
	out := make(map[schema.AttrID]*liveBuf, len(r.buffers)+1)
	for id, b := range r.buffers {
		lb := &liveBuf{values: &copyengine.Buffer{Data: b.Values}}
		if b.VarSize {
			lb.offsets = &copyengine.Buffer{Data: b.Offsets}
		}
		out[id] = lb
	}
	if r.coordsBuf != nil {
		out[schema.CoordsAttrID] = &liveBuf{values: &copyengine.Buffer{Data: r.coordsBuf.Values}}
	}
	return out
}

func (r *Reader) writeBackSizes() {
	for id, b := range r.buffers {
		lb := r.live[id]
		b.ValuesSize = lb.values.Size
		if b.VarSize {
			b.OffsetsSize = lb.offsets.Size
		}
	}
	if r.coordsBuf != nil {
		r.coordsBuf.ValuesSize = r.live[schema.CoordsAttrID].values.Size
	}
}

// Done reports whether every partition of the current subarray has been
// read.
func (r *Reader) Done() bool {
	if r.state == nil {
		return false
	}
	return r.state.Done()
}

// NextSubarrayPartition advances the partition cursor without executing a
// read, letting a caller skip a partition it has decided it does not need.
func (r *Reader) NextSubarrayPartition() error {
	if r.state == nil {
		return fmt.Errorf("query: %w: subarray not set", ErrInvalidArgument)
	}
	if err := r.state.RequireState(partition.Initialized, partition.InProgress); err != nil {
		return fmt.Errorf("query: %w: %v", ErrInvalidArgument, err)
	}
	r.state.Advance()
	return nil
}

// Finalize releases the query's partition state, per spec.md §4.7 ("Any
// state -> Uninitialized on finalize()"). The schema/fragments/storage
// manager/buffers configuration survives a Finalize, so the Reader can be
// reused for a new subarray without reconfiguring those.
func (r *Reader) Finalize() error {
	if r.state != nil {
		r.state.Reset()
	}
	r.initialized = false
	return nil
}

// ArraySchema returns the schema this Reader was configured with.
func (r *Reader) ArraySchema() schema.ArraySchema { return r.schema }

// Layout returns the output order most recently set with SetLayout.
func (r *Reader) Layout() schema.Order { return r.layout }

// FragmentNum returns the number of fragments configured via
// SetFragmentMetadata.
func (r *Reader) FragmentNum() int { return len(r.frags) }

// FragmentURIs returns every configured fragment's URI, oldest first.
func (r *Reader) FragmentURIs() []string {
	out := make([]string, len(r.frags))
	for i, f := range r.frags {
		out[i] = f.URI()
	}
	return out
}

// LastFragmentURI returns the newest configured fragment's URI, or "" if
// none are configured.
func (r *Reader) LastFragmentURI() string {
	if len(r.frags) == 0 {
		return ""
	}
	return r.frags[len(r.frags)-1].URI()
}

func (r *Reader) resetState() {
	if r.state != nil {
		r.state.Reset()
	}
	r.initialized = false
}
