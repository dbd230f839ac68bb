package storage

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Codec identifies the compression applied to a tile blob before it was
// written to disk. The teacher library's analogue is its filter pipeline
// (internal/filter/pipeline.go); this module's domain has no shuffle/
// fletcher32 equivalents, only generic byte compression, so the codec set
// is deliberately smaller.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecSnappy
	CodecZstd
)

// Decode reverses the compression codec applied to data, mirroring the
// teacher's Pipeline.Decode (apply in reverse, skip on FilterMask bit) but
// simplified to a single codec per tile since this module's reference
// format never stacks filters.
func Decode(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("storage: snappy decode: %w", err)
		}
		return out, nil
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("storage: zstd reader: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("storage: zstd decode: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("storage: unknown codec %d", codec)
	}
}

// Encode applies a compression codec to data. Used only by reference
// fixture/ingestion helpers (BuildBolt-adjacent test setup), never by the
// read path itself.
func Encode(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		return snappy.Encode(nil, data), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("storage: zstd writer: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("storage: unknown codec %d", codec)
	}
}
