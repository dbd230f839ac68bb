package storage

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
	}{
		{"none", CodecNone},
		{"snappy", CodecSnappy},
		{"zstd", CodecZstd},
	}

	data := []byte("the quick brown fox jumps over the lazy dog, repeated: the quick brown fox jumps over the lazy dog")

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Encode(tc.codec, data)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			decoded, err := Decode(tc.codec, encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if string(decoded) != string(data) {
				t.Errorf("round trip mismatch: got %q, want %q", decoded, data)
			}
		})
	}
}

func TestDecodeUnknownCodec(t *testing.T) {
	if _, err := Decode(Codec(99), []byte("x")); err == nil {
		t.Error("expected error for unknown codec")
	}
}
