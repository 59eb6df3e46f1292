package backend

import "encoding/json"

// Codec converts cache values to and from the self-describing byte form
// used by the distributed and file backends. The in-process backend never
// serializes.
type Codec[V any] struct {
	Encode func(V) ([]byte, error)
	Decode func([]byte) (V, error)
}

// JSONCodec returns a Codec backed by encoding/json.
func JSONCodec[V any]() Codec[V] {
	return Codec[V]{
		Encode: func(v V) ([]byte, error) {
			return json.Marshal(v)
		},
		Decode: func(b []byte) (V, error) {
			var v V
			err := json.Unmarshal(b, &v)
			return v, err
		},
	}
}

// BytesCodec returns a pass-through Codec for raw byte values such as
// pre-rendered responses.
func BytesCodec() Codec[[]byte] {
	return Codec[[]byte]{
		Encode: func(v []byte) ([]byte, error) { return v, nil },
		Decode: func(b []byte) ([]byte, error) { return b, nil },
	}
}
