// Package compress implements optional record compression.
//
// Compressed records are self-describing: Decode recognizes the zstd and lz4
// frame magic numbers and returns anything else unchanged, so plain and
// compressed records can share one store.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used for new records.
type Type uint8

const (
	// None stores records as-is.
	None Type = 0
	// LZ4 uses the lz4 frame format (fast).
	LZ4 Type = 1
	// ZSTD uses zstd frames (better ratio).
	ZSTD Type = 2
)

// String returns the algorithm name.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compress(%d)", uint8(t))
	}
}

// ErrUnknownType is returned by Encode for an unsupported Type.
var ErrUnknownType = errors.New("compress: unknown type")

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// minRatio is the compressed/plain size above which Encode keeps the plain bytes.
const minRatio = 0.9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode compresses data with t. Small or incompressible inputs are returned
// unchanged.
func Encode(t Type, data []byte) ([]byte, error) {
	if t == None || len(data) == 0 {
		return data, nil
	}

	var out []byte
	switch t {
	case ZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	case LZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		out = buf.Bytes()
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}

	if float64(len(out)) > float64(len(data))*minRatio {
		return data, nil
	}
	return out, nil
}

// Detect reports the compression of an encoded record.
func Detect(data []byte) Type {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return ZSTD
	case bytes.HasPrefix(data, lz4Magic):
		return LZ4
	default:
		return None
	}
}

// Decode reverses Encode.
func Decode(data []byte) ([]byte, error) {
	switch Detect(data) {
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd: %w", err)
		}
		return out, nil
	case LZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		return out, nil
	default:
		return data, nil
	}
}
