package dataset

import (
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

// Compression selects the codec applied to the group records of a saved image.
type Compression uint8

const (
	// CompressionNone stores group records as is.
	CompressionNone Compression = iota
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4
	// CompressionZSTD uses zstd (better ratio).
	CompressionZSTD
)

func (c Compression) String() string {
	switch c {
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// ParseCompression converts "none", "lz4" or "zstd" to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, scierrors.NewValidationError("compression", "must be one of none, lz4, zstd", name)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	// DecodeAll never grows dst past the raw size recorded in the header.
	return zstd.NewReader(nil, zstd.WithDecodeAllCapLimit(true))
}

// compress encodes src with c. LZ4 falls back to CompressionNone when the
// payload does not shrink.
func compress(c Compression, src []byte) (Compression, []byte, error) {
	switch c {
	case CompressionNone:
		return c, src, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		n, err := lz4.CompressBlock(src, dst, nil)
		if err != nil {
			return c, nil, scierrors.Wrap(err, "lz4 compress")
		}
		if n == 0 || n >= len(src) {
			return CompressionNone, src, nil
		}
		return c, dst[:n], nil
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return c, nil, scierrors.Wrap(err, "zstd encoder")
		}
		defer zstdEncoderPool.Put(enc)
		return c, enc.EncodeAll(src, nil), nil
	default:
		return c, nil, scierrors.NewValidationError("compression", "unknown codec", uint8(c))
	}
}

// maxExpansion bounds decompressed/compressed size for c, or 0 for an unknown
// codec. An lz4 sequence adds at most 255 bytes per input byte; a zstd block
// of at most 128 KiB takes at least 4 bytes.
func maxExpansion(c Compression) uint64 {
	switch c {
	case CompressionNone:
		return 1
	case CompressionLZ4:
		return 255
	case CompressionZSTD:
		return 1 << 15
	default:
		return 0
	}
}

// decompress reverses compress; rawSize is the length of the original payload.
func decompress(c Compression, src []byte, rawSize int) ([]byte, error) {
	switch c {
	case CompressionNone:
		return src, nil
	case CompressionLZ4:
		dst := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, scierrors.Wrap(err, "lz4 decompress")
		}
		if n != rawSize {
			return nil, scierrors.NewCorruptDataError("lz4 decompress", 0, rawSize, n)
		}
		return dst, nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, scierrors.Wrap(err, "zstd decoder")
		}
		defer zstdDecoderPool.Put(dec)
		dst, err := dec.DecodeAll(src, make([]byte, 0, rawSize))
		if err != nil {
			return nil, scierrors.Wrap(err, "zstd decompress")
		}
		if len(dst) != rawSize {
			return nil, scierrors.NewCorruptDataError("zstd decompress", 0, rawSize, len(dst))
		}
		return dst, nil
	default:
		return nil, scierrors.NewValidationError("compression", "unknown codec", uint8(c))
	}
}
