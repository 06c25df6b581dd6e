package dump

import (
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrUnknownCompression is returned for a compression byte this package
// does not know.
var ErrUnknownCompression = errors.New("unknown compression")

// Compression selects how the dump stream after the header is compressed.
type Compression uint8

const (
	// None stores the stream as is.
	None Compression = iota

	// Snappy trades ratio for speed.
	Snappy

	// LZ4 is comparable to Snappy with slightly better ratios.
	LZ4

	// Zstd compresses hardest and is still fast to decode.
	Zstd
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

func (c Compression) valid() bool {
	return c <= Zstd
}

// newWriter wraps w with the codec. The returned writer must be closed to
// flush the codec's final frame; closing it does not close w.
func (c Compression) newWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Zstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zw, nil
	default:
		return nil, fmt.Errorf("compression byte %d: %w", uint8(c), ErrUnknownCompression)
	}
}

// newReader wraps r with the codec's decoder.
func (c Compression) newReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("compression byte %d: %w", uint8(c), ErrUnknownCompression)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
