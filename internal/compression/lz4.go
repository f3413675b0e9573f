package compression

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// LZ4Compressor implements Compressor using LZ4 block framing
type LZ4Compressor struct{}

// NewLZ4Compressor creates a new LZ4 compressor
func NewLZ4Compressor() *LZ4Compressor {
	return &LZ4Compressor{}
}

// Compress compresses data as a single LZ4 block
func (l *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	var c lz4.Compressor
	n, err := c.CompressBlock(data, buf)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress failed: %w", err)
	}
	if n == 0 {
		// incompressible; CompressBlock signals this with n == 0
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	return buf[:n], nil
}

// Decompress decompresses a single LZ4 block. The page header's
// uncompressed size bounds the output buffer.
func (l *LZ4Compressor) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	if len(data) == 0 && uncompressedSize == 0 {
		return data, nil
	}
	out := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data, out)
	if err == nil && n == uncompressedSize {
		return out, nil
	}
	if len(data) == uncompressedSize {
		// stored as-is for incompressible input
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress failed: %w", err)
	}
	return nil, tserr.New(tserr.CodeCorrupted,
		"lz4 page decompressed to %d bytes, header says %d", n, uncompressedSize)
}

// Kind returns LZ4
func (l *LZ4Compressor) Kind() model.Compression {
	return model.CompLZ4
}
