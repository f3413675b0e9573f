package compression

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// SnappyCompressor implements Compressor using the Snappy algorithm
type SnappyCompressor struct{}

// NewSnappyCompressor creates a new Snappy compressor
func NewSnappyCompressor() *SnappyCompressor {
	return &SnappyCompressor{}
}

// Compress compresses data using Snappy
func (s *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	compressed := snappy.Encode(nil, data)
	return compressed, nil
}

// Decompress decompresses Snappy compressed data
func (s *SnappyCompressor) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	if len(data) == 0 && uncompressedSize == 0 {
		return data, nil
	}

	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	if len(decompressed) != uncompressedSize {
		return nil, tserr.New(tserr.CodeCorrupted,
			"snappy page decompressed to %d bytes, header says %d", len(decompressed), uncompressedSize)
	}
	return decompressed, nil
}

// Kind returns Snappy
func (s *SnappyCompressor) Kind() model.Compression {
	return model.CompSnappy
}
