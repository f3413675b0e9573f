package compression

import (
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// Compressor is a block compressor over already-encoded page bodies.
// The tag byte persisted in chunk headers selects the decoder.
type Compressor interface {
	// Compress compresses data
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data. uncompressedSize is the expected
	// output length from the page header; implementations validate it.
	Decompress(data []byte, uncompressedSize int) ([]byte, error)

	// Kind returns the compression tag
	Kind() model.Compression
}

// GetCompressor returns a compressor for the given tag. Reserved tags
// (LZO, SDT, PAA, PLA) have no stable codec and return NOT_SUPPORTED.
func GetCompressor(kind model.Compression) (Compressor, error) {
	switch kind {
	case model.CompUncompressed:
		return &NoneCompressor{}, nil
	case model.CompSnappy:
		return NewSnappyCompressor(), nil
	case model.CompGzip:
		return NewGzipCompressor(), nil
	case model.CompLZ4:
		return NewLZ4Compressor(), nil
	case model.CompZstd:
		return NewZstdCompressor(), nil
	case model.CompLZO, model.CompSDT, model.CompPAA, model.CompPLA:
		return nil, tserr.New(tserr.CodeNotSupported, "compression %s has no stable codec", kind)
	default:
		return nil, tserr.New(tserr.CodeNotSupported, "unknown compression tag %d", uint8(kind))
	}
}

// NoneCompressor is the identity codec
type NoneCompressor struct{}

func (n *NoneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	if len(data) != uncompressedSize {
		return nil, tserr.New(tserr.CodeCorrupted,
			"uncompressed page length %d does not match header %d", len(data), uncompressedSize)
	}
	return data, nil
}

func (n *NoneCompressor) Kind() model.Compression {
	return model.CompUncompressed
}
