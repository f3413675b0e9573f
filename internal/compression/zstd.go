package compression

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// ZstdCompressor implements Compressor using zstd. Encoder and decoder
// are created once and reused; both are safe for sequential use from a
// single writer or reader instance.
type ZstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstdCompressor creates a new zstd compressor
func NewZstdCompressor() *ZstdCompressor {
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return &ZstdCompressor{enc: enc, dec: dec}
}

// Compress compresses data using zstd
func (z *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, nil), nil
}

// Decompress decompresses zstd compressed data
func (z *ZstdCompressor) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	out, err := z.dec.DecodeAll(data, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress failed: %w", err)
	}
	if len(out) != uncompressedSize {
		return nil, tserr.New(tserr.CodeCorrupted,
			"zstd page decompressed to %d bytes, header says %d", len(out), uncompressedSize)
	}
	return out, nil
}

// Kind returns Zstd
func (z *ZstdCompressor) Kind() model.Compression {
	return model.CompZstd
}
