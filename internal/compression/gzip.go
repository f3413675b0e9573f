package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// GzipCompressor implements Compressor using gzip
type GzipCompressor struct{}

// NewGzipCompressor creates a new gzip compressor
func NewGzipCompressor() *GzipCompressor {
	return &GzipCompressor{}
}

// Compress compresses data using gzip
func (g *GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress decompresses gzip compressed data
func (g *GzipCompressor) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip decompress failed: %w", err)
	}
	defer r.Close()

	out := make([]byte, 0, uncompressedSize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("gzip decompress failed: %w", err)
	}
	if buf.Len() != uncompressedSize {
		return nil, tserr.New(tserr.CodeCorrupted,
			"gzip page decompressed to %d bytes, header says %d", buf.Len(), uncompressedSize)
	}
	return buf.Bytes(), nil
}

// Kind returns Gzip
func (g *GzipCompressor) Kind() model.Compression {
	return model.CompGzip
}
