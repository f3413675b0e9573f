package config

import (
	"fmt"

	"github.com/soltixdb/tsfile/internal/model"
)

// Config holds every tunable of the file format engine.
type Config struct {
	Write   WriteConfig   `mapstructure:"write"`
	Read    ReadConfig    `mapstructure:"read"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// WriteConfig governs page/chunk sealing and index fan-out.
type WriteConfig struct {
	PageMaxPointCount       int     `mapstructure:"page_max_point_count"`       // rows per page before forced seal
	PageMaxMemoryBytes      int     `mapstructure:"page_max_memory_bytes"`      // bytes per page before forced seal
	ChunkGroupSizeThreshold int64   `mapstructure:"chunk_group_size_threshold"` // pending bytes before auto-flush
	MaxDegreeOfIndexNode    int     `mapstructure:"max_degree_of_index_node"`   // fan-out cap of every index node
	BloomFilterErrorRate    float64 `mapstructure:"bloom_filter_error_rate"`    // target false-positive rate
	TimeEncoding            string  `mapstructure:"time_encoding"`              // encoding kind for time chunks
	TimeCompression         string  `mapstructure:"time_compression"`           // compression kind for time chunks
}

// ReadConfig governs reader-side caching.
type ReadConfig struct {
	ChunkCacheCapacity int `mapstructure:"chunk_cache_capacity"` // cached chunks shared across readers
}

// LoggingConfig mirrors the logging section.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Write: WriteConfig{
			PageMaxPointCount:       10240,
			PageMaxMemoryBytes:      64 * 1024,
			ChunkGroupSizeThreshold: 128 * 1024 * 1024,
			MaxDegreeOfIndexNode:    256,
			BloomFilterErrorRate:    0.05,
			TimeEncoding:            "TS_2DIFF",
			TimeCompression:         "UNCOMPRESSED",
		},
		Read: ReadConfig{
			ChunkCacheCapacity: 1024,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}

// Validate checks invariants that would otherwise fail deep inside the
// writer.
func (c *Config) Validate() error {
	w := &c.Write
	if w.PageMaxPointCount <= 0 {
		return fmt.Errorf("write.page_max_point_count must be positive, got %d", w.PageMaxPointCount)
	}
	if w.PageMaxMemoryBytes <= 0 {
		return fmt.Errorf("write.page_max_memory_bytes must be positive, got %d", w.PageMaxMemoryBytes)
	}
	if w.ChunkGroupSizeThreshold <= 0 {
		return fmt.Errorf("write.chunk_group_size_threshold must be positive, got %d", w.ChunkGroupSizeThreshold)
	}
	if w.MaxDegreeOfIndexNode < 2 {
		return fmt.Errorf("write.max_degree_of_index_node must be at least 2, got %d", w.MaxDegreeOfIndexNode)
	}
	if w.BloomFilterErrorRate <= 0 || w.BloomFilterErrorRate >= 1 {
		return fmt.Errorf("write.bloom_filter_error_rate must be in (0,1), got %f", w.BloomFilterErrorRate)
	}
	if _, err := c.TimeEncoding(); err != nil {
		return err
	}
	if _, err := c.TimeCompression(); err != nil {
		return err
	}
	if c.Read.ChunkCacheCapacity <= 0 {
		return fmt.Errorf("read.chunk_cache_capacity must be positive, got %d", c.Read.ChunkCacheCapacity)
	}
	return nil
}

// TimeEncoding resolves the configured time-chunk encoding tag.
func (c *Config) TimeEncoding() (model.Encoding, error) {
	switch c.Write.TimeEncoding {
	case "TS_2DIFF", "":
		return model.EncTS2Diff, nil
	case "PLAIN":
		return model.EncPlain, nil
	case "ZIGZAG":
		return model.EncZigzag, nil
	case "RLE":
		return model.EncRLE, nil
	case "GORILLA":
		return model.EncGorilla, nil
	default:
		return 0, fmt.Errorf("unknown time encoding %q", c.Write.TimeEncoding)
	}
}

// TimeCompression resolves the configured time-chunk compression tag.
func (c *Config) TimeCompression() (model.Compression, error) {
	switch c.Write.TimeCompression {
	case "UNCOMPRESSED", "":
		return model.CompUncompressed, nil
	case "SNAPPY":
		return model.CompSnappy, nil
	case "GZIP":
		return model.CompGzip, nil
	case "LZ4":
		return model.CompLZ4, nil
	case "ZSTD":
		return model.CompZstd, nil
	default:
		return 0, fmt.Errorf("unknown time compression %q", c.Write.TimeCompression)
	}
}
