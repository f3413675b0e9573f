package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/soltixdb/tsfile/internal/model"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Write.PageMaxPointCount != 10240 {
		t.Errorf("page_max_point_count: %d", cfg.Write.PageMaxPointCount)
	}
	if cfg.Write.PageMaxMemoryBytes != 64*1024 {
		t.Errorf("page_max_memory_bytes: %d", cfg.Write.PageMaxMemoryBytes)
	}
	if cfg.Write.ChunkGroupSizeThreshold != 128*1024*1024 {
		t.Errorf("chunk_group_size_threshold: %d", cfg.Write.ChunkGroupSizeThreshold)
	}
	if cfg.Write.MaxDegreeOfIndexNode != 256 {
		t.Errorf("max_degree_of_index_node: %d", cfg.Write.MaxDegreeOfIndexNode)
	}
	if cfg.Write.BloomFilterErrorRate != 0.05 {
		t.Errorf("bloom_filter_error_rate: %f", cfg.Write.BloomFilterErrorRate)
	}

	enc, err := cfg.TimeEncoding()
	if err != nil || enc != model.EncTS2Diff {
		t.Errorf("time encoding: %v %v", enc, err)
	}
	comp, err := cfg.TimeCompression()
	if err != nil || comp != model.CompUncompressed {
		t.Errorf("time compression: %v %v", comp, err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	if err == nil {
		// viper treats an explicit missing path as an error; both
		// behaviors are acceptable as long as defaults load cleanly
		if cfg.Write.PageMaxPointCount != 10240 {
			t.Errorf("defaults not applied: %+v", cfg.Write)
		}
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
write:
  page_max_point_count: 512
  time_encoding: PLAIN
read:
  chunk_cache_capacity: 16
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Write.PageMaxPointCount != 512 {
		t.Errorf("override lost: %d", cfg.Write.PageMaxPointCount)
	}
	if enc, _ := cfg.TimeEncoding(); enc != model.EncPlain {
		t.Errorf("time encoding override lost: %v", enc)
	}
	// untouched keys fall back to defaults
	if cfg.Write.MaxDegreeOfIndexNode != 256 {
		t.Errorf("default lost: %d", cfg.Write.MaxDegreeOfIndexNode)
	}
	if cfg.Read.ChunkCacheCapacity != 16 {
		t.Errorf("read override lost: %d", cfg.Read.ChunkCacheCapacity)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging override lost: %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Write.PageMaxPointCount = 0 },
		func(c *Config) { c.Write.PageMaxMemoryBytes = -1 },
		func(c *Config) { c.Write.ChunkGroupSizeThreshold = 0 },
		func(c *Config) { c.Write.MaxDegreeOfIndexNode = 1 },
		func(c *Config) { c.Write.BloomFilterErrorRate = 1.5 },
		func(c *Config) { c.Write.TimeEncoding = "MYSTERY" },
		func(c *Config) { c.Write.TimeCompression = "MYSTERY" },
		func(c *Config) { c.Read.ChunkCacheCapacity = 0 },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: invalid config passed validation", i)
		}
	}
}
