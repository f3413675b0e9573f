package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")           // Current directory
		v.AddConfigPath("./configs")   // Project configs directory
		v.AddConfigPath("/etc/tsfile") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix("TSFILE")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("write.page_max_point_count", def.Write.PageMaxPointCount)
	v.SetDefault("write.page_max_memory_bytes", def.Write.PageMaxMemoryBytes)
	v.SetDefault("write.chunk_group_size_threshold", def.Write.ChunkGroupSizeThreshold)
	v.SetDefault("write.max_degree_of_index_node", def.Write.MaxDegreeOfIndexNode)
	v.SetDefault("write.bloom_filter_error_rate", def.Write.BloomFilterErrorRate)
	v.SetDefault("write.time_encoding", def.Write.TimeEncoding)
	v.SetDefault("write.time_compression", def.Write.TimeCompression)

	v.SetDefault("read.chunk_cache_capacity", def.Read.ChunkCacheCapacity)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output_path", def.Logging.OutputPath)
}

// parseConfig unmarshals and validates the configuration
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
