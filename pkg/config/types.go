package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent ragchat configuration stored as
// config.toml in the .ragchat/ directory.
type Config struct {
	Version     int               `toml:"version"`
	API         APIConfig         `toml:"api"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Events      EventsConfig      `toml:"events"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen         string `toml:"listen,omitempty"`
	RequestTimeout string `toml:"request_timeout,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	Timeout  string `toml:"timeout,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	TopK       uint   `toml:"top_k,omitempty"`
	Timeout    string `toml:"timeout,omitempty"`
}

// EventsConfig holds chunk event publishing settings. Brokers is a
// comma separated list of host:port pairs.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// ParseDuration parses a configured duration. An empty value is zero.
func ParseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid value for %s: must not be negative", key)
	}
	return d, nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func durationKey(key string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := ParseDuration(key, v); err != nil {
				return err
			}
			*field(c) = v
			return nil
		},
	}
}

func uintKey(key string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen":          stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.request_timeout": durationKey("api.request_timeout", func(c *Config) *string { return &c.API.RequestTimeout }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.timeout":  durationKey("embedding.timeout", func(c *Config) *string { return &c.Embedding.Timeout }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.dimensions": uintKey("vector_store.dimensions", func(c *Config) *uint { return &c.VectorStore.Dimensions }),
	"vector_store.top_k":      uintKey("vector_store.top_k", func(c *Config) *uint { return &c.VectorStore.TopK }),
	"vector_store.timeout":    durationKey("vector_store.timeout", func(c *Config) *string { return &c.VectorStore.Timeout }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
}

// orderedKeys lists configKeys in the TOML section layout.
var orderedKeys = []string{
	"api.listen",
	"api.request_timeout",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.timeout",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"vector_store.dimensions",
	"vector_store.top_k",
	"vector_store.timeout",
	"events.provider",
	"events.brokers",
	"events.topic",
}
