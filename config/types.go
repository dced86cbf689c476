package config

import (
	"github.com/mezonai/cubix/store"
)

const (
	DefaultStoreDirectory = "./data"
	DefaultAPIListenAddr  = ":8080"
	DefaultMetricsAddr    = ":9100"

	DefaultQueueSize   = 1024
	DefaultMaxRequests = 100
	DefaultWindowMs    = 1000
)

type DigestConfig struct {
	Algorithm string `yaml:"algorithm"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// EngineConfig holds the configuration from cubix.yml
type EngineConfig struct {
	Store   store.StoreConfig `yaml:"store"`
	Digest  DigestConfig      `yaml:"digest"`
	API     APIConfig         `yaml:"api"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

// ConfigFile is the top-level structure for cubix.yml
type ConfigFile struct {
	Config EngineConfig `yaml:"config"`
}

type WriterConfig struct {
	QueueSize int `ini:"queue_size"`
}

// RateLimitConfig bounds POST /txs per client address.
type RateLimitConfig struct {
	MaxRequests int `ini:"max_requests"`
	WindowMs    int `ini:"window_ms"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Store: store.StoreConfig{
			Type:      store.BoltStoreType,
			Directory: DefaultStoreDirectory,
		},
		API:     APIConfig{ListenAddr: DefaultAPIListenAddr},
		Metrics: MetricsConfig{ListenAddr: DefaultMetricsAddr},
	}
}
