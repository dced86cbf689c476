package config

import (
	"fmt"
	"os"

	"github.com/mezonai/cubix/logx"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// LoadEngineConfig reads cubix.yml. Fields left out of the file keep their defaults.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfgFile := ConfigFile{Config: DefaultEngineConfig()}
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	cfg := &cfgFile.Config
	if err := cfg.Store.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store section: %w", err)
	}
	logx.Info("CONFIG", fmt.Sprintf("Loaded engine config | store=%s | dir=%s | digest=%s | api=%s",
		cfg.Store.Type, cfg.Store.Directory, cfg.Digest.Algorithm, cfg.API.ListenAddr))
	return cfg, nil
}

// loadSection maps one section of an .ini file onto out, which already holds defaults.
func loadSection(path, section string, out interface{}) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return err
	}
	return cfg.Section(section).MapTo(out)
}

func LoadWriterConfig(path string) (*WriterConfig, error) {
	writerCfg := &WriterConfig{QueueSize: DefaultQueueSize}
	if err := loadSection(path, "writer", writerCfg); err != nil {
		return nil, err
	}
	if writerCfg.QueueSize <= 0 {
		return nil, fmt.Errorf("writer queue_size must be positive, got %d", writerCfg.QueueSize)
	}
	return writerCfg, nil
}

func LoadLogConfig(path string) (*logx.LogConfig, error) {
	logCfg := &logx.LogConfig{}
	if err := loadSection(path, "log", logCfg); err != nil {
		return nil, err
	}
	return logCfg, nil
}

func LoadRateLimitConfig(path string) (*RateLimitConfig, error) {
	rlCfg := &RateLimitConfig{MaxRequests: DefaultMaxRequests, WindowMs: DefaultWindowMs}
	if err := loadSection(path, "api", rlCfg); err != nil {
		return nil, err
	}
	if rlCfg.MaxRequests <= 0 || rlCfg.WindowMs <= 0 {
		return nil, fmt.Errorf("api max_requests and window_ms must be positive")
	}
	return rlCfg, nil
}
