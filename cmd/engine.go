package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/mezonai/cubix/config"
	"github.com/mezonai/cubix/digest"
	"github.com/mezonai/cubix/logx"
	"github.com/mezonai/cubix/stack"
	"github.com/mezonai/cubix/store"
)

type EngineFlags struct {
	ConfigPath string
	IniPath    string
	DataDir    string
	StoreType  string
}

var engineFlags EngineFlags

// loadEngineConfig reads the yaml config, falling back to defaults when the file is
// absent, and applies command line overrides.
func loadEngineConfig() (*config.EngineConfig, error) {
	cfg, err := config.LoadEngineConfig(engineFlags.ConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		logx.Warn("CMD", "Config file", engineFlags.ConfigPath, "not found, using defaults")
		def := config.DefaultEngineConfig()
		cfg, err = &def, nil
	}
	if err != nil {
		return nil, err
	}

	if engineFlags.DataDir != "" {
		cfg.Store.Directory = engineFlags.DataDir
	}
	if engineFlags.StoreType != "" {
		cfg.Store.Type = store.StoreType(engineFlags.StoreType)
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	return cfg, nil
}

// applyLogConfig points logx at the [log] section when the ini file exists.
func applyLogConfig() {
	logCfg, err := config.LoadLogConfig(engineFlags.IniPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logx.Warn("CMD", "Ignoring log config:", err)
		}
		return
	}
	logx.Configure(*logCfg)
}

type engine struct {
	cfg     *config.EngineConfig
	store   *store.GenericStackStore
	manager *stack.Manager
}

func openEngine(opts ...stack.Option) (*engine, error) {
	applyLogConfig()

	cfg, err := loadEngineConfig()
	if err != nil {
		return nil, err
	}
	hasher, err := digest.New(cfg.Digest.Algorithm)
	if err != nil {
		return nil, err
	}

	st, err := store.OpenStackStore(&cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	manager, err := stack.NewManager(st, append([]stack.Option{stack.WithHasher(hasher)}, opts...)...)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &engine{cfg: cfg, store: st, manager: manager}, nil
}

func (e *engine) Close() {
	if err := e.manager.Close(); err != nil {
		logx.Error("CMD", "Failed to close store:", err)
	}
}
