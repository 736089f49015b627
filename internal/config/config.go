package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "INKGRAPH_CONFIG"

// DefaultPath is used when EnvPath is unset.
const DefaultPath = "config/inkgraph.toml"

type Config struct {
	Project   ProjectConfig   `toml:"project"`
	PageFile  PageFileConfig  `toml:"pagefile"`
	Record    RecordConfig    `toml:"record"`
	History   HistoryConfig   `toml:"history"`
	Logging   LoggingConfig   `toml:"logging"`
	Scripting ScriptingConfig `toml:"scripting"`
}

type ProjectConfig struct {
	Root     string `toml:"root"`      // project directory
	TrashDir string `toml:"trash_dir"` // relative to root
}

type PageFileConfig struct {
	DataSize int `toml:"data_size"` // bytes of data per page, new files only
}

type RecordConfig struct {
	CompressOver int `toml:"compress_over"` // zstd above this many bytes, 0 = never
}

type HistoryConfig struct {
	Depth int `toml:"depth"` // actions kept for undo, 0 = unlimited
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type ScriptingConfig struct {
	Dir string `toml:"dir"` // where `inkgraph run` looks up relative script names
}

// Load reads a TOML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Path returns the config file path from the environment or the default.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Default returns the built-in configuration.
func Default() *Config { return defaults() }

func (c *Config) validate() error {
	switch {
	case c.Project.Root == "":
		return errors.New("project.root is empty")
	case c.Project.TrashDir == "":
		return errors.New("project.trash_dir is empty")
	case c.PageFile.DataSize != 0 && c.PageFile.DataSize < 16:
		return fmt.Errorf("pagefile.data_size %d below 16", c.PageFile.DataSize)
	case c.Record.CompressOver < 0:
		return fmt.Errorf("record.compress_over %d is negative", c.Record.CompressOver)
	case c.History.Depth < 0:
		return fmt.Errorf("history.depth %d is negative", c.History.Depth)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Project: ProjectConfig{
			Root:     "project",
			TrashDir: ".trash",
		},
		PageFile: PageFileConfig{
			DataSize: 1024,
		},
		Record: RecordConfig{
			CompressOver: 4096,
		},
		History: HistoryConfig{
			Depth: 200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
	}
}
