package pipeline

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kenilGamer/restodrive-dbsetup/generator"
	"github.com/kenilGamer/restodrive-dbsetup/loader"
	"github.com/kenilGamer/restodrive-dbsetup/schema"
	"github.com/kenilGamer/restodrive-dbsetup/validator"
)

const (
	DefaultConfigFile = "config.json"
	DefaultOutputFile = "generated_setup.sql"
)

//go:embed templates/config.json
var configTemplate []byte

// Options controls a Generate run.
type Options struct {
	ConfigPath string
	OutputPath string
	// DryRun renders the script without writing OutputPath.
	DryRun bool
	// Now stamps the script header; time.Now when nil.
	Now    func() time.Time
	Logger *zap.SugaredLogger
}

// Summary describes a loaded config and, after Generate, the rendered script.
type Summary struct {
	ConfigPath string
	OutputPath string
	Database   string
	Tables     int
	Users      int
	Tasks      int
	Script     string
	Lint       *validator.Result
}

func summarize(path string, cfg *schema.Config) *Summary {
	return &Summary{
		ConfigPath: path,
		Database:   cfg.Database.Name,
		Tables:     len(cfg.Tables),
		Users:      len(cfg.Users),
		Tasks:      len(cfg.Tasks),
		Lint:       validator.Lint(cfg),
	}
}

// Validate loads and validates a config without rendering it.
func Validate(configPath string, logger *zap.SugaredLogger) (*Summary, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cfg, err := loader.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger.Debugw("config validated", "path", configPath, "database", cfg.Database.Name)
	return summarize(configPath, cfg), nil
}

// Generate reads, validates and renders a config, then writes the script.
// Nothing is written unless every earlier step succeeded.
func Generate(opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputFile
	}

	cfg, err := loader.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger.Debugw("config loaded",
		"path", opts.ConfigPath,
		"tables", len(cfg.Tables),
		"users", len(cfg.Users),
		"tasks", len(cfg.Tasks))

	script, err := generator.GenerateScript(cfg, now())
	if err != nil {
		return nil, fmt.Errorf("generating SQL: %w", err)
	}

	summary := summarize(opts.ConfigPath, cfg)
	summary.OutputPath = opts.OutputPath
	summary.Script = script

	if opts.DryRun {
		logger.Debugw("dry run, script not written", "bytes", len(script))
		return summary, nil
	}

	if err := generator.WriteScript(opts.OutputPath, script); err != nil {
		return nil, err
	}
	logger.Debugw("script written", "path", opts.OutputPath, "bytes", len(script))

	return summary, nil
}

// InitConfig writes the example config to path. An existing file is left
// untouched unless force is set; created reports whether anything was written.
func InitConfig(path string, force bool) (created bool, err error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("checking %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, configTemplate, 0644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// Template returns a copy of the example config.
func Template() []byte {
	return append([]byte(nil), configTemplate...)
}
