// Package config loads the tempo configuration file.
//
// The file is YAML (gopkg.in/yaml.v3). Its contents are unified with an
// embedded CUE schema (cuelang.org/go) that supplies defaults and
// rejects unknown keys or out-of-range values. Command-line flags
// override the loaded values; that happens in the cli package.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tempo/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// Config is the validated configuration.
type Config struct {
	Database         string       `json:"database"`
	LogLevel         string       `json:"log_level"`
	Format           string       `json:"format"`
	DefaultPulsetime float64      `json:"default_pulsetime"`
	Export           ExportConfig `json:"export"`
}

// ExportConfig configures the export command.
type ExportConfig struct {
	Compress bool `json:"compress"`
}

// Error reports an invalid configuration file.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Message)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg, err := decode(map[string]any{})
	if err != nil {
		// The embedded schema is static; failing here is a build defect.
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates the YAML file at path.
// An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Path: path, Message: err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	cfg, err := decode(raw)
	if err != nil {
		return nil, &Error{Path: path, Message: err.Error()}
	}
	return cfg, nil
}

// decode unifies raw with #Config and decodes the result.
func decode(raw map[string]any) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	return &cfg, nil
}

// formatCUEError reduces a CUE error list to its first entry.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	return fmt.Errorf("%s", errors.Details(errs[0], nil))
}

// Pulsetime returns DefaultPulsetime as a duration.
func (c *Config) Pulsetime() time.Duration {
	d, err := model.SecondsToDuration(c.DefaultPulsetime)
	if err != nil {
		return 0
	}
	return d
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// DatabasePath returns Database, or <data-dir>/tempo.db when empty.
func (c *Config) DatabasePath() (string, error) {
	if c.Database != "" {
		return c.Database, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tempo.db"), nil
}

// DataDir returns the directory holding the database and device id:
// $TEMPO_DATA_DIR if set, otherwise ~/.local/share/tempo.
func DataDir() (string, error) {
	if dir := os.Getenv("TEMPO_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate data dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tempo"), nil
}
