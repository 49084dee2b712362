package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leaplook/pkg/core"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// configKey is used to store the loaded config in a command context.
type configKey struct{}

// Config file names, in lookup order.
var configFileNames = []string{"leaplook.yaml", "leaplook.yml"}

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LEAPLOOK_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps command-line flags to config keys. Flags not listed here
// belong to commands and never reach the config.
var flagKeys = map[string]string{
	"cookbook":      "cookbook",
	"lexicon":       "lexicon",
	"output-dir":    "output_dir",
	"concurrency":   "concurrency",
	"fetch-timeout": "fetch_timeout",
	"log-level":     "log_level",
	"verbose":       "verbose",
	"output":        "output",
}

// pathFlags are flags holding paths, resolved against the working directory.
var pathFlags = []string{"cookbook", "lexicon", "output-dir"}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// FindConfigFile searches upward from startDir for a leaplook config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func FindConfigFile(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if path := configExistsIn(dir); path != "" {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load loads configuration from defaults, the config file, environment
// variables and flags, then validates it. cfgFile may be empty, in which
// case leaplook.yaml is searched upward from the working directory.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	if cfgFile == "" {
		cfgFile = FindConfigFile(cwd)
	} else if _, err := os.Stat(cfgFile); err != nil {
		return nil, core.NewConfigError(cfgFile, err)
	}
	projectRoot := cwd
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, core.NewConfigError(cfgFile, fmt.Errorf("error reading config file: %w", err))
		}
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Environment: LEAPLOOK_OUTPUT_DIR -> output_dir, LEAPLOOK_SOURCE_TOKEN -> source.token
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	flagPaths := map[string]string{}
	if flags != nil {
		for _, name := range pathFlags {
			if f := flags.Lookup(name); f != nil && f.Changed && f.Value.String() != "" {
				abs, err := filepath.Abs(f.Value.String())
				if err == nil {
					flagPaths[flagKeys[name]] = abs
				}
			}
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, core.NewConfigError(cfgFile, fmt.Errorf("unable to decode config: %w", err))
	}
	cfg.File = cfgFile
	cfg.ProjectRoot = projectRoot

	expandSourceEnvVars(&cfg.Source)
	if cfg.Dialect == "" {
		cfg.Dialect = DefaultDialectForSource(cfg.Source.Type)
	}

	// 6. Paths: flags relative to the working directory, everything else
	// relative to the project root.
	resolve := func(key string, p *string) {
		if abs, ok := flagPaths[key]; ok {
			*p = abs
			return
		}
		*p = resolvePathRelativeTo(*p, projectRoot)
	}
	resolve("cookbook", &cfg.Cookbook)
	resolve("lexicon", &cfg.Lexicon)
	resolve("output_dir", &cfg.OutputDir)
	if cfg.Source.Type != "bigquery" && cfg.Source.Path != ":memory:" {
		cfg.Source.Path = resolvePathRelativeTo(cfg.Source.Path, projectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps an environment variable to a config key. Datasets are
// structured and only configurable in the file.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "source_"); ok {
		return "source." + rest
	}
	if key == "datasets" {
		return ""
	}
	return key
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// FromContext retrieves the loaded config from the command context.
func FromContext(ctx context.Context) (*Config, bool) {
	c, ok := ctx.Value(configKey{}).(*Config)
	return c, ok
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandSourceEnvVars expands environment variables in source credentials and locations.
func expandSourceEnvVars(s *core.SourceConfig) {
	s.Token = expandEnvVars(s.Token)
	s.Path = expandEnvVars(s.Path)
	s.Endpoint = expandEnvVars(s.Endpoint)
}
