package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
)

// FileSystem abstracts the file operations of the loader (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds config and env files for a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths if provided, otherwise searches the
// standard locations. Missing files resolve to "".
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(
			fmt.Sprintf("./cmd/%s/config.yml", serviceName),
			fmt.Sprintf("./config/%s.yml", serviceName),
			"./config/config.yml",
			"./config.yml",
		)
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(
			fmt.Sprintf("./cmd/%s/.env", serviceName),
			fmt.Sprintf(".env.%s", serviceName),
			".env",
		)
	}
	return resolved
}

func (r *Resolver) first(paths ...string) string {
	for _, path := range paths {
		if r.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
	EnvPrefix  string // Defaults to the service name upper-cased
	Flags      *pflag.FlagSet
	FlagKeys   map[string]string // config key -> flag name
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix sets the prefix environment variables must carry.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithFlags binds command-line flags to config keys. A flag only overrides
// the file and environment when it was set on the command line.
//
//	config.WithFlags(fs, map[string]string{"pipeline.batch_size": "batch-size"})
func WithFlags(fs *pflag.FlagSet, keys map[string]string) LoaderOption {
	return func(lc *LoaderConfig) {
		lc.Flags = fs
		lc.FlagKeys = keys
	}
}

// LoadConfig loads configuration for a service into cfg.
//
// Precedence, highest first: flags, environment (including the .env file),
// config file, flag defaults.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = envPrefix(serviceName)
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)
	log := logger.Get("config")

	v := viper.New()

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.InvalidConfig(serviceName, err).WithDetail("file", files.ConfigFile)
		}
		log.Debug("config file loaded", logger.Fields("file", files.ConfigFile))
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load .env file", logger.Merge(logger.ErrorFields("load_env", err), logger.Fields("file", files.EnvFile)))
		}
	}
	if err := bindEnvVars(v, lc.EnvPrefix); err != nil {
		return errors.InvalidConfig(serviceName, err)
	}

	if lc.Flags != nil {
		for key, name := range lc.FlagKeys {
			flag := lc.Flags.Lookup(name)
			if flag == nil {
				return errors.InvalidConfig(serviceName, fmt.Errorf("unknown flag %q for key %q", name, key))
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return errors.InvalidConfig(serviceName, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return errors.InvalidConfig(serviceName, fmt.Errorf("unmarshal: %w", err))
	}
	return nil
}

func envPrefix(serviceName string) string {
	return strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_"))
}

// bindEnvVars binds every PREFIX_* environment variable to each nested key
// it could spell, e.g. STREAMKIT_PIPELINE_BATCH_SIZE to pipeline.batch_size.
func bindEnvVars(v *viper.Viper, prefix string) error {
	want := prefix + "_"
	for _, env := range os.Environ() {
		key, _, found := strings.Cut(env, "=")
		if !found || !strings.HasPrefix(key, want) {
			continue
		}
		for _, variant := range generateEnvKeyVariants(strings.TrimPrefix(key, want)) {
			if err := v.BindEnv(variant, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// generateEnvKeyVariants creates the key variants an environment variable
// name may stand for.
//
//	PIPELINE_BATCH_SIZE -> [pipeline_batch_size, pipeline.batch.size, pipeline.batch_size, pipeline_batch.size]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)

		prefix = strings.Join(parts[:i], "_")
		suffix = strings.Join(parts[i:], ".")
		variants = append(variants, prefix+"."+suffix)
	}
	return removeDuplicates(variants)
}

func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
