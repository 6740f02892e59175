package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/biblio/internal/api"
	"github.com/mesh-intelligence/biblio/internal/paths"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "BIBLIO"
)

// Config keys.
const (
	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeySyncStrategy   = "sync_strategy"
	cfgKeyStrictUpdates  = "strict_updates"
	cfgKeyMaxActiveLoans = "lending.max_active_loans"
	cfgKeyOverdueDays    = "lending.overdue_days"
	cfgKeyServerAddr     = "server.addr"
	cfgKeyRateLimit      = "server.rate_limit"
	cfgKeyRateBurst      = "server.rate_burst"
	cfgKeyLogLevel       = "log.level"
	cfgKeyLogFormat      = "log.format"
)

// logSettings selects the slog handler.
type logSettings struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// settings is the full contents of config.yaml.
type settings struct {
	types.Config `yaml:",inline" mapstructure:",squash"`
	Server       api.Config  `yaml:"server" mapstructure:"server"`
	Log          logSettings `yaml:"log" mapstructure:"log"`
}

// defaultSettings is what a fresh config.yaml contains.
func defaultSettings() settings {
	return settings{
		Config: types.Config{
			Backend:      types.BackendSQLite,
			SyncStrategy: types.SyncImmediate,
			Lending: types.LendingConfig{
				MaxActiveLoans: types.DefaultMaxActiveLoans,
				OverdueDays:    types.DefaultOverdueDays,
			},
		},
		Server: api.Config{
			Addr:      api.DefaultAddr,
			RateLimit: api.DefaultRateLimit,
			RateBurst: api.DefaultRateBurst,
		},
		Log: logSettings{Level: "warn", Format: "text"},
	}
}

// configFileHeader precedes the generated YAML.
const configFileHeader = `# biblio configuration
# Environment variables BIBLIO_<KEY> override these values, with dots in
# nested keys written as underscores (BIBLIO_LENDING_OVERDUE_DAYS).
# data_dir is overridden by --data-dir and overrides BIBLIO_DATA_DIR.

`

// loadSettings resolves the config dir, writes a default config.yaml on
// first run, and reads it with viper. The data dir is resolved last so the
// flag and config.yaml value are both known.
func (a *app) loadSettings(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	// data_dir is not bound: BIBLIO_DATA_DIR ranks below config.yaml, the
	// reverse of viper's precedence. paths.ResolveDataDir handles it.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{
		cfgKeyBackend, cfgKeySyncStrategy, cfgKeyStrictUpdates,
		cfgKeyMaxActiveLoans, cfgKeyOverdueDays,
		cfgKeyServerAddr, cfgKeyRateLimit, cfgKeyRateBurst,
		cfgKeyLogLevel, cfgKeyLogFormat,
	} {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil {
		if err := v.BindPFlag(cfgKeyLogLevel, f); err != nil {
			return fmt.Errorf("bind flag: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	s.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	logger, err := newLogger(a.stderr, s.Log)
	if err != nil {
		return &usageError{err: err}
	}

	a.v = v
	a.settings = s
	a.logger = logger
	logger.Debug("configuration loaded", "config_file", v.ConfigFileUsed(), "data_dir", s.DataDir)
	return nil
}

func setDefaults(v *viper.Viper) {
	d := defaultSettings()
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeySyncStrategy, d.SyncStrategy)
	v.SetDefault(cfgKeyStrictUpdates, d.StrictUpdate)
	v.SetDefault(cfgKeyMaxActiveLoans, d.Lending.MaxActiveLoans)
	v.SetDefault(cfgKeyOverdueDays, d.Lending.OverdueDays)
	v.SetDefault(cfgKeyServerAddr, d.Server.Addr)
	v.SetDefault(cfgKeyRateLimit, d.Server.RateLimit)
	v.SetDefault(cfgKeyRateBurst, d.Server.RateBurst)
	v.SetDefault(cfgKeyLogLevel, d.Log.Level)
	v.SetDefault(cfgKeyLogFormat, d.Log.Format)
}

// ensureDefaultConfigFile creates configDir and writes config.yaml with the
// default settings if it does not exist.
func ensureDefaultConfigFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	path := paths.ConfigFile(configDir)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	body, err := yaml.Marshal(defaultSettings())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configFileHeader), body...), 0o644)
}
