package cli

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/checklist/internal/paths"
	"github.com/mesh-intelligence/checklist/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyDataDir           = "data_dir"
	cfgKeyStateFile         = "state_file"
	cfgKeyBackupDir         = "backup_dir"
	cfgKeyBackupCompression = "backup_compression"
	cfgKeyLockTimeout       = "lock_timeout"
	cfgKeyLogLevel          = "log_level"
	cfgKeyLogFormat         = "log_format"
	cfgKeyMetricsFile       = "metrics_file"
)

// configFile is the structure written to config.yaml by init.
type configFile struct {
	DataDir           string `yaml:"data_dir,omitempty"`
	StateFile         string `yaml:"state_file"`
	BackupDir         string `yaml:"backup_dir,omitempty"`
	BackupCompression string `yaml:"backup_compression"`
	LockTimeout       string `yaml:"lock_timeout"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
	MetricsFile       string `yaml:"metrics_file,omitempty"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		DataDir:           dataDir,
		StateFile:         types.DefaultStateFile,
		BackupCompression: types.CompressionNone,
		LockTimeout:       types.DefaultLockTimeout.String(),
		LogLevel:          types.DefaultLogLevel,
		LogFormat:         types.LogFormatConsole,
	}
}

// loadConfig reads config.yaml from the resolved config directory and applies
// the data directory precedence chain. A missing config.yaml is not an error.
func loadConfig(flags *rootFlags) (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return types.Config{}, errors.Wrap(err, "resolve config dir")
	}

	v := viper.New()
	v.SetDefault(cfgKeyStateFile, types.DefaultStateFile)
	v.SetDefault(cfgKeyBackupCompression, types.CompressionNone)
	v.SetDefault(cfgKeyLockTimeout, types.DefaultLockTimeout)
	v.SetDefault(cfgKeyLogLevel, types.DefaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, types.LogFormatConsole)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, errors.Wrap(err, "read config")
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, errors.Wrap(err, "decode config")
	}
	cfg.DataDir, err = paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, errors.Wrap(err, "resolve data dir")
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. It reports whether the file was written.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Wrap(err, "stat config file")
	}

	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, errors.Wrap(err, "marshal config")
	}
	header := []byte("# checklist configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return false, errors.Wrap(err, "write config")
	}
	return true, nil
}
