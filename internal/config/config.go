package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/adrg/xdg"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	appName        = "gamedl"
	configFileName = "config.yaml"
	envPrefix      = "GAMEDL"

	StorageJSON  = "json"
	StorageBbolt = "bbolt"
)

// Config holds the configuration options for the application.
type Config struct {
	Debug         bool                `yaml:"debug,omitempty"         envconfig:"DEBUG"`
	StateDir      string              `yaml:"stateDir,omitempty"      envconfig:"STATE_DIR"`
	DownloadDir   string              `yaml:"downloadDir,omitempty"   envconfig:"DOWNLOAD_DIR"`
	Storage       string              `yaml:"storage,omitempty"       envconfig:"STORAGE"`
	Helper        *HelperConfig       `yaml:"helper,omitempty"        envconfig:"HELPER"`
	Notifications *NotificationConfig `yaml:"notifications,omitempty" envconfig:"NOTIFICATIONS"`
	Upload        *UploadConfig       `yaml:"upload,omitempty"        envconfig:"UPLOAD"`
}

// HelperConfig describes the external executable that performs transfers.
type HelperConfig struct {
	Binary   string   `yaml:"binary,omitempty"   envconfig:"BINARY"`
	Args     []string `yaml:"args,omitempty"     envconfig:"ARGS"`
	Provider string   `yaml:"provider,omitempty" envconfig:"PROVIDER"`
}

// NotificationConfig bounds how many user-facing notifications are shown.
type NotificationConfig struct {
	PerMinute int `yaml:"perMinute,omitempty" envconfig:"PER_MINUTE"`
	Burst     int `yaml:"burst,omitempty"     envconfig:"BURST"`
}

// UploadConfig holds the S3 destination for uploaded downloads.
type UploadConfig struct {
	Region string `yaml:"region,omitempty" envconfig:"REGION"`
	Bucket string `yaml:"bucket,omitempty" envconfig:"BUCKET"`
	Prefix string `yaml:"prefix,omitempty" envconfig:"PREFIX"`
}

// Path returns the default location of the configuration file.
func Path() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// GetConfig reads the configuration file at path (or Path() when empty),
// fills unset values from the defaults and applies GAMEDL_* environment
// overrides. A missing file yields the defaults.
func GetConfig(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	if cfg.Storage != StorageJSON && cfg.Storage != StorageBbolt {
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage)
	}

	return cfg, nil
}

func readFile(path string) (*Config, error) {
	defaults := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &defaults, nil
		}

		return nil, err
	}

	if len(b) == 0 {
		return &defaults, nil
	}

	var cfg Config

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	helperCfg := zeroOr(cfg.Helper, defaults.Helper)
	notifyCfg := zeroOr(cfg.Notifications, defaults.Notifications)
	uploadCfg := zeroOr(cfg.Upload, defaults.Upload)

	return &Config{
		Debug:       zeroOr(cfg.Debug, defaults.Debug),
		StateDir:    zeroOr(cfg.StateDir, defaults.StateDir),
		DownloadDir: zeroOr(cfg.DownloadDir, defaults.DownloadDir),
		Storage:     zeroOr(cfg.Storage, defaults.Storage),
		Helper: &HelperConfig{
			Binary:   zeroOr(helperCfg.Binary, defaults.Helper.Binary),
			Args:     zeroOr(helperCfg.Args, defaults.Helper.Args),
			Provider: zeroOr(helperCfg.Provider, defaults.Helper.Provider),
		},
		Notifications: &NotificationConfig{
			PerMinute: zeroOr(notifyCfg.PerMinute, defaults.Notifications.PerMinute),
			Burst:     zeroOr(notifyCfg.Burst, defaults.Notifications.Burst),
		},
		Upload: &UploadConfig{
			Region: zeroOr(uploadCfg.Region, defaults.Upload.Region),
			Bucket: uploadCfg.Bucket,
			Prefix: uploadCfg.Prefix,
		},
	}, nil
}

func DefaultConfig() Config {
	return Config{
		Debug:       false,
		StateDir:    stateDir,
		DownloadDir: downloadDir,
		Storage:     StorageJSON,
		Helper: &HelperConfig{
			Binary:   helperBinary,
			Provider: helperProvider,
		},
		Notifications: &NotificationConfig{
			PerMinute: notificationsPerMinute,
			Burst:     notificationBurst,
		},
		Upload: &UploadConfig{
			Region: uploadRegion,
		},
	}
}

// RegistryPath is the JSON snapshot of the download registry.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.StateDir, "active_downloads.json")
}

// DatabasePath is the bbolt database holding games, settings and, with the
// bbolt backend, the registry.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StateDir, appName+".db")
}

func (c *Config) LogPath() string {
	return filepath.Join(c.StateDir, appName+".log")
}

// zeroOr returns def if v is the zero value for its type.
func zeroOr[T any](v, def T) T {
	if reflect.ValueOf(v).IsZero() {
		return def
	}

	return v
}
