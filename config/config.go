// Package config loads the settings of the romfat command from an optional YAML
// file and the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/aligator/romfat"
	"github.com/aligator/romfat/assets"
	"github.com/aligator/romfat/checkpoint"
	"github.com/aligator/romfat/logging"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to all environment variables, e.g. ROMFAT_TOTAL_SECTORS.
const EnvPrefix = "ROMFAT"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrReadConfig    = errors.New("could not read the configuration file")
)

type Config struct {
	TotalSectors uint32 `envconfig:"TOTAL_SECTORS" yaml:"totalSectors"`
	VolumeLabel  string `envconfig:"VOLUME_LABEL"  yaml:"volumeLabel"`
	VolumeID     uint32 `envconfig:"VOLUME_ID"     yaml:"volumeID"`

	// PayloadDir holds COPYING, README and INDEX.HTM. Empty means the built-in payloads.
	PayloadDir string `envconfig:"PAYLOAD_DIR" yaml:"payloadDir"`
	FlagFile   string `envconfig:"FLAG_FILE"   yaml:"flagFile"`
	// Image is served once the synthetic volume is disabled.
	Image string `envconfig:"IMAGE" yaml:"image"`

	VendorID  string `envconfig:"VENDOR_ID"  yaml:"vendorID"`
	ProductID string `envconfig:"PRODUCT_ID" yaml:"productID"`
	Revision  string `envconfig:"REVISION"   yaml:"revision"`

	LogLevel  string `envconfig:"LOG_LEVEL"  yaml:"logLevel"`
	LogFormat string `envconfig:"LOG_FORMAT" yaml:"logFormat"`
}

func Defaults() Config {
	return Config{
		TotalSectors: romfat.DefaultTotalSectors,
		VolumeLabel:  romfat.DefaultVolumeLabel,
		VolumeID:     romfat.DefaultVolumeID,
		FlagFile:     "romfat.flag",
		VendorID:     "romfat",
		ProductID:    "Virtual Disk",
		Revision:     "1.0",
		LogLevel:     "warn",
		LogFormat:    "text",
	}
}

// Load starts with Defaults, applies the YAML file at path if it exists and then
// the environment. An empty path skips the file.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := afero.ReadFile(fs, path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, checkpoint.Wrap(err, ErrReadConfig)
		default:
			if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
				return cfg, checkpoint.Wrap(err, ErrReadConfig)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, checkpoint.Wrap(err, ErrInvalidConfig)
	}

	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs error
	invalid := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, checkpoint.Wrap(ErrInvalidConfig, fmt.Errorf(format, args...)))
	}

	if c.TotalSectors < romfat.FirstPayloadLBA || c.TotalSectors > romfat.MaxTotalSectors {
		invalid("totalSectors %v is not between %v and %v", c.TotalSectors, romfat.FirstPayloadLBA, romfat.MaxTotalSectors)
	}
	if err := romfat.ValidVolumeLabel(c.VolumeLabel); err != nil {
		invalid("volumeLabel %q", c.VolumeLabel)
	}
	if c.FlagFile == "" {
		invalid("flagFile is required")
	}
	if len(c.VendorID) > 8 {
		invalid("vendorID %q is longer than 8 characters", c.VendorID)
	}
	if len(c.ProductID) > 16 {
		invalid("productID %q is longer than 16 characters", c.ProductID)
	}
	if len(c.Revision) > 4 {
		invalid("revision %q is longer than 4 characters", c.Revision)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		invalid("logLevel: %v", err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		invalid("logFormat: %v", err)
	}

	return errs
}

// VolumeOptions translates the volume settings.
func (c Config) VolumeOptions() []romfat.Option {
	return []romfat.Option{
		romfat.WithTotalSectors(c.TotalSectors),
		romfat.WithVolumeLabel(c.VolumeLabel),
		romfat.WithVolumeID(c.VolumeID),
	}
}

// Payloads loads PayloadDir from fs or returns the built-in payloads.
func (c Config) Payloads(fs afero.Fs) (romfat.PayloadProvider, error) {
	if c.PayloadDir == "" {
		return assets.Default(), nil
	}
	return romfat.LoadPayloads(fs, c.PayloadDir)
}

// ConfigureLogging sets up the default logger. Call Validate first.
func (c Config) ConfigureLogging() error {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		return err
	}
	logging.Configure(os.Stderr, level, format)
	return nil
}
