package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// LoadChainConfigFile reads a consensus layer YAML chain config and overlays it
// on the preset named by its CONFIG_NAME (or PRESET_BASE), defaulting to mainnet.
func LoadChainConfigFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read chain config %s", path)
	}
	return UnmarshalConfig(data)
}

// UnmarshalConfig decodes YAML config bytes, see LoadChainConfigFile.
func UnmarshalConfig(data []byte) (*Config, error) {
	var header struct {
		ConfigName    string  `yaml:"CONFIG_NAME"`
		PresetBase    string  `yaml:"PRESET_BASE"`
		UpdateTimeout *uint64 `yaml:"UPDATE_TIMEOUT"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, errors.Wrap(err, "could not decode chain config")
	}
	base := header.PresetBase
	if base == "" {
		base = header.ConfigName
	}
	cfg, err := ConfigForNetwork(base)
	if err != nil {
		// Named testnets share the mainnet preset.
		cfg = MainnetConfig()
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "could not decode chain config")
	}
	if header.UpdateTimeout == nil {
		cfg.UpdateTimeout = cfg.SlotsPerSyncPeriod()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid chain config")
	}
	return cfg, nil
}
