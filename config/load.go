package config

import (
	"errors"
	"io/fs"

	"github.com/ilyakaznacheev/cleanenv"
)

// Load reads configuration from the given YAML file, then applies
// environment overrides. A missing file is not an error; env and defaults
// still apply.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path != "" {
		err := cleanenv.ReadConfig(path, cfg)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
