package goGuard

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by [LoadConfig], e.g.
// GOGUARD_RATE_LIMIT_DEFAULT_MAX_REQUESTS.
const EnvPrefix = "GOGUARD_"

// LoadConfig builds a Config from defaults, an optional TOML file and the environment,
// in increasing precedence. path may be empty to skip the file. Only non-zero values
// override a lower layer.
func LoadConfig(path string) (Config, error) {
	var fileCfg Config
	if path != "" {
		if _, err := toml.DecodeFile(path, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	envCfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: EnvPrefix})
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	out := fileCfg
	if err := mergo.Merge(&out, envCfg, mergo.WithOverride); err != nil {
		return Config{}, fmt.Errorf("merge environment: %w", err)
	}

	out, err = withDefaults(out)
	if err != nil {
		return Config{}, fmt.Errorf("apply defaults: %w", err)
	}

	if err := out.Validate(); err != nil {
		return Config{}, err
	}

	return out, nil
}
