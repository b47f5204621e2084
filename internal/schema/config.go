package schema

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// #region load

// Load reads a capacity schema from a TOML file, applies defaults, and
// validates it.
func Load(path string) (Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// #endregion load
