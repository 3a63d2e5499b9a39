package main

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

type Configuration struct {
	API struct {
		URL     string        `toml:"url" env:"PAPERSHELF_API_URL"`
		Timeout time.Duration `toml:"timeout" env:"PAPERSHELF_API_TIMEOUT"`
		PerPage int           `toml:"per_page" env:"PAPERSHELF_PER_PAGE"`
	} `toml:"api"`
	Session struct {
		Store string `toml:"store" env:"PAPERSHELF_SESSION_STORE"`
	} `toml:"session"`
}

func defaultConfiguration() Configuration {
	var cfg Configuration
	cfg.API.URL = "http://localhost:5001/api"
	cfg.API.Timeout = 10 * time.Second
	cfg.Session.Store = "data/session.db"
	return cfg
}

// loadConfiguration reads the toml file at path over the defaults, then
// applies the environment. A missing file is not an error.
func loadConfiguration(path string) (Configuration, error) {
	cfg := defaultConfiguration()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Configuration{}, err
	} else if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Configuration{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}
