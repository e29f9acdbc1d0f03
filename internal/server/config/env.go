package config

import (
	"errors"
	"io/fs"
	"net"

	"github.com/dmitrijs2005/usersvc/internal/flagx"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

type portEnv struct {
	APIPort string `env:"API_PORT"`
}

// parseEnv loads a .env file into the process environment and then overlays
// the environment onto config. Variables already set in the environment win
// over the file. A missing default .env is ignored; a missing file named with
// -E/-envfile panics.
func parseEnv(config *Config) {
	envFile := flagx.EnvFileFlag()
	explicit := envFile != ""
	if !explicit {
		envFile = defaultEnvFile
	}

	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	// Unset variables keep the current value because every field is non-zero
	// or carries no env-default.
	if err := cleanenv.ReadEnv(config); err != nil {
		panic(err)
	}

	var p portEnv
	if err := cleanenv.ReadEnv(&p); err != nil {
		panic(err)
	}
	if p.APIPort != "" {
		host, _, err := net.SplitHostPort(config.HTTPAddr)
		if err != nil {
			host = ""
		}
		config.HTTPAddr = net.JoinHostPort(host, p.APIPort)
	}
}
