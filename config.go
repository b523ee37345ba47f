package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

type configs struct {
	DB     string       `yaml:"db"`
	Sheet  string       `yaml:"sheet"`
	Header HeaderLayout `yaml:"header"`
	Report struct {
		Sheet string `yaml:"sheet"`
	} `yaml:"report"`
	AI struct {
		Enabled bool   `yaml:"enabled"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"ai"`
}

// loadConfig reads <dir>/config.yaml and <dir>/.env. Both are optional.
// Variables already set in the environment win over the .env file.
func loadConfig(dir string) (configs, error) {
	var c configs
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return c, errors.Wrapf(err, "load %s", envPath)
		}
	}

	path := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return c, errors.Wrapf(err, "read %s", path)
	default:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, errors.Wrapf(err, "unable to unmarshal yaml config at %s", path)
		}
	}

	if c.DB == "" {
		c.DB = filepath.Join(dir, "split-ledger.db")
	}
	if c.Report.Sheet == "" {
		c.Report.Sheet = defaultReportSheet
	}
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return c, nil
}
