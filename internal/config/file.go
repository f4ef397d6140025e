package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the optional YAML configuration file. Its sections
// follow the layout the front-end team already keeps for local setups.
type FileConfig struct {
	Ollama struct {
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
	} `yaml:"ollama"`
	App struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Env       string `yaml:"env"`
		SecretKey string `yaml:"secret_key"`
		DataFile  string `yaml:"data_file"`
		Frontend  string `yaml:"frontend_dir"`
	} `yaml:"app"`
	Session struct {
		Secure        *bool `yaml:"secure"`
		LifetimeHours int   `yaml:"lifetime_hours"`
	} `yaml:"session"`
	CORS struct {
		Origins []string `yaml:"origins"`
	} `yaml:"cors"`
}

// LoadFile parses the YAML file at path.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// Env flattens the file into the environment variable names Parse reads.
// Empty values are omitted.
func (fc FileConfig) Env() map[string]string {
	m := map[string]string{
		"OLLAMA_ENDPOINT": fc.Ollama.Endpoint,
		"OLLAMA_MODEL":    fc.Ollama.Model,
		"APP_HOST":        fc.App.Host,
		"APP_ENV":         fc.App.Env,
		"SESSION_SECRET":  fc.App.SecretKey,
		"DATA_FILE":       fc.App.DataFile,
		"FRONTEND_DIR":    fc.App.Frontend,
		"CORS_ORIGINS":    strings.Join(fc.CORS.Origins, ","),
	}
	if fc.App.Port > 0 {
		m["APP_PORT"] = strconv.Itoa(fc.App.Port)
	}
	if fc.Session.Secure != nil {
		m["SESSION_COOKIE_SECURE"] = strconv.FormatBool(*fc.Session.Secure)
	}
	if fc.Session.LifetimeHours > 0 {
		m["SESSION_TTL"] = strconv.Itoa(fc.Session.LifetimeHours) + "h"
	}
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	return m
}
