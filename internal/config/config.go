// Package config loads server configuration from config files and the
// environment.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/chat-tutor/chattutor/pkg/types"
)

// Load assembles configuration from multiple sources (later wins):
//  1. Global config (~/.config/chattutor/chattutor.json[c])
//  2. Project config (./chattutor.json[c])
//  3. CHATTUTOR_CONFIG file override
//  4. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{}

	loaded := make(map[string]bool)
	loadOnce := func(path string) {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return
		}
		if loadConfigFile(path, config) == nil {
			loaded[absPath] = true
		}
	}

	globalDir := GetPaths().Config
	loadOnce(filepath.Join(globalDir, "chattutor.json"))
	loadOnce(filepath.Join(globalDir, "chattutor.jsonc"))

	if directory != "" {
		loadOnce(filepath.Join(directory, "chattutor.json"))
		loadOnce(filepath.Join(directory, "chattutor.jsonc"))
	}

	if configPath := os.Getenv("CHATTUTOR_CONFIG"); configPath != "" {
		loadOnce(configPath)
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	return config, nil
}

// loadConfigFile loads a single config file with {env:VAR} interpolation.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Strip JSONC comments, then expand placeholders.
	data = jsonc.ToJSON(data)
	data = interpolate(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate replaces {env:VAR_NAME} placeholders with environment values.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})
}

// mergeConfig overlays src onto dst, field by field.
func mergeConfig(dst, src *types.Config) {
	dst.Agent = dst.Agent.Merge(src.Agent)
	dst.Title = dst.Title.Merge(src.Title)
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}

// applyEnvOverrides applies environment variables (highest priority).
func applyEnvOverrides(config *types.Config) {
	if v := os.Getenv("MODEL_API_KEY"); v != "" {
		config.Agent.APIKey = v
	}
	if v := os.Getenv("MODEL_BASE_URL"); v != "" {
		config.Agent.BaseURL = v
	}
	if v := os.Getenv("AGENT_MODEL"); v != "" {
		config.Agent.Model = v
	}
	if v := os.Getenv("AGENT_MODEL_PROVIDER"); v != "" {
		config.Agent.Provider = v
	}
	if v := os.Getenv("TITLE_MODEL"); v != "" {
		config.Title.Model = v
	}
	if v := os.Getenv("TITLE_MODEL_PROVIDER"); v != "" {
		config.Title.Provider = v
	}
	if v := os.Getenv("CHATTUTOR_DATA_DIR"); v != "" {
		config.DataDir = v
	}
	if v := os.Getenv("CHATTUTOR_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("CHATTUTOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Port = port
		}
	}
}

// applyDefaults fills fields no source provided.
func applyDefaults(config *types.Config) {
	if config.Agent.Provider == "" {
		config.Agent.Provider = "openai"
	}
	if config.DataDir == "" {
		config.DataDir = GetPaths().Data
	}
	if config.Port == 0 {
		config.Port = 8002
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}
