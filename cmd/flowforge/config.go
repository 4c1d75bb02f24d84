package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all flowforge server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	DBPath     string `json:"db_path"`
	LogLevel   string `json:"log_level"`
	LLMIP      string `json:"llm_ip"`
	LLMPort    int    `json:"llm_port"`
	Scheduler  bool   `json:"scheduler"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr: ":4200",
		DBPath:     filepath.Join(flowforgeDir(), "flowforge.db"),
		LogLevel:   "info",
		Scheduler:  true,
	}
}

func flowforgeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowforge"
	}
	return filepath.Join(home, ".flowforge")
}

func settingsPath() string {
	return filepath.Join(flowforgeDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("FLOWFORGE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("FLOWFORGE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FLOWFORGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	// LLM_IP/LLM_PORT are the names the model containers export; the
	// FLOWFORGE_ prefixed forms win when both are set.
	for _, name := range []string{"LLM_IP", "FLOWFORGE_LLM_IP"} {
		if v := os.Getenv(name); v != "" {
			cfg.LLMIP = v
		}
	}
	for _, name := range []string{"LLM_PORT", "FLOWFORGE_LLM_PORT"} {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				cfg.LLMPort = n
			}
		}
	}
	if v := os.Getenv("FLOWFORGE_SCHEDULER"); v != "" {
		cfg.Scheduler = v == "true" || v == "1"
	}

	return cfg
}
