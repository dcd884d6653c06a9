/*
Package config provides type-safe configuration extraction from
map[string]any, plus the sagaflow-specific EngineSettings layer built
on top of it.

# Overview

Config wraps a map[string]any and provides typed accessor methods that
handle missing keys and type mismatches gracefully by returning default
values. This is useful for extracting configuration values from
YAML/JSON structures without verbose type assertions and nil checks.

# Basic usage

	cfg := config.New(map[string]any{
	    "timeout": "30s",
	    "retries": 3,
	})

	timeout := cfg.Duration("timeout", 10*time.Second) // 30s
	retries := cfg.Int("retries", 5)                   // 3
	missing := cfg.String("missing", "default")        // "default"

# File loading

	cfg, err := config.FromFile("sagaflow.yaml")

# Engine settings

LoadEngineSettings reads the engine's runtime knobs (store backend,
broker, transaction manager, observability toggles) from a Config,
falling back to DefaultEngineSettings() for anything absent:

	cfg, _ := config.FromFile("sagaflow.yaml")
	settings, err := config.LoadEngineSettings(cfg)
*/
package config
