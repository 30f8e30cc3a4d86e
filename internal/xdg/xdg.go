// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

// Package xdg resolves XDG Base Directory paths for Threadboard.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "threadboard"

// ConfigFileName is the file looked up inside ConfigDir.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for threadboard.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns explicit when set. Otherwise it returns
// ConfigDir()/config.yaml if that file exists, or "" to run on flags and
// defaults alone.
func ConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidate := filepath.Join(ConfigDir(), ConfigFileName)
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}
