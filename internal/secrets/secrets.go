// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognized key files and the configuration keys they seed are listed in ConfigKeys.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ConfigKeys maps secret file names to the configuration keys they provide
// defaults for.
var ConfigKeys = map[string]string{
	"openai-api-key":      "ai.api_key",
	"ghost-admin-api-key": "ghost.admin_key",
	"google-api-key":      "verify.google_api_key",
	"google-cse-id":       "verify.google_cse_id",
	"brave-api-key":       "verify.brave_api_key",
	"github-token":        "verify.github_token",
	"smtp-password":       "report.smtp_password",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are skipped and reported through warn when it is non-nil.
func Load(dir string, warn func(name string, err error)) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if warn != nil {
				warn(name, err)
			}
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply calls setDefault for every loaded secret that has a configuration
// key, and returns the secret names applied in sorted order. Unknown files
// are ignored.
func Apply(secrets map[string]string, setDefault func(key string, value any)) []string {
	var applied []string
	for name, value := range secrets {
		key, ok := ConfigKeys[name]
		if !ok {
			continue
		}
		setDefault(key, value)
		applied = append(applied, name)
	}
	sort.Strings(applied)
	return applied
}
