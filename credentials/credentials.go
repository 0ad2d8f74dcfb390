// Package credentials loads backend API keys and keeps them in a rotating pool.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
)

// ErrInsecurePermissions is returned when credentials file has overly permissive permissions.
var ErrInsecurePermissions = fmt.Errorf("credentials file has insecure permissions")

// Credentials holds API key lists loaded from credentials.toml, one list per
// provider section plus the generic [llm] section.
type Credentials struct {
	// LLM is the generic key list (used when no provider-specific section exists)
	LLM []string

	providers map[string][]string
}

// StandardPaths returns the standard credential file locations in order of priority
func StandardPaths() []string {
	paths := []string{"credentials.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "relaykit", "credentials.toml"),
			filepath.Join(home, ".relaykit", "credentials.toml"),
		)
	}

	return paths
}

// Load loads credentials from the first available standard location
func Load() (*Credentials, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			creds, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return creds, path, nil
		}
	}
	return nil, "", nil // No credentials file found (not an error)
}

// LoadFile loads credentials from a specific file.
// Each section may carry `api_key` (one key), `api_keys` (a list), or both.
// Returns ErrInsecurePermissions if file is readable by group or others.
func LoadFile(path string) (*Credentials, error) {
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		mode := info.Mode().Perm()
		// Credentials must be 0400 (owner read-only)
		if mode != 0400 {
			return nil, fmt.Errorf("%w: %s has mode %04o (must be 0400)",
				ErrInsecurePermissions, path, mode)
		}
	}

	var rawData map[string]interface{}
	if _, err := toml.DecodeFile(path, &rawData); err != nil {
		return nil, err
	}

	creds := &Credentials{
		providers: make(map[string][]string),
	}

	for name, value := range rawData {
		section, ok := value.(map[string]interface{})
		if !ok {
			continue
		}

		keys := sectionKeys(section)
		if len(keys) == 0 {
			continue
		}

		if name == "llm" {
			creds.LLM = keys
		} else {
			creds.providers[name] = keys
		}
	}

	return creds, nil
}

func sectionKeys(section map[string]interface{}) []string {
	var keys []string
	if single, ok := section["api_key"].(string); ok {
		keys = append(keys, single)
	}
	if list, ok := section["api_keys"].([]interface{}); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				keys = append(keys, s)
			}
		}
	}
	return normalizeKeys(keys)
}

// Keys returns the key list for a provider.
// Priority: [provider] section > [llm] section > environment variable.
func (c *Credentials) Keys(provider string) []string {
	if c != nil {
		normalized := strings.ToLower(strings.ReplaceAll(provider, "-", ""))

		if keys, ok := c.providers[provider]; ok && len(keys) > 0 {
			return keys
		}
		if keys, ok := c.providers[normalized]; ok && len(keys) > 0 {
			return keys
		}

		if len(c.LLM) > 0 {
			return c.LLM
		}
	}

	return ParseKeyList(os.Getenv(EnvVarForProvider(provider)))
}

// ParseKeyList splits a comma-separated key list, trimming each key and
// dropping blanks and duplicates.
func ParseKeyList(s string) []string {
	return normalizeKeys(strings.Split(s, ","))
}

func normalizeKeys(keys []string) []string {
	trimmed := lo.Map(keys, func(k string, _ int) string {
		return strings.TrimSpace(k)
	})
	return lo.Uniq(lo.Compact(trimmed))
}

// EnvVarForProvider returns the environment variable name for a provider.
func EnvVarForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	default:
		// Generic: PROVIDER_API_KEY
		return strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
	}
}
