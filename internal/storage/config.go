package storage

import (
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backend config maps are flat string key-values coming from the config
// file or CLI flags. The helpers here parse them with per-field errors
// so a misconfigured backend names the exact offending key.

// GetString returns the value for key, or fallback when absent or empty.
func GetString(config map[string]string, key, fallback string) string {
	if v := config[key]; v != "" {
		return v
	}
	return fallback
}

// GetBool parses a boolean field. Besides strconv forms it accepts
// yes/no, since hand-written config files use them.
func GetBool(config map[string]string, key string, fallback bool) (bool, error) {
	v := config[key]
	if v == "" {
		return fallback, nil
	}

	switch strings.ToLower(v) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ConfigError{
			Field:   key,
			Value:   v,
			Message: "must be a boolean (true/false, 1/0, yes/no)",
			Cause:   err,
		}
	}
	return b, nil
}

// GetInt parses an integer field.
func GetInt(config map[string]string, key string, fallback int) (int, error) {
	v := config[key]
	if v == "" {
		return fallback, nil
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{
			Field:   key,
			Value:   v,
			Message: "must be an integer",
			Cause:   err,
		}
	}
	return i, nil
}

// GetInt64 parses a 64-bit integer field, used for byte-size options.
func GetInt64(config map[string]string, key string, fallback int64) (int64, error) {
	v := config[key]
	if v == "" {
		return fallback, nil
	}

	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &ConfigError{
			Field:   key,
			Value:   v,
			Message: "must be an integer",
			Cause:   err,
		}
	}
	return i, nil
}

// GetDuration parses a duration field in time.ParseDuration form.
func GetDuration(config map[string]string, key string, fallback time.Duration) (time.Duration, error) {
	v := config[key]
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &ConfigError{
			Field:   key,
			Value:   v,
			Message: "must be a duration (e.g. 30s, 5m)",
			Cause:   err,
		}
	}
	return d, nil
}

// ExpandPath resolves a leading ~ against the user's home directory and
// cleans the result.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return filepath.Clean(path)
}

// MergeConfig overlays src onto dst without mutating either.
func MergeConfig(dst, src map[string]string) map[string]string {
	out := make(map[string]string, len(dst)+len(src))
	maps.Copy(out, dst)
	maps.Copy(out, src)
	return out
}
