package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CLINICALEVAL_"

const maxConfigFileSize = 1024 * 1024

// sections are the nested keys; any other variable maps to a top-level key.
var sections = map[string]bool{
	"log":        true,
	"redis":      true,
	"temporal":   true,
	"extraction": true,
	"events":     true,
}

// Load starts from DefaultConfig, overlays the file at path (when path is
// non-empty) and then CLINICALEVAL_* variables, and validates the result.
//
//	CLINICALEVAL_SAMPLES_DIR    -> samples_dir
//	CLINICALEVAL_REDIS_ADDR     -> redis.addr
//	CLINICALEVAL_LOG_LEVEL      -> log.level
//	CLINICALEVAL_TEMPORAL_TASK_QUEUE -> temporal.task_queue
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		// YAML is a superset of JSON, so one parser serves both extensions.
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps CLINICALEVAL_REDIS_KEY_PREFIX to redis.key_prefix. Only the
// first segment after the prefix may name a section.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 2 && sections[parts[0]] {
		return parts[0] + "." + parts[1]
	}
	return lower
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
