// Package config persists and loads a Container's config.json. The file is
// written once at init and is read-only thereafter (spec.md §3.1, §6.2).
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/contentstore/cas/internal/codec"
	"github.com/google/uuid"
)

// FileName is the config file's name under a container's root directory.
const FileName = "config.json"

// Defaults, per spec.md §3.1.
const (
	DefaultLoosePrefixLen       = 2
	DefaultPackSizeTarget int64 = 4 * 1024 * 1024 * 1024 // 4 GiB
	DefaultHashType             = "sha256"
	DefaultCompressionAlgorithm = "zlib+1"
	CurrentContainerVersion     = 1
)

// Config is the bit-exact shape of config.json (spec.md §6.2). Unknown
// fields are ignored on read; missing fields fall back to the defaults
// above.
type Config struct {
	ContainerVersion     int    `json:"container_version"`
	LoosePrefixLen       int    `json:"loose_prefix_len"`
	PackSizeTarget       int64  `json:"pack_size_target"`
	HashType             string `json:"hash_type"`
	CompressionAlgorithm string `json:"compression_algorithm"`
	ContainerID          string `json:"container_id"`
}

// Default returns a Config with every field at its spec.md §3.1 default
// and a freshly generated container id.
func Default() Config {
	return Config{
		ContainerVersion:     CurrentContainerVersion,
		LoosePrefixLen:       DefaultLoosePrefixLen,
		PackSizeTarget:       DefaultPackSizeTarget,
		HashType:             DefaultHashType,
		CompressionAlgorithm: DefaultCompressionAlgorithm,
		ContainerID:          NewContainerID(),
	}
}

// NewContainerID returns a random UUID v4 as 32 lowercase hex characters,
// no dashes, per spec.md §3.1.
func NewContainerID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Load reads and parses config.json at path, applying defaults for any
// zero-valued field (covers both a missing file field and a partially
// hand-edited file).
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	c.ContainerID = "" // don't default-fill; a loaded config must carry its own id
	if err := json.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	return c, nil
}

func applyDefaults(c *Config) {
	if c.ContainerVersion == 0 {
		c.ContainerVersion = CurrentContainerVersion
	}
	if c.LoosePrefixLen == 0 {
		c.LoosePrefixLen = DefaultLoosePrefixLen
	}
	if c.PackSizeTarget == 0 {
		c.PackSizeTarget = DefaultPackSizeTarget
	}
	if c.HashType == "" {
		c.HashType = DefaultHashType
	}
	if c.CompressionAlgorithm == "" {
		c.CompressionAlgorithm = DefaultCompressionAlgorithm
	}
}

// Save writes c to path as indented JSON. Save does not create parent
// directories; the container init path is responsible for that.
func Save(path string, c Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks invariants config.json cannot violate silently, per
// spec.md §3.2.
func Validate(c Config) error {
	if c.LoosePrefixLen < 0 || c.LoosePrefixLen > 63 {
		return fmt.Errorf("config: loose_prefix_len %d out of range [0,63]", c.LoosePrefixLen)
	}
	if c.PackSizeTarget <= 0 {
		return fmt.Errorf("config: pack_size_target must be positive")
	}
	if c.HashType != "sha256" {
		return fmt.Errorf("config: unsupported hash_type %q", c.HashType)
	}
	if _, _, err := codec.ParseID(c.CompressionAlgorithm); err != nil {
		return fmt.Errorf("config: unsupported compression_algorithm %q: %w", c.CompressionAlgorithm, err)
	}
	return nil
}
