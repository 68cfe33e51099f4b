package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"articlesync/pkg/auth"
	"articlesync/pkg/federation"
	"articlesync/pkg/storage"
	"articlesync/pkg/types"
	"articlesync/pkg/utils"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddress  = ":8131"
	DefaultFetchTimeout   = 10 * time.Second
	DefaultMaxMessageSize = 4 * 1024 * 1024
)

type Config struct {
	InstanceID     string          `json:"instance_id" yaml:"instance_id"`
	ListenAddress  string          `json:"listen_address" yaml:"listen_address"`
	MetricsAddress string          `json:"metrics_address,omitempty" yaml:"metrics_address,omitempty"`
	MergePolicy    string          `json:"merge_policy,omitempty" yaml:"merge_policy,omitempty"`
	Concurrency    int             `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	MaxMessageSize string          `json:"max_message_size,omitempty" yaml:"max_message_size,omitempty"`
	FetchTimeout   string          `json:"fetch_timeout,omitempty" yaml:"fetch_timeout,omitempty"`
	Compress       bool            `json:"compress,omitempty" yaml:"compress,omitempty"`
	ArticlesFile   string          `json:"articles_file,omitempty" yaml:"articles_file,omitempty"`
	Peers          []PeerConfig    `json:"peers,omitempty" yaml:"peers,omitempty"`
	TLS            *auth.TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

type PeerConfig struct {
	InstanceID string `json:"instance_id" yaml:"instance_id"`
	Address    string `json:"address" yaml:"address"`
}

// LoadConfig reads a JSON or YAML (by extension) config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseConfig(data, isYAML(path))
	if err != nil {
		return nil, err
	}

	// Relative seed paths are resolved against the config file.
	if cfg.ArticlesFile != "" && !filepath.IsAbs(cfg.ArticlesFile) {
		cfg.ArticlesFile = filepath.Join(filepath.Dir(path), cfg.ArticlesFile)
	}
	return cfg, nil
}

// ParseConfig decodes data, applies defaults and validates the result.
func ParseConfig(data []byte, asYAML bool) (*Config, error) {
	var cfg Config
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from ARTICLESYNC_* variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		InstanceID:     getEnv("ARTICLESYNC_INSTANCE_ID", ""),
		ListenAddress:  getEnv("ARTICLESYNC_LISTEN_ADDRESS", DefaultListenAddress),
		MetricsAddress: getEnv("ARTICLESYNC_METRICS_ADDRESS", ""),
		MergePolicy:    getEnv("ARTICLESYNC_MERGE_POLICY", ""),
		MaxMessageSize: getEnv("ARTICLESYNC_MAX_MESSAGE_SIZE", ""),
		FetchTimeout:   getEnv("ARTICLESYNC_FETCH_TIMEOUT", ""),
		ArticlesFile:   getEnv("ARTICLESYNC_ARTICLES_FILE", ""),
	}

	if v := getEnv("ARTICLESYNC_CONCURRENCY", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ARTICLESYNC_CONCURRENCY: %w", err)
		}
		cfg.Concurrency = n
	}
	cfg.Compress = getEnv("ARTICLESYNC_COMPRESS", "") == "true"

	// Format: https://beta.example=beta.internal:8131,https://gamma.example=10.0.0.3:8131
	if peers := getEnv("ARTICLESYNC_PEERS", ""); peers != "" {
		for _, entry := range strings.Split(peers, ",") {
			parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("invalid peer format: %s (expected instance_id=address)", entry)
			}
			cfg.Peers = append(cfg.Peers, PeerConfig{InstanceID: parts[0], Address: parts[1]})
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if c.TLS == nil {
		c.TLS = auth.DefaultTLSConfig()
	}
}

// Validate checks the config for values that cannot work.
func (c *Config) Validate() error {
	if _, err := federation.ParseIdentity(c.InstanceID); err != nil {
		return fmt.Errorf("instance_id: %w", err)
	}
	if _, err := storage.ParseMergePolicy(c.MergePolicy); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative")
	}
	if _, err := c.MessageSize(); err != nil {
		return fmt.Errorf("max_message_size: %w", err)
	}
	if _, err := c.Timeout(); err != nil {
		return fmt.Errorf("fetch_timeout: %w", err)
	}
	for i, p := range c.Peers {
		if _, err := federation.ParseIdentity(p.InstanceID); err != nil {
			return fmt.Errorf("peers[%d].instance_id: %w", i, err)
		}
		if p.Address == "" {
			return fmt.Errorf("peers[%d].address cannot be empty", i)
		}
	}
	return c.TLS.Validate()
}

// Instance returns the local instance.
func (c *Config) Instance() types.Instance {
	return types.Instance{ID: c.InstanceID, Local: true}
}

// Policy returns the parsed merge policy.
func (c *Config) Policy() storage.MergePolicy {
	p, _ := storage.ParseMergePolicy(c.MergePolicy)
	return p
}

// MessageSize returns the gRPC message size limit in bytes.
func (c *Config) MessageSize() (int, error) {
	return utils.ParseMessageSize(c.MaxMessageSize, DefaultMaxMessageSize)
}

// Timeout returns the per-fetch timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.FetchTimeout == "" {
		return DefaultFetchTimeout, nil
	}
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %s", c.FetchTimeout)
	}
	return d, nil
}

// FederationPeers converts the configured peers.
func (c *Config) FederationPeers() []federation.Peer {
	peers := make([]federation.Peer, 0, len(c.Peers))
	for _, p := range c.Peers {
		peers = append(peers, federation.Peer{
			Instance: types.Instance{ID: p.InstanceID},
			Address:  p.Address,
		})
	}
	return peers
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
