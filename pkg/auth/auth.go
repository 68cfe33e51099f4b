package auth

import (
	"errors"
)

// ErrInvalidCA is returned when a CA bundle contains no usable certificate.
var ErrInvalidCA = errors.New("invalid CA certificate")

// TLSConfig holds transport security settings for peer connections.
type TLSConfig struct {
	Enabled           bool   `json:"enabled" yaml:"enabled"`
	CAPath            string `json:"ca_cert" yaml:"ca_cert"`
	CertPath          string `json:"cert" yaml:"cert"`
	KeyPath           string `json:"key" yaml:"key"`
	RequireClientAuth bool   `json:"require_client_auth" yaml:"require_client_auth"`
	ServerName        string `json:"server_name,omitempty" yaml:"server_name,omitempty"`
	MinTLSVersion     string `json:"min_tls_version,omitempty" yaml:"min_tls_version,omitempty"`
}

// DefaultTLSConfig returns TLS disabled with a 1.2 floor.
func DefaultTLSConfig() *TLSConfig {
	return &TLSConfig{
		Enabled:       false,
		MinTLSVersion: "1.2",
	}
}

// Validate checks if the TLS configuration is usable.
func (c *TLSConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	if c.CAPath == "" {
		return errors.New("CA certificate path is required when TLS is enabled")
	}

	if c.CertPath == "" || c.KeyPath == "" {
		return errors.New("certificate and key paths are required when TLS is enabled")
	}

	switch c.MinTLSVersion {
	case "", "1.2", "1.3":
	default:
		return errors.New("min_tls_version must be 1.2 or 1.3")
	}

	return nil
}
