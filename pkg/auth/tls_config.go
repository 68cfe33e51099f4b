package auth

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// TLSConfigBuilder builds server and client TLS settings from a TLSConfig.
type TLSConfigBuilder struct {
	config *TLSConfig
}

// NewTLSConfigBuilder validates config and returns a builder for it.
func NewTLSConfigBuilder(config *TLSConfig) (*TLSConfigBuilder, error) {
	if config == nil {
		config = DefaultTLSConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TLSConfigBuilder{config: config}, nil
}

// BuildServerConfig returns nil when TLS is disabled.
func (b *TLSConfigBuilder) BuildServerConfig() (*tls.Config, error) {
	if !b.config.Enabled {
		return nil, nil
	}

	// Load server certificate and key
	cert, err := tls.LoadX509KeyPair(b.config.CertPath, b.config.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   b.minVersion(),
	}

	// Setup client authentication if required
	if b.config.RequireClientAuth {
		pool, err := loadCAPool(b.config.CAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client CA pool: %w", err)
		}
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		tlsConfig.ClientCAs = pool
	}

	return tlsConfig, nil
}

// BuildClientConfig returns nil when TLS is disabled.
func (b *TLSConfigBuilder) BuildClientConfig() (*tls.Config, error) {
	if !b.config.Enabled {
		return nil, nil
	}

	// Trust peers signed by the configured CA
	pool, err := loadCAPool(b.config.CAPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA pool: %w", err)
	}

	tlsConfig := &tls.Config{
		RootCAs:    pool,
		MinVersion: b.minVersion(),
		ServerName: b.config.ServerName,
	}

	// Present our certificate for mutual TLS
	cert, err := tls.LoadX509KeyPair(b.config.CertPath, b.config.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}
	tlsConfig.Certificates = []tls.Certificate{cert}

	return tlsConfig, nil
}

// ServerCredentials returns gRPC server credentials, or nil for plaintext.
func (b *TLSConfigBuilder) ServerCredentials() (credentials.TransportCredentials, error) {
	tlsConfig, err := b.BuildServerConfig()
	if err != nil || tlsConfig == nil {
		return nil, err
	}
	return credentials.NewTLS(tlsConfig), nil
}

// ClientCredentials returns gRPC client credentials; insecure when disabled.
func (b *TLSConfigBuilder) ClientCredentials() (credentials.TransportCredentials, error) {
	tlsConfig, err := b.BuildClientConfig()
	if err != nil {
		return nil, err
	}
	if tlsConfig == nil {
		return insecure.NewCredentials(), nil
	}
	return credentials.NewTLS(tlsConfig), nil
}

func (b *TLSConfigBuilder) minVersion() uint16 {
	if b.config.MinTLSVersion == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func loadCAPool(path string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCA, path)
	}
	return pool, nil
}
