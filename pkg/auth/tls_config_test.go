package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSelfSigned writes a self-signed Ed25519 CA certificate and key, and
// returns their paths.
func writeSelfSigned(t *testing.T, dir string) (string, string) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "alpha.example"},
		DNSNames:              []string{"alpha.example"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, priv)
	require.NoError(t, err)

	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "alpha.crt")
	keyPath := filepath.Join(dir, "alpha.key")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func TestTLSConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *TLSConfig
		wantErr bool
	}{
		{"nil", nil, false},
		{"disabled", DefaultTLSConfig(), false},
		{"missing ca", &TLSConfig{Enabled: true, CertPath: "c", KeyPath: "k"}, true},
		{"missing key", &TLSConfig{Enabled: true, CAPath: "ca", CertPath: "c"}, true},
		{"bad version", &TLSConfig{Enabled: true, CAPath: "ca", CertPath: "c", KeyPath: "k", MinTLSVersion: "1.0"}, true},
		{"complete", &TLSConfig{Enabled: true, CAPath: "ca", CertPath: "c", KeyPath: "k", MinTLSVersion: "1.3"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTLSConfigBuilderDisabled(t *testing.T) {
	b, err := NewTLSConfigBuilder(nil)
	require.NoError(t, err)

	server, err := b.BuildServerConfig()
	require.NoError(t, err)
	assert.Nil(t, server)

	creds, err := b.ServerCredentials()
	require.NoError(t, err)
	assert.Nil(t, creds)

	clientCreds, err := b.ClientCredentials()
	require.NoError(t, err)
	assert.Equal(t, "insecure", clientCreds.Info().SecurityProtocol)
}

func TestTLSConfigBuilderEnabled(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSigned(t, dir)

	b, err := NewTLSConfigBuilder(&TLSConfig{
		Enabled:           true,
		CAPath:            certPath,
		CertPath:          certPath,
		KeyPath:           keyPath,
		RequireClientAuth: true,
		MinTLSVersion:     "1.3",
	})
	require.NoError(t, err)

	server, err := b.BuildServerConfig()
	require.NoError(t, err)
	require.NotNil(t, server)
	assert.Len(t, server.Certificates, 1)
	assert.Equal(t, tls.RequireAndVerifyClientCert, server.ClientAuth)
	assert.Equal(t, uint16(tls.VersionTLS13), server.MinVersion)

	client, err := b.BuildClientConfig()
	require.NoError(t, err)
	assert.NotNil(t, client.RootCAs)
	assert.Len(t, client.Certificates, 1)

	creds, err := b.ClientCredentials()
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)
}

func TestTLSConfigBuilderBadCA(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeSelfSigned(t, dir)
	garbage := filepath.Join(dir, "garbage.crt")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))

	b, err := NewTLSConfigBuilder(&TLSConfig{Enabled: true, CAPath: garbage, CertPath: certPath, KeyPath: keyPath})
	require.NoError(t, err)

	_, err = b.BuildClientConfig()
	assert.ErrorIs(t, err, ErrInvalidCA)
}
