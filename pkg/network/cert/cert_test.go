package cert

import (
	"crypto/ed25519"
	"crypto/tls"
	"crypto/x509"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCert(t *testing.T, validity time.Duration) (solana.PrivateKey, *tls.Certificate) {
	t.Helper()
	wallet, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	g, err := NewGenerator(wallet, validity)
	require.NoError(t, err)
	c, err := g.Generate()
	require.NoError(t, err)
	return wallet, c
}

func TestGenerateAndValidate(t *testing.T) {
	wallet, c := newCert(t, time.Hour)

	v := NewValidator()
	require.NoError(t, v.Validate(c.Leaf))

	signer, err := v.Signer(c.Leaf)
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey(), signer)

	require.Len(t, c.Leaf.DNSNames, 1)
	assert.Len(t, c.Leaf.DNSNames[0], DNSNameLength)
	assert.Equal(t, byte('h'), c.Leaf.DNSNames[0][0])
}

func TestParseDER(t *testing.T) {
	_, c := newCert(t, time.Hour)
	parsed, err := x509.ParseCertificate(c.Certificate[0])
	require.NoError(t, err)
	assert.NoError(t, NewValidator().Validate(parsed))
}

func TestValidateRejectsSwappedKey(t *testing.T) {
	_, c := newCert(t, time.Hour)
	other, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	c.Leaf.PublicKey = other

	assert.ErrorIs(t, NewValidator().Validate(c.Leaf), ErrDNSName)
}

func TestValidateRejectsExtraDNSNames(t *testing.T) {
	_, c := newCert(t, time.Hour)
	c.Leaf.DNSNames = append(c.Leaf.DNSNames, "localhost")
	assert.ErrorIs(t, NewValidator().Validate(c.Leaf), ErrDNSName)
}

func TestValidateWindow(t *testing.T) {
	_, c := newCert(t, time.Hour)

	v := NewValidator()
	v.now = func() time.Time { return c.Leaf.NotAfter.Add(time.Second) }
	assert.ErrorIs(t, v.Validate(c.Leaf), ErrExpired)

	v.now = func() time.Time { return c.Leaf.NotBefore.Add(-time.Second) }
	assert.ErrorIs(t, v.Validate(c.Leaf), ErrNotYetValid)
}

func TestPeerSigner(t *testing.T) {
	wallet, c := newCert(t, time.Hour)
	v := NewValidator()

	_, err := v.PeerSigner(tls.ConnectionState{})
	assert.ErrorIs(t, err, ErrNoPeerCert)

	signer, err := v.PeerSigner(tls.ConnectionState{PeerCertificates: []*x509.Certificate{c.Leaf}})
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey(), signer)
}

func TestNewGeneratorRejectsShortKey(t *testing.T) {
	_, err := NewGenerator(solana.PrivateKey{1, 2, 3}, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidKeyBytes)
}
