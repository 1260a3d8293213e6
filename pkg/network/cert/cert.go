// Package cert issues and checks the self-signed certificates that bind a
// QUIC peer to the ed25519 key it signs transactions with.
package cert

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base32"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

const (
	// DNSNamePrefix is prepended to the encoded key in the certificate DNS name.
	DNSNamePrefix = "h"
	// DNSNameLength is the prefix plus the unpadded base32 form of 32 bytes.
	DNSNameLength = 53

	DefaultValidity = 365 * 24 * time.Hour
)

var (
	ErrNotEd25519      = errors.New("certificate key is not ed25519")
	ErrDNSName         = errors.New("certificate DNS name does not encode its key")
	ErrNotYetValid     = errors.New("certificate is not yet valid")
	ErrExpired         = errors.New("certificate has expired")
	ErrNoPeerCert      = errors.New("no peer certificate presented")
	ErrInvalidKeyBytes = errors.New("invalid ed25519 key length")
)

var base32Encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Generator creates certificates for a single wallet key.
type Generator struct {
	key      ed25519.PrivateKey
	validity time.Duration
	now      func() time.Time
}

// NewGenerator accepts a solana keypair, which shares the ed25519 layout.
func NewGenerator(wallet solana.PrivateKey, validity time.Duration) (*Generator, error) {
	if len(wallet) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeyBytes
	}
	if validity == 0 {
		validity = DefaultValidity
	}
	return &Generator{key: ed25519.PrivateKey(wallet), validity: validity, now: time.Now}, nil
}

// Generate returns a self-signed certificate usable for both client and
// server authentication.
func (g *Generator) Generate() (*tls.Certificate, error) {
	pub := g.key.Public().(ed25519.PublicKey)
	dnsName := EncodePubKeyToDNS(pub)

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}

	now := g.now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: dnsName},
		DNSNames:              []string{dnsName},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(g.validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		SignatureAlgorithm:    x509.PureEd25519,
		PublicKeyAlgorithm:    x509.Ed25519,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, g.key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return &tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  g.key,
		Leaf:        leaf,
	}, nil
}

// Validator checks peer certificates.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

func (v *Validator) Validate(c *x509.Certificate) error {
	if c.SignatureAlgorithm != x509.PureEd25519 {
		return fmt.Errorf("%w: signature algorithm %s", ErrNotEd25519, c.SignatureAlgorithm)
	}
	pub, ok := c.PublicKey.(ed25519.PublicKey)
	if !ok {
		return ErrNotEd25519
	}
	if len(c.DNSNames) != 1 {
		return fmt.Errorf("%w: want exactly one DNS name, got %d", ErrDNSName, len(c.DNSNames))
	}
	name := c.DNSNames[0]
	if len(name) != DNSNameLength || !strings.HasPrefix(name, DNSNamePrefix) || name != EncodePubKeyToDNS(pub) {
		return fmt.Errorf("%w: %s", ErrDNSName, name)
	}
	if c.CheckSignature(c.SignatureAlgorithm, c.RawTBSCertificate, c.Signature) != nil {
		return fmt.Errorf("certificate is not self-signed by its key")
	}

	now := v.now()
	if now.Before(c.NotBefore) {
		return ErrNotYetValid
	}
	if now.After(c.NotAfter) {
		return ErrExpired
	}
	return nil
}

// Signer returns the wallet key a validated certificate was issued for.
func (v *Validator) Signer(c *x509.Certificate) (solana.PublicKey, error) {
	pub, ok := c.PublicKey.(ed25519.PublicKey)
	if !ok || len(pub) != ed25519.PublicKeySize {
		return solana.PublicKey{}, ErrNotEd25519
	}
	return solana.PublicKeyFromBytes(pub), nil
}

// PeerSigner validates the first certificate of a TLS handshake and returns
// its signer key.
func (v *Validator) PeerSigner(cs tls.ConnectionState) (solana.PublicKey, error) {
	if len(cs.PeerCertificates) == 0 {
		return solana.PublicKey{}, ErrNoPeerCert
	}
	c := cs.PeerCertificates[0]
	if err := v.Validate(c); err != nil {
		return solana.PublicKey{}, err
	}
	return v.Signer(c)
}

// EncodePubKeyToDNS renders "h" followed by the lowercase base32 key.
func EncodePubKeyToDNS(pub ed25519.PublicKey) string {
	return DNSNamePrefix + base32Encoding.EncodeToString(pub)
}
