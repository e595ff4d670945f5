package jws

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"
)

// testChain is a self-signed root plus a leaf it issued, used across the
// store and loader tests to exercise the x5c trust pipeline (§4.5).
type testChain struct {
	rootCert *x509.Certificate
	leafCert *x509.Certificate
	leafKey  *rsa.PrivateKey
}

// buildTestChain creates a root CA and a leaf certificate with the given SAN
// DNS name, both RSA, mirroring createTestCertChain in the pack's trust
// evaluator tests.
func buildTestChain(t *testing.T, sanDNSName string) testChain {
	t.Helper()

	rootKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate root key: %v", err)
	}
	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test PIX Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("create root certificate: %v", err)
	}
	rootCert, err := x509.ParseCertificate(rootDER)
	if err != nil {
		t.Fatalf("parse root certificate: %v", err)
	}

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate leaf key: %v", err)
	}
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: sanDNSName},
		DNSNames:     []string{sanDNSName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, rootCert, &leafKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("create leaf certificate: %v", err)
	}
	leafCert, err := x509.ParseCertificate(leafDER)
	if err != nil {
		t.Fatalf("parse leaf certificate: %v", err)
	}

	return testChain{rootCert: rootCert, leafCert: leafCert, leafKey: leafKey}
}

// x5c returns the leaf-first base64-DER chain as required by §4.5 step 2.
func (c testChain) x5c() []string {
	return []string{
		base64.StdEncoding.EncodeToString(c.leafCert.Raw),
		base64.StdEncoding.EncodeToString(c.rootCert.Raw),
	}
}

// thumbprint returns the leaf's SHA-1 thumbprint, url-base64 without padding.
func (c testChain) thumbprint() string {
	sum := sha1.Sum(c.leafCert.Raw)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// declaredRSAParams returns the JWK n/e parameters for the leaf's own
// public key, matching the certificate exactly (K_declared == K_chain).
func (c testChain) declaredRSAParams() (n, e string) {
	pub := c.leafKey.PublicKey
	n = base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	e = base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	return n, e
}
