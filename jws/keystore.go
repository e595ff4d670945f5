package jws

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"sync"

	"github.com/brpix/pixverify/internal/metrics"
)

// ValidatedKey is a JWK that has passed the full trust pipeline of §4.5: its
// declared parameters match the leaf certificate's public key, and the
// certificate chains to a trust anchor published alongside it.
type ValidatedKey struct {
	JWK         Key
	Certificate *x509.Certificate
	RawKey      interface{}
}

// keyID is the (x5t, kid) composite used within a jku's inner map.
type keyID struct {
	X5T string
	KID string
}

// Store is the process-wide validated-key cache (C5): a read-mostly mapping
// jku -> (x5t, kid) -> ValidatedKey. Per design note §9, the inner map for a
// given jku is built once and installed as a whole via sync.Map.Store, so
// readers never take a lock and always see a fully-validated snapshot;
// concurrent writers for the same jku race and the last store wins.
type Store struct {
	jkus sync.Map // jku (string) -> map[keyID]ValidatedKey

	// Metrics is optional; when set, Lookup records cache hits and misses
	// against it. A nil Metrics is a silent no-op, not an error.
	Metrics *metrics.Metrics
}

// NewStore creates an empty validated-key store.
func NewStore() *Store {
	return &Store{}
}

// Lookup implements the query side of C5: the key formed from
// (header.jku, header.x5t, header.kid).
func (s *Store) Lookup(h *Header) (ValidatedKey, bool) {
	v, ok := s.jkus.Load(h.JKU)
	if !ok {
		s.recordLookup(h.JKU, false)
		return ValidatedKey{}, false
	}
	inner := v.(map[keyID]ValidatedKey)
	vk, ok := inner[keyID{X5T: h.X5T, KID: h.KID}]
	s.recordLookup(h.JKU, ok)
	return vk, ok
}

func (s *Store) recordLookup(jku string, hit bool) {
	if s.Metrics == nil {
		return
	}
	if hit {
		s.Metrics.KeyStoreHitsTotal.WithLabelValues(jku).Inc()
	} else {
		s.Metrics.KeyStoreMissesTotal.WithLabelValues(jku).Inc()
	}
}

// ProcessKeys validates every key in ks against its x5c chain and the jku
// host binding; this is all-or-nothing for the batch (§4.5 step 6). Only
// when every key validates does it atomically install the resulting map
// under jku, replacing any previous entry.
func (s *Store) ProcessKeys(ks *KeySet, jku string) error {
	authority, err := jkuAuthority(jku)
	if err != nil {
		return err
	}

	inner := make(map[keyID]ValidatedKey, len(ks.Keys))
	for _, k := range ks.Keys {
		vk, err := validateKeyAgainstChain(k, authority)
		if err != nil {
			return err
		}
		inner[keyID{X5T: k.X5T, KID: k.Kid}] = vk
	}
	s.jkus.Store(jku, inner)
	return nil
}

// validateKeyAgainstChain runs the per-key pipeline of §4.5 steps 1-5.
func validateKeyAgainstChain(k Key, authority string) (ValidatedKey, error) {
	if len(k.X5C) < 2 {
		return ValidatedKey{}, ErrX5CTooShort
	}

	certs := make([]*x509.Certificate, 0, len(k.X5C))
	for _, b64 := range k.X5C {
		der, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return ValidatedKey{}, ErrInvalidCertEncoding
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return ValidatedKey{}, ErrInvalidCertificateEncoding
		}
		certs = append(certs, cert)
	}

	// x5c is ordered leaf-first; reverse so the last entry (root) anchors
	// trust and the rest form the chain down to the leaf (design note:
	// divergence from RFC 7517 §4.7, kept for compatibility with the source).
	reversed := make([]*x509.Certificate, len(certs))
	for i, c := range certs {
		reversed[len(certs)-1-i] = c
	}
	root := reversed[0]
	chainToLeaf := reversed[1:]
	leaf := chainToLeaf[len(chainToLeaf)-1]

	roots := x509.NewCertPool()
	roots.AddCert(root)
	intermediates := x509.NewCertPool()
	for _, c := range chainToLeaf[:len(chainToLeaf)-1] {
		intermediates.AddCert(c)
	}

	if _, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}); err != nil {
		return ValidatedKey{}, fmt.Errorf("jws: certificate chain validation: %w", err)
	}

	thumbprint := sha1Thumbprint(leaf)
	if thumbprint != k.X5T {
		return ValidatedKey{}, ErrThumbprintMismatch
	}
	if !hostBindingMatches(leaf, authority) {
		return ValidatedKey{}, ErrHostBindingMismatch
	}

	chainParams, err := declaredParamsFromPublicKey(leaf.PublicKey)
	if err != nil {
		return ValidatedKey{}, err
	}
	if !paramsEqual(k.DeclaredParams(), chainParams) {
		return ValidatedKey{}, ErrKeyMismatch
	}

	return ValidatedKey{JWK: k, Certificate: leaf, RawKey: leaf.PublicKey}, nil
}

// sha1Thumbprint computes the leaf certificate's SHA-1 thumbprint,
// url-base64 encoded without padding.
func sha1Thumbprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// hostBindingMatches requires an exact match between authority and either
// the certificate's subject CN or a SAN dNSName; no normalization is
// applied — this is a security boundary, per design note §9.
func hostBindingMatches(cert *x509.Certificate, authority string) bool {
	if authority == cert.Subject.CommonName {
		return true
	}
	for _, dns := range cert.DNSNames {
		if dns == authority {
			return true
		}
	}
	return false
}

// jkuAuthority parses rawJKU and returns its authority component, including
// any userinfo and port, exactly as it appears (no normalization).
func jkuAuthority(rawJKU string) (string, error) {
	u, err := url.Parse(rawJKU)
	if err != nil {
		return "", fmt.Errorf("jws: parsing jku: %w", err)
	}
	if u.User != nil {
		return u.User.String() + "@" + u.Host, nil
	}
	return u.Host, nil
}

// declaredParamsFromPublicKey renders a certificate's public key into the
// same {kty, n, e} / {kty, crv, x, y} shape as Key.DeclaredParams, for the
// K_declared == K_chain equality check.
func declaredParamsFromPublicKey(pub interface{}) (map[string]string, error) {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		return map[string]string{
			"kty": "RSA",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}, nil
	case *ecdsa.PublicKey:
		crv, err := curveName(key.Curve)
		if err != nil {
			return nil, err
		}
		size := (key.Curve.Params().BitSize + 7) / 8
		return map[string]string{
			"kty": "EC",
			"crv": crv,
			"x":   base64.RawURLEncoding.EncodeToString(padBigInt(key.X, size)),
			"y":   base64.RawURLEncoding.EncodeToString(padBigInt(key.Y, size)),
		}, nil
	default:
		return nil, fmt.Errorf("jws: unsupported certificate public key type %T", pub)
	}
}

func curveName(curve elliptic.Curve) (string, error) {
	switch curve {
	case elliptic.P256():
		return "P-256", nil
	case elliptic.P384():
		return "P-384", nil
	case elliptic.P521():
		return "P-521", nil
	default:
		return "", fmt.Errorf("jws: unsupported EC curve")
	}
}

func padBigInt(n *big.Int, size int) []byte {
	b := n.Bytes()
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

func paramsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
