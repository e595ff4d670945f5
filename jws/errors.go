// Package jws implements the JWS/JWKS verification pipeline: parsing and
// validating the protected header (C3), parsing and validating a JWKS
// document (C4), the process-wide validated-key store (C5), and the dynamic
// PIX loader that orchestrates fetch-verify-parse over HTTP (C6).
package jws

import "errors"

// Transport and decode errors (§7).
var (
	// ErrHTTPStatus is returned when a GET response falls outside [200,300).
	ErrHTTPStatus = errors.New("jws: http_status_not_success")
	// ErrInvalidJWKSContents is returned when a JWKS response body is not a
	// JSON object.
	ErrInvalidJWKSContents = errors.New("jws: invalid_jwks_contents")
)

// Key/trust errors (§7), raised by the validated-key store (C5).
var (
	// ErrX5CTooShort is returned when a key's x5c chain has fewer than 2
	// entries; the source's trust model requires the PSP to publish its
	// root alongside the leaf (see design note on RFC 7517 §4.7 divergence).
	ErrX5CTooShort = errors.New("jws: x5c_must_have_more_than_one_cert")
	// ErrInvalidCertEncoding is returned when an x5c entry is not valid base64.
	ErrInvalidCertEncoding = errors.New("jws: invalid_cert_encoding")
	// ErrInvalidCertificateEncoding is returned when decoded x5c bytes do not
	// parse as an X.509 certificate.
	ErrInvalidCertificateEncoding = errors.New("jws: invalid_certificate_encoding")
	// ErrThumbprintMismatch is returned when the leaf certificate's SHA-1
	// thumbprint does not equal the key's declared x5t.
	ErrThumbprintMismatch = errors.New("jws: key_thumbprint_and_leaf_certificate_differ")
	// ErrKeyMismatch is returned when the declared JWK parameters differ from
	// the chain-validated leaf certificate's public key.
	ErrKeyMismatch = errors.New("jws: key_from_leaf_certificate_differ")
	// ErrHostBindingMismatch is returned when the jku authority matches
	// neither the leaf certificate's subject CN nor any SAN dNSName.
	ErrHostBindingMismatch = errors.New("jws: certificate_subject_and_jku_uri_authority_differs")
	// ErrKeyNotFoundInJKU is returned when a (jku, x5t, kid) lookup still
	// misses after a JWKS fetch and process_keys pass.
	ErrKeyNotFoundInJKU = errors.New("jws: key_not_found_in_jku")
)

// Verification errors (§7), raised by the loader (C6).
var (
	// ErrCertNotYetValid is returned when now < certificate.not_before.
	ErrCertNotYetValid = errors.New("jws: certificate_not_yet_valid")
	// ErrCertExpired is returned when now > certificate.not_after.
	ErrCertExpired = errors.New("jws: certificate_expired")
	// ErrInvalidSigningAlgorithm is returned when the header's alg is
	// incompatible with the resolved key's type.
	ErrInvalidSigningAlgorithm = errors.New("jws: invalid_token_signing_algorithm")
)
