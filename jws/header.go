package jws

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Header is the decoded and validated JWS protected header (C3).
type Header struct {
	JKU string
	KID string
	X5T string
	Alg string
}

// supportedAlgorithms is the non-HMAC whitelist: RS/PS/ES at 256/384/512.
var supportedAlgorithms = map[string]bool{
	"RS256": true, "RS384": true, "RS512": true,
	"PS256": true, "PS384": true, "PS512": true,
	"ES256": true, "ES384": true, "ES512": true,
}

var rejectedAlgorithms = map[string]bool{
	"none": true, "HS256": true, "HS384": true, "HS512": true,
}

// ParseHeader peeks a compact-serialization JWS's protected header without
// verifying its signature, then casts and validates it (C3 step 2 of the
// loader protocol, §4.6).
func ParseHeader(token string) (*Header, error) {
	parser := jwt.NewParser()
	t, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("jws: parsing token header: %w", err)
	}
	return castHeader(t.Header)
}

// castHeader validates a decoded JSON header object per §4.3: jku, kid, x5t
// and alg are all required; alg must be exactly 5 characters and outside the
// rejected set; jku is normalized to https:// if no scheme is present, then
// its scheme must be https.
func castHeader(m map[string]interface{}) (*Header, error) {
	var errs []FieldError
	add := func(field, msg string) { errs = append(errs, FieldError{Field: field, Message: msg}) }

	getString := func(key string) (string, bool) {
		v, ok := m[key]
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}

	alg, ok := getString("alg")
	switch {
	case !ok || alg == "":
		add("alg", "is required")
	case len(alg) != 5:
		add("alg", "must be exactly 5 characters")
	case rejectedAlgorithms[alg]:
		add("alg", fmt.Sprintf("%q is not an accepted signing algorithm", alg))
	}

	kid, ok := getString("kid")
	if !ok || kid == "" {
		add("kid", "is required")
	}

	x5t, ok := getString("x5t")
	if !ok || x5t == "" {
		add("x5t", "is required")
	}

	jkuRaw, ok := getString("jku")
	var jku string
	if !ok || jkuRaw == "" {
		add("jku", "is required")
	} else {
		jku = normalizeJKU(jkuRaw)
		u, err := url.Parse(jku)
		if err != nil || u.Scheme != "https" {
			add("jku", "scheme must be https")
		}
	}

	if len(errs) > 0 {
		return nil, newValidationError(errs)
	}
	return &Header{JKU: jku, KID: kid, X5T: x5t, Alg: alg}, nil
}

// normalizeJKU prepends "https://" when raw carries no scheme, per §4.3.
func normalizeJKU(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

// algorithmCompatibleWithKeyType implements the EC/RSA alg whitelist of §4.6
// step 5.
func algorithmCompatibleWithKeyType(alg, kty string) bool {
	switch kty {
	case "EC":
		switch alg {
		case "ES256", "ES384", "ES512":
			return true
		}
	case "RSA":
		switch alg {
		case "PS256", "PS384", "PS512", "RS256", "RS384", "RS512":
			return true
		}
	}
	return false
}
