package jws

import (
	"encoding/json"
	"fmt"
)

// Key is a single validated JWKS entry (C4).
type Key struct {
	Kty     string
	Kid     string
	X5T     string
	X5C     []string
	KeyOps  []string
	Use     string
	Alg     string
	X5TS256 string
	X5U     string
	N       string
	E       string
	Crv     string
	X       string
	Y       string
}

// DeclaredParams returns the algebraic parameters the key was built from:
// {kty, crv, x, y} for EC, {kty, n, e} for RSA. Used for the K_declared vs
// K_chain equality check of §4.5 step 5.
func (k Key) DeclaredParams() map[string]string {
	switch k.Kty {
	case "EC":
		return map[string]string{"kty": "EC", "crv": k.Crv, "x": k.X, "y": k.Y}
	case "RSA":
		return map[string]string{"kty": "RSA", "n": k.N, "e": k.E}
	default:
		return map[string]string{"kty": k.Kty}
	}
}

// KeySet is a validated JWKS document (C4).
type KeySet struct {
	Keys []Key
}

type rawKey struct {
	Kty     string   `json:"kty"`
	Kid     string   `json:"kid"`
	X5T     string   `json:"x5t"`
	X5C     []string `json:"x5c"`
	KeyOps  []string `json:"key_ops"`
	Use     string   `json:"use,omitempty"`
	Alg     string   `json:"alg,omitempty"`
	X5TS256 string   `json:"x5t#S256,omitempty"`
	X5U     string   `json:"x5u,omitempty"`
	N       string   `json:"n,omitempty"`
	E       string   `json:"e,omitempty"`
	Crv     string   `json:"crv,omitempty"`
	X       string   `json:"x,omitempty"`
	Y       string   `json:"y,omitempty"`
}

type rawKeySet struct {
	Keys []rawKey `json:"keys"`
}

// ParseJWKS decodes and schema-validates a JWKS response body (C4). The
// top-level keys array is required and must be non-empty; each key is
// validated per §3.
func ParseJWKS(body []byte) (*KeySet, error) {
	var raw rawKeySet
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ErrInvalidJWKSContents
	}
	if len(raw.Keys) == 0 {
		return nil, newValidationError([]FieldError{
			{Field: "keys", Message: "is required and must contain at least one key"},
		})
	}

	keys := make([]Key, 0, len(raw.Keys))
	for i, rk := range raw.Keys {
		k, err := validateKey(rk, i)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	return &KeySet{Keys: keys}, nil
}

func validateKey(rk rawKey, idx int) (*Key, error) {
	var errs []FieldError
	field := func(name string) string { return fmt.Sprintf("keys[%d].%s", idx, name) }
	add := func(name, msg string) { errs = append(errs, FieldError{Field: field(name), Message: msg}) }

	switch rk.Kty {
	case "EC", "RSA":
	default:
		add("kty", `must be "EC" or "RSA"`)
	}

	if rk.Kid == "" {
		add("kid", "is required")
	}
	if rk.X5T == "" {
		add("x5t", "is required")
	}
	if len(rk.X5C) == 0 {
		add("x5c", "must be non-empty")
	}
	for _, op := range rk.KeyOps {
		if op != "verify" {
			add("key_ops", fmt.Sprintf("unsupported key_ops value %q", op))
			break
		}
	}

	if rk.Kty == "EC" && (rk.Crv == "" || rk.X == "" || rk.Y == "") {
		add("crv/x/y", "EC keys must carry crv, x, and y")
	}
	if rk.Kty == "RSA" && (rk.N == "" || rk.E == "") {
		add("n/e", "RSA keys must carry n and e")
	}
	if rk.Alg != "" && !supportedAlgorithms[rk.Alg] {
		add("alg", fmt.Sprintf("%q is not a supported signing algorithm", rk.Alg))
	}

	if len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	return &Key{
		Kty: rk.Kty, Kid: rk.Kid, X5T: rk.X5T, X5C: rk.X5C, KeyOps: rk.KeyOps,
		Use: rk.Use, Alg: rk.Alg, X5TS256: rk.X5TS256, X5U: rk.X5U,
		N: rk.N, E: rk.E, Crv: rk.Crv, X: rk.X, Y: rk.Y,
	}, nil
}
