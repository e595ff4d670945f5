package jws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brpix/pixverify/internal/logging"
	"github.com/brpix/pixverify/internal/metrics"
	"github.com/brpix/pixverify/pixpayment"
)

// HTTPClient is the narrow interface the loader needs. *http.Client
// satisfies it directly; tests substitute an httptest.Server's client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Loader orchestrates C6: fetch JWS, resolve key via the store, verify
// signature, parse payment.
type Loader struct {
	Store *Store
	// Now supplies the current time for certificate validity checks;
	// defaults to time.Now and is only overridden by tests.
	Now func() time.Time
	// Metrics is optional; a nil Metrics disables instrumentation.
	Metrics *metrics.Metrics
}

// NewLoader creates a Loader backed by store. Share one Store across Loaders
// to get warm-cache behaviour across concurrent callers.
func NewLoader(store *Store) *Loader {
	return &Loader{Store: store, Now: time.Now}
}

// LoadPix implements load_pix(http_client, url) -> PixPayment | error (§4.6).
// Every step short-circuits: on error, subsequent steps do not run.
func (l *Loader) LoadPix(ctx context.Context, client HTTPClient, url string) (payment *pixpayment.PixPayment, err error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = outcomeLabel(err)
		}
		l.recordOutcome(outcome, time.Since(start))
	}()

	body, err := get(ctx, client, url)
	if err != nil {
		return nil, err
	}
	token := strings.TrimSpace(string(body))

	header, err := ParseHeader(token)
	if err != nil {
		return nil, err
	}

	vk, ok := l.Store.Lookup(header)
	if !ok {
		if err := l.warmJWKS(ctx, client, header.JKU); err != nil {
			return nil, err
		}
		vk, ok = l.Store.Lookup(header)
		if !ok {
			return nil, ErrKeyNotFoundInJKU
		}
	}

	now := l.Now().UTC()
	if now.Before(vk.Certificate.NotBefore.UTC()) {
		return nil, ErrCertNotYetValid
	}
	if now.After(vk.Certificate.NotAfter.UTC()) {
		return nil, ErrCertExpired
	}

	if !algorithmCompatibleWithKeyType(header.Alg, vk.JWK.Kty) {
		return nil, ErrInvalidSigningAlgorithm
	}

	if err := verifySignature(token, header.Alg, vk.RawKey); err != nil {
		return nil, err
	}

	payload, err := payloadBytes(token)
	if err != nil {
		return nil, err
	}
	return pixpayment.Parse(payload)
}

// recordOutcome is a no-op when l.Metrics is nil.
func (l *Loader) recordOutcome(outcome string, elapsed time.Duration) {
	if l.Metrics == nil {
		return
	}
	l.Metrics.LoadPixOutcomesTotal.WithLabelValues(outcome).Inc()
	l.Metrics.LoadPixDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// outcomeLabel maps an error to a low-cardinality metric label. Unrecognized
// errors fall back to "error" rather than leaking arbitrary error text into
// a label value.
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrHTTPStatus):
		return "http_status"
	case errors.Is(err, ErrKeyNotFoundInJKU):
		return "key_not_found"
	case errors.Is(err, ErrCertExpired), errors.Is(err, ErrCertNotYetValid):
		return "cert_validity"
	case errors.Is(err, ErrInvalidSigningAlgorithm):
		return "alg_mismatch"
	default:
		var verr *ValidationError
		if errors.As(err, &verr) {
			return "validation"
		}
		return "error"
	}
}

// warmJWKS fetches, validates and installs the JWKS at jku (§4.6 step 3).
func (l *Loader) warmJWKS(ctx context.Context, client HTTPClient, jku string) error {
	logger := logging.FromContext(ctx)
	body, err := get(ctx, client, jku)
	if err != nil {
		logger.Warn().Str("jku", logging.RedactJKU(jku)).Err(err).Msg("jwks fetch failed")
		return err
	}
	ks, err := ParseJWKS(body)
	if err != nil {
		logger.Warn().Str("jku", logging.RedactJKU(jku)).Err(err).Msg("jwks parse failed")
		return err
	}
	if err := l.Store.ProcessKeys(ks, jku); err != nil {
		logger.Warn().Str("jku", logging.RedactJKU(jku)).Err(err).Msg("jwks key validation failed")
		return err
	}
	logger.Debug().Str("jku", logging.RedactJKU(jku)).Int("keys", len(ks.Keys)).Msg("jwks warmed")
	return nil
}

// get performs a GET and enforces the [200,300) success range (§4.6 step 1).
// Transport errors propagate unwrapped.
func get(ctx context.Context, client HTTPClient, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("jws: building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrHTTPStatus
	}
	return io.ReadAll(resp.Body)
}

// verifySignature verifies token's signature with key, pinning the verifier
// to exactly alg — the header's declared algorithm — so a token cannot be
// re-verified under a different algorithm than the one it claims
// (algorithm-confusion defense, §4.6 step 5 note).
func verifySignature(token, alg string, key interface{}) error {
	_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{alg}), jwt.WithoutClaimsValidation())
	if err != nil {
		return fmt.Errorf("jws: signature verification: %w", err)
	}
	return nil
}

// payloadBytes extracts the raw (still base64url-decoded) JSON payload
// segment of a compact-serialization JWS, independent of claims parsing, so
// PixPayment validation sees exactly the bytes the PSP signed.
func payloadBytes(token string) ([]byte, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("jws: malformed compact serialization")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}
