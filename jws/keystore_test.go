package jws

import (
	"errors"
	"testing"
)

const testJKU = "https://somepixpsp.br/pix/v2/certs"

func keySetFor(chain testChain, kid, x5t string) *KeySet {
	n, e := chain.declaredRSAParams()
	return &KeySet{Keys: []Key{{
		Kty: "RSA", Kid: kid, X5T: x5t, X5C: chain.x5c(), KeyOps: []string{"verify"}, N: n, E: e,
	}}}
}

func TestStore_ProcessKeysAndLookup_HappyPath(t *testing.T) {
	chain := buildTestChain(t, "somepixpsp.br")
	ks := keySetFor(chain, "key-1", chain.thumbprint())

	store := NewStore()
	if err := store.ProcessKeys(ks, testJKU); err != nil {
		t.Fatalf("ProcessKeys() error: %v", err)
	}

	header := &Header{JKU: testJKU, KID: "key-1", X5T: chain.thumbprint(), Alg: "RS256"}
	vk, ok := store.Lookup(header)
	if !ok {
		t.Fatal("Lookup() miss, want hit")
	}
	if vk.Certificate.Subject.CommonName != "somepixpsp.br" {
		t.Errorf("Certificate CN = %q", vk.Certificate.Subject.CommonName)
	}
}

func TestStore_ProcessKeys_ThumbprintMismatch(t *testing.T) {
	chain := buildTestChain(t, "somepixpsp.br")
	ks := keySetFor(chain, "key-1", "not-the-real-thumbprint")

	store := NewStore()
	err := store.ProcessKeys(ks, testJKU)
	if !errors.Is(err, ErrThumbprintMismatch) {
		t.Fatalf("err = %v, want ErrThumbprintMismatch", err)
	}
}

func TestStore_ProcessKeys_HostBindingMismatch(t *testing.T) {
	chain := buildTestChain(t, "otherpsp.br")
	ks := keySetFor(chain, "key-1", chain.thumbprint())

	store := NewStore()
	err := store.ProcessKeys(ks, testJKU)
	if !errors.Is(err, ErrHostBindingMismatch) {
		t.Fatalf("err = %v, want ErrHostBindingMismatch", err)
	}
}

func TestStore_ProcessKeys_KeyMismatch(t *testing.T) {
	chain := buildTestChain(t, "somepixpsp.br")
	n, _ := chain.declaredRSAParams()
	ks := &KeySet{Keys: []Key{{
		Kty: "RSA", Kid: "key-1", X5T: chain.thumbprint(), X5C: chain.x5c(),
		KeyOps: []string{"verify"}, N: n, E: "AQAB-bogus",
	}}}

	store := NewStore()
	err := store.ProcessKeys(ks, testJKU)
	if !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("err = %v, want ErrKeyMismatch", err)
	}
}

func TestStore_ProcessKeys_X5CTooShort(t *testing.T) {
	chain := buildTestChain(t, "somepixpsp.br")
	n, e := chain.declaredRSAParams()
	ks := &KeySet{Keys: []Key{{
		Kty: "RSA", Kid: "key-1", X5T: chain.thumbprint(), X5C: chain.x5c()[:1],
		KeyOps: []string{"verify"}, N: n, E: e,
	}}}

	store := NewStore()
	err := store.ProcessKeys(ks, testJKU)
	if !errors.Is(err, ErrX5CTooShort) {
		t.Fatalf("err = %v, want ErrX5CTooShort", err)
	}
}

func TestStore_ProcessKeys_BatchAllOrNothing(t *testing.T) {
	good := buildTestChain(t, "somepixpsp.br")
	bad := buildTestChain(t, "somepixpsp.br")

	n, e := good.declaredRSAParams()
	badN, badE := bad.declaredRSAParams()
	ks := &KeySet{Keys: []Key{
		{Kty: "RSA", Kid: "key-1", X5T: good.thumbprint(), X5C: good.x5c(), KeyOps: []string{"verify"}, N: n, E: e},
		{Kty: "RSA", Kid: "key-2", X5T: "wrong", X5C: bad.x5c(), KeyOps: []string{"verify"}, N: badN, E: badE},
	}}

	store := NewStore()
	err := store.ProcessKeys(ks, testJKU)
	if err == nil {
		t.Fatal("expected error for batch with one bad key")
	}
	if _, ok := store.Lookup(&Header{JKU: testJKU, KID: "key-1", X5T: good.thumbprint()}); ok {
		t.Error("partial batch must not be installed (all-or-nothing)")
	}
}
