package security

import (
	"testing"
	"time"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	tok, exp, err := Generate(opts, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatal("expiry not in the future")
	}

	sub, err := Verify(opts, tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "alice" {
		t.Fatalf("subject = %q", sub)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	tok, _, err := Generate(DefaultOptions([]byte("right")), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(DefaultOptions([]byte("wrong")), tok); err == nil {
		t.Fatal("token signed with another key must be rejected")
	}
}

func TestVerifyExpired(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	opts.TTL = -time.Hour
	tok, _, err := Generate(opts, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(opts, tok); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestVerifyGarbage(t *testing.T) {
	if _, err := Verify(DefaultOptions([]byte("k")), "not-a-token"); err == nil {
		t.Fatal("garbage must be rejected")
	}
}
