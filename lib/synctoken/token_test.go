// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

package synctoken

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"testing"
	"time"
)

// testSeed is a fixed 32-byte seed, hex encoded.
const testSeed = "8f2d1e0c4b6a79583427160594837261504938271605948372615049382716ab"

func keypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	publicKey, privateKey, err := KeypairFromSeed(testSeed)
	if err != nil {
		t.Fatalf("KeypairFromSeed: %v", err)
	}
	return publicKey, privateKey
}

func TestKeypairFromSeedValidation(t *testing.T) {
	if _, _, err := KeypairFromSeed("not hex"); err == nil {
		t.Error("non-hex seed accepted")
	}
	if _, _, err := KeypairFromSeed("abcd"); err == nil {
		t.Error("short seed accepted")
	}
}

func TestKeypairFromSeedDeterministic(t *testing.T) {
	first, _ := keypair(t)
	second, _ := keypair(t)
	if !first.Equal(second) {
		t.Error("same seed derived different keys")
	}
}

func TestMintAndVerify(t *testing.T) {
	publicKey, privateKey := keypair(t)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	encoded, err := MintFor(privateKey, "head", "orch-1", AudienceMemorySync, now)
	if err != nil {
		t.Fatalf("MintFor: %v", err)
	}
	if strings.ContainsAny(encoded, "+/=") {
		t.Errorf("token %q is not base64url without padding", encoded)
	}

	token, err := Verify(publicKey, encoded, AudienceMemorySync, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if token.AgentName != "head" || token.OrchestrationID != "orch-1" {
		t.Errorf("token = %+v", token)
	}
	if token.IssuedAt != now.Unix() || token.ExpiresAt != now.Add(DefaultTTL).Unix() {
		t.Errorf("token window = %d..%d", token.IssuedAt, token.ExpiresAt)
	}
}

func TestVerifyExpired(t *testing.T) {
	publicKey, privateKey := keypair(t)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	encoded, _ := MintFor(privateKey, "head", "", AudiencePull, now)
	if _, err := Verify(publicKey, encoded, AudiencePull, now.Add(DefaultTTL+time.Second)); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
	// At the boundary the token is still valid.
	if _, err := Verify(publicKey, encoded, AudiencePull, now.Add(DefaultTTL)); err != nil {
		t.Errorf("err at expiry instant = %v", err)
	}
}

func TestVerifyAudienceMismatch(t *testing.T) {
	publicKey, privateKey := keypair(t)
	now := time.Now()

	encoded, _ := MintFor(privateKey, "head", "", AudienceMemorySync, now)
	if _, err := Verify(publicKey, encoded, AudiencePull, now); !errors.Is(err, ErrAudienceMismatch) {
		t.Errorf("err = %v, want ErrAudienceMismatch", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	_, privateKey := keypair(t)
	otherPublic, _, err := KeypairFromSeed(strings.Repeat("11", 32))
	if err != nil {
		t.Fatalf("KeypairFromSeed: %v", err)
	}

	now := time.Now()
	encoded, _ := MintFor(privateKey, "head", "", AudiencePull, now)
	if _, err := Verify(otherPublic, encoded, AudiencePull, now); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	publicKey, _ := keypair(t)
	now := time.Now()

	if _, err := Verify(publicKey, "%%%", AudiencePull, now); err == nil {
		t.Error("invalid base64 accepted")
	}
	if _, err := Verify(publicKey, "c2hvcnQ", AudiencePull, now); !errors.Is(err, ErrTokenTooShort) {
		t.Errorf("err = %v, want ErrTokenTooShort", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	publicKey, privateKey := keypair(t)
	now := time.Now()

	encoded, _ := MintFor(privateKey, "head", "", AudiencePull, now)
	tampered := []byte(encoded)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}
	if _, err := Verify(publicKey, string(tampered), AudiencePull, now); err == nil {
		t.Error("tampered token accepted")
	}
}
