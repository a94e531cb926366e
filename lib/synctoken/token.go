// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package synctoken implements the short-lived bearer tokens used on
// the export and pull paths. A token is a CBOR-encoded payload followed
// by a 64-byte Ed25519 signature, transported as a base64url string in
// the Authorization header.
//
// The head agent's keypair is derived from a 32-byte seed distributed
// to sandboxes through the environment. Sandboxes mint a fresh token
// per request; the central store verifies with the public key. When no
// seed is configured, callers fall back to the static task token.
package synctoken

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/outpost-foundation/outpost/lib/codec"
)

// signatureSize is the fixed size of an Ed25519 signature.
const signatureSize = ed25519.SignatureSize // 64 bytes

// DefaultTTL is the validity window for freshly minted tokens. Long
// enough to survive slow uploads, short enough that a leaked snapshot
// of the environment is useless within minutes.
const DefaultTTL = 5 * time.Minute

// Audience values scope a token to one endpoint family. A token minted
// for the memory sync endpoint is not accepted by the pull endpoint.
const (
	AudienceMemorySync = "memory-sync"
	AudiencePull       = "orchestration-pull"
)

// Token is the CBOR-encoded payload of a sync token.
type Token struct {
	// AgentName identifies the sandbox agent that minted the token.
	AgentName string `cbor:"1,keyasint"`

	// OrchestrationID scopes the token to one multi-agent run. Empty
	// for sandboxes running outside an orchestration.
	OrchestrationID string `cbor:"2,keyasint,omitempty"`

	// Audience is the endpoint family this token is valid for.
	Audience string `cbor:"3,keyasint"`

	// IssuedAt is a Unix timestamp (seconds) of when the token was
	// minted.
	IssuedAt int64 `cbor:"4,keyasint"`

	// ExpiresAt is a Unix timestamp (seconds) after which the token
	// is no longer valid.
	ExpiresAt int64 `cbor:"5,keyasint"`
}

// Errors returned by Verify.
var (
	ErrTokenTooShort    = errors.New("synctoken: token too short for signature")
	ErrInvalidSignature = errors.New("synctoken: invalid Ed25519 signature")
	ErrTokenExpired     = errors.New("synctoken: token has expired")
	ErrAudienceMismatch = errors.New("synctoken: audience does not match")
)

// KeypairFromSeed derives the Ed25519 keypair from a hex-encoded
// 32-byte seed.
func KeypairFromSeed(seedHex string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, nil, fmt.Errorf("synctoken: decoding key seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, nil, fmt.Errorf("synctoken: key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	return privateKey.Public().(ed25519.PublicKey), privateKey, nil
}

// Mint signs a token payload and returns the base64url wire string:
// CBOR payload followed by the 64-byte signature.
func Mint(privateKey ed25519.PrivateKey, token *Token) (string, error) {
	payload, err := codec.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("synctoken: encoding token payload: %w", err)
	}

	signature := ed25519.Sign(privateKey, payload)

	raw := make([]byte, len(payload)+signatureSize)
	copy(raw, payload)
	copy(raw[len(payload):], signature)

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// MintFor mints a token for the given agent, orchestration, and
// audience with the default TTL, timestamped at now.
func MintFor(privateKey ed25519.PrivateKey, agentName, orchestrationID, audience string, now time.Time) (string, error) {
	return Mint(privateKey, &Token{
		AgentName:       agentName,
		OrchestrationID: orchestrationID,
		Audience:        audience,
		IssuedAt:        now.Unix(),
		ExpiresAt:       now.Add(DefaultTTL).Unix(),
	})
}

// Verify checks the signature, expiry, and audience of an encoded
// token and returns the decoded payload.
func Verify(publicKey ed25519.PublicKey, encoded, audience string, now time.Time) (*Token, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("synctoken: decoding token: %w", err)
	}
	if len(raw) <= signatureSize {
		return nil, ErrTokenTooShort
	}

	payload := raw[:len(raw)-signatureSize]
	signature := raw[len(raw)-signatureSize:]

	if !ed25519.Verify(publicKey, payload, signature) {
		return nil, ErrInvalidSignature
	}

	var token Token
	if err := codec.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("synctoken: decoding token payload: %w", err)
	}

	if now.Unix() > token.ExpiresAt {
		return nil, ErrTokenExpired
	}
	if token.Audience != audience {
		return nil, ErrAudienceMismatch
	}

	return &token, nil
}
