// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package authenticated issues and checks the v4.public PASETO tokens that
guard state changing console actions.

Every rendered form carries a token in its csrf_token field. A POST without
a token that verifies against the process key, or one issued to another
client, is refused.
*/
package authenticated

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"aidanwoods.dev/go-paseto"
)

// Implicit is the domain separation assertion. Changing it invalidates every issued token.
const Implicit = "Galaxy Console form action"

const (
	// ActionSubject is the subject of every form token.
	ActionSubject = "console action"

	// TokenLifetime bounds how long a rendered form stays submittable.
	TokenLifetime = 2 * time.Hour

	fingerprintClaim = "clientFingerprint"
)

var (
	ErrNoKey          = errors.New("signer has no key loaded")
	ErrInvalidToken   = errors.New("invalid action token")
	errClientMismatch = errors.New("token was issued to another client")
)

var actionParser = paseto.MakeParser([]paseto.Rule{
	paseto.NotExpired(),
	paseto.Subject(ActionSubject),
})

// ClientFingerprint condenses the client network and user agent into the
// value a token is bound to.
func ClientFingerprint(network, userAgent string) string {
	hasher := fnv.New64a()

	_, _ = hasher.Write([]byte(network))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(userAgent))

	return strconv.FormatUint(hasher.Sum64(), 36)
}

// NewSecretKeyHex returns a fresh hex encoded v4.public secret key.
func NewSecretKeyHex() string {
	return paseto.NewV4AsymmetricSecretKey().ExportHex()
}

// Signer holds the v4.public key pair used for action tokens.
type Signer struct {
	secretKey paseto.V4AsymmetricSecretKey
	publicKey paseto.V4AsymmetricPublicKey
	loaded    bool
}

// NewEphemeralSigner returns a signer with a key that lives as long as the process.
func NewEphemeralSigner() Signer {
	key := paseto.NewV4AsymmetricSecretKey()

	return Signer{secretKey: key, publicKey: key.Public(), loaded: true}
}

// LoadSecretKeyFromHex replaces the signer key.
func (s *Signer) LoadSecretKeyFromHex(hex string) error {
	key, err := paseto.NewV4AsymmetricSecretKeyFromHex(hex)
	if err != nil {
		return fmt.Errorf("load secret key: %w", err)
	}

	s.secretKey = key
	s.publicKey = key.Public()
	s.loaded = true

	return nil
}

// Sign issues an action token for the client with fingerprint, valid from
// now until now+TokenLifetime.
func (s Signer) Sign(now time.Time, fingerprint string) (string, error) {
	if !s.loaded {
		return "", ErrNoKey
	}

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetNotBefore(now.Add(-time.Minute))
	token.SetExpiration(now.Add(TokenLifetime))
	token.SetSubject(ActionSubject)
	token.SetString(fingerprintClaim, fingerprint)

	return token.V4Sign(s.secretKey, []byte(Implicit)), nil
}

// Verify checks signature, subject and expiry of an action token, and that
// it was issued to the client with fingerprint.
func (s Signer) Verify(signed, fingerprint string) error {
	if !s.loaded {
		return ErrNoKey
	}

	if signed == "" {
		return ErrInvalidToken
	}

	token, err := actionParser.ParseV4Public(s.publicKey, signed, []byte(Implicit))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	issuedTo, err := token.GetString(fingerprintClaim)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if issuedTo != fingerprint {
		return fmt.Errorf("%w: %w", ErrInvalidToken, errClientMismatch)
	}

	return nil
}
