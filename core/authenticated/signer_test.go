// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package authenticated

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var browser = ClientFingerprint("192.0.2.0/24", "Mozilla/5.0")

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	signer := NewEphemeralSigner()

	token, err := signer.Sign(time.Now(), browser)
	require.NoError(t, err)
	assert.NoError(t, signer.Verify(token, browser))
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()

	signer := NewEphemeralSigner()
	other := NewEphemeralSigner()

	expired, err := signer.Sign(time.Now().Add(-TokenLifetime-time.Hour), browser)
	require.NoError(t, err)

	foreign, err := other.Sign(time.Now(), browser)
	require.NoError(t, err)

	valid, err := signer.Sign(time.Now(), browser)
	require.NoError(t, err)

	tests := []struct {
		name        string
		token       string
		fingerprint string
	}{
		{name: "empty", token: "", fingerprint: browser},
		{name: "garbage", token: "v4.public.garbage", fingerprint: browser},
		{name: "expired", token: expired, fingerprint: browser},
		{name: "signed by another key", token: foreign, fingerprint: browser},
		{name: "other network", token: valid, fingerprint: ClientFingerprint("203.0.113.0/24", "Mozilla/5.0")},
		{name: "other user agent", token: valid, fingerprint: ClientFingerprint("192.0.2.0/24", "curl/8.5.0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.ErrorIs(t, signer.Verify(tt.token, tt.fingerprint), ErrInvalidToken)
		})
	}
}

func TestClientFingerprint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, browser, ClientFingerprint("192.0.2.0/24", "Mozilla/5.0"))
	assert.NotEqual(t, ClientFingerprint("a", "bc"), ClientFingerprint("ab", "c"))
}

func TestLoadSecretKeyFromHex(t *testing.T) {
	t.Parallel()

	hex := NewSecretKeyHex()

	var a, b Signer

	require.NoError(t, a.LoadSecretKeyFromHex(hex))
	require.NoError(t, b.LoadSecretKeyFromHex(hex))

	token, err := a.Sign(time.Now(), browser)
	require.NoError(t, err)
	assert.NoError(t, b.Verify(token, browser))

	assert.Error(t, (&Signer{}).LoadSecretKeyFromHex("not hex"))
}

func TestZeroSigner(t *testing.T) {
	t.Parallel()

	var signer Signer

	_, err := signer.Sign(time.Now(), browser)
	require.ErrorIs(t, err, ErrNoKey)
	assert.ErrorIs(t, signer.Verify("x", browser), ErrNoKey)
}
