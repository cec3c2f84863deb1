// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRSAKeyRejectsUndersizedKeys(t *testing.T) {
	_, err := GenerateRSAKey(1024)
	require.Error(t, err)

	var sizeErr ErrInvalidKeySize
	require.ErrorAs(t, err, &sizeErr)
}

func TestGenerateRSAKeyRejectsNonMultipleOf1024(t *testing.T) {
	_, err := GenerateRSAKey(2500)
	require.Error(t, err)
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	key, err := GenerateRSAKey(2048)
	require.NoError(t, err)

	message := []byte(`{"Hello": "World!"}`)

	sig, err := key.Sign(message)
	require.NoError(t, err)
	require.NoError(t, key.Verify(message, sig))

	tampered := append([]byte{}, message...)
	tampered[0] = 'X'
	require.Error(t, key.Verify(tampered, sig))
}

func TestPublicPrivatePEMRoundTrip(t *testing.T) {
	key, err := GenerateRSAKey(2048)
	require.NoError(t, err)

	privPEM, err := key.ExportPrivatePEM("")
	require.NoError(t, err)

	restored, err := RSAKeyFromPrivatePEM(privPEM, "")
	require.NoError(t, err)
	require.True(t, restored.HasPrivateKey())

	pubPEM, err := key.ExportPublicPEM()
	require.NoError(t, err)

	restoredPub, err := RSAKeyFromPublicPEM(pubPEM)
	require.NoError(t, err)
	require.False(t, restoredPub.HasPrivateKey())

	restoredPubPEM, err := restoredPub.ExportPublicPEM()
	require.NoError(t, err)
	require.Equal(t, pubPEM, restoredPubPEM)
}

func TestPassphraseProtectedPrivateKeyRoundTrip(t *testing.T) {
	key, err := GenerateRSAKey(2048)
	require.NoError(t, err)

	encoded, err := key.ExportPrivatePEM("correct horse battery staple")
	require.NoError(t, err)

	_, err = RSAKeyFromPrivatePEM(encoded, "wrong passphrase")
	require.Error(t, err)

	restored, err := RSAKeyFromPrivatePEM(encoded, "correct horse battery staple")
	require.NoError(t, err)
	require.True(t, restored.HasPrivateKey())
}
