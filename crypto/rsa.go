// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// MinKeySize is the smallest RSA modulus size, in bits, this node will
// generate or accept for an identity keypair.
const MinKeySize = 2048

// ErrInvalidKeySize is returned by GenerateRSAKey when the requested bit size
// does not satisfy the node's key size policy.
type ErrInvalidKeySize struct {
	Bits int
}

func (e ErrInvalidKeySize) Error() string {
	return fmt.Sprintf("invalid RSA key size: %d bits (must be >= %d and a multiple of 1024)", e.Bits, MinKeySize)
}

// RSAKey wraps an RSA keypair (or a public key alone) and exposes the
// sign/verify and PEM import/export operations the identity and block
// packages build on.
type RSAKey struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// GenerateRSAKey generates a new RSA keypair of the given bit size.
// bits must be >= MinKeySize and a multiple of 1024.
func GenerateRSAKey(bits int) (*RSAKey, error) {
	if bits < MinKeySize || bits%1024 != 0 {
		return nil, ErrInvalidKeySize{Bits: bits}
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	return &RSAKey{private: key, public: &key.PublicKey}, nil
}

// RSAKeyFromPublicPEM parses a PEM-encoded PKIX public key.
func RSAKeyFromPublicPEM(pemBytes []byte) (*RSAKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM public key block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("PEM block does not contain an RSA public key")
	}

	return &RSAKey{public: rsaPub}, nil
}

// RSAKeyFromPrivatePEM parses a PEM-encoded PKCS1 private key, optionally
// protected by passphrase. An empty passphrase means the block is not
// encrypted.
func RSAKeyFromPrivatePEM(pemBytes []byte, passphrase string) (*RSAKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM private key block")
	}

	der := block.Bytes
	if passphrase != "" && x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // PKCS1 passphrase support intentionally kept
		decrypted, err := x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt private key: %w", err)
		}
		der = decrypted
	}

	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &RSAKey{private: key, public: &key.PublicKey}, nil
}

// HasPrivateKey reports whether this key can sign (and not only verify).
func (k *RSAKey) HasPrivateKey() bool {
	return k.private != nil
}

// Sign signs SHA-512(message) with the private key using RSA PKCS#1 v1.5.
func (k *RSAKey) Sign(message []byte) ([]byte, error) {
	if k.private == nil {
		return nil, fmt.Errorf("cannot sign: no private key loaded")
	}

	digest := sha512.Sum512(message)
	return rsa.SignPKCS1v15(rand.Reader, k.private, stdcrypto.SHA512, digest[:])
}

// Verify checks that signature is a valid RSA PKCS#1 v1.5 signature of
// SHA-512(message) under the public key.
func (k *RSAKey) Verify(message, signature []byte) error {
	digest := sha512.Sum512(message)
	return rsa.VerifyPKCS1v15(k.public, stdcrypto.SHA512, digest[:], signature)
}

// PublicKey returns a key containing only the public half of k.
func (k *RSAKey) PublicKey() *RSAKey {
	return &RSAKey{public: k.public}
}

// ExportPublicPEM renders the public key as a PEM-encoded PKIX block.
func (k *RSAKey) ExportPublicPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(k.public)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ExportPrivatePEM renders the private key as a PEM-encoded PKCS1 block,
// optionally encrypted with passphrase (empty string means unencrypted).
func (k *RSAKey) ExportPrivatePEM(passphrase string) ([]byte, error) {
	if k.private == nil {
		return nil, fmt.Errorf("cannot export: no private key loaded")
	}

	der := x509.MarshalPKCS1PrivateKey(k.private)

	if passphrase == "" {
		return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}), nil
	}

	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", der, []byte(passphrase), x509.PEMCipherAES256) //nolint:staticcheck // passphrase-protected export is a spec requirement
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	return pem.EncodeToMemory(block), nil
}
