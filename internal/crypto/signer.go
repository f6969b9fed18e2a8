package crypto

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// TypedSignature is an EIP-712 signature together with the digest it signs.
// Venues that identify orders by digest use Digest as the order id.
type TypedSignature struct {
	Signature string // 0x-prefixed 65-byte r||s||v, v in {27,28}
	Digest    common.Hash
}

// TypedDataSigner signs EIP-712 typed data.
type TypedDataSigner interface {
	Address() common.Address
	SignTypedData(ctx context.Context, data apitypes.TypedData) (TypedSignature, error)
}

// PersonalSigner signs EIP-191 personal messages.
type PersonalSigner interface {
	Address() common.Address
	SignPersonal(ctx context.Context, message []byte) (string, error)
}

// KeySigner signs with an in-memory secp256k1 key.
type KeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewKeySigner parses a hex private key (with or without 0x).
func NewKeySigner(privateKeyHex string) (*KeySigner, error) {
	b, err := decodeKeyHex(privateKeyHex)
	if err != nil {
		return nil, err
	}
	pk, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return &KeySigner{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// LoadSigner resolves the key described by cfg and wraps it in a KeySigner.
func LoadSigner(cfg KeyConfig) (*KeySigner, error) {
	k, err := LoadKey(cfg)
	if err != nil {
		return nil, err
	}
	return NewKeySigner(k)
}

// Address returns the Ethereum address derived from the key.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignTypedData hashes data per EIP-712 and signs the digest.
func (s *KeySigner) SignTypedData(ctx context.Context, data apitypes.TypedData) (TypedSignature, error) {
	if err := ctx.Err(); err != nil {
		return TypedSignature{}, err
	}
	digest, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return TypedSignature{}, fmt.Errorf("crypto/signer: hashing %s: %w", data.PrimaryType, err)
	}
	sig, err := s.signDigest(digest)
	if err != nil {
		return TypedSignature{}, err
	}
	return TypedSignature{Signature: sig, Digest: common.BytesToHash(digest)}, nil
}

// SignPersonal signs keccak256("\x19Ethereum Signed Message:\n" + len + message).
func (s *KeySigner) SignPersonal(ctx context.Context, message []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.signDigest(accounts.TextHash(message))
}

func (s *KeySigner) signDigest(digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}

	// go-ethereum returns v in {0,1}; wallets and venues expect {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverAddress returns the signer of a 0x-prefixed 65-byte signature over
// digest.
func RecoverAddress(digest []byte, signatureHex string) (common.Address, error) {
	sig, err := hex.DecodeString(trim0x(signatureHex))
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: decoding signature: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("crypto/signer: signature must be 65 bytes, got %d", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: recovering key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

func trim0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
