package crypto

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// Well-known throwaway key (hardhat account #0).
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestNewKeySignerAddress(t *testing.T) {
	s, err := NewKeySigner("0x" + testKey)
	if err != nil {
		t.Fatalf("NewKeySigner: %v", err)
	}
	if got := s.Address().Hex(); got != testAddr {
		t.Fatalf("address=%s want %s", got, testAddr)
	}
}

func TestNewKeySignerRejectsBadKey(t *testing.T) {
	for _, k := range []string{"", "0x1234", "zz" + testKey[2:]} {
		if _, err := NewKeySigner(k); err == nil {
			t.Fatalf("NewKeySigner(%q) expected error", k)
		}
	}
}

func TestSignPersonalRecovers(t *testing.T) {
	s, _ := NewKeySigner(testKey)
	msg := []byte(`Order: {"order_book_id":0}`)
	sig, err := s.SignPersonal(context.Background(), msg)
	if err != nil {
		t.Fatalf("SignPersonal: %v", err)
	}
	addr, err := RecoverAddress(accounts.TextHash(msg), sig)
	if err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	if addr != s.Address() {
		t.Fatalf("recovered %s want %s", addr.Hex(), s.Address().Hex())
	}
}

func TestSignTypedDataRecovers(t *testing.T) {
	s, _ := NewKeySigner(testKey)
	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Ping": {{Name: "value", Type: "int128"}},
		},
		PrimaryType: "Ping",
		Domain: apitypes.TypedDataDomain{
			Name:              "Test",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(1),
			VerifyingContract: "0x0000000000000000000000000000000000000001",
		},
		Message: apitypes.TypedDataMessage{"value": "-5"},
	}
	sig, err := s.SignTypedData(context.Background(), td)
	if err != nil {
		t.Fatalf("SignTypedData: %v", err)
	}
	addr, err := RecoverAddress(sig.Digest.Bytes(), sig.Signature)
	if err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	if addr != s.Address() {
		t.Fatalf("recovered %s want %s", addr.Hex(), s.Address().Hex())
	}
}

func TestSignTypedDataHonoursContext(t *testing.T) {
	s, _ := NewKeySigner(testKey)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.SignTypedData(ctx, apitypes.TypedData{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestEncryptedKeyFileRoundTrip(t *testing.T) {
	doc, err := EncryptKey(testKey, "hunter2", "nado")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	path := filepath.Join(t.TempDir(), "nado.key.json")
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	k, err := LoadKey(KeyConfig{Label: "nado", EncryptedKeyPath: path, KeyPassword: "hunter2"})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if k != testKey {
		t.Fatalf("key=%s want %s", k, testKey)
	}

	_, err = LoadKey(KeyConfig{Label: "nado", EncryptedKeyPath: path, KeyPassword: "wrong"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("wrong password err=%v want ErrConfiguration", err)
	}
}

func TestLoadKeyPrecedenceAndMissing(t *testing.T) {
	k, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKey, EncryptedKeyPath: "/does/not/exist"})
	if err != nil || k != testKey {
		t.Fatalf("raw key: got %q, %v", k, err)
	}
	if _, err := LoadKey(KeyConfig{Label: "lighter"}); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("missing key err=%v want ErrConfiguration", err)
	}
}
