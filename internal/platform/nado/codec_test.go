package nado

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

func TestAppendixRoundTripAllCombinations(t *testing.T) {
	for exec := ExecutionDefault; exec <= ExecutionPostOnly; exec++ {
		for trig := TriggerNone; trig <= TriggerTWAPCustomAmounts; trig++ {
			for _, reduceOnly := range []bool{false, true} {
				for _, isolated := range []bool{false, true} {
					opts := AppendixOptions{
						ExecutionType: exec,
						ReduceOnly:    reduceOnly,
						Isolated:      isolated,
						TriggerType:   trig,
					}
					word, err := EncodeAppendix(opts)
					if err != nil {
						t.Fatalf("EncodeAppendix(%+v): %v", opts, err)
					}
					got, err := DecodeAppendix(word)
					if err != nil {
						t.Fatalf("DecodeAppendix(%s): %v", word, err)
					}
					if got.AppendixOptions != opts {
						t.Fatalf("roundtrip: got %+v want %+v", got.AppendixOptions, opts)
					}
					if got.Version != AppendixVersion {
						t.Fatalf("version: got %d want %d", got.Version, AppendixVersion)
					}
					if got.Value != 0 {
						t.Fatalf("value: got %d want 0", got.Value)
					}
				}
			}
		}
	}
}

func TestAppendixIOCReduceOnlyPriceTrigger(t *testing.T) {
	exec, err := ParseExecutionType("ioc")
	if err != nil {
		t.Fatal(err)
	}
	trig, err := ParseTriggerType("price")
	if err != nil {
		t.Fatal(err)
	}
	word, err := EncodeAppendix(AppendixOptions{ExecutionType: exec, ReduceOnly: true, TriggerType: trig})
	if err != nil {
		t.Fatal(err)
	}
	// version 1 | ioc<<9 | reduceOnly<<11 | price<<12
	if want := int64(1 | 1<<9 | 1<<11 | 1<<12); word.Int64() != want {
		t.Fatalf("word: got %s want %d", word, want)
	}

	got, err := ParseAppendix(word.String())
	if err != nil {
		t.Fatal(err)
	}
	if got.ExecutionType != ExecutionIOC || !got.ReduceOnly || got.Isolated || got.TriggerType != TriggerPrice {
		t.Fatalf("decoded %+v", got)
	}
	if got.Version != 1 {
		t.Fatalf("version: got %d want 1", got.Version)
	}
}

func TestAppendixDecodesHighValueBits(t *testing.T) {
	word := new(big.Int).Lsh(big.NewInt(42), 64)
	word.Or(word, big.NewInt(1))
	got, err := DecodeAppendix(word)
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != 42 || got.Version != 1 {
		t.Fatalf("got value=%d version=%d", got.Value, got.Version)
	}
}

func TestAppendixRejectsInvalidInput(t *testing.T) {
	if _, err := ParseExecutionType("market"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("ParseExecutionType(market): got %v want ErrConfiguration", err)
	}
	if _, err := ParseTriggerType("stop"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("ParseTriggerType(stop): got %v want ErrConfiguration", err)
	}
	if _, err := EncodeAppendix(AppendixOptions{ExecutionType: 4}); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("EncodeAppendix(exec=4): got %v", err)
	}
	if _, err := DecodeAppendix(new(big.Int).Lsh(big.NewInt(1), 128)); err == nil {
		t.Fatal("DecodeAppendix accepted a 129-bit word")
	}
	if _, err := DecodeAppendix(big.NewInt(-1)); err == nil {
		t.Fatal("DecodeAppendix accepted a negative word")
	}
	if tt, err := ParseTriggerType(""); err != nil || tt != TriggerNone {
		t.Fatalf("ParseTriggerType(\"\") = %v, %v", tt, err)
	}
}

func TestNonceRecoversDeadline(t *testing.T) {
	n, err := NewNonce(1700000000000, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got := DeadlineFromNonce(n); got != 1700000000000 {
		t.Fatalf("deadline: got %d want 1700000000000", got)
	}
	if n.BitLen() > 84 {
		t.Fatalf("nonce uses %d bits", n.BitLen())
	}

	for _, d := range []int64{0, 1, 500, 999} {
		n, err := NewNonce(1700000000000, d)
		if err != nil {
			t.Fatal(err)
		}
		if got := DeadlineFromNonce(n); got != 1700000000000 {
			t.Fatalf("discriminant %d: deadline %d", d, got)
		}
		parsed, err := ParseNonce(n.String())
		if err != nil || parsed.Cmp(n) != 0 {
			t.Fatalf("ParseNonce(%s) = %v, %v", n, parsed, err)
		}
	}
}

func TestNonceRejectsBadDiscriminant(t *testing.T) {
	for _, d := range []int64{-1, 1000} {
		if _, err := NewNonce(1700000000000, d); err == nil {
			t.Fatalf("discriminant %d accepted", d)
		}
	}
}

func TestNonceGeneratorUsesReceiveWindow(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	g := NewNonceGenerator()
	g.now = func() time.Time { return now }

	for range 20 {
		n := g.Next()
		if got, want := DeadlineFromNonce(n), now.Add(DefaultRecvWindow).UnixMilli(); got != want {
			t.Fatalf("deadline: got %d want %d", got, want)
		}
		low := new(big.Int).And(n, big.NewInt(1<<nonceShift-1)).Int64()
		if low < 0 || low >= discriminantRange {
			t.Fatalf("discriminant %d out of range", low)
		}
	}
}

func TestExpiration(t *testing.T) {
	now := time.Unix(1700000000, 0)
	if got := Expiration(now, time.Minute); got != 1700000060 {
		t.Fatalf("got %d", got)
	}
	if got, want := Expiration(now, 0), uint64(1700000000+365*24*3600); got != want {
		t.Fatalf("gtc: got %d want %d", got, want)
	}
}

func TestSubaccount(t *testing.T) {
	addr := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	s := NewSubaccount(addr, DefaultSubaccountName)
	want := "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266" + "64656661756c740000000000"
	if s.Hex() != want {
		t.Fatalf("got %s want %s", s.Hex(), want)
	}
	if s.Address() != addr {
		t.Fatalf("address: got %s", s.Address())
	}

	long := NewSubaccount(addr, "a-very-long-subaccount")
	if string(long[20:]) != "a-very-long-" {
		t.Fatalf("truncation: got %q", string(long[20:]))
	}
}

func TestProductAddress(t *testing.T) {
	got := ProductAddress(2)
	if got != common.HexToAddress("0x0000000000000000000000000000000000000002") {
		t.Fatalf("got %s", got.Hex())
	}
}

func TestLookupDeployment(t *testing.T) {
	d, err := LookupDeployment("inkMainnet")
	if err != nil {
		t.Fatal(err)
	}
	if d.ChainID != 57073 {
		t.Fatalf("chain id: got %d", d.ChainID)
	}
	if _, err := LookupDeployment("arbitrum"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("got %v want ErrConfiguration", err)
	}
}

func TestCoinToSymbol(t *testing.T) {
	sym, err := CoinToSymbol("btc")
	if err != nil || sym != "BTC-PERP" {
		t.Fatalf("CoinToSymbol(btc) = %q, %v", sym, err)
	}
	if _, err := CoinToSymbol("NOPE"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("got %v want ErrConfiguration", err)
	}
}
