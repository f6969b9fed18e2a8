package nado

import (
	"fmt"
	"math/big"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultRecvWindow is how long the venue accepts an order after signing.
	DefaultRecvWindow = 90 * time.Second

	nonceShift        = 20
	discriminantRange = 1000

	// gtcExpiration stands in for "good till cancelled".
	gtcExpiration = 365 * 24 * time.Hour
)

// NewNonce packs (deadlineMillis << 20) | discriminant. The result needs 84
// bits for far-future deadlines, so it is a big.Int.
func NewNonce(deadlineMillis int64, discriminant int64) (*big.Int, error) {
	if deadlineMillis < 0 {
		return nil, fmt.Errorf("nado: negative nonce deadline %d", deadlineMillis)
	}
	if discriminant < 0 || discriminant >= discriminantRange {
		return nil, fmt.Errorf("nado: nonce discriminant %d outside [0,%d)", discriminant, discriminantRange)
	}
	n := new(big.Int).Lsh(big.NewInt(deadlineMillis), nonceShift)
	return n.Or(n, big.NewInt(discriminant)), nil
}

// DeadlineFromNonce recovers the receive deadline in unix milliseconds.
func DeadlineFromNonce(nonce *big.Int) int64 {
	return new(big.Int).Rsh(nonce, nonceShift).Int64()
}

// ParseNonce decodes the base-10 wire form.
func ParseNonce(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("nado: invalid nonce %q", s)
	}
	return v, nil
}

// NonceGenerator issues nonces whose deadline is now+window.
type NonceGenerator struct {
	now    func() time.Time
	window time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewNonceGenerator uses the wall clock and DefaultRecvWindow.
func NewNonceGenerator() *NonceGenerator {
	return &NonceGenerator{
		now:    time.Now,
		window: DefaultRecvWindow,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
}

// Next returns a fresh nonce.
func (g *NonceGenerator) Next() *big.Int {
	g.mu.Lock()
	d := g.rng.Int64N(discriminantRange)
	g.mu.Unlock()

	n, _ := NewNonce(g.now().Add(g.window).UnixMilli(), d)
	return n
}

// Expiration returns the order expiration in unix seconds: now+d, or one
// year out when d is zero.
func Expiration(now time.Time, d time.Duration) uint64 {
	if d <= 0 {
		d = gtcExpiration
	}
	return uint64(now.Add(d).Unix())
}
