package nado

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// ExecutionType is the order time-in-force encoded in the appendix.
type ExecutionType uint8

const (
	ExecutionDefault  ExecutionType = 0
	ExecutionIOC      ExecutionType = 1
	ExecutionFOK      ExecutionType = 2
	ExecutionPostOnly ExecutionType = 3
)

var executionNames = [...]string{"default", "ioc", "fok", "post_only"}

func (e ExecutionType) String() string {
	if int(e) < len(executionNames) {
		return executionNames[e]
	}
	return fmt.Sprintf("ExecutionType(%d)", uint8(e))
}

// ParseExecutionType maps a tag to its ExecutionType. Unknown tags are
// rejected, never defaulted.
func ParseExecutionType(s string) (ExecutionType, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	for i, n := range executionNames {
		if n == tag {
			return ExecutionType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown execution type %q", domain.ErrConfiguration, s)
}

// TriggerType marks conditional orders.
type TriggerType uint8

const (
	TriggerNone              TriggerType = 0
	TriggerPrice             TriggerType = 1
	TriggerTWAP              TriggerType = 2
	TriggerTWAPCustomAmounts TriggerType = 3
)

var triggerNames = [...]string{"none", "price", "twap", "twap_custom_amounts"}

func (t TriggerType) String() string {
	if int(t) < len(triggerNames) {
		return triggerNames[t]
	}
	return fmt.Sprintf("TriggerType(%d)", uint8(t))
}

// ParseTriggerType maps a tag to its TriggerType. The empty tag is "none".
func ParseTriggerType(s string) (TriggerType, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	if tag == "" {
		return TriggerNone, nil
	}
	for i, n := range triggerNames {
		if n == tag {
			return TriggerType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown trigger type %q", domain.ErrConfiguration, s)
}

// AppendixVersion is the layout version written by EncodeAppendix.
const AppendixVersion = 1

// Bit layout, LSB first:
//
//	version(8) | isolated(1) | executionType(2) | reduceOnly(1) | trigger(2) | reserved(50) | value(64)
const (
	shiftIsolated   = 8
	shiftExecution  = 9
	shiftReduceOnly = 11
	shiftTrigger    = 12
	shiftValue      = 64
	appendixBits    = 128
)

// AppendixOptions are the order flags carried in the appendix. The zero
// value is a default, cross-margin, non-reduce-only, untriggered order.
type AppendixOptions struct {
	ExecutionType ExecutionType
	ReduceOnly    bool
	Isolated      bool
	TriggerType   TriggerType
}

// Appendix is a decoded appendix word.
type Appendix struct {
	AppendixOptions
	Version uint8
	Value   uint64 // high 64 bits, unused by plain orders
}

// EncodeAppendix packs opts into the 128-bit appendix word.
func EncodeAppendix(opts AppendixOptions) (*big.Int, error) {
	if opts.ExecutionType > ExecutionPostOnly {
		return nil, fmt.Errorf("%w: execution type %d out of range", domain.ErrConfiguration, opts.ExecutionType)
	}
	if opts.TriggerType > TriggerTWAPCustomAmounts {
		return nil, fmt.Errorf("%w: trigger type %d out of range", domain.ErrConfiguration, opts.TriggerType)
	}

	var w uint64 = AppendixVersion
	if opts.Isolated {
		w |= 1 << shiftIsolated
	}
	w |= uint64(opts.ExecutionType) << shiftExecution
	if opts.ReduceOnly {
		w |= 1 << shiftReduceOnly
	}
	w |= uint64(opts.TriggerType) << shiftTrigger

	// value and reserved are zero, so the word fits in the low 64 bits.
	return new(big.Int).SetUint64(w), nil
}

// DecodeAppendix unpacks a 128-bit appendix word.
func DecodeAppendix(word *big.Int) (Appendix, error) {
	if word == nil || word.Sign() < 0 || word.BitLen() > appendixBits {
		return Appendix{}, fmt.Errorf("nado: appendix %v is not an unsigned 128-bit value", word)
	}

	mask64 := new(big.Int).SetUint64(^uint64(0))
	low := new(big.Int).And(word, mask64).Uint64()
	high := new(big.Int).Rsh(word, shiftValue).Uint64()

	return Appendix{
		AppendixOptions: AppendixOptions{
			Isolated:      (low>>shiftIsolated)&0x1 == 1,
			ExecutionType: ExecutionType((low >> shiftExecution) & 0x3),
			ReduceOnly:    (low>>shiftReduceOnly)&0x1 == 1,
			TriggerType:   TriggerType((low >> shiftTrigger) & 0x3),
		},
		Version: uint8(low & 0xff),
		Value:   high,
	}, nil
}

// ParseAppendix decodes the base-10 string form used on the wire.
func ParseAppendix(s string) (Appendix, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Appendix{}, fmt.Errorf("nado: invalid appendix %q", s)
	}
	return DecodeAppendix(v)
}
