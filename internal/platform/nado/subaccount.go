package nado

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultSubaccountName is the subaccount Nado creates for every wallet.
const DefaultSubaccountName = "default"

// Subaccount is the 32-byte sender id: 20-byte address followed by a 12-byte
// name.
type Subaccount [32]byte

// NewSubaccount packs addr and name. The name's UTF-8 bytes are truncated or
// zero-padded to 12 bytes.
func NewSubaccount(addr common.Address, name string) Subaccount {
	var s Subaccount
	copy(s[:20], addr.Bytes())
	copy(s[20:], []byte(name))
	return s
}

// Hex returns the lowercase 0x-prefixed form used on the wire.
func (s Subaccount) Hex() string {
	return "0x" + hex.EncodeToString(s[:])
}

// Address returns the wallet part.
func (s Subaccount) Address() common.Address {
	return common.BytesToAddress(s[:20])
}
