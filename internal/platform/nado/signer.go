package nado

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/alanyoungcy/hedgebot/internal/crypto"
	"github.com/alanyoungcy/hedgebot/internal/domain"
)

const (
	domainName    = "Nado"
	domainVersion = "0.0.1"
)

var domainTypes = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

var (
	orderTypes = []apitypes.Type{
		{Name: "sender", Type: "bytes32"},
		{Name: "priceX18", Type: "int128"},
		{Name: "amount", Type: "int128"},
		{Name: "expiration", Type: "uint64"},
		{Name: "nonce", Type: "uint64"},
		{Name: "appendix", Type: "uint128"},
	}
	cancellationTypes = []apitypes.Type{
		{Name: "sender", Type: "bytes32"},
		{Name: "productIds", Type: "uint32[]"},
		{Name: "digests", Type: "bytes32[]"},
		{Name: "nonce", Type: "uint64"},
	}
	cancellationProductsTypes = []apitypes.Type{
		{Name: "sender", Type: "bytes32"},
		{Name: "productIds", Type: "uint32[]"},
		{Name: "nonce", Type: "uint64"},
	}
)

// ProductAddress is the verifying contract for orders on productID:
// address(uint160(productID)).
func ProductAddress(productID int64) common.Address {
	return common.BigToAddress(big.NewInt(productID))
}

func typedDomain(chainID int64, verifying common.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              domainName,
		Version:           domainVersion,
		ChainId:           math.NewHexOrDecimal256(chainID),
		VerifyingContract: verifying.Hex(),
	}
}

// OrderTypedData builds the EIP-712 payload for a place-order message.
func OrderTypedData(chainID, productID int64, tx OrderTx) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"Order":        orderTypes,
		},
		PrimaryType: "Order",
		Domain:      typedDomain(chainID, ProductAddress(productID)),
		Message: apitypes.TypedDataMessage{
			"sender":     tx.Sender,
			"priceX18":   tx.PriceX18,
			"amount":     tx.Amount,
			"expiration": tx.Expiration,
			"nonce":      tx.Nonce,
			"appendix":   tx.Appendix,
		},
	}
}

// CancelOrdersTypedData builds the Cancellation payload, verified by the
// sequencer.
func CancelOrdersTypedData(chainID int64, sequencer common.Address, tx CancelOrdersTx) apitypes.TypedData {
	digests := make([]interface{}, len(tx.Digests))
	for i, d := range tx.Digests {
		digests[i] = d
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"Cancellation": cancellationTypes,
		},
		PrimaryType: "Cancellation",
		Domain:      typedDomain(chainID, sequencer),
		Message: apitypes.TypedDataMessage{
			"sender":     tx.Sender,
			"productIds": productIDList(tx.ProductIDs),
			"digests":    digests,
			"nonce":      tx.Nonce,
		},
	}
}

// CancelProductOrdersTypedData builds the CancellationProducts payload,
// verified by the sequencer.
func CancelProductOrdersTypedData(chainID int64, sequencer common.Address, tx CancelProductOrdersTx) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain":         domainTypes,
			"CancellationProducts": cancellationProductsTypes,
		},
		PrimaryType: "CancellationProducts",
		Domain:      typedDomain(chainID, sequencer),
		Message: apitypes.TypedDataMessage{
			"sender":     tx.Sender,
			"productIds": productIDList(tx.ProductIDs),
			"nonce":      tx.Nonce,
		},
	}
}

func productIDList(ids []int64) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = big.NewInt(id)
	}
	return out
}

// OrderSigner turns Nado transactions into signed payloads. It does not
// retry; a failed or timed-out signature is returned as ErrSigning.
type OrderSigner struct {
	signer    crypto.TypedDataSigner
	chainID   int64
	sequencer common.Address
}

// NewOrderSigner binds a signing capability to a deployment.
func NewOrderSigner(signer crypto.TypedDataSigner, d Deployment) *OrderSigner {
	return &OrderSigner{signer: signer, chainID: d.ChainID, sequencer: d.Sequencer}
}

// Address is the wallet address of the underlying key.
func (s *OrderSigner) Address() common.Address {
	return s.signer.Address()
}

// SignOrder signs tx for productID. The returned digest is the order id.
func (s *OrderSigner) SignOrder(ctx context.Context, productID int64, tx OrderTx) (crypto.TypedSignature, error) {
	return s.sign(ctx, OrderTypedData(s.chainID, productID, tx))
}

// SignCancelOrders signs a Cancellation.
func (s *OrderSigner) SignCancelOrders(ctx context.Context, tx CancelOrdersTx) (crypto.TypedSignature, error) {
	return s.sign(ctx, CancelOrdersTypedData(s.chainID, s.sequencer, tx))
}

// SignCancelProductOrders signs a CancellationProducts.
func (s *OrderSigner) SignCancelProductOrders(ctx context.Context, tx CancelProductOrdersTx) (crypto.TypedSignature, error) {
	return s.sign(ctx, CancelProductOrdersTypedData(s.chainID, s.sequencer, tx))
}

func (s *OrderSigner) sign(ctx context.Context, td apitypes.TypedData) (crypto.TypedSignature, error) {
	sig, err := s.signer.SignTypedData(ctx, td)
	if err != nil {
		return crypto.TypedSignature{}, fmt.Errorf("%w: nado %s: %w", domain.ErrSigning, td.PrimaryType, err)
	}
	return sig, nil
}
