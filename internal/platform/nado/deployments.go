// Package nado is the client for the Nado perpetuals venue: deployments,
// order appendix and nonce encoding, EIP-712 order signing, and the gateway
// REST and WebSocket transports.
package nado

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// Deployment is the per-network constant set.
type Deployment struct {
	Network      string
	ChainID      int64
	Sequencer    common.Address // verifying contract for cancellations
	GatewayURL   string
	WebSocketURL string
}

var deployments = map[string]Deployment{
	"inkMainnet": {
		Network:      "inkMainnet",
		ChainID:      57073,
		Sequencer:    common.HexToAddress("0x05ec92D78ED421f3D3Ada77FFdE167106565974E"),
		GatewayURL:   "https://gateway.prod.nado.xyz/v1",
		WebSocketURL: "wss://gateway.prod.nado.xyz/v1/ws",
	},
	"inkTestnet": {
		Network:      "inkTestnet",
		ChainID:      763373,
		Sequencer:    common.HexToAddress("0x698D87105274292B5673367DEC81874Ce3633Ac2"),
		GatewayURL:   "https://gateway.testnet.nado.xyz/v1",
		WebSocketURL: "wss://gateway.testnet.nado.xyz/v1/ws",
	},
}

// LookupDeployment returns the deployment for a network name.
func LookupDeployment(network string) (Deployment, error) {
	d, ok := deployments[network]
	if !ok {
		return Deployment{}, fmt.Errorf("%w: unsupported nado network %q (valid: inkMainnet, inkTestnet)",
			domain.ErrConfiguration, network)
	}
	return d, nil
}

// Networks lists the known network names.
func Networks() []string {
	out := make([]string, 0, len(deployments))
	for n := range deployments {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
