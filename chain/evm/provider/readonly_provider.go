package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ballotkit/voting-dapp/chain"
	"github.com/ballotkit/voting-dapp/chain/evm"
	"github.com/ballotkit/voting-dapp/chain/evm/provider/rpcclient"
	"github.com/ballotkit/voting-dapp/pkg/logger"
)

// RPCReadOnlyProviderConfig holds the configuration to initialize the RPCReadOnlyProvider.
type RPCReadOnlyProviderConfig struct {
	// Required: At least one RPC must be provided to connect to the EVM node.
	RPCs []rpcclient.RPC
	// Optional: ClientOpts are applied to the MultiClient the provider connects through.
	ClientOpts []func(client *rpcclient.MultiClient)
	// Optional: Logger is the logger to use. If not provided, a default logger will be used.
	Logger logger.Logger
}

var _ chain.Provider = (*RPCReadOnlyProvider)(nil)

// RPCReadOnlyProvider connects to an EVM node without any accounts. It stands in for a node
// endpoint that is reachable but cannot sign, and supports read-only contract calls only.
type RPCReadOnlyProvider struct {
	selector uint64
	config   RPCReadOnlyProviderConfig

	mu    sync.Mutex
	chain *evm.Chain
}

// NewRPCReadOnlyProvider creates a new RPCReadOnlyProvider.
func NewRPCReadOnlyProvider(selector uint64, config RPCReadOnlyProviderConfig) *RPCReadOnlyProvider {
	return &RPCReadOnlyProvider{
		selector: selector,
		config:   config,
	}
}

// Initialize connects to the configured RPCs and returns the chain.
func (p *RPCReadOnlyProvider) Initialize(context.Context) (evm.Chain, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.chain != nil {
		return *p.chain, nil
	}

	if p.config.Logger == nil {
		lggr, err := logger.New()
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to create default logger: %w", err)
		}
		p.config.Logger = lggr
	}

	if len(p.config.RPCs) == 0 {
		return evm.Chain{}, errors.New("at least one RPC is required")
	}

	chainID, err := evm.ChainIDFromSelector(p.selector)
	if err != nil {
		return evm.Chain{}, err
	}

	client, err := rpcclient.NewMultiClient(p.config.Logger, rpcclient.RPCConfig{
		ChainSelector: p.selector,
		RPCs:          p.config.RPCs,
	}, p.config.ClientOpts...)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to create multi-client: %w", err)
	}

	p.chain = &evm.Chain{
		Selector: p.selector,
		ChainID:  chainID,
		Client:   client,
	}

	return *p.chain, nil
}

// Name returns the name of the RPCReadOnlyProvider.
func (*RPCReadOnlyProvider) Name() string {
	return "EVM RPC Read-Only Provider"
}

// ChainSelector returns the chain selector of the chain the provider connects to.
func (p *RPCReadOnlyProvider) ChainSelector() uint64 {
	return p.selector
}
