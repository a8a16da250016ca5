// Package registry reads agent identities from ERC-8004 identity registry contracts.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/ports"
)

// IdentityRegistryABI is the read-only subset of the ERC-8004 identity registry
const IdentityRegistryABI = `[
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getAgentWallet","stateMutability":"view","inputs":[{"name":"agentId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"error","name":"ERC721NonexistentToken","inputs":[{"name":"tokenId","type":"uint256"}]}
]`

var (
	parsedABI = mustParseABI(IdentityRegistryABI)

	// selector of ERC721NonexistentToken(uint256)
	nonexistentTokenSelector = parsedABI.Errors["ERC721NonexistentToken"].ID.Bytes()[:4]

	errReverted = errors.New("execution reverted")
)

// Chain is one configured registry deployment
type Chain struct {
	ChainID  uint64
	Registry common.Address
	Caller   ethereum.ContractCaller
}

// ERC8004Registry implements ports.Registry over one or more chains
type ERC8004Registry struct {
	chains map[uint64]Chain
}

// NewERC8004Registry creates a registry reader for the given chains
func NewERC8004Registry(chains ...Chain) *ERC8004Registry {
	r := &ERC8004Registry{chains: make(map[uint64]Chain, len(chains))}
	for _, c := range chains {
		r.chains[c.ChainID] = c
	}
	return r
}

// Chains returns the configured chain ids in ascending order
func (r *ERC8004Registry) Chains() []uint64 {
	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OwnerOf returns the token owner; a revert means the agent does not exist
func (r *ERC8004Registry) OwnerOf(ctx context.Context, chainID, agentID uint64) (common.Address, error) {
	var owner common.Address
	err := r.call(ctx, chainID, "ownerOf", agentID, &owner)
	if errors.Is(err, errReverted) {
		return common.Address{}, fmt.Errorf("agent %d on chain %d: %w", agentID, chainID, core.ErrNotRegistered)
	}
	if err != nil {
		return common.Address{}, noCode(err)
	}
	if owner == (common.Address{}) {
		return common.Address{}, fmt.Errorf("agent %d on chain %d has no owner: %w", agentID, chainID, core.ErrNotRegistered)
	}
	return owner, nil
}

// TokenURI returns the registration URI of the agent
func (r *ERC8004Registry) TokenURI(ctx context.Context, chainID, agentID uint64) (string, error) {
	var uri string
	err := r.call(ctx, chainID, "tokenURI", agentID, &uri)
	if errors.Is(err, errReverted) {
		return "", fmt.Errorf("agent %d on chain %d: %w", agentID, chainID, core.ErrNotRegistered)
	}
	if err != nil {
		return "", noCode(err)
	}
	return uri, nil
}

// AgentWallet returns the dedicated agent wallet, or the zero address when the
// registry does not implement getAgentWallet or has none set
func (r *ERC8004Registry) AgentWallet(ctx context.Context, chainID, agentID uint64) (common.Address, error) {
	var wallet common.Address
	err := r.call(ctx, chainID, "getAgentWallet", agentID, &wallet)
	if errors.Is(err, errReverted) || errors.Is(err, errEmptyResult) {
		return common.Address{}, nil
	}
	return wallet, err
}

var errEmptyResult = errors.New("empty call result")

// noCode maps an empty result from a required method to an upstream failure:
// the configured address holds no registry.
func noCode(err error) error {
	if errors.Is(err, errEmptyResult) {
		return fmt.Errorf("%v: %w", err, core.ErrUpstreamUnavailable)
	}
	return err
}

func (r *ERC8004Registry) call(ctx context.Context, chainID uint64, method string, agentID uint64, out interface{}) error {
	chain, ok := r.chains[chainID]
	if !ok {
		return fmt.Errorf("chain %d: %w", chainID, core.ErrNoRegistryConfigured)
	}

	input, err := parsedABI.Pack(method, new(big.Int).SetUint64(agentID))
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	to := chain.Registry
	output, err := chain.Caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		if isRevert(err) {
			return fmt.Errorf("%s(%d): %w: %s", method, agentID, errReverted, revertReason(err))
		}
		return fmt.Errorf("%s(%d) on chain %d: %v: %w", method, agentID, chainID, err, core.ErrUpstreamUnavailable)
	}
	if len(output) == 0 {
		return fmt.Errorf("%s(%d): %w", method, agentID, errEmptyResult)
	}

	results, err := parsedABI.Unpack(method, output)
	if err != nil || len(results) != 1 {
		return fmt.Errorf("failed to unpack %s: %v: %w", method, err, core.ErrUpstreamUnavailable)
	}

	switch dst := out.(type) {
	case *common.Address:
		v, ok := results[0].(common.Address)
		if !ok {
			return fmt.Errorf("unexpected %s result %T: %w", method, results[0], core.ErrUpstreamUnavailable)
		}
		*dst = v
	case *string:
		v, ok := results[0].(string)
		if !ok {
			return fmt.Errorf("unexpected %s result %T: %w", method, results[0], core.ErrUpstreamUnavailable)
		}
		*dst = v
	default:
		return fmt.Errorf("unsupported result type %T", out)
	}
	return nil
}

// isRevert separates contract reverts from transport errors. Nodes report
// reverts as JSON-RPC errors carrying revert data, or with an
// "execution reverted" message when the data is stripped.
func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"execution reverted", "nonexistent token", "invalid token id", "vm execution error"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func revertReason(err error) string {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return err.Error()
	}
	hexData, ok := dataErr.ErrorData().(string)
	if !ok {
		return err.Error()
	}
	data, decodeErr := hexutil.Decode(hexData)
	if decodeErr != nil {
		return err.Error()
	}
	if len(data) >= 4 && string(data[:4]) == string(nonexistentTokenSelector) {
		return "ERC721NonexistentToken"
	}
	if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
		return reason
	}
	return err.Error()
}

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

var _ ports.Registry = (*ERC8004Registry)(nil)
