// Package ethdex implements the dex interfaces against a live EVM chain
// running a UniswapV2-style exchange. Contract access goes through
// bind.BoundContract with hand-curated ABI fragments; every mutating call is
// submitted as a transaction and waited to a successful receipt before the
// pipeline continues.
package ethdex

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/dexkeeper/fee-liquidator/dex"
)

var ethdexLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	ethdexLog = zerolog.New(out).With().Timestamp().Str("component", "ethdex").Logger()
}

// Config carries the chain endpoints and contract addresses for a client.
type Config struct {
	Endpoint   string // JSON-RPC endpoint
	ChainID    *big.Int
	PrivateKey string // hex-encoded controller key, no 0x prefix
	Factory    common.Address
	Router     common.Address
}

// Client talks to the factory, router, pair and asset contracts on behalf of
// the controller account derived from the configured key.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	key     *ecdsa.PrivateKey
	opts    *bind.TransactOpts
	self    common.Address
	router  common.Address

	factoryContract *bind.BoundContract
	routerContract  *bind.BoundContract
}

var _ dex.Exchange = (*Client)(nil)

// NewClient dials the endpoint and binds the factory and router contracts.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.Endpoint, err)
	}

	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse controller key: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}

	c := &Client{
		eth:             eth,
		chainID:         cfg.ChainID,
		key:             key,
		opts:            opts,
		self:            crypto.PubkeyToAddress(key.PublicKey),
		router:          cfg.Router,
		factoryContract: bind.NewBoundContract(cfg.Factory, parsedFactoryABI, eth, eth, eth),
		routerContract:  bind.NewBoundContract(cfg.Router, parsedRouterABI, eth, eth, eth),
	}

	ethdexLog.Info().
		Str("controller", c.self.Hex()).
		Str("factory", cfg.Factory.Hex()).
		Str("router", cfg.Router.Hex()).
		Msg("Exchange client ready")

	return c, nil
}

// Self returns the controller address.
func (c *Client) Self() common.Address {
	return c.self
}

// RouterAddress returns the router contract address.
func (c *Client) RouterAddress() common.Address {
	return c.router
}

// NativeBalance reads the controller's native-currency balance.
func (c *Client) NativeBalance(ctx context.Context) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, c.self, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read native balance: %w", err)
	}
	return balance, nil
}

// SendNative transfers native currency from the controller to the receiver.
func (c *Client) SendNative(ctx context.Context, to common.Address, amount *big.Int) error {
	nonce, err := c.eth.PendingNonceAt(ctx, c.self)
	if err != nil {
		return fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amount,
		Gas:      21000,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return fmt.Errorf("failed to sign native transfer: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("failed to send native transfer: %w", err)
	}
	return c.waitMined(ctx, signed)
}

// Atomic runs fn against this client. A live chain cannot roll back already
// mined transactions, so the unit is fail-stop rather than fully atomic: the
// first error halts the batch and nothing further is submitted. Whole-batch
// rollback requires relaying the generated transactions as a single bundle,
// which is an operator concern outside this client.
func (c *Client) Atomic(ctx context.Context, fn func(dex.Exchange) error) error {
	return fn(c)
}

// callOpts builds read options bound to ctx.
func (c *Client) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx}
}

// transact submits a state-changing contract call and waits for a successful
// receipt. The keyed transactor serializes nonces, so calls issued in order
// are mined in order.
func (c *Client) transact(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) error {
	opts := *c.opts
	opts.Context = ctx

	tx, err := contract.Transact(&opts, method, params...)
	if err != nil {
		return fmt.Errorf("%s transaction failed: %w", method, err)
	}
	return c.waitMined(ctx, tx)
}

func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return fmt.Errorf("failed waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	ethdexLog.Debug().
		Str("tx", tx.Hash().Hex()).
		Uint64("block", receipt.BlockNumber.Uint64()).
		Msg("Transaction mined")
	return nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
