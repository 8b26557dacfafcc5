package ethdex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// GetPool asks the factory for the (assetA, assetB) pair pool. The factory
// returns the zero address when no pool has been created.
func (c *Client) GetPool(ctx context.Context, assetA, assetB common.Address) (common.Address, bool, error) {
	var out []interface{}
	if err := c.factoryContract.Call(c.callOpts(ctx), &out, "getPair", assetA, assetB); err != nil {
		return common.Address{}, false, fmt.Errorf("getPair call failed: %w", err)
	}
	pool := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	if pool == (common.Address{}) {
		return common.Address{}, false, nil
	}
	return pool, true, nil
}

// RemoveLiquidity burns the LP amount and pays both underlying assets to the
// receiver before the deadline.
func (c *Client) RemoveLiquidity(ctx context.Context, assetA, assetB common.Address, liquidity, minA, minB *big.Int, to common.Address, deadline *big.Int) error {
	return c.transact(ctx, c.routerContract, "removeLiquidity", assetA, assetB, liquidity, minA, minB, to, deadline)
}

// GetAmountsOut quotes the swap output along path for amountIn.
func (c *Client) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	var out []interface{}
	if err := c.routerContract.Call(c.callOpts(ctx), &out, "getAmountsOut", amountIn, path); err != nil {
		return nil, fmt.Errorf("getAmountsOut call failed: %w", err)
	}
	amounts := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	return amounts, nil
}

// SwapExactTokensForTokens executes the bounded swap along path.
func (c *Client) SwapExactTokensForTokens(ctx context.Context, amountIn, minOut *big.Int, path []common.Address, to common.Address, deadline *big.Int) error {
	return c.transact(ctx, c.routerContract, "swapExactTokensForTokens", amountIn, minOut, path, to, deadline)
}

// BalanceOf reads the holder's balance on an asset or LP token contract.
func (c *Client) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	var out []interface{}
	contract := c.tokenContract(token)
	if err := contract.Call(c.callOpts(ctx), &out, "balanceOf", holder); err != nil {
		return nil, fmt.Errorf("balanceOf call on %s failed: %w", token.Hex(), err)
	}
	balance := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return balance, nil
}

// Approve grants the spender an allowance on the token.
func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	return c.transact(ctx, c.tokenContract(token), "approve", spender, amount)
}

// Transfer moves amount of token from the controller to the receiver.
func (c *Client) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) error {
	return c.transact(ctx, c.tokenContract(token), "transfer", to, amount)
}

// UnderlyingAssets reads token0/token1 from an LP pair contract.
func (c *Client) UnderlyingAssets(ctx context.Context, pair common.Address) (common.Address, common.Address, error) {
	contract := bind.NewBoundContract(pair, parsedPairABI, c.eth, c.eth, c.eth)

	var out0 []interface{}
	if err := contract.Call(c.callOpts(ctx), &out0, "token0"); err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("token0 call on %s failed: %w", pair.Hex(), err)
	}
	var out1 []interface{}
	if err := contract.Call(c.callOpts(ctx), &out1, "token1"); err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("token1 call on %s failed: %w", pair.Hex(), err)
	}

	asset0 := *abi.ConvertType(out0[0], new(common.Address)).(*common.Address)
	asset1 := *abi.ConvertType(out1[0], new(common.Address)).(*common.Address)
	return asset0, asset1, nil
}

func (c *Client) tokenContract(token common.Address) *bind.BoundContract {
	return bind.NewBoundContract(token, parsedERC20ABI, c.eth, c.eth, c.eth)
}
