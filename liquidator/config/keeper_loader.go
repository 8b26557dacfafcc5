package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"

	"github.com/dexkeeper/fee-liquidator/dex/ethdex"
	"github.com/dexkeeper/fee-liquidator/liquidator/manager"
)

// Keeper is the parsed, address-typed form of KeeperConfig.
type Keeper struct {
	Exchange      ethdex.Config
	Owner         common.Address
	Intermediates []common.Address
	Slippage      uint64
}

// LoadKeeperConfig reads and validates the keeper TOML file.
func LoadKeeperConfig(filePath string) (*Keeper, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read keeper config file: %w", err)
	}

	var raw KeeperConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return convertKeeperConfig(&raw)
}

func convertKeeperConfig(raw *KeeperConfig) (*Keeper, error) {
	if raw.Chain.Endpoint == "" {
		return nil, fmt.Errorf("chain endpoint is required")
	}
	if raw.Chain.ChainID <= 0 {
		return nil, fmt.Errorf("chain_id must be positive")
	}
	if raw.Chain.PrivateKeyEnv == "" {
		return nil, fmt.Errorf("private_key_env is required")
	}
	key := os.Getenv(raw.Chain.PrivateKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("controller key env %s is not set", raw.Chain.PrivateKeyEnv)
	}

	factory, err := parseAddress("chain.factory", raw.Chain.Factory)
	if err != nil {
		return nil, err
	}
	router, err := parseAddress("chain.router", raw.Chain.Router)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddress("manager.owner", raw.Manager.Owner)
	if err != nil {
		return nil, err
	}

	intermediates := make([]common.Address, len(raw.Manager.IntermediateAssets))
	for i, s := range raw.Manager.IntermediateAssets {
		addr, err := parseAddress(fmt.Sprintf("manager.intermediate_assets[%d]", i), s)
		if err != nil {
			return nil, err
		}
		intermediates[i] = addr
	}

	if raw.Manager.Slippage > manager.SlippageScale {
		return nil, fmt.Errorf("manager.slippage %d exceeds scale %d", raw.Manager.Slippage, manager.SlippageScale)
	}

	return &Keeper{
		Exchange: ethdex.Config{
			Endpoint:   raw.Chain.Endpoint,
			ChainID:    big.NewInt(raw.Chain.ChainID),
			PrivateKey: key,
			Factory:    factory,
			Router:     router,
		},
		Owner:         owner,
		Intermediates: intermediates,
		Slippage:      raw.Manager.Slippage,
	}, nil
}

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s is not a valid address: %q", field, value)
	}
	return common.HexToAddress(value), nil
}
