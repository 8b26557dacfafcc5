package config

// ServiceConfig configures the HTTP admin surface.
type ServiceConfig struct {
	// rpc configs
	Port int    `toml:"port" mapstructure:"port"`
	Host string `toml:"host" mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins" mapstructure:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `toml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`

	// Prometheus endpoint toggle
	EnableMetrics bool `toml:"enable_metrics" mapstructure:"enable_metrics"`

	// Bearer tokens accepted by the admin API and the principal each one
	// acts as. Authorization against the owner happens in the manager, not
	// here; a valid token only establishes who is calling.
	AdminTokens []AdminToken `toml:"admin_tokens" mapstructure:"admin_tokens"`
}

// AdminToken maps one bearer token to the address it represents.
type AdminToken struct {
	Token     string `toml:"token" mapstructure:"token"`
	Principal string `toml:"principal" mapstructure:"principal"`
}

// KeeperConfig is the static liquidation configuration: chain endpoints,
// exchange contracts and the initial manager state.
type KeeperConfig struct {
	Chain   ChainConfig   `toml:"chain"`
	Manager ManagerConfig `toml:"manager"`
}

// ChainConfig locates the chain and the exchange contracts.
type ChainConfig struct {
	Endpoint string `toml:"endpoint"`
	ChainID  int64  `toml:"chain_id"`
	// Name of the environment variable holding the controller's hex-encoded
	// private key. The key itself never lives in the config file.
	PrivateKeyEnv string `toml:"private_key_env"`
	Factory       string `toml:"factory"`
	Router        string `toml:"router"`
}

// ManagerConfig seeds the configuration store.
type ManagerConfig struct {
	Owner              string   `toml:"owner"`
	IntermediateAssets []string `toml:"intermediate_assets"`
	Slippage           uint64   `toml:"slippage"`
}
