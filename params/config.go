package params

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	mapset "github.com/deckarep/golang-set"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/log"
)

const (
	defaultAPIPort = 11556

	defaultMaxSecretHoldTime   = 300  // seconds
	defaultValidationTolerance = 0.01 // 1%
	defaultPollInterval        = 5000 // milliseconds
	defaultUserDeadlineBuffer  = 300  // seconds
	defaultCancelAfterBuffer   = 600  // seconds
	defaultMinDeadlineGap      = 1800 // seconds
	defaultAlertWindow         = 300  // seconds
	defaultTimeoutTickInterval = 30   // seconds
	defaultConfirmations       = 12
	defaultMaxScanRange        = 1000

	defaultEmailMinInterval  = 1800 // seconds
	defaultDisclosureTimeout = 30   // seconds
)

// storage backends
const (
	BackendLevelDB  = "leveldb"
	BackendMongoDB  = "mongodb"
	BackendPostgres = "postgres"
)

var (
	relayerConfig     *RelayerConfig
	loadConfigStarter sync.Once
	supportedChains   = mapset.NewSet()
)

// RelayerConfig config items (decode from toml file)
type RelayerConfig struct {
	Identifier string
	Swap       *SwapConfig
	Chains     []*ChainConfig
	Storage    *StorageConfig
	APIServer  *APIServerConfig
	Disclosure *DisclosureConfig `toml:",omitempty" json:",omitempty"`
	Email      *EmailConfig      `toml:",omitempty" json:",omitempty"`
	Resolver   *ResolverConfig   `toml:",omitempty" json:",omitempty"`
}

// SwapConfig swap protocol options
type SwapConfig struct {
	MaxSecretHoldTime   int64   // seconds, grace period after the secret is shared
	ValidationTolerance float64 // 0..1, accepted exchange rate deviation
	PollInterval        int64   // milliseconds, chain monitor and liveness poll interval
	UserDeadlineBuffer  int64   // seconds, min distance of userDeadline from now
	CancelAfterBuffer   int64   // seconds, min distance of cancelAfter from now
	MinDeadlineGap      int64   // seconds, min cancelAfter - userDeadline
	AlertWindow         int64   // seconds, approaching deadline alert window
	TimeoutTickInterval int64   // seconds, timeout monitor tick
	HashAlgorithm       string  // keccak256 (default) or sha256
}

// ChainConfig one supported ledger
type ChainConfig struct {
	Name          string
	Family        string // evm or utxo
	RPCAddress    string
	ProjectID     string `toml:",omitempty" json:"-"`
	EscrowFactory string `toml:",omitempty" json:",omitempty"` // evm
	ScriptAddress string `toml:",omitempty" json:",omitempty"` // utxo
	MetadataLabel string `toml:",omitempty" json:",omitempty"` // utxo
	Confirmations *uint64
	MaxScanRange  uint64 `toml:",omitempty" json:",omitempty"`
	StartHeight   uint64 `toml:",omitempty" json:",omitempty"`
}

// StorageConfig registry storage config
type StorageConfig struct {
	Backend  string
	LevelDB  *LevelDBConfig  `toml:",omitempty" json:",omitempty"`
	MongoDB  *MongoDBConfig  `toml:",omitempty" json:",omitempty"`
	Postgres *PostgresConfig `toml:",omitempty" json:",omitempty"`
}

// LevelDBConfig leveldb config
type LevelDBConfig struct {
	Path    string
	Cache   int `toml:",omitempty" json:",omitempty"`
	Handles int `toml:",omitempty" json:",omitempty"`
}

// MongoDBConfig mongodb config
type MongoDBConfig struct {
	DBURL    string
	DBName   string
	UserName string `json:"-"`
	Password string `json:"-"`
}

// GetURL mongodb connection uri
func (c *MongoDBConfig) GetURL() string {
	url := c.DBURL
	if !strings.HasPrefix(url, "mongodb://") && !strings.HasPrefix(url, "mongodb+srv://") {
		url = "mongodb://" + url
	}
	return url
}

// PostgresConfig postgres config
type PostgresConfig struct {
	DSN string `json:"-"`
}

// APIServerConfig api service config
type APIServerConfig struct {
	Port             int
	AllowedOrigins   []string
	MaxRequestsLimit int
	BearerTokens     []string `json:"-"`
	TokensFile       string   `toml:",omitempty" json:",omitempty"`
}

// DisclosureConfig public disclosure sink config
type DisclosureConfig struct {
	IPFSAPI string
	Timeout int `toml:",omitempty" json:",omitempty"` // seconds
}

// EmailConfig deadline alert email config
type EmailConfig struct {
	Server      string
	Port        int
	From        string
	FromName    string
	Password    string `json:"-"`
	To          []string
	Cc          []string
	MinInterval int64 `toml:",omitempty" json:",omitempty"` // seconds, per order
}

// ResolverConfig resolver side orchestration config
type ResolverConfig struct {
	Enable       bool
	Address      string
	SignerRPC    string // remote wallet building and signing escrow transactions
	MinProfitBps int64
	QuoteRates   map[string]string `toml:",omitempty" json:",omitempty"` // "srcChain/dstChain" -> expected rate
}

// GetConfig get relayer config
func GetConfig() *RelayerConfig {
	return relayerConfig
}

// SetConfig set relayer config
func SetConfig(config *RelayerConfig) {
	config.SetDefaults()
	relayerConfig = config
	supportedChains = mapset.NewSet()
	for _, chain := range config.Chains {
		supportedChains.Add(chain.Name)
	}
}

// GetSwapConfig get swap config
func GetSwapConfig() *SwapConfig {
	return GetConfig().Swap
}

// GetChainConfig get chain config by name
func GetChainConfig(name string) *ChainConfig {
	for _, chain := range GetConfig().Chains {
		if chain.Name == name {
			return chain
		}
	}
	return nil
}

// IsSupportedChain is chain configured
func IsSupportedChain(name string) bool {
	return supportedChains.Contains(name)
}

// GetAPIPort get api service port
func GetAPIPort() int {
	apiPort := GetConfig().APIServer.Port
	if apiPort == 0 {
		apiPort = defaultAPIPort
	}
	return apiPort
}

// GetIdentifier get identifier
func GetIdentifier() string {
	return GetConfig().Identifier
}

// IsResolverEnabled is resolver side orchestration enabled
func IsResolverEnabled() bool {
	return GetConfig().Resolver != nil && GetConfig().Resolver.Enable
}

// SetDefaults fill in unset options
func (c *RelayerConfig) SetDefaults() {
	if c.Swap == nil {
		c.Swap = &SwapConfig{}
	}
	c.Swap.SetDefaults()
	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendLevelDB
	}
	if c.APIServer == nil {
		c.APIServer = &APIServerConfig{}
	}
	if c.Disclosure != nil && c.Disclosure.Timeout == 0 {
		c.Disclosure.Timeout = defaultDisclosureTimeout
	}
	if c.Email != nil && c.Email.MinInterval == 0 {
		c.Email.MinInterval = defaultEmailMinInterval
	}
	for _, chain := range c.Chains {
		if chain.Confirmations == nil {
			confirmations := uint64(defaultConfirmations)
			chain.Confirmations = &confirmations
		}
		if chain.MaxScanRange == 0 {
			chain.MaxScanRange = defaultMaxScanRange
		}
	}
}

// SetDefaults fill in unset swap options
func (c *SwapConfig) SetDefaults() {
	if c.MaxSecretHoldTime == 0 {
		c.MaxSecretHoldTime = defaultMaxSecretHoldTime
	}
	if c.ValidationTolerance == 0 {
		c.ValidationTolerance = defaultValidationTolerance
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.UserDeadlineBuffer == 0 {
		c.UserDeadlineBuffer = defaultUserDeadlineBuffer
	}
	if c.CancelAfterBuffer == 0 {
		c.CancelAfterBuffer = defaultCancelAfterBuffer
	}
	if c.MinDeadlineGap == 0 {
		c.MinDeadlineGap = defaultMinDeadlineGap
	}
	if c.AlertWindow == 0 {
		c.AlertWindow = defaultAlertWindow
	}
	if c.TimeoutTickInterval == 0 {
		c.TimeoutTickInterval = defaultTimeoutTickInterval
	}
	if c.HashAlgorithm == "" {
		c.HashAlgorithm = common.HashKeccak256
	}
}

// PollDuration poll interval as duration
func (c *SwapConfig) PollDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}

// TimeoutTickDuration timeout monitor tick as duration
func (c *SwapConfig) TimeoutTickDuration() time.Duration {
	return time.Duration(c.TimeoutTickInterval) * time.Second
}

// DefaultSwapConfig swap config with all defaults applied
func DefaultSwapConfig() *SwapConfig {
	c := &SwapConfig{}
	c.SetDefaults()
	return c
}

// DecodeConfigFile decode and check config file
func DecodeConfigFile(configFile string) (*RelayerConfig, error) {
	if !common.FileExist(configFile) {
		return nil, fmt.Errorf("config file %v not exist", configFile)
	}
	config := &RelayerConfig{}
	if _, err := toml.DecodeFile(configFile, config); err != nil {
		return nil, fmt.Errorf("toml DecodeFile: %w", err)
	}
	config.SetDefaults()
	if err := config.CheckConfig(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfig load config
func LoadConfig(configFile string) *RelayerConfig {
	loadConfigStarter.Do(func() {
		if configFile == "" {
			log.Fatalf("LoadConfig error: no config file specified")
		}
		log.Println("Config file is", configFile)
		config, err := DecodeConfigFile(configFile)
		if err != nil {
			log.Fatalf("LoadConfig error: %v", err)
		}
		SetConfig(config)
		var bs []byte
		if log.JSONFormat {
			bs, _ = json.Marshal(config)
		} else {
			bs, _ = json.MarshalIndent(config, "", "  ")
		}
		log.Println("LoadConfig finished.", string(bs))
		log.Info("Check config success", "configFile", configFile)
	})
	return relayerConfig
}
