package params

import (
	"errors"
	"fmt"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/types"
)

// lower bounds of swap options
const (
	MinSecretHoldTime  = 60   // seconds
	MinPollInterval    = 1000 // milliseconds
	MinUserDlBuffer    = 300  // seconds
	MinCancelAftBuffer = 600  // seconds
)

// CheckConfig check relayer config
func (c *RelayerConfig) CheckConfig() (err error) {
	if c.Identifier == "" {
		return errors.New("relayer must config non empty 'Identifier'")
	}
	if c.Swap == nil {
		return errors.New("relayer must config 'Swap'")
	}
	if err = c.Swap.CheckConfig(); err != nil {
		return err
	}
	if len(c.Chains) < 2 {
		return errors.New("relayer must config at least two 'Chains'")
	}
	names := make(map[string]struct{}, len(c.Chains))
	for _, chain := range c.Chains {
		if err = chain.CheckConfig(); err != nil {
			return err
		}
		if _, exist := names[chain.Name]; exist {
			return fmt.Errorf("duplicate chain name '%v'", chain.Name)
		}
		names[chain.Name] = struct{}{}
	}
	if c.Storage == nil {
		return errors.New("relayer must config 'Storage'")
	}
	if err = c.Storage.CheckConfig(); err != nil {
		return err
	}
	if c.APIServer == nil {
		return errors.New("relayer must config 'APIServer'")
	}
	if len(c.APIServer.BearerTokens) == 0 && c.APIServer.TokensFile == "" {
		return errors.New("api server must config 'BearerTokens' or 'TokensFile'")
	}
	if c.Email != nil {
		if c.Email.Server == "" || c.Email.From == "" || len(c.Email.To) == 0 {
			return errors.New("email must config 'Server', 'From' and 'To'")
		}
	}
	if c.Resolver != nil && c.Resolver.Enable {
		if c.Resolver.Address == "" || c.Resolver.SignerRPC == "" {
			return errors.New("resolver must config 'Address' and 'SignerRPC'")
		}
		if c.Resolver.MinProfitBps < 0 {
			return errors.New("resolver 'MinProfitBps' must not be negative")
		}
	}
	return nil
}

// CheckConfig check swap config
func (c *SwapConfig) CheckConfig() error {
	if c.MaxSecretHoldTime < MinSecretHoldTime {
		return fmt.Errorf("swap 'MaxSecretHoldTime' must be at least %v seconds", MinSecretHoldTime)
	}
	if c.ValidationTolerance < 0 || c.ValidationTolerance > 1 {
		return errors.New("swap 'ValidationTolerance' must be in range [0, 1]")
	}
	if c.PollInterval < MinPollInterval {
		return fmt.Errorf("swap 'PollInterval' must be at least %v milliseconds", MinPollInterval)
	}
	if c.UserDeadlineBuffer < MinUserDlBuffer {
		return fmt.Errorf("swap 'UserDeadlineBuffer' must be at least %v seconds", MinUserDlBuffer)
	}
	if c.CancelAfterBuffer < MinCancelAftBuffer {
		return fmt.Errorf("swap 'CancelAfterBuffer' must be at least %v seconds", MinCancelAftBuffer)
	}
	if c.MinDeadlineGap <= 0 {
		return errors.New("swap 'MinDeadlineGap' must be positive")
	}
	if c.AlertWindow <= 0 {
		return errors.New("swap 'AlertWindow' must be positive")
	}
	if !common.IsValidHashAlgorithm(c.HashAlgorithm) {
		return fmt.Errorf("swap 'HashAlgorithm' %v is not supported", c.HashAlgorithm)
	}
	return nil
}

// CheckConfig check chain config
func (c *ChainConfig) CheckConfig() error {
	if c.Name == "" {
		return errors.New("chain must config 'Name'")
	}
	if !types.ChainFamily(c.Family).IsValid() {
		return fmt.Errorf("chain '%v' has unsupported 'Family' %v", c.Name, c.Family)
	}
	if c.RPCAddress == "" {
		return fmt.Errorf("chain '%v' must config 'RPCAddress'", c.Name)
	}
	switch types.ChainFamily(c.Family) {
	case types.FamilyEVM:
		if c.EscrowFactory == "" {
			return fmt.Errorf("evm chain '%v' must config 'EscrowFactory'", c.Name)
		}
	case types.FamilyUTXO:
		if c.ScriptAddress == "" || c.MetadataLabel == "" {
			return fmt.Errorf("utxo chain '%v' must config 'ScriptAddress' and 'MetadataLabel'", c.Name)
		}
	}
	return nil
}

// CheckConfig check storage config
func (c *StorageConfig) CheckConfig() error {
	switch c.Backend {
	case BackendLevelDB:
		if c.LevelDB == nil || c.LevelDB.Path == "" {
			return errors.New("storage must config 'LevelDB.Path'")
		}
	case BackendMongoDB:
		if c.MongoDB == nil || c.MongoDB.DBURL == "" || c.MongoDB.DBName == "" {
			return errors.New("storage must config 'MongoDB.DBURL' and 'MongoDB.DBName'")
		}
	case BackendPostgres:
		if c.Postgres == nil || c.Postgres.DSN == "" {
			return errors.New("storage must config 'Postgres.DSN'")
		}
	default:
		return fmt.Errorf("unsupported storage backend '%v'", c.Backend)
	}
	return nil
}
