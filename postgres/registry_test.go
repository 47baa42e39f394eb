package postgres

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/registry/registrytest"
)

// HTLC_TEST_POSTGRES_DSN points at a disposable database, its tables are truncated
const dsnEnv = "HTLC_TEST_POSTGRES_DSN"

func TestRegistryContract(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%v is not set", dsnEnv)
	}
	registrytest.Run(t, func(t *testing.T) registry.Registry {
		reg, err := NewRegistry(dsn)
		require.NoError(t, err)
		_, err = reg.db.Exec(`TRUNCATE swaps, chain_cursors`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = reg.Close() })
		return reg
	})
}
