package leveldbkv_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shuffler/reportmaster/internal/kv"
	"github.com/shuffler/reportmaster/internal/kv/kvtest"
	"github.com/shuffler/reportmaster/internal/kv/leveldbkv"
)

func TestLevelDBStore_ConformsToContract(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		path := filepath.Join(t.TempDir(), "store")
		s, err := leveldbkv.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
