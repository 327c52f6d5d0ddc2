package memkv_test

import (
	"testing"

	"github.com/shuffler/reportmaster/internal/kv"
	"github.com/shuffler/reportmaster/internal/kv/kvtest"
	"github.com/shuffler/reportmaster/internal/kv/memkv"
)

func TestMemStore_ConformsToContract(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		return memkv.New()
	})
}
