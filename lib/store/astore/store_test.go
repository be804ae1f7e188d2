package astore

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dCDT/lib/store"
	storetesting "github.com/ValentinKolb/dCDT/lib/store/testing"
)

var setCounter atomic.Int64

// newTestStore connects to the cluster at DCDT_AEROSPIKE_HOST and skips the
// test if the variable is not set. Every store gets its own set.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	host := os.Getenv("DCDT_AEROSPIKE_HOST")
	if host == "" {
		t.Skip("DCDT_AEROSPIKE_HOST not set")
	}
	namespace := os.Getenv("DCDT_AEROSPIKE_NAMESPACE")
	if namespace == "" {
		namespace = "test"
	}

	s, err := NewAerospikeStore(Config{
		Hosts:     []string{host},
		Namespace: namespace,
		Set:       fmt.Sprintf("dcdt_%d_%d", time.Now().UnixNano(), setCounter.Add(1)),
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewAerospikeStore() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestAerospikeStore(t *testing.T) {
	storetesting.RunStoreTests(t, "AerospikeStore", func() store.IStore {
		return newTestStore(t)
	}, storetesting.WithoutLogicalTTL(), storetesting.WithoutUDF())
}

func TestAerospikeDBInfo(t *testing.T) {
	s := newTestStore(t)
	info, err := s.GetDBInfo()
	if err != nil {
		t.Fatalf("GetDBInfo() error = %v", err)
	}
	if info.DbType != "aerospike" {
		t.Errorf("DbType = %s, want aerospike", info.DbType)
	}
}
