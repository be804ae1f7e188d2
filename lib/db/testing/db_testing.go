package testing

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dCDT/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs the conformance suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Deadline", func(t *testing.T) {
			testDeadline(t, factory())
		})

		t.Run("Update", func(t *testing.T) {
			testUpdate(t, factory())
		})

		t.Run("UpdateKeepDeadline", func(t *testing.T) {
			testUpdateKeepDeadline(t, factory())
		})

		t.Run("StaleWrites", func(t *testing.T) {
			testStaleWrites(t, factory())
		})

		t.Run("ConcurrentUpdate", func(t *testing.T) {
			testConcurrentUpdate(t, factory())
		})

		t.Run("ConcurrentUpdateIndexed", func(t *testing.T) {
			testConcurrentUpdateIndexed(t, factory())
		})
		t.Run("GarbageCollect", func(t *testing.T) {
			testGarbageCollect(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func expectValue(t *testing.T, database db.KVDB, key string, want []byte) {
	t.Helper()
	got, ok := database.Get(key)
	if !ok {
		t.Errorf("Get(%q) found nothing, want %q", key, want)
		return
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get(%q) = %q, want %q", key, got, want)
	}
}

func expectMissing(t *testing.T, database db.KVDB, key string) {
	t.Helper()
	if got, ok := database.Get(key); ok {
		t.Errorf("Get(%q) = %q, want no value", key, got)
	}
	if database.Has(key) {
		t.Errorf("Has(%q) = true, want false", key)
	}
}

func write(value []byte) db.UpdateFunc {
	return func([]byte, bool) db.Mutation {
		return db.Mutation{Op: db.MutWrite, Value: value}
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	database.Set("k", []byte("v1"), 1)
	expectValue(t, database, "k", []byte("v1"))

	database.Set("k", []byte("v2"), 2)
	expectValue(t, database, "k", []byte("v2"))

	expectMissing(t, database, "nonexistent-key")

	// Get returns a copy
	retrieved, _ := database.Get("k")
	retrieved[0] = 'X'
	expectValue(t, database, "k", []byte("v2"))

	// Set copies its input
	input := []byte("v3")
	database.Set("k", input, 3)
	input[0] = 'X'
	expectValue(t, database, "k", []byte("v3"))
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureDelete|db.FeatureHas)

	database.Set("k", []byte("v"), 1)
	if !database.Has("k") {
		t.Fatalf("Has(k) = false after Set")
	}

	database.Delete("k", 2)
	expectMissing(t, database, "k")

	// deleting a missing key is a no-op
	database.Delete("missing", 3)
	expectMissing(t, database, "missing")

	// a deleted key can be written again
	database.Set("k", []byte("again"), 4)
	expectValue(t, database, "k", []byte("again"))
}

func testDeadline(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetE|db.FeatureGet|db.FeatureHas)

	database.SetE("k", []byte("v"), 100, 10)

	database.SetWriteIdx(109)
	expectValue(t, database, "k", []byte("v"))

	database.SetWriteIdx(110)
	expectMissing(t, database, "k")

	// a plain Set clears the deadline
	database.SetE("reset", []byte("v"), 200, 5)
	database.Set("reset", []byte("w"), 201)
	database.SetWriteIdx(210)
	expectValue(t, database, "reset", []byte("w"))

	// deleteIn=0 never expires
	database.SetE("forever", []byte("v"), 300, 0)
	database.SetWriteIdx(1 << 40)
	expectValue(t, database, "forever", []byte("v"))
}

func testUpdate(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureUpdate|db.FeatureGet)

	tests := []struct {
		name       string
		setup      []byte // nil = key does not exist
		mutation   db.Mutation
		wantLoaded bool
		want       []byte // nil = key must not exist afterwards
	}{
		{"create", nil, db.Mutation{Op: db.MutWrite, Value: []byte("new")}, false, []byte("new")},
		{"overwrite", []byte("old"), db.Mutation{Op: db.MutWrite, Value: []byte("new")}, true, []byte("new")},
		{"keep existing", []byte("old"), db.Mutation{Op: db.MutKeep}, true, []byte("old")},
		{"keep missing", nil, db.Mutation{Op: db.MutKeep}, false, nil},
		{"delete existing", []byte("old"), db.Mutation{Op: db.MutDelete}, true, nil},
		{"delete missing", nil, db.Mutation{Op: db.MutDelete}, false, nil},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := fmt.Sprintf("update-%d", i)
			idx := uint64(10 * (i + 1))
			if tt.setup != nil {
				database.Set(key, tt.setup, idx)
			}

			var (
				seen   []byte
				loaded bool
			)
			database.Update(key, db.FixedIndex(idx+1), func(old []byte, ok bool) db.Mutation {
				seen = append([]byte(nil), old...)
				loaded = ok
				return tt.mutation
			})

			if loaded != tt.wantLoaded {
				t.Errorf("Update() loaded = %v, want %v", loaded, tt.wantLoaded)
			}
			if tt.setup != nil && !bytes.Equal(seen, tt.setup) {
				t.Errorf("Update() old = %q, want %q", seen, tt.setup)
			}
			if tt.want == nil {
				expectMissing(t, database, key)
			} else {
				expectValue(t, database, key, tt.want)
			}
		})
	}
}

func testUpdateKeepDeadline(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureUpdate|db.FeatureSetE)

	database.SetE("k", []byte("v1"), 100, 10)
	database.Update("k", db.FixedIndex(105), func([]byte, bool) db.Mutation {
		return db.Mutation{Op: db.MutWrite, Value: []byte("v2"), KeepDeadline: true}
	})

	database.SetWriteIdx(109)
	expectValue(t, database, "k", []byte("v2"))

	database.SetWriteIdx(110)
	expectMissing(t, database, "k")

	// an update past the deadline sees no value
	var loaded bool
	database.Update("k", db.FixedIndex(111), func(_ []byte, ok bool) db.Mutation {
		loaded = ok
		return db.Mutation{Op: db.MutKeep}
	})
	if loaded {
		t.Errorf("Update() loaded = true for an entry past its deadline")
	}
}

func testStaleWrites(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureUpdate)

	database.Set("k", []byte("new"), 10)
	database.Set("k", []byte("stale"), 5)
	expectValue(t, database, "k", []byte("new"))

	called := false
	applied := database.Update("k", db.FixedIndex(9), func([]byte, bool) db.Mutation {
		called = true
		return db.Mutation{Op: db.MutDelete}
	})
	if called {
		t.Errorf("Update() with a stale index called the update function")
	}
	if applied {
		t.Errorf("Update() with a stale index = true, want false")
	}
	expectValue(t, database, "k", []byte("new"))

	// equal index is not stale
	database.Set("k", []byte("same"), 10)
	expectValue(t, database, "k", []byte("same"))
}

func testConcurrentUpdate(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureUpdate|db.FeatureGet)

	const (
		workers    = 8
		increments = 500
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				database.Update("counter", db.FixedIndex(1), func(old []byte, loaded bool) db.Mutation {
					var n uint64
					if loaded {
						n = binary.BigEndian.Uint64(old)
					}
					return db.Mutation{Op: db.MutWrite, Value: binary.BigEndian.AppendUint64(nil, n+1)}
				})
			}
		}()
	}
	wg.Wait()

	value, ok := database.Get("counter")
	if !ok {
		t.Fatalf("Get(counter) found nothing")
	}
	if got := binary.BigEndian.Uint64(value); got != workers*increments {
		t.Errorf("counter = %d, want %d", got, workers*increments)
	}
}

// testConcurrentUpdateIndexed races many updates of one key whose indexes
// come from a shared counter. Every update must be applied exactly once.
func testConcurrentUpdateIndexed(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureUpdate|db.FeatureGet)

	const (
		workers    = 64
		increments = 200
	)

	var (
		idx      atomic.Uint64
		notRun   atomic.Int64
		wg       sync.WaitGroup
		start    = make(chan struct{})
		nextIdx  = func() uint64 { return idx.Add(1) }
		increase = func(old []byte, loaded bool) db.Mutation {
			var n uint64
			if loaded {
				n = binary.BigEndian.Uint64(old)
			}
			return db.Mutation{Op: db.MutWrite, Value: binary.BigEndian.AppendUint64(nil, n+1)}
		}
	)

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < increments; i++ {
				if !database.Update("counter", nextIdx, increase) {
					notRun.Add(1)
				}
			}
		}()
	}
	close(start)
	wg.Wait()

	if n := notRun.Load(); n != 0 {
		t.Errorf("%d updates were not applied", n)
	}
	value, ok := database.Get("counter")
	if !ok {
		t.Fatalf("Get(counter) found nothing")
	}
	if got := binary.BigEndian.Uint64(value); got != workers*increments {
		t.Errorf("counter = %d, want %d", got, workers*increments)
	}
	if got := database.WriteIdx(); got != workers*increments {
		t.Errorf("WriteIdx() = %d, want %d", got, workers*increments)
	}
}

// testGarbageCollect writes many short-lived keys and checks that they all
// disappear while keys without a deadline stay.
func testGarbageCollect(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetE|db.FeatureGarbageCollect)

	const n = 1000
	for i := 0; i < n; i++ {
		database.SetE(fmt.Sprintf("gc-%d", i), []byte("v"), uint64(i+1), 5)
	}
	database.Set("survivor", []byte("v"), n+10)

	// give the collector a few cycles
	time.Sleep(300 * time.Millisecond)

	for i := 0; i < n; i++ {
		if database.Has(fmt.Sprintf("gc-%d", i)) {
			t.Fatalf("gc-%d still present", i)
		}
	}
	expectValue(t, database, "survivor", []byte("v"))
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	defer database.Close()

	requireFeature(t, database, db.FeatureSave|db.FeatureLoad|db.FeatureSetE)

	for i := 0; i < 100; i++ {
		database.Set(fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("value-%d", i)), uint64(i+1))
	}
	database.SetE("expiring", []byte("v"), 101, 50)
	database.Set("deleted", []byte("v"), 102)
	database.Delete("deleted", 103)

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	database2 := factory()
	defer database2.Close()
	if err := database2.Load(&buf); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for i := 0; i < 100; i++ {
		expectValue(t, database2, fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("value-%d", i)))
	}
	expectMissing(t, database2, "deleted")
	expectValue(t, database2, "expiring", []byte("v"))

	if got := database2.WriteIdx(); got < 101 {
		t.Errorf("WriteIdx() after Load = %d, want >= 101", got)
	}

	// deadlines survive the snapshot
	database2.SetWriteIdx(151)
	expectMissing(t, database2, "expiring")

	// garbage input
	database3 := factory()
	defer database3.Close()
	if err := database3.Load(bytes.NewReader([]byte("not a snapshot"))); err == nil {
		t.Errorf("Load() of garbage succeeded, want error")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	database.Set("", []byte("empty key"), 1)
	expectValue(t, database, "", []byte("empty key"))

	database.Set("empty", []byte{}, 2)
	expectValue(t, database, "empty", []byte{})

	database.Set("nil", nil, 3)
	if !database.Has("nil") {
		t.Errorf("Has(nil) = false, a nil value is still a value")
	}

	large := bytes.Repeat([]byte("x"), 1<<20)
	database.Set("large", large, 4)
	expectValue(t, database, "large", large)

	database.SetWriteIdx(100)
	database.SetWriteIdx(50)
	if got := database.WriteIdx(); got != 100 {
		t.Errorf("WriteIdx() = %d, want 100 (the index must never move backwards)", got)
	}
}
