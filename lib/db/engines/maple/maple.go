package maple

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/dCDT/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum          = "MAPLEDB\x00"          // File format identifier
	mapleVersion      = 4                      // Database version
	defaultGCInterval = 100 * time.Millisecond // Default interval between GC runs
	samplesPerShard   = 100                    // Entries sampled per shard by GetInfo
	entryOverhead     = 24                     // key, deleteAt and index
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl is a sharded in-memory KVDB
type mapleImpl struct {
	numShards int
	seed      uint64
	shards    []*internal.Shard
	currIndex atomic.Uint64 // highest write index seen

	// garbage collection
	gcInterval  time.Duration
	gcIsRunning atomic.Bool
	gcStop      chan struct{}
	gcWG        sync.WaitGroup
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards  int           // Number of shards (0 = number of CPUs)
	GCInterval time.Duration // Time between GC runs (0 = default)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards:  runtime.NumCPU(),
		GCInterval: defaultGCInterval,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
//
// Thread-safety: This function is not thread-safe and should only be called once
// during initialization.
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}
	if opts.GCInterval <= 0 {
		opts.GCInterval = defaultGCInterval
	}

	maple := &mapleImpl{
		numShards:  opts.NumShards,
		seed:       util.GenerateSeed(),
		gcInterval: opts.GCInterval,
	}
	maple.shards = newShards(opts.NumShards)
	maple.startGC()

	return maple
}

func newShards(n int) []*internal.Shard {
	hasher := func(key util.UintKey, mapSeed uint64) uint64 {
		return uint64(key) ^ mapSeed
	}
	shards := make([]*internal.Shard, n)
	for i := range shards {
		shards[i] = internal.NewShard(hasher)
	}
	return shards
}

// shardFor hashes key and returns it with its shard
func (maple *mapleImpl) shardFor(key string) (util.UintKey, *internal.Shard) {
	intKey := util.HashString(key, maple.seed)
	return intKey, internal.GetShard(intKey, maple.shards)
}

// --------------------------------------------------------------------------
// Interface Methods - Write Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (maple *mapleImpl) Set(key string, value []byte, writeIndex uint64) {
	maple.SetE(key, value, writeIndex, 0)
}

func (maple *mapleImpl) SetE(key string, value []byte, writeIndex uint64, deleteIn uint64) {
	maple.Update(key, db.FixedIndex(writeIndex), func([]byte, bool) db.Mutation {
		return db.Mutation{Op: db.MutWrite, Value: value, DeleteIn: deleteIn}
	})
}

func (maple *mapleImpl) Delete(key string, writeIndex uint64) {
	maple.Update(key, db.FixedIndex(writeIndex), func([]byte, bool) db.Mutation {
		return db.Mutation{Op: db.MutDelete}
	})
}

// Update runs fn inside xsync's Compute, so the read and the write of one key
// are atomic. The write index is taken inside Compute as well. Writes with an
// index lower than the stored one are ignored and reported as not applied.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Update(key string, nextIndex db.IndexFunc, fn db.UpdateFunc) bool {
	intKey, shard := maple.shardFor(key)

	applied := false
	shard.Data.Compute(intKey, func(old internal.Entry, exists bool) (internal.Entry, bool) {
		writeIndex := nextIndex()
		maple.SetWriteIdx(writeIndex)

		// stale write
		if exists && writeIndex < old.Index {
			return old, false
		}
		applied = true

		// fn never sees an entry that is past its deadline
		loaded := exists && !old.IsDeleted(writeIndex)
		var current []byte
		if loaded {
			current = old.Value
		}

		m := fn(current, loaded)
		switch m.Op {
		case db.MutWrite:
			var deleteAt uint64
			switch {
			case m.KeepDeadline && loaded:
				deleteAt = old.DeleteAt
			case !m.KeepDeadline && m.DeleteIn > 0:
				deleteAt = writeIndex + m.DeleteIn
			}
			shard.Schedule(intKey, deleteAt)

			value := make([]byte, len(m.Value))
			copy(value, m.Value)
			return internal.Entry{Value: value, DeleteAt: deleteAt, Index: writeIndex}, false

		case db.MutDelete:
			if exists {
				shard.Schedule(intKey, 0)
			}
			return old, true

		default:
			// returning delete=true for a missing key keeps Compute from inserting it
			return old, !exists
		}
	})
	return applied
}

// --------------------------------------------------------------------------
// Interface Methods - Read Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

// Get returns a copy of the stored value.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) ([]byte, bool) {
	intKey, shard := maple.shardFor(key)

	e, ok := shard.Data.Load(intKey)
	if !ok || e.IsDeleted(maple.currIndex.Load()) {
		return nil, false
	}

	data := make([]byte, len(e.Value))
	copy(data, e.Value)
	return data, true
}

func (maple *mapleImpl) Has(key string) bool {
	intKey, shard := maple.shardFor(key)
	e, ok := shard.Data.Load(intKey)
	return ok && !e.IsDeleted(maple.currIndex.Load())
}

// --------------------------------------------------------------------------
// Garbage Collection
// --------------------------------------------------------------------------

// startGC starts one collector goroutine per shard.
// If the GC is already running, this function does nothing.
func (maple *mapleImpl) startGC() {
	if !maple.gcIsRunning.CompareAndSwap(false, true) {
		return
	}
	stop := make(chan struct{})
	maple.gcStop = stop
	maple.gcWG.Add(len(maple.shards))
	for _, shard := range maple.shards {
		go maple.collect(shard, stop)
	}
}

// stopGC stops all collectors and waits for them to exit.
// If the GC is not running, this function does nothing.
func (maple *mapleImpl) stopGC() {
	if !maple.gcIsRunning.CompareAndSwap(true, false) {
		return
	}
	close(maple.gcStop)
	maple.gcWG.Wait()
}

// collect removes the entries of one shard whose deadline has passed
func (maple *mapleImpl) collect(shard *internal.Shard, stop <-chan struct{}) {
	defer maple.gcWG.Done()

	ticker := time.NewTicker(maple.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		// read once per cycle so a busy writer can't keep the loop going
		writeIndex := maple.currIndex.Load()

		for _, key := range shard.PopDue(writeIndex) {
			shard.Data.Compute(key, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
				if !loaded {
					return e, true
				}
				// the entry may have been rewritten (and rescheduled) after PopDue
				if !e.IsDeleted(writeIndex) {
					return e, false
				}
				return internal.Entry{}, true
			})
		}
	}
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes a fuzzy snapshot of the database: writes that run concurrently
// with Save may or may not be included.
//
// Thread-safety: This function allows concurrent operations with all other functions
// except Load.
func (maple *mapleImpl) Save(w io.Writer) error {
	type savedEntry struct {
		key   util.UintKey
		entry internal.Entry
	}

	writeIndex := maple.currIndex.Load()
	var entries []savedEntry
	for _, shard := range maple.shards {
		shard.Data.Range(func(key util.UintKey, e internal.Entry) bool {
			if !e.IsDeleted(writeIndex) {
				entries = append(entries, savedEntry{key, e})
			}
			return true
		})
	}

	bw := bufio.NewWriterSize(w, 1024*1024)
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}

	header := []any{uint8(mapleVersion), maple.seed, uint64(len(entries))}
	for _, v := range header {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	var buf [28]byte
	for _, item := range entries {
		binary.LittleEndian.PutUint64(buf[0:], uint64(item.key))
		binary.LittleEndian.PutUint64(buf[8:], item.entry.DeleteAt)
		binary.LittleEndian.PutUint64(buf[16:], item.entry.Index)
		binary.LittleEndian.PutUint32(buf[24:], uint32(len(item.entry.Value)))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
		if _, err := bw.Write(item.entry.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load replaces the database content with a snapshot written by Save.
//
// Thread-safety: This function is not thread-safe and should not be called concurrently
func (maple *mapleImpl) Load(r io.Reader) error {
	maple.stopGC()
	defer maple.startGC()

	br := bufio.NewReaderSize(r, 1024*1024)

	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != mapleVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, mapleVersion)
	}

	var seed, count uint64
	if err := binary.Read(br, binary.LittleEndian, &seed); err != nil {
		return err
	}
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	shards := newShards(maple.numShards)
	var maxIndex uint64
	var buf [28]byte
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return err
		}
		key := util.UintKey(binary.LittleEndian.Uint64(buf[0:]))
		entry := internal.Entry{
			DeleteAt: binary.LittleEndian.Uint64(buf[8:]),
			Index:    binary.LittleEndian.Uint64(buf[16:]),
			Value:    make([]byte, binary.LittleEndian.Uint32(buf[24:])),
		}
		if _, err := io.ReadFull(br, entry.Value); err != nil {
			return err
		}

		maxIndex = max(maxIndex, entry.Index)

		shard := internal.GetShard(key, shards)
		shard.Data.Store(key, entry)
		shard.Schedule(key, entry.DeleteAt)
	}

	// only swap once the whole snapshot was read
	maple.shards = shards
	maple.seed = seed
	maple.currIndex.Store(maxIndex)

	return nil
}

// --------------------------------------------------------------------------
// Interface Methods - Features and Metadata (docu see db.KVDB)
// --------------------------------------------------------------------------

// GetInfo samples a few entries per shard; all sizes are estimates.
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	currentWriteIndex := maple.currIndex.Load()

	sizes := util.NewSizeSample(samplesPerShard * len(maple.shards))
	shardSizes := make([]int64, len(maple.shards))

	var (
		mu             sync.Mutex
		wg             sync.WaitGroup
		sampled        int
		deletedBacklog int
		scheduled      int
		totalEntries   int64
	)
	wg.Add(len(maple.shards))
	for i, shard := range maple.shards {
		go func(i int, s *internal.Shard) {
			defer wg.Done()
			count, deleted := 0, 0
			s.Data.Range(func(_ util.UintKey, e internal.Entry) bool {
				sizes.Add(len(e.Value) + entryOverhead)
				if e.IsDeleted(currentWriteIndex) {
					deleted++
				}
				count++
				return count < samplesPerShard
			})

			size := int64(s.Data.Size())
			pending := s.Scheduled()

			mu.Lock()
			defer mu.Unlock()
			sampled += count
			deletedBacklog += deleted
			scheduled += pending
			totalEntries += size
			shardSizes[i] = size
		}(i, shard)
	}
	wg.Wait()

	var backlog float64
	if sampled > 0 {
		backlog = float64(deletedBacklog) / float64(sampled)
	}

	meta := &struct {
		CurrentWriteIndex uint64                 `json:"current_write_index"`
		Entries           int64                  `json:"entries"`
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
		ScheduledDeletes  int                    `json:"scheduled_deletes"`
		DeletedBacklog    float64                `json:"deleted_backlog"`
		Info              string                 `json:"info"`
	}{
		CurrentWriteIndex: currentWriteIndex,
		Entries:           totalEntries,
		ShardCount:        len(maple.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		ScheduledDeletes:  scheduled,
		DeletedBacklog:    backlog,
		Info:              "All values (including SizeBytes) are estimates and may vary depending on the database state.",
	}

	return db.DatabaseInfo{
		SizeBytes: sizes.Estimate() * int(totalEntries),
		DbType:    db.ImplMaple,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetE, db.FeatureUpdate,
			db.FeatureGet, db.FeatureDelete, db.FeatureHas,
			db.FeatureSave, db.FeatureLoad,
			db.FeatureGarbageCollect,
		},
		Metadata: meta,
	}
}

func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureSetE |
		db.FeatureUpdate |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureSave |
		db.FeatureLoad |
		db.FeatureGarbageCollect
	return supportedFeatures&feature == feature
}

// Close stops the garbage collector
func (maple *mapleImpl) Close() error {
	maple.stopGC()
	return nil
}

// --------------------------------------------------------------------------
// Index Management
// --------------------------------------------------------------------------

// SetWriteIdx only ever moves the index forward.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) SetWriteIdx(newIdx uint64) {
	for {
		currIdx := maple.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if maple.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

func (maple *mapleImpl) WriteIdx() uint64 {
	return maple.currIndex.Load()
}
