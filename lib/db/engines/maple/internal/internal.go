package internal

import (
	"sync"

	"github.com/ValentinKolb/dCDT/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Entry Type (value with metadata)
// --------------------------------------------------------------------------

// Entry stores an encoded value with its metadata
type Entry struct {
	Value    []byte // Encoded value
	DeleteAt uint64 // Write index at which the entry is deleted (0 = never)
	Index    uint64 // Write index of the last update
}

// IsDeleted reports whether the entry is past its deadline at writeIdx
func (e Entry) IsDeleted(writeIdx uint64) bool {
	return e.DeleteAt != 0 && writeIdx >= e.DeleteAt
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard is a partition of the key space with its own map and deadline heap.
// The heap is only touched through the methods below.
type Shard struct {
	Data *xsync.MapOf[util.UintKey, Entry]

	mu        sync.Mutex
	deadlines *util.DeadlineHeap
}

// NewShard creates a new shard with the provided hash function
func NewShard(hasher func(util.UintKey, uint64) uint64) *Shard {
	return &Shard{
		Data:      xsync.NewMapOfWithHasher[util.UintKey, Entry](hasher),
		deadlines: util.NewDeadlineHeap(),
	}
}

// Schedule sets (at>0) or clears (at=0) the deletion deadline of key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Shard) Schedule(key util.UintKey, at uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadlines.Schedule(uint64(key), at)
}

// PopDue removes and returns all keys whose deadline is <= now.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Shard) PopDue(now uint64) []util.UintKey {
	s.mu.Lock()
	due := s.deadlines.PopDue(now)
	s.mu.Unlock()

	keys := make([]util.UintKey, len(due))
	for i, k := range due {
		keys[i] = util.UintKey(k)
	}
	return keys
}

// Scheduled returns the number of keys waiting for deletion.
func (s *Shard) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadlines.Len()
}

// GetShard returns the shard responsible for key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard(key util.UintKey, shards []*Shard) *Shard {
	return shards[util.ShardIndex(key, len(shards))]
}
