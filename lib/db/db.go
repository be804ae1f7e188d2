package db

import "io"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple     Implementation = "maple"
	ImplAerospike Implementation = "aerospike" // a remote cluster, see store/astore
)

// Feature is a bit set of optional KVDB capabilities.
type Feature uint64

const (
	FeatureSet Feature = 1 << iota
	FeatureSetE
	FeatureUpdate // atomic read-modify-write, required by record stores
	FeatureGet
	FeatureDelete
	FeatureHas
	FeatureSave
	FeatureLoad
	FeatureGarbageCollect // entries past their deadline are removed in the background
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureSetE:
		return "SetE"
	case FeatureUpdate:
		return "Update"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	case FeatureGarbageCollect:
		return "GarbageCollect"
	default:
		return "Unknown"
	}
}

// DatabaseInfo describes a database as reported by IStore.GetDBInfo.
type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          any            `json:"metadata"`
}

// --------------------------------------------------------------------------
// Atomic Updates
// --------------------------------------------------------------------------

// MutationOp tells Update what to do with an entry.
type MutationOp uint8

const (
	MutKeep   MutationOp = iota // leave the entry as it is
	MutWrite                    // store Mutation.Value
	MutDelete                   // remove the entry
)

// Mutation is the outcome of an UpdateFunc.
type Mutation struct {
	Op    MutationOp
	Value []byte
	// DeleteIn sets a new deletion deadline relative to the write index (0 = never).
	// It is ignored if KeepDeadline is set.
	DeleteIn uint64
	// KeepDeadline keeps the deadline of the existing entry.
	KeepDeadline bool
}

// UpdateFunc computes the new state of an entry from the current one.
// old is the current value (nil and loaded=false if the key does not exist)
// and must not be modified or retained. The function runs while the entry
// is locked and must not call back into the database.
type UpdateFunc func(old []byte, loaded bool) Mutation

// IndexFunc supplies the write index of an Update. It is called while the
// entry is locked, so indexes taken from a counter reach a key in order.
type IndexFunc func() uint64

// FixedIndex returns an IndexFunc that always returns index.
func FixedIndex(index uint64) IndexFunc {
	return func() uint64 { return index }
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB is the byte level storage underneath a record store. Values are
// opaque encoded records; the store above decides their format.
//
// Every write carries a write index, a logical clock supplied by the caller
// (the raft log index for replicated stores, a local counter otherwise).
// Deadlines are expressed in the same clock, so an entry written at index i
// with deleteIn d disappears once the write index passes i+d.
//
// Not every engine supports every method; callers check SupportsFeature.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set stores value under key without a deadline, replacing any existing entry.
	Set(key string, value []byte, writeIndex uint64)

	// SetE is Set with a deadline of writeIndex+deleteIn. deleteIn=0 means none.
	SetE(key string, value []byte, writeIndex uint64, deleteIn uint64)

	// Update runs fn against the current entry and applies the returned
	// Mutation. No other write to key interleaves between the read and the write.
	// applied is false if the write index is older than the stored entry;
	// fn is not called in that case.
	Update(key string, writeIndex IndexFunc, fn UpdateFunc) (applied bool)

	// Delete removes key. Deleting a missing key is a no-op.
	Delete(key string, writeIndex uint64)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get returns the value of key; loaded is false if there is none or its
	// deadline has passed.
	Get(key string) (value []byte, loaded bool)

	// Has reports whether Get would find key.
	Has(key string) (loaded bool)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save writes a snapshot of all live entries and the write index to w.
	Save(w io.Writer) (err error)

	// Load replaces the contents of the database with a snapshot written by Save.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature reports whether all features in the bit set are supported.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns size and engine specific statistics.
	GetInfo() (info DatabaseInfo)

	// --------------------------------------------------------------------------
	// Write Index Operations
	// --------------------------------------------------------------------------

	// SetWriteIdx advances the write index. Smaller values are ignored.
	SetWriteIdx(index uint64)

	// WriteIdx returns the highest write index seen so far.
	WriteIdx() (index uint64)

	// Close stops background work and releases the entries.
	Close() (err error)
}
