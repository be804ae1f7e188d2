package astore

import (
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	as "github.com/aerospike/aerospike-client-go/v7"
	"github.com/aerospike/aerospike-client-go/v7/types"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

// Config describes the cluster and the policies of an aerospike store.
type Config struct {
	Hosts     []string // seed nodes as host:port
	Namespace string
	Set       string
	User      string
	Password  string

	Timeout time.Duration // total timeout of a single command
	// MaxErrorRate is the number of errors per node within ErrorRateWindow tend
	// intervals after which new commands to the node fail with MaxErrorRate. 0 disables it.
	MaxErrorRate    int
	ErrorRateWindow int
	TendInterval    time.Duration
}

func (c Config) String() string {
	return fmt.Sprintf("Aerospike Config:\n"+
		"  Hosts: %v\n"+
		"  Namespace: %s\n"+
		"  Set: %s\n"+
		"  Timeout: %s\n"+
		"  Max Error Rate: %d\n"+
		"  Error Rate Window: %d\n"+
		"  Tend Interval: %s",
		c.Hosts, c.Namespace, c.Set, c.Timeout, c.MaxErrorRate, c.ErrorRateWindow, c.TendInterval)
}

// Store is a store.IStore backed by a live aerospike cluster.
//
// Thread-safety: Store is safe for concurrent use, the aerospike client pools connections.
type Store struct {
	client    *as.Client
	namespace string
	set       string
	timeout   time.Duration
}

// NewAerospikeStore connects to the cluster described by cfg.
func NewAerospikeStore(cfg Config) (*Store, error) {
	hosts, err := as.NewHosts(cfg.Hosts...)
	if err != nil {
		return nil, store.NewError(store.RetCClientError, fmt.Sprintf("invalid hosts %v: %v", cfg.Hosts, err))
	}

	policy := as.NewClientPolicy()
	policy.User = cfg.User
	policy.Password = cfg.Password
	if cfg.Timeout > 0 {
		policy.Timeout = cfg.Timeout
	}
	if cfg.TendInterval > 0 {
		policy.TendInterval = cfg.TendInterval
	}
	policy.MaxErrorRate = cfg.MaxErrorRate
	if cfg.ErrorRateWindow > 0 {
		policy.ErrorRateWindow = cfg.ErrorRateWindow
	}

	client, err := as.NewClientWithPolicyAndHost(policy, hosts...)
	if err != nil {
		return nil, translateError(err, nil)
	}
	log.Infof("connected to aerospike cluster %v (namespace %s)", cfg.Hosts, cfg.Namespace)

	return &Store{
		client:    client,
		namespace: cfg.Namespace,
		set:       cfg.Set,
		timeout:   cfg.Timeout,
	}, nil
}

// Close closes all connections to the cluster.
func (s *Store) Close() {
	s.client.Close()
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func (s *Store) key(key string) (*as.Key, error) {
	k, err := as.NewKey(s.namespace, s.set, key)
	if err != nil {
		return nil, translateError(err, nil)
	}
	return k, nil
}

// expiration converts a store ttl (seconds for this store) to an aerospike expiration.
func expiration(ttl int64) (uint32, error) {
	switch {
	case ttl == store.TTLDefault:
		return as.TTLServerDefault, nil
	case ttl == store.TTLNeverExpire:
		return as.TTLDontExpire, nil
	case ttl == store.TTLDontUpdate:
		return as.TTLDontUpdate, nil
	case ttl > 0 && ttl < as.TTLDontUpdate:
		return uint32(ttl), nil
	default:
		return 0, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("invalid ttl %d", ttl))
	}
}

func (s *Store) writePolicy(ttl int64) (*as.WritePolicy, error) {
	exp, err := expiration(ttl)
	if err != nil {
		return nil, err
	}
	policy := as.NewWritePolicy(0, exp)
	policy.RespondPerEachOp = true
	if s.timeout > 0 {
		policy.TotalTimeout = s.timeout
	}
	return policy, nil
}

func (s *Store) readPolicy() *as.BasePolicy {
	policy := as.NewPolicy()
	if s.timeout > 0 {
		policy.TotalTimeout = s.timeout
	}
	return policy
}

// --------------------------------------------------------------------------
// Interface Methods (docs see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Put(key string, bins record.Bins, ttl int64) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	policy, err := s.writePolicy(ttl)
	if err != nil {
		return err
	}

	binMap := make(as.BinMap, len(bins))
	for name, v := range bins {
		if err := record.ValidateBinName(name); err != nil {
			return store.FromError(err)
		}
		if v == nil {
			// a nil bin value deletes the bin
			binMap[name] = nil
			continue
		}
		cv, err := toClientValues([]any{v})
		if err != nil {
			return err
		}
		binMap[name] = cv[0]
	}

	if err := s.client.Put(policy, k, binMap); err != nil {
		return translateError(err, nil)
	}
	return nil
}

func (s *Store) Get(key string) (*record.Record, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}
	rec, aerr := s.client.Get(s.readPolicy(), k)
	if aerr != nil {
		return nil, translateError(aerr, nil)
	}
	return fromClientRecord(key, rec)
}

func (s *Store) Exists(key string) (bool, error) {
	k, err := s.key(key)
	if err != nil {
		return false, err
	}
	ok, aerr := s.client.Exists(s.readPolicy(), k)
	if aerr != nil {
		return false, translateError(aerr, nil)
	}
	return ok, nil
}

func (s *Store) Remove(key string) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	policy, err := s.writePolicy(store.TTLDontUpdate)
	if err != nil {
		return err
	}
	existed, aerr := s.client.Delete(policy, k)
	if aerr != nil {
		return translateError(aerr, nil)
	}
	if !existed {
		return store.NewError(store.RetCRecordNotFound, fmt.Sprintf("record %q not found", key))
	}
	return nil
}

func (s *Store) Operate(key string, ops []record.Operation) ([]any, error) {
	if len(ops) == 0 {
		return nil, store.NewError(store.RetCInvalidOperation, "no operations")
	}
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}
	aops, err := translateOps(ops)
	if err != nil {
		return nil, err
	}
	policy, err := s.writePolicy(store.TTLDontUpdate)
	if err != nil {
		return nil, err
	}

	rec, aerr := s.client.Operate(policy, k, aops...)
	if aerr != nil {
		return nil, translateError(aerr, ops)
	}
	return opResults(ops, rec)
}

func (s *Store) BatchOperate(records []*store.BatchRecord) error {
	batch := make([]as.BatchRecordIfc, 0, len(records))
	// index into records for every entry of batch
	origin := make([]int, 0, len(records))

	for i, b := range records {
		b.Reset()
		entry, err := s.batchEntry(b)
		if err != nil {
			// invalid records fail alone
			b.SetError(err)
			continue
		}
		batch = append(batch, entry)
		origin = append(origin, i)
	}
	if len(batch) == 0 {
		return nil
	}

	policy := as.NewBatchPolicy()
	if s.timeout > 0 {
		policy.TotalTimeout = s.timeout
	}
	if aerr := s.client.BatchOperate(policy, batch); aerr != nil {
		// per record results are still filled in, unless the whole batch failed
		var ae *as.AerospikeError
		if !errors.As(aerr, &ae) || ae.ResultCode != types.BATCH_FAILED {
			for _, i := range origin {
				if records[i].Kind != store.BatchRead {
					records[i].InDoubt = true
				}
			}
			return translateError(aerr, nil)
		}
	}

	for j, entry := range batch {
		s.batchResult(records[origin[j]], entry.BatchRec())
	}
	return nil
}

// batchEntry translates a batch record into the client's representation.
func (s *Store) batchEntry(b *store.BatchRecord) (as.BatchRecordIfc, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	k, err := s.key(b.Key)
	if err != nil {
		return nil, err
	}

	switch b.Kind {
	case store.BatchRead:
		if len(b.Ops) == 0 {
			return as.NewBatchRead(nil, k, nil), nil
		}
		ops, err := translateOps(b.Ops)
		if err != nil {
			return nil, err
		}
		return as.NewBatchReadOps(nil, k, ops...), nil
	case store.BatchWrite:
		ops, err := translateOps(b.Ops)
		if err != nil {
			return nil, err
		}
		exp, err := expiration(b.TTL)
		if err != nil {
			return nil, err
		}
		policy := as.NewBatchWritePolicy()
		policy.Expiration = exp
		policy.RespondAllOps = true
		return as.NewBatchWrite(policy, k, ops...), nil
	case store.BatchApply:
		args := make([]as.Value, len(b.Args))
		values, err := toClientValues(b.Args)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			args[i] = as.NewValue(v)
		}
		return as.NewBatchUDF(nil, k, b.Module, b.Function, args...), nil
	default:
		return as.NewBatchDelete(nil, k), nil
	}
}

// batchResult copies the outcome of a client batch record into b.
func (s *Store) batchResult(b *store.BatchRecord, res *as.BatchRecord) {
	b.InDoubt = res.InDoubt
	if res.ResultCode != types.OK {
		code := retCode(res.ResultCode, rankOnly(b.Ops))
		if b.Kind == store.BatchApply && code == store.RetCInternalError {
			code = store.RetCUDFError
		}
		b.SetError(store.NewError(code, types.ResultCodeToString(res.ResultCode)))
		return
	}
	if res.Record == nil {
		return
	}

	var err error
	switch b.Kind {
	case store.BatchRead, store.BatchWrite:
		if len(b.Ops) > 0 {
			if b.Results, err = opResults(b.Ops, res.Record); err != nil {
				b.SetError(err)
				return
			}
		}
		if b.Kind == store.BatchRead && len(b.Ops) == 0 {
			b.Record, err = fromClientRecord(b.Key, res.Record)
		}
	case store.BatchApply:
		if failure, ok := res.Record.Bins["FAILURE"]; ok {
			b.SetError(store.NewError(store.RetCUDFError, fmt.Sprint(failure)))
			return
		}
		var v any
		if v, err = fromClient(res.Record.Bins["SUCCESS"]); err == nil {
			b.Results = []any{v}
		}
	}
	if err != nil {
		b.SetError(err)
	}
}

func (s *Store) GetDBInfo() (db.DatabaseInfo, error) {
	stats, err := s.client.Stats()
	if err != nil {
		return db.DatabaseInfo{}, translateError(err, nil)
	}
	return db.DatabaseInfo{
		DbType:   db.ImplAerospike,
		Metadata: stats,
	}, nil
}
