package server

import (
	"fmt"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/db/engines/maple"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/lib/store/astore"
	"github.com/ValentinKolb/dCDT/lib/store/dstore"
	"github.com/ValentinKolb/dCDT/lib/store/lstore"
	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/serializer"
	"github.com/ValentinKolb/dCDT/rpc/transport"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a store together with the adapter answering its requests.
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// RPCServer hosts one store per shard id behind a transport.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
	nodeHost   *dragonboat.NodeHost
	closers    []func()
}

// NewRPCServer creates a server. Shards from config are created by Serve,
// further shards can be added with AddShard.
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
	}
	transport.RegisterHandler(s.HandleRequest)
	return s
}

// AddShard serves st under shardID, replacing any previous store.
func (s *RPCServer) AddShard(shardID uint64, st store.IStore) {
	s.shards.Store(shardID, serverShard{Store: st, Adapter: NewIStoreServerAdapter()})
}

// HandleRequest decodes req, runs it against the shard and returns the encoded response.
// It is the handler registered on the transport.
func (s *RPCServer) HandleRequest(shardId uint64, req []byte) []byte {
	start := time.Now()

	var msg common.Message
	var resp *common.Message
	if shard, ok := s.shards.Load(shardId); !ok {
		resp = common.NewErrorResponse(store.RetCInvalidOperation, fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		resp = common.NewErrorResponse(store.RetCInvalidOperation, fmt.Sprintf("failed to deserialize request: %v", err))
	} else {
		resp = shard.Adapter.Handle(&msg, shard.Store)
	}

	if s.config.Metrics {
		observe(msg.MsgType, start, resp.MsgType == common.MsgTError || resp.Code != store.RetCSuccess)
	}

	data, err := s.serializer.Serialize(*resp)
	if err != nil {
		Logger.Errorf("failed to serialize %s response: %v", resp.MsgType, err)
		data, _ = s.serializer.Serialize(*common.NewErrorResponse(store.RetCInternalError,
			fmt.Sprintf("failed to serialize response: %v", err)))
	}
	return data
}

// init creates the shards listed in the config.
func (s *RPCServer) init() error {
	dbFactory := func() db.KVDB { return maple.NewMapleDB(nil) }
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	if s.config.HasRemoteShard() {
		nh, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nh
		s.closers = append(s.closers, nh.Close)
	}

	for _, shard := range s.config.Shards {
		switch shard.Type {
		case common.ShardTypeLocalIStore:
			s.AddShard(shard.ShardID, lstore.NewLocalStore(dbFactory))
			Logger.Infof("created local store for shard %d", shard.ShardID)

		case common.ShardTypeRemoteIStore:
			err := s.nodeHost.StartConcurrentReplica(s.config.ClusterMembers, false,
				dstore.CreateStateMachineFactory(dbFactory), s.config.ToDragonboatConfig(shard.ShardID))
			if err != nil {
				return fmt.Errorf("failed to start shard %d: %w", shard.ShardID, err)
			}
			s.AddShard(shard.ShardID, dstore.NewDistributedStore(s.nodeHost, shard.ShardID, timeout))
			Logger.Infof("created replicated store for shard %d", shard.ShardID)

		case common.ShardTypeAerospike:
			cfg := s.config.Aerospike
			if cfg.Timeout == 0 {
				cfg.Timeout = timeout
			}
			st, err := astore.NewAerospikeStore(cfg)
			if err != nil {
				return fmt.Errorf("failed to connect aerospike store for shard %d: %w", shard.ShardID, err)
			}
			s.closers = append(s.closers, st.Close)
			s.AddShard(shard.ShardID, st)
			Logger.Infof("created aerospike store for shard %d", shard.ShardID)

		default:
			return fmt.Errorf("invalid shard type: %s", shard.Type)
		}
	}
	return nil
}

// Serve creates the configured shards and serves requests until Close.
func (s *RPCServer) Serve() error {
	Logger.Infof(s.config.String())
	if err := s.init(); err != nil {
		s.Close()
		return err
	}
	Logger.Infof("setup completed, serving %d shards", s.shards.Size())
	return s.transport.Listen(s.config)
}

// Close stops the transport and releases all stores.
func (s *RPCServer) Close() {
	if err := s.transport.Close(); err != nil {
		Logger.Warningf("failed to close transport: %v", err)
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
