package common

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dCDT/lib/store/astore"
	"github.com/lni/dragonboat/v4/config"
)

// --------------------------------------------------------------------------
// helper functions to interface with Dragonboat (for the server config)
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the ServerConfig to Dragonboat Config
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTTFactor,
		HeartbeatRTT:       heartbeatRTTFactor,
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// Formatting helpers
// --------------------------------------------------------------------------

type configWriter struct {
	sb strings.Builder
}

func (w *configWriter) section(title string) {
	w.sb.WriteString("\n")
	w.sb.WriteString(strings.ToUpper(title))
	w.sb.WriteString("\n")
}

func (w *configWriter) field(name, value string) {
	w.sb.WriteString(fmt.Sprintf("  %-26s: %s\n", name, value))
}

// --------------------------------------------------------------------------
// Transport configuration
// --------------------------------------------------------------------------

// SocketConf holds the socket options used by the tcp and unix transports.
type SocketConf struct {
	WriteBufferSize int // socket send buffer in bytes (0 = os default)
	ReadBufferSize  int // socket receive buffer in bytes (0 = os default)
}

// TCPConf holds options that only apply to tcp connections.
type TCPConf struct {
	TCPNoDelay      bool // disable Nagle's algorithm
	TCPKeepAliveSec int  // keep alive period, 0 disables keep alive
	TCPLingerSec    int  // linger timeout, negative keeps the os default
}

// ServerTransportConfig configures the server side of a transport.
type ServerTransportConfig struct {
	SocketConf
	TCPConf
	Endpoint          string // address to listen on (host:port or socket path)
	WorkersPerConn    int    // concurrent requests per connection
	MaxFrameSizeBytes int    // size of the pooled read buffers
}

// ClientTransportConfig configures the client side of a transport.
type ClientTransportConfig struct {
	SocketConf
	TCPConf
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
}

func (c *TCPConf) write(w *configWriter) {
	w.field("TCP No Delay", strconv.FormatBool(c.TCPNoDelay))
	w.field("TCP Keep Alive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
	w.field("TCP Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
}

func (c *SocketConf) write(w *configWriter) {
	w.field("Write Buffer Size", strconv.Itoa(c.WriteBufferSize))
	w.field("Read Buffer Size", strconv.Itoa(c.ReadBufferSize))
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerShardType string

const (
	ShardTypeLocalIStore  ServerShardType = "lstore"
	ShardTypeRemoteIStore ServerShardType = "dstore"
	ShardTypeAerospike    ServerShardType = "astore"
)

// ParseShardType parses the name of a shard type as used on the command line.
func ParseShardType(s string) (ServerShardType, error) {
	switch t := ServerShardType(strings.TrimSpace(s)); t {
	case ShardTypeLocalIStore, ShardTypeRemoteIStore, ShardTypeAerospike:
		return t, nil
	default:
		return "", fmt.Errorf("invalid shard type: %s (expected one of: %s, %s, %s)",
			s, ShardTypeLocalIStore, ShardTypeRemoteIStore, ShardTypeAerospike)
	}
}

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type selects the store implementation of the shard
	Type ServerShardType
}

// ServerConfig holds all configuration parameters of a server node.
type ServerConfig struct {
	Shards []ServerShard

	// Dragonboat parameters
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string
	ReplicaID          uint64
	ClusterMembers     map[uint64]string

	// remote store parameters
	TimeoutSecond int64

	Transport ServerTransportConfig

	// Aerospike is used by shards of type astore
	Aerospike astore.Config

	// Metrics enables the request metrics (exposed by the http transport at /metrics)
	Metrics bool

	// Logging configuration
	LogLevel string
}

// hasShardType reports whether any shard has type t.
func (c *ServerConfig) hasShardType(t ServerShardType) bool {
	for _, shard := range c.Shards {
		if shard.Type == t {
			return true
		}
	}
	return false
}

// HasRemoteShard checks if the configuration contains any remote shards
func (c *ServerConfig) HasRemoteShard() bool {
	return c.hasShardType(ShardTypeRemoteIStore)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	w := &configWriter{}

	w.section("RPC Server")
	w.field("Endpoint", c.Transport.Endpoint)
	w.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	w.field("Workers Per Connection", strconv.Itoa(c.Transport.WorkersPerConn))
	w.field("Max Frame Size", strconv.Itoa(c.Transport.MaxFrameSizeBytes))
	w.field("Metrics", strconv.FormatBool(c.Metrics))
	c.Transport.SocketConf.write(w)
	c.Transport.TCPConf.write(w)

	w.section("Logging")
	w.field("Log Level", c.LogLevel)

	w.section("Shards")
	for _, shard := range c.Shards {
		w.field(strconv.FormatUint(shard.ShardID, 10), string(shard.Type))
	}

	if c.hasShardType(ShardTypeAerospike) {
		w.section("Aerospike")
		w.sb.WriteString(c.Aerospike.String())
		w.sb.WriteString("\n")
	}

	if c.HasRemoteShard() {
		w.section("Node Identity")
		w.field("RAFT Address", c.ClusterMembers[c.ReplicaID])
		w.field("Node ID", strconv.FormatUint(c.ReplicaID, 10))

		w.section("RAFT Parameters")
		w.field("Round Trip Time", fmt.Sprintf("%d ms", c.RTTMillisecond))
		w.field("Election RTT", fmt.Sprintf("%d ms", c.RTTMillisecond*electionRTTFactor))
		w.field("Heartbeat RTT", fmt.Sprintf("%d ms", c.RTTMillisecond*heartbeatRTTFactor))
		w.field("Snapshot Entries", strconv.FormatUint(c.SnapshotEntries, 10))
		w.field("Compaction Overhead", strconv.FormatUint(c.CompactionOverhead, 10))

		w.section("Storage")
		w.field("Data Directory", c.DataDir)

		w.section("Cluster")
		keys := make([]uint64, 0, len(c.ClusterMembers))
		for k := range c.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			w.field(fmt.Sprintf("Node %d", k), c.ClusterMembers[k])
		}
	}
	return w.sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	TimeoutSecond int

	// MaxErrorRate is the number of transport errors within one tend interval
	// after which requests fail fast with store.RetCMaxErrorRate. 0 disables the limit.
	MaxErrorRate int
	// TendIntervalMs is the period of the health check that resets the error count.
	TendIntervalMs int

	Transport ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	w := &configWriter{}

	w.section("Client Configuration")
	w.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	w.field("Max Error Rate", strconv.Itoa(c.MaxErrorRate))
	w.field("Tend Interval", fmt.Sprintf("%d ms", c.TendIntervalMs))
	w.field("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	w.field("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))
	c.Transport.SocketConf.write(w)
	c.Transport.TCPConf.write(w)

	w.section("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		w.field(strconv.Itoa(i), endpoint)
	}
	return w.sb.String()
}
