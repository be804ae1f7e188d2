package serve

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/dCDT/cmd/util"
	"github.com/ValentinKolb/dCDT/lib/db/util"
	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dCDT server",
		Long:    `Start the dCDT server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DCDT_<flag> (e.g. DCDT_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	flags := ServeCmd.PersistentFlags()

	// shards
	flags.String("shards", "100=lstore", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=TYPE where TYPE is one of: lstore, dstore, astore"))

	// raft
	flags.Int("rtt-millisecond", 100, cmdUtil.WrapString("(dstore) RTTMillisecond defines the average Round Trip Time (RTT) in milliseconds between two NodeHost instances. Other raft configuration parameters (ElectionRTT=value/10, HeartbeatRTT=value/100) are derived from this value"))
	flags.Int("snapshot-entries", 10, cmdUtil.WrapString("(dstore) SnapshotEntries defines how often the state machine is snapshotted, in applied raft log entries. 0 disables automatic snapshots"))
	flags.Int("compaction-overhead", 5, cmdUtil.WrapString("(dstore) CompactionOverhead is the number of log entries kept after a snapshot. Recommended value is about 1/2 of SnapshotEntries"))
	flags.String("data-dir", "data", cmdUtil.WrapString("(dstore) DataDir is the directory used for the raft log and snapshots"))
	flags.String("replica-id", "", cmdUtil.WrapString("(dstore) ReplicaID is the unique identifier for this NodeHost instance (e.g. 'node-1')"))
	flags.String("cluster-members", "", cmdUtil.WrapString("(dstore) ClusterMembers is a comma-separated list of NodeHost addresses in the format 'node-1=localhost:63001,node-2=localhost:63002,...'"))
	flags.Int64("timeout", 5, cmdUtil.WrapString("Timeout of a single request in seconds"))

	// aerospike
	flags.String("aerospike-hosts", "localhost:3000", cmdUtil.WrapString("(astore) Comma-separated list of Aerospike seed nodes (host:port)"))
	flags.String("aerospike-namespace", "test", cmdUtil.WrapString("(astore) Aerospike namespace the records are stored in"))
	flags.String("aerospike-set", "dcdt", cmdUtil.WrapString("(astore) Aerospike set the records are stored in"))
	flags.String("aerospike-user", "", cmdUtil.WrapString("(astore) User for clusters with security enabled"))
	flags.String("aerospike-password", "", cmdUtil.WrapString("(astore) Password for clusters with security enabled"))
	flags.Int("aerospike-max-error-rate", 100, cmdUtil.WrapString("(astore) Errors per node and error rate window after which commands to the node fail fast (0 disables the limit)"))
	flags.Int("aerospike-error-rate-window", 1, cmdUtil.WrapString("(astore) Number of tend intervals after which the node error count is reset"))
	flags.Duration("aerospike-tend-interval", time.Second, cmdUtil.WrapString("(astore) Interval of the cluster tend loop"))

	// transport
	flags.String("endpoint", "0.0.0.0:8080", cmdUtil.WrapString("The address on which the server will listen (e.g. localhost:8080, /tmp/dcdt.sock, ...)"))
	flags.Int("workers-per-conn", 16, cmdUtil.WrapString("Number of requests handled concurrently per connection (tcp and unix)"))
	flags.Int("max-frame-size", 64, cmdUtil.WrapString("Size of the pooled read buffers in KB (tcp and unix)"))
	flags.Int("write-buffer", 512, cmdUtil.WrapString("The size of the socket write buffer in KB (tcp and unix)"))
	flags.Int("read-buffer", 512, cmdUtil.WrapString("The size of the socket read buffer in KB (tcp and unix)"))
	flags.Bool("tcp-nodelay", true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (tcp)"))
	flags.Int("tcp-keepalive", 0, cmdUtil.WrapString("The keepalive interval in seconds (tcp)"))
	flags.Int("tcp-linger", -1, cmdUtil.WrapString("The linger time in seconds, -1 keeps the os default (tcp)"))

	// observability
	flags.Bool("metrics", false, cmdUtil.WrapString("Collect request metrics and expose them at /metrics (http)"))
	flags.String("log-level", "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the command line flags and environment variables into the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	// parse shards
	serveCmdConfig.Shards = []common.ServerShard{}
	for _, shardConfig := range strings.Split(viper.GetString("shards"), ",") {
		parts := strings.Split(shardConfig, "=")
		if len(parts) != 2 {
			return fmt.Errorf("invalid shard format: %s (expected ID=TYPE)", shardConfig)
		}

		shardID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard ID %s: %v", parts[0], err)
		}

		shardType, err := common.ParseShardType(parts[1])
		if err != nil {
			return err
		}

		serveCmdConfig.Shards = append(serveCmdConfig.Shards, common.ServerShard{
			ShardID: shardID,
			Type:    shardType,
		})
	}

	serveCmdConfig.RTTMillisecond = viper.GetUint64("rtt-millisecond")
	serveCmdConfig.SnapshotEntries = viper.GetUint64("snapshot-entries")
	serveCmdConfig.CompactionOverhead = viper.GetUint64("compaction-overhead")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Metrics = viper.GetBool("metrics")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:          viper.GetString("endpoint"),
		WorkersPerConn:    viper.GetInt("workers-per-conn"),
		MaxFrameSizeBytes: viper.GetInt("max-frame-size") * 1024,
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("tcp-linger"),
		},
	}

	serveCmdConfig.Aerospike.Hosts = strings.Split(viper.GetString("aerospike-hosts"), ",")
	serveCmdConfig.Aerospike.Namespace = viper.GetString("aerospike-namespace")
	serveCmdConfig.Aerospike.Set = viper.GetString("aerospike-set")
	serveCmdConfig.Aerospike.User = viper.GetString("aerospike-user")
	serveCmdConfig.Aerospike.Password = viper.GetString("aerospike-password")
	serveCmdConfig.Aerospike.Timeout = time.Duration(serveCmdConfig.TimeoutSecond) * time.Second
	serveCmdConfig.Aerospike.MaxErrorRate = viper.GetInt("aerospike-max-error-rate")
	serveCmdConfig.Aerospike.ErrorRateWindow = viper.GetInt("aerospike-error-rate-window")
	serveCmdConfig.Aerospike.TendInterval = viper.GetDuration("aerospike-tend-interval")

	// parse replica id
	if id := viper.GetString("replica-id"); id != "" {
		serveCmdConfig.ReplicaID = uint64(util.HashString(id, 0))
	} else if serveCmdConfig.HasRemoteShard() {
		return fmt.Errorf("ReplicaId is required for dstore shards")
	}

	// parse cluster members
	if clusterMembers := viper.GetString("cluster-members"); clusterMembers != "" {
		serveCmdConfig.ClusterMembers = make(map[uint64]string)
		for _, member := range strings.Split(clusterMembers, ",") {
			parts := strings.Split(member, "=")
			if len(parts) != 2 {
				return fmt.Errorf("invalid cluster member format: %s (expected ID=address)", member)
			}
			serveCmdConfig.ClusterMembers[uint64(util.HashString(parts[0], 0))] = parts[1]
		}
	} else if serveCmdConfig.HasRemoteShard() {
		return fmt.Errorf("ClusterMembers is required for dstore shards")
	}

	if _, ok := serveCmdConfig.ClusterMembers[serveCmdConfig.ReplicaID]; !ok && serveCmdConfig.HasRemoteShard() {
		return fmt.Errorf("no address found for replica ID %d in cluster members", serveCmdConfig.ReplicaID)
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t, s)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		serv.Close()
	}()

	return serv.Serve()
}
