package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/serializer"
	"github.com/ValentinKolb/dCDT/rpc/transport"
	"github.com/ValentinKolb/dCDT/rpc/transport/http"
	"github.com/ValentinKolb/dCDT/rpc/transport/tcp"
	"github.com/ValentinKolb/dCDT/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (DCDT_<FLAG>)
	EnvPrefix = "dcdt"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > Wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteString(" ")
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// InitConfig loads .env files and binds environment variables to viper.
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Client configuration
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds the rpc connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.Int("timeout", 10, WrapString("The timeout in seconds of the client"))
	flags.Int("shard", 100, WrapString("ID of the shard to connect to"))
	flags.Int("max-error-rate", 0, WrapString("Fail requests fast after more than this many transport errors within one tend interval (0 disables the limit)"))
	flags.Duration("tend-interval", time.Second, WrapString("Interval after which the transport error count is reset"))
	flags.String("transport-endpoints", "localhost:8080", WrapString("The address of the server. Multiple endpoints can be specified as a comma-separated list"))
	flags.Int("transport-conn-per-endpoint", 1, WrapString("Simultaneous connections per endpoint"))
	flags.Int("transport-retries", 3, WrapString("How many times to try a request"))
	flags.Int("transport-write-buffer", 512, WrapString("The size of the socket write buffer (in KB, ignored for http)"))
	flags.Int("transport-read-buffer", 512, WrapString("The size of the socket read buffer (in KB, ignored for http)"))
	flags.Bool("transport-tcp-nodelay", true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))
	flags.Int("transport-tcp-keepalive", 0, WrapString("The keepalive interval (in seconds, only for tcp)"))
	flags.Int("transport-tcp-linger", -1, WrapString("The linger time (in seconds, only for tcp, -1 keeps the os default)"))
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		TimeoutSecond:  viper.GetInt("timeout"),
		MaxErrorRate:   viper.GetInt("max-error-rate"),
		TendIntervalMs: int(viper.GetDuration("tend-interval") / time.Millisecond),
		Transport: common.ClientTransportConfig{
			RetryCount:             viper.GetInt("transport-retries"),
			Endpoints:              strings.Split(viper.GetString("transport-endpoints"), ","),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			},
		},
	}
}

// GetShardID retrieves the configured shard ID
func GetShardID() uint64 {
	return viper.GetUint64("shard")
}

// --------------------------------------------------------------------------
// Serializer and transport selection
// --------------------------------------------------------------------------

// GetSerializer returns the serializer named by the serializer flag
func GetSerializer() (serializer.IRPCSerializer, error) {
	name := viper.GetString("serializer")
	if s, ok := serializer.ByName(name); ok {
		return s, nil
	}
	return nil, fmt.Errorf("invalid serializer %s (expected binary, json or gob)", name)
}

// GetTransport returns the client transport named by the transport flag
func GetTransport() (transport.IRPCClientTransport, error) {
	switch name := viper.GetString("transport"); name {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (expected http, tcp or unix)", name)
	}
}

// GetServerTransport returns the server transport named by the transport flag
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch name := viper.GetString("transport"); name {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (expected http, tcp or unix)", name)
	}
}
