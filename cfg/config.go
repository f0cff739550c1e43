package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// AckTransportType selects how a PDM's HPS acks reach the Active node.
type AckTransportType string

const (
	AckTransportInProcess AckTransportType = "inprocess"
	AckTransportGRPC      AckTransportType = "grpc"
	AckTransportNATS      AckTransportType = "nats"
)

// GRPCConfiguration holds the ack RPC addresses. AdvertiseAddress is the
// target the gRPC ack transport sends to; Validate fills it in from the
// hostname and Port when it is empty. The ack gRPC service itself is served
// on the admin listener (AdminConfiguration's BindAddress and Port);
// BindAddress here is not read.
type GRPCConfiguration struct {
	BindAddress      string `toml:"bind_address"`
	AdvertiseAddress string `toml:"advertise_address"`
	Port             int    `toml:"port"`
}

// NATSConfiguration controls the NATS ack transport.
type NATSConfiguration struct {
	URL          string `toml:"url"`
	AckSubject   string `toml:"ack_subject"`
	ConnectRetry int    `toml:"connect_retry_seconds"`
}

// AckBusConfiguration controls how acks are sent back to the Active.
// MaxRetries and RetryBackoffMS are checked by Validate, but no transport
// reads them: each ack is sent once.
type AckBusConfiguration struct {
	Transport      AckTransportType  `toml:"transport"`
	MaxRetries     int               `toml:"max_retries"`
	RetryBackoffMS int               `toml:"retry_backoff_ms"`
	GRPC           GRPCConfiguration `toml:"grpc"`
	NATS           NATSConfiguration `toml:"nats"`
}

// WarmupConfiguration controls PDM rehydration at startup.
type WarmupConfiguration struct {
	CacheSize int `toml:"cache_size"`
}

// AdminConfiguration controls the introspection HTTP server.
type AdminConfiguration struct {
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	// Secret, when set, is required as either an X-PDM-Secret header or a
	// Bearer token on every admin request. Empty disables auth, matching
	// single-operator or already-firewalled deployments.
	Secret string `toml:"secret"`
}

// IsAdminAuthEnabled reports whether admin requests must present Secret.
func IsAdminAuthEnabled() bool {
	return Config.Admin.Secret != ""
}

// GetAdminSecret returns the configured admin shared secret.
func GetAdminSecret() string {
	return Config.Admin.Secret
}

// LoggingConfiguration controls logging behavior.
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration controls metrics exposure.
type PrometheusConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// VBucketConfiguration controls partition hosting.
type VBucketConfiguration struct {
	NumVBuckets int `toml:"num_vbuckets"`
}

// Configuration is the main configuration structure for a pdmd node.
type Configuration struct {
	NodeID  uint64 `toml:"node_id"`
	DataDir string `toml:"data_dir"`

	VBucket    VBucketConfiguration    `toml:"vbucket"`
	Warmup     WarmupConfiguration     `toml:"warmup"`
	AckBus     AckBusConfiguration     `toml:"ackbus"`
	Admin      AdminConfiguration      `toml:"admin"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
}

// Command line flags.
var (
	ConfigPathFlag = flag.String("config", "config.toml", "Path to configuration file")
	DataDirFlag    = flag.String("data-dir", "", "Data directory (overrides config)")
	NodeIDFlag     = flag.Uint64("node-id", 0, "Node ID (overrides config, 0=auto)")
	GRPCPortFlag   = flag.Int("grpc-port", 0, "Ack gRPC port (overrides config)")
	AdminPortFlag  = flag.Int("admin-port", 0, "Admin HTTP port (overrides config)")
)

// Config is the process-wide active configuration.
var Config = &Configuration{
	NodeID:  0, // Auto-generate
	DataDir: "./pdmd-data",

	VBucket: VBucketConfiguration{
		NumVBuckets: 1024,
	},

	Warmup: WarmupConfiguration{
		CacheSize: 256,
	},

	AckBus: AckBusConfiguration{
		Transport:      AckTransportGRPC,
		MaxRetries:     3,
		RetryBackoffMS: 100,
		GRPC: GRPCConfiguration{
			BindAddress: "0.0.0.0",
			Port:        8333,
		},
		NATS: NATSConfiguration{
			URL:          "nats://127.0.0.1:4222",
			AckSubject:   "pdm.acks",
			ConnectRetry: 5,
		},
	},

	Admin: AdminConfiguration{
		BindAddress: "0.0.0.0",
		Port:        8333,
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: true,
		Address: "0.0.0.0",
		Port:    8333,
	},
}

// Load loads configuration from file and applies CLI overrides.
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	if *DataDirFlag != "" {
		Config.DataDir = *DataDirFlag
	}
	if *NodeIDFlag != 0 {
		Config.NodeID = *NodeIDFlag
	}
	if *GRPCPortFlag != 0 {
		Config.AckBus.GRPC.Port = *GRPCPortFlag
	}
	if *AdminPortFlag != 0 {
		Config.Admin.Port = *AdminPortFlag
	}

	if Config.NodeID == 0 {
		var err error
		Config.NodeID, err = generateNodeID()
		if err != nil {
			return fmt.Errorf("failed to generate node ID: %w", err)
		}
		log.Info().Uint64("node_id", Config.NodeID).Msg("Auto-generated node ID")
	}

	if err := os.MkdirAll(Config.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	return nil
}

func generateNodeID() (uint64, error) {
	id, err := machineid.ProtectedID("pdmd")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// Validate checks configuration for errors.
func Validate() error {
	if Config.AckBus.GRPC.Port < 1 || Config.AckBus.GRPC.Port > 65535 {
		return fmt.Errorf("invalid ack gRPC port: %d", Config.AckBus.GRPC.Port)
	}

	if Config.Admin.Port < 1 || Config.Admin.Port > 65535 {
		return fmt.Errorf("invalid admin port: %d", Config.Admin.Port)
	}

	if Config.AckBus.GRPC.AdvertiseAddress == "" {
		hostname, err := os.Hostname()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to get hostname, using localhost")
			hostname = "localhost"
		}
		Config.AckBus.GRPC.AdvertiseAddress = fmt.Sprintf("%s:%d", hostname, Config.AckBus.GRPC.Port)
		log.Info().
			Str("advertise_address", Config.AckBus.GRPC.AdvertiseAddress).
			Msg("Auto-configured ack gRPC advertise address")
	}

	if Config.VBucket.NumVBuckets < 1 {
		return fmt.Errorf("num_vbuckets must be >= 1")
	}

	if Config.Warmup.CacheSize < 1 {
		return fmt.Errorf("warmup cache_size must be >= 1")
	}

	switch Config.AckBus.Transport {
	case AckTransportInProcess, AckTransportGRPC, AckTransportNATS:
	default:
		return fmt.Errorf("invalid ackbus transport: %s", Config.AckBus.Transport)
	}

	if Config.AckBus.MaxRetries < 0 {
		return fmt.Errorf("ackbus max_retries must be >= 0")
	}

	if Config.AckBus.RetryBackoffMS < 0 {
		return fmt.Errorf("ackbus retry_backoff_ms must be >= 0")
	}

	if Config.AckBus.Transport == AckTransportNATS && Config.AckBus.NATS.URL == "" {
		return fmt.Errorf("ackbus nats.url must be set when transport is nats")
	}

	return nil
}
