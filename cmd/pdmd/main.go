// Command pdmd hosts a set of vbuckets' Passive Durability Monitors,
// rehydrates them from local storage at startup, and exposes their
// tracked-write state to operators and to the Active node's ack bus.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maxpert/marmot-pdm/ackbus"
	"github.com/maxpert/marmot-pdm/admin"
	"github.com/maxpert/marmot-pdm/cfg"
	"github.com/maxpert/marmot-pdm/clusterclient"
	"github.com/maxpert/marmot-pdm/durability"
	"github.com/maxpert/marmot-pdm/telemetry"
	"github.com/maxpert/marmot-pdm/vbucket"
	"github.com/maxpert/marmot-pdm/vbucket/warmup"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// emptyPrepareSource is the warmup.PrepareSource used when a node has no
// local storage behind it yet: every vbucket starts with zero outstanding
// prepares. A real deployment swaps this for a source backed by its
// storage engine's Prepare namespace.
type emptyPrepareSource struct{}

func (emptyPrepareSource) LoadOutstandingPrepares(vbucket.ID) ([]*durability.TrackedWrite, error) {
	return nil, nil
}

func main() {
	flag.Parse()

	if err := cfg.Load(*cfg.ConfigPathFlag); err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}

	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("node_id", cfg.Config.NodeID).
		Logger()
	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("pdmd starting")

	log.Debug().Msg("initializing telemetry")
	telemetry.InitializeTelemetry()
	telemetry.InitMetrics()

	log.Info().Int("num_vbuckets", cfg.Config.VBucket.NumVBuckets).Msg("warming up vbuckets")
	warmer, err := warmup.New(emptyPrepareSource{}, cfg.Config.Warmup.CacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize warmup cache")
		return
	}

	ackTransport, err := ackbus.New(cfg.Config.AckBus, func(vbid vbucket.ID, seqno int64) error {
		ackbus.LoggingAckServer{}.HandleAck(vbid, seqno)
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize ack transport")
		return
	}
	defer ackTransport.Close()

	handles := make([]vbucket.Handle, 0, cfg.Config.VBucket.NumVBuckets)
	for i := 0; i < cfg.Config.VBucket.NumVBuckets; i++ {
		handles = append(handles, newNodeVBucket(vbucket.ID(i), ackTransport))
	}

	registry, err := warmer.WarmAll(handles)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to warm up vbucket registry")
		return
	}
	log.Info().Int("loaded", registry.Len()).Msg("vbucket registry warmed up")

	collector := telemetry.NewMetricsCollector(registry, 5*time.Second)
	collector.Start()
	defer collector.Stop()

	httpMux := http.NewServeMux()
	if h := telemetry.GetMetricsHandler(); h != nil {
		httpMux.Handle("/metrics", h)
	}
	admin.RegisterRoutes(httpMux, admin.NewHandlers(registry))

	clusterServer := clusterclient.NewServer(clusterclient.Config{
		BindAddress: cfg.Config.Admin.BindAddress,
		Port:        cfg.Config.Admin.Port,
		HTTPHandler: httpMux,
		AckServer:   ackbus.LoggingAckServer{},
	})
	if err := clusterServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start admin/ack listener")
		return
	}
	defer clusterServer.Stop()

	log.Info().
		Uint64("node_id", cfg.Config.NodeID).
		Int("num_vbuckets", cfg.Config.VBucket.NumVBuckets).
		Str("ackbus_transport", string(cfg.Config.AckBus.Transport)).
		Msg("pdmd is operational")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping pdmd")
}
