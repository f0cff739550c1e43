// Package clusterclient multiplexes this node's ack-RPC and HTTP
// introspection traffic onto one listener. It holds no client side: the
// gRPC ack transport's client lives in ackbus. Grounded on the teacher's
// grpc/server.go cmux setup, trimmed to the two protocols a pdmd node
// actually serves.
package clusterclient

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/maxpert/marmot-pdm/ackbus"
	"github.com/rs/zerolog/log"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// Server multiplexes the admin/metrics HTTP handler and the ack gRPC
// service on a single bind address, the way the teacher's grpc.Server
// multiplexes pprof and the Marmot gRPC service with cmux.
type Server struct {
	address    string
	port       int
	grpcServer *grpc.Server
	httpServer *http.Server
	mux        cmux.CMux
}

// Config holds the listener address and the two handlers to multiplex.
type Config struct {
	BindAddress string
	Port        int
	HTTPHandler http.Handler
	AckServer   ackbus.AckServer
}

// NewServer creates a Server ready for Start.
func NewServer(cfg Config) *Server {
	grpcServer := grpc.NewServer(
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    60 * time.Second,
			Timeout: 10 * time.Second,
		}),
	)
	ackbus.RegisterAckServer(grpcServer, cfg.AckServer)
	reflection.Register(grpcServer)

	return &Server{
		address:    cfg.BindAddress,
		port:       cfg.Port,
		grpcServer: grpcServer,
		httpServer: &http.Server{Handler: cfg.HTTPHandler},
	}
}

// Start binds the listener and begins serving both protocols.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.address, s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("clusterclient: listen %s: %w", addr, err)
	}

	s.mux = cmux.New(listener)
	httpListener := s.mux.Match(cmux.HTTP1Fast())
	grpcListener := s.mux.Match(cmux.Any())

	go func() {
		if err := s.httpServer.Serve(httpListener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("clusterclient: admin/metrics HTTP server failed")
		}
	}()

	go func() {
		if err := s.grpcServer.Serve(grpcListener); err != nil {
			log.Error().Err(err).Msg("clusterclient: ack gRPC server failed")
		}
	}()

	go func() {
		if err := s.mux.Serve(); err != nil {
			log.Error().Err(err).Msg("clusterclient: cmux failed")
		}
	}()

	log.Info().Str("address", addr).Msg("clusterclient: listening for admin HTTP and ack gRPC")
	return nil
}

// Stop gracefully stops both servers.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
	_ = s.httpServer.Close()
}
