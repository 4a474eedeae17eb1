// Package server exposes a skill over HTTP, websocket and gRPC.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/gezibash/arc-skill/internal/observability"
)

// Config configures the listeners. An empty address disables that listener.
type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxBodyBytes   int64
	MaxRecvMsgSize int
	AllowedOrigins []string
}

type Server struct {
	handler    *Handler
	httpServer *http.Server
	httpLis    net.Listener

	grpcServer *grpc.Server
	grpcLis    net.Listener
	health     *health.Server

	log *slog.Logger
}

// New listens on the configured addresses and wires inv to every transport.
// Call Serve to start accepting.
func New(cfg Config, inv Invoker, obs *observability.Observability, opts ...grpc.ServerOption) (*Server, error) {
	if cfg.HTTPAddr == "" && cfg.GRPCAddr == "" {
		return nil, errors.New("server: no listen address")
	}

	log := slog.Default()
	var metrics *observability.Metrics
	if obs != nil {
		if obs.Logger != nil {
			log = obs.Logger
		}
		metrics = obs.Metrics
	}

	s := &Server{log: log.With("component", "server")}

	if cfg.HTTPAddr != "" {
		lis, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			return nil, err
		}
		s.httpLis = lis
		s.handler = NewHandler(inv, HandlerOptions{
			MaxBodyBytes:   cfg.MaxBodyBytes,
			AllowedOrigins: cfg.AllowedOrigins,
			Metrics:        metrics,
			Logger:         log,
		})
		s.httpServer = &http.Server{
			Handler:      s.handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}
	}

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			if s.httpLis != nil {
				s.httpLis.Close()
			}
			return nil, err
		}
		s.grpcLis = lis
		s.grpcServer, s.health = NewGRPCServer(inv, metrics, log, cfg.MaxRecvMsgSize, opts...)
	}

	if obs != nil && obs.Shutdown != nil {
		obs.Shutdown.Register("server", func(ctx context.Context) error {
			s.Stop(ctx)
			return nil
		})
	}
	return s, nil
}

// NewGRPCServer creates a gRPC server with the skill and health services
// registered. The health status starts as SERVING.
func NewGRPCServer(inv Invoker, metrics *observability.Metrics, log *slog.Logger, maxRecv int, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if log == nil {
		log = slog.Default()
	}
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			observability.UnaryServerInterceptor(metrics),
			UnaryStatusInterceptor(log),
		),
	}
	if maxRecv > 0 {
		serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(maxRecv))
	}
	serverOpts = append(serverOpts, opts...)

	gs := grpc.NewServer(serverOpts...)
	RegisterSkillServiceServer(gs, &skillService{inv: inv})

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return gs, hs
}

// Serve accepts on every listener until Stop is called or one of them
// fails.
func (s *Server) Serve() error {
	var g errgroup.Group
	if s.httpServer != nil {
		g.Go(func() error {
			s.log.Info("http server listening", "addr", s.httpLis.Addr().String())
			if err := s.httpServer.Serve(s.httpLis); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	if s.grpcServer != nil {
		g.Go(func() error {
			s.log.Info("grpc server listening", "addr", s.grpcLis.Addr().String())
			return s.grpcServer.Serve(s.grpcLis)
		})
	}
	return g.Wait()
}

// HTTPAddr returns the HTTP listen address, or "" when disabled.
func (s *Server) HTTPAddr() string {
	if s.httpLis == nil {
		return ""
	}
	return s.httpLis.Addr().String()
}

// GRPCAddr returns the gRPC listen address, or "" when disabled.
func (s *Server) GRPCAddr() string {
	if s.grpcLis == nil {
		return ""
	}
	return s.grpcLis.Addr().String()
}

func (s *Server) SetServingStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	if s.health != nil {
		s.health.SetServingStatus("", status)
		s.health.SetServingStatus(ServiceName, status)
	}
}

// Stop drains both transports, forcing them closed when ctx expires.
func (s *Server) Stop(ctx context.Context) {
	s.SetServingStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	if s.httpServer != nil {
		s.handler.CloseConnections()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Warn("http shutdown timed out, forcing", "error", err)
			s.httpServer.Close()
		}
	}

	if s.grpcServer == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("graceful stop timed out, forcing")
		s.grpcServer.Stop()
		<-done
	}
}
