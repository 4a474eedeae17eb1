package main

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	// Audit backends register themselves by name.
	_ "github.com/gezibash/arc-skill/internal/auditlog/badger"
	_ "github.com/gezibash/arc-skill/internal/auditlog/memory"
	_ "github.com/gezibash/arc-skill/internal/auditlog/redis"
	_ "github.com/gezibash/arc-skill/internal/auditlog/s3"
	_ "github.com/gezibash/arc-skill/internal/auditlog/sqlite"

	"github.com/gezibash/arc-skill/internal/config"
	"github.com/gezibash/arc-skill/internal/handlers"
	"github.com/gezibash/arc-skill/internal/interceptor"
	"github.com/gezibash/arc-skill/internal/server"
	"github.com/gezibash/arc-skill/internal/skill"
	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/logging"
	"github.com/gezibash/arc-skill/pkg/response"
)

// invoker is satisfied by a local skill and by the remote gRPC client.
type invoker interface {
	Invoke(ctx context.Context, env *envelope.RequestEnvelope) (*response.Envelope, error)
}

// buildSkill assembles the arithmetic skill from cfg with the given
// interceptors installed in order.
func buildSkill(cfg config.SkillConfig, log *logging.Logger, hooks ...interceptor.Hooks) (*skill.Skill, error) {
	aliases := make([]handlers.Alias, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		aliases = append(aliases, handlers.Alias{Name: r.Name, Handler: r.Handler, Match: r.Match})
	}

	b := skill.NewBuilder().
		WithSkillID(cfg.ID).
		WithUserAgent(cfg.UserAgent)
	if err := handlers.Register(b, handlers.Options{
		Reflector: cfg.Reflector,
		Aliases:   aliases,
		Logger:    log,
	}); err != nil {
		return nil, fmt.Errorf("register handlers: %w", err)
	}
	interceptor.Install(b, hooks...)
	return b.Build(), nil
}

type remoteInvoker struct {
	client *server.Client
	conn   *grpc.ClientConn
}

// dialRemote connects to a running skill server's gRPC listener.
func dialRemote(addr string) (*remoteInvoker, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &remoteInvoker{client: server.NewClient(conn), conn: conn}, nil
}

func (r *remoteInvoker) Invoke(ctx context.Context, env *envelope.RequestEnvelope) (*response.Envelope, error) {
	return r.client.Invoke(ctx, env)
}

func (r *remoteInvoker) Close() error { return r.conn.Close() }

// newInvoker returns the remote client when addr is set and a locally built
// skill otherwise. The returned close func is never nil.
func newInvoker(addr string, cfg config.SkillConfig, log *logging.Logger, hooks ...interceptor.Hooks) (invoker, func() error, error) {
	if addr != "" {
		r, err := dialRemote(addr)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}
	s, err := buildSkill(cfg, log, hooks...)
	if err != nil {
		return nil, nil, err
	}
	return s, func() error { return nil }, nil
}
