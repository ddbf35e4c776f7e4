package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/algotutor/internal/agent"
	"github.com/abhisek/algotutor/internal/config"
	"github.com/abhisek/algotutor/internal/intent"
	"github.com/abhisek/algotutor/internal/llm"
	"github.com/abhisek/algotutor/internal/problems"
	"github.com/abhisek/algotutor/internal/sandbox"
	"github.com/abhisek/algotutor/internal/store"
	"github.com/abhisek/algotutor/internal/trace"
)

// runtime holds everything a frontend needs to serve chat turns.
type runtime struct {
	store    *store.Store
	tutor    *agent.Tutor
	problems *problems.Service
	closers  []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildRuntime opens the store and wires providers, router, problem
// service, sandbox, profile repository and trace sinks into a Tutor.
func buildRuntime(ctx context.Context) (*runtime, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	rt := &runtime{store: st, closers: []func() error{st.Close}}

	if err := rt.wire(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) wire(ctx context.Context) error {
	llmCfg := llm.ResolveConfig()
	if err := llmCfg.Validate(); err != nil {
		return fmt.Errorf("LLM provider not configured: %w", err)
	}
	providers, err := llm.NewProviders(ctx, llmCfg, rt.store.EventRepo())
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}

	profiles, err := rt.profileRepo(ctx)
	if err != nil {
		return err
	}

	rt.problems = rt.problemService(ctx)

	executor, err := rt.executor(ctx)
	if err != nil {
		return err
	}

	agentCfg := agent.DefaultConfig()
	if llmCfg.Timeout > 0 {
		agentCfg.Timeout = llmCfg.Timeout
	}

	rt.tutor = agent.New(agent.Deps{
		Chat:     providers.Chat,
		Router:   intent.NewRouter(providers.Router),
		Problems: rt.problems,
		Executor: executor,
		Profiles: profiles,
		Sink:     rt.traceSink(),
	}, agentCfg)

	slog.Info("tutor ready",
		"provider", llmCfg.Provider,
		"model", providers.Chat.ModelID(),
		"profiles", cfg.Profiles.Backend,
		"sandbox", cfg.Sandbox.Backend,
		"trace", cfg.Trace.Enabled)
	return nil
}

func (rt *runtime) profileRepo(ctx context.Context) (store.ProfileRepo, error) {
	switch cfg.Profiles.Backend {
	case config.ProfileMemory:
		return store.NewMemoryProfileRepo(), nil
	case config.ProfileRedis:
		client, err := store.OpenRedis(ctx, cfg.Profiles.RedisURL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		return store.NewRedisProfileRepo(client, store.RedisProfileConfig{TTL: cfg.Profiles.TTL}), nil
	default:
		return rt.store.ProfileRepo(), nil
	}
}

// problemService puts the MCP server in front of GraphQL when one is
// configured. A server that fails to start is logged and skipped.
func (rt *runtime) problemService(ctx context.Context) *problems.Service {
	graphql := problems.NewGraphQLClient(cfg.Problems.GraphQLURL)
	mcpCfg, ok := cfg.MCP()
	if !ok {
		return problems.NewService(graphql)
	}
	mcpClient, err := problems.DialMCP(ctx, mcpCfg)
	if err != nil {
		slog.Warn("mcp problem server unavailable, using graphql only", "error", err)
		return problems.NewService(graphql)
	}
	rt.closers = append(rt.closers, mcpClient.Close)
	return problems.NewService(graphql, problems.WithPrimary(mcpClient))
}

// executor returns nil when code execution is switched off.
func (rt *runtime) executor(ctx context.Context) (sandbox.Executor, error) {
	switch cfg.Sandbox.Backend {
	case config.SandboxOff:
		return nil, nil
	case config.SandboxDocker:
		d, err := sandbox.NewDockerExecutor(cfg.Sandbox.Image)
		if err != nil {
			return nil, err
		}
		if err := d.Ping(ctx); err != nil {
			d.Close()
			return nil, err
		}
		d.Timeout = cfg.Sandbox.Timeout
		rt.closers = append(rt.closers, d.Close)
		return d, nil
	default:
		return &sandbox.LocalExecutor{Python: cfg.Sandbox.Python, Timeout: cfg.Sandbox.Timeout}, nil
	}
}

// traceSink writes every turn to the database and, as JSON files, to the
// trace directory. Nil when tracing is off.
func (rt *runtime) traceSink() trace.Sink {
	if !cfg.Trace.Enabled {
		return nil
	}
	return trace.MultiSink{
		trace.StoreSink{Repo: rt.store.TraceRepo()},
		trace.FileSink{Dir: cfg.Trace.Dir},
	}
}
