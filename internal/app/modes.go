package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"kubeask/internal/config"
	"kubeask/internal/mcpserver"
	"kubeask/internal/session"
	"kubeask/internal/transport"
	"kubeask/pkg/logging"
)

// Serve runs the HTTP transport, the session janitor and, if enabled, the
// MCP server until ctx is cancelled or one of them fails.
func (a *Application) Serve(ctx context.Context, version string) error {
	loop, err := a.NewLoop()
	if err != nil {
		return err
	}

	s := a.settings
	store := session.NewStore(s.Agent.MaxIterations, s.Session.IdleTTL)
	httpServer := transport.NewServer(transport.Config{
		Host:           s.Server.Host,
		Port:           s.Server.Port,
		Stream:         s.Server.DeliveryMode == config.DeliveryStream,
		RequestTimeout: s.Server.RequestTimeout,
	}, loop, store, a.services.Registry,
		transport.WithPinger(a.services.Cluster),
		transport.WithMetrics(a.services.Metrics),
	)

	a.CheckCluster(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		store.RunJanitor(ctx, 0)
		return nil
	})
	g.Go(func() error {
		return httpServer.Serve(ctx)
	})
	if s.MCP.Enabled {
		mcp, err := a.newMCPServer(version)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return mcp.Serve(ctx)
		})
	}

	logging.Info("CLI", "kubeask is serving on %s. Press Ctrl+C to stop.", httpServer.Addr())
	err = g.Wait()
	logging.Info("CLI", "Shut down")
	return err
}

// ServeMCP runs only the MCP server, with the transport from configuration.
func (a *Application) ServeMCP(ctx context.Context, version string) error {
	mcp, err := a.newMCPServer(version)
	if err != nil {
		return err
	}
	return mcp.Serve(ctx)
}

func (a *Application) newMCPServer(version string) (*mcpserver.Server, error) {
	s := a.settings
	srv, err := mcpserver.New(mcpserver.Config{
		Transport:   s.MCP.Transport,
		Host:        s.MCP.Host,
		Port:        s.MCP.Port,
		ToolTimeout: s.Agent.ToolTimeout,
		Version:     version,
	}, a.services.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}
	return srv, nil
}

// CheckCluster pings the Kubernetes API once and logs the outcome.
func (a *Application) CheckCluster(ctx context.Context) bool {
	if err := a.services.Cluster.Ping(ctx); err != nil {
		logging.Warn("Bootstrap", "Kubernetes API is not reachable yet: %v", err)
		return false
	}
	logging.Info("Bootstrap", "Connected to the Kubernetes API")
	return true
}
