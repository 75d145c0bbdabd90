// Command loadsim runs a decentralized load balancing simulation: a set of
// nodes that gossip their queue lengths and migrate tasks away from
// overloaded peers.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/admin"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/config"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/metrics"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/observability"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/sim"
)

const rule = "=================================================="

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := ParseFlags(args, stderr)
	if err != nil {
		return 2
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "loadsim: %v\n", err)
		return 1
	}
	if opts.Duration > 0 {
		cfg.Duration = opts.Duration
	}
	if opts.Nodes > 0 {
		cfg.Nodes = opts.Nodes
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "loadsim: %v\n", err)
		return 1
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "loadsim: setup logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := simulate(ctx, cfg, logger, stdout); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		fmt.Fprintf(stderr, "loadsim: %v\n", err)
		return 1
	}
	return 0
}

func simulate(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	seeds, err := config.ParseSeedLoads(cfg.SeedLoads)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	recorder := metrics.NewRecorder(logger)

	cluster, err := sim.NewCluster(sim.Options{
		Nodes:          cfg.Nodes,
		Threshold:      cfg.Threshold,
		Workers:        cfg.Workers,
		GossipInterval: cfg.GossipInterval,
		PeerTTL:        cfg.PeerTTL,
		Placement:      cfg.Placement,
		Discovery:      cfg.Mesh == config.MeshDiscovery,
		Seed:           cfg.Seed,
	}, recorder, logger)
	if err != nil {
		return err
	}
	defer cluster.Stop()

	printBanner(out, cfg, cluster.RunID())
	logger.Info("=== Simulation Started ===", zap.String("run_id", cluster.RunID()))

	adminCtx, stopAdmin := context.WithCancel(context.Background())
	var adminWG sync.WaitGroup
	defer func() {
		stopAdmin()
		adminWG.Wait()
	}()

	var health *admin.GRPCServer
	if cfg.Admin.HTTPAddr != "" {
		lis, err := net.Listen("tcp", cfg.Admin.HTTPAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Admin.HTTPAddr, err)
		}
		handler := admin.NewHandler(cluster, reg, logger)
		adminWG.Add(1)
		go func() {
			defer adminWG.Done()
			if err := admin.ServeHTTP(adminCtx, lis, handler); err != nil {
				logger.Error("admin http stopped", zap.Error(err))
			}
		}()
		fmt.Fprintf(out, "Admin API listening on http://%s\n", lis.Addr())
	}
	if cfg.Admin.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Admin.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Admin.GRPCAddr, err)
		}
		health = admin.NewGRPCServer(logger)
		adminWG.Add(1)
		go func() {
			defer adminWG.Done()
			if err := health.Serve(adminCtx, lis); err != nil {
				logger.Error("admin grpc stopped", zap.Error(err))
			}
		}()
		fmt.Fprintf(out, "Health service listening on %s\n", lis.Addr())
	}

	fmt.Fprintf(out, "Starting %d nodes...\n", cfg.Nodes)
	cluster.Start()
	if health != nil {
		health.SetServing(true)
	}
	fmt.Fprintln(out, "All nodes started successfully!")
	fmt.Fprintln(out)

	if len(seeds) > 0 {
		if err := cluster.Seed(seeds, (cfg.MinTaskCost+cfg.MaxTaskCost)/2); err != nil {
			return err
		}
		for _, id := range config.SeedNodeIDs(seeds) {
			fmt.Fprintf(out, "Seeded node %d with %d tasks\n", id, seeds[id])
		}
	}

	fmt.Fprintf(out, "Running simulation for %s...\n", cfg.Duration)
	fmt.Fprintf(out, "Generating tasks every %s\n", cfg.TaskInterval)
	fmt.Fprintln(out)

	genCtx, stopGen := context.WithTimeout(ctx, cfg.Duration)
	defer stopGen()

	gen := sim.Generator{
		Interval: cfg.TaskInterval,
		MinCost:  cfg.MinTaskCost,
		MaxCost:  cfg.MaxTaskCost,
		Seed:     cfg.Seed,
	}
	generatedCh := make(chan int, 1)
	go func() { generatedCh <- gen.Run(genCtx, cluster) }()

	reportProgress(genCtx, out, cluster)
	generated := <-generatedCh

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Stopping task generation, processing remaining tasks...")
	if health != nil {
		health.SetServing(false)
	}

	drainCtx, cancelDrain := context.WithTimeout(ctx, cfg.DrainTimeout)
	if err := cluster.WaitDrained(drainCtx); err != nil {
		logger.Warn("drain incomplete", zap.Error(err))
	}
	cancelDrain()

	st := cluster.Stats()
	printStats(out, st, generated)
	logger.Info("=== Final Statistics ===",
		zap.Int("generated", generated),
		zap.Int64("submitted", st.Submitted),
		zap.Int64("processed", st.Processed),
		zap.Int("remaining", st.Queued))

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Stopping all nodes...")
	cluster.Stop()
	fmt.Fprintln(out, "Simulation completed successfully!")
	logger.Info("=== Simulation Completed ===")
	return nil
}

// reportProgress prints cluster totals once per second until ctx ends.
func reportProgress(ctx context.Context, out io.Writer, c *sim.Cluster) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	elapsed := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed++
			st := c.Stats()
			fmt.Fprintf(out, "Time: %ds - Total queue: %d, Total processed: %d\n", elapsed, st.Queued, st.Processed)
		}
	}
}

func printBanner(out io.Writer, cfg *config.Config, runID string) {
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Decentralized Load Balancer Simulation")
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Run ID: %s\n", runID)
	fmt.Fprintf(out, "  Number of nodes: %d\n", cfg.Nodes)
	fmt.Fprintf(out, "  Load threshold: %d\n", cfg.Threshold)
	fmt.Fprintf(out, "  Workers per node: %d\n", cfg.Workers)
	fmt.Fprintf(out, "  Placement: %s, mesh: %s\n", cfg.Placement, cfg.Mesh)
	fmt.Fprintf(out, "  Simulation duration: %s\n", cfg.Duration)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
}

func printStats(out io.Writer, st sim.Stats, generated int) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Final Statistics:")
	fmt.Fprintln(out, rule)
	for _, n := range st.Nodes {
		state := ""
		if !n.Running {
			state = " (stopped)"
		}
		fmt.Fprintf(out, "Node %d: Processed=%d, Remaining=%d%s\n", n.ID, n.Processed, n.Load, state)
	}
	fmt.Fprintln(out, strings.Repeat("-", len(rule)))
	fmt.Fprintf(out, "Total tasks generated: %d\n", generated)
	fmt.Fprintf(out, "Total tasks submitted: %d\n", st.Submitted)
	fmt.Fprintf(out, "Total tasks processed: %d\n", st.Processed)
	fmt.Fprintf(out, "Total tasks remaining: %d\n", st.Queued)
	fmt.Fprintln(out, rule)
}
