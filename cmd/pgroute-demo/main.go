// Command pgroute-demo runs the routing scenarios against a live
// primary/replica PostgreSQL cluster described by a YAML config file:
//
//	pgroute-demo -config cluster.yaml time
//	pgroute-demo -config cluster.yaml position
//	pgroute-demo -config cluster.yaml sticky
//	pgroute-demo -config cluster.yaml laggen -rows 200000
//
// The first three demonstrate one strategy each; laggen floods the primary
// with filler rows so replication lag becomes visible in the other demos.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	pgroute "github.com/pgstack/go-pgroute"
	"github.com/pgstack/go-pgroute/route"
)

func main() {
	configPath := flag.String("config", "cluster.yaml", "cluster config file")
	rows := flag.Int("rows", 100000, "laggen: rows to insert")
	padding := flag.Int("padding", 500, "laggen: filler bytes per row")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var cfg pgroute.YAMLClusterConfig
	if err := cfg.LoadFromFile(*configPath); err != nil {
		fail("load config: %s", err)
	}

	demo := flag.Arg(0)
	if demo == "" {
		demo = cfg.Strategy
	}

	cluster, err := openCluster(context.Background(), &cfg, logger)
	if err != nil {
		fail("open cluster: %s", err)
	}
	defer cluster.Close()

	switch demo {
	case "time":
		err = runTimeDemo(context.Background(), cluster, cfg.WriteThreshold())
	case "position":
		err = runPositionDemo(context.Background(), cluster)
	case "sticky":
		err = runStickyDemo(context.Background(), cluster)
	case "laggen":
		err = runLagDemo(context.Background(), cluster, *rows, *padding)
	default:
		err = fmt.Errorf("unknown demo %q, want time, position, sticky or laggen", demo)
	}
	if err != nil {
		fail("%s demo: %s", demo, err)
	}
}

func fail(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}

// cluster bundles the live connections with the routing registry built over
// them. The primary handle is kept separately for schema and lag management,
// which are not routing concerns.
type cluster struct {
	registry *route.Registry
	sessions *route.SessionStore
	primary  *pgroute.Connection
}

func openCluster(ctx context.Context, cfg *pgroute.YAMLClusterConfig, logger *slog.Logger) (*cluster, error) {
	opts := pgroute.Opts{
		Timeout: cfg.RequestTimeout(),
		Logger:  pgroute.NewSlogLogger(logger),
	}

	primary, err := pgroute.Connect(ctx, cfg.Primary.Node(pgroute.PrimaryRole), opts)
	if err != nil {
		return nil, err
	}
	if err := primary.EnsureSchema(ctx); err != nil {
		primary.Close()
		return nil, err
	}

	members := make([]route.Member, 0, len(cfg.Replicas))
	for _, rc := range cfg.Replicas {
		replica, err := pgroute.Connect(ctx, rc.Node(pgroute.ReplicaRole), opts)
		if err != nil {
			for _, m := range members {
				m.Endpoint.Close()
			}
			primary.Close()
			return nil, err
		}
		members = append(members, route.Member{Node: replica.Node(), Endpoint: replica})
	}

	registry, err := route.NewRegistry(
		route.Member{Node: primary.Node(), Endpoint: primary}, members...)
	if err != nil {
		primary.Close()
		for _, m := range members {
			m.Endpoint.Close()
		}
		return nil, err
	}

	return &cluster{
		registry: registry,
		sessions: route.NewSessionStore(),
		primary:  primary,
	}, nil
}

func (c *cluster) Close() error {
	return c.registry.Close()
}

func (c *cluster) router(strategy route.Strategy) *route.Router {
	return route.NewRouterWithOpts(c.registry, c.sessions, strategy, route.RouterOpts{
		Logger: pgroute.NewSlogLogger(slog.Default()),
	})
}

// runTimeDemo writes once and reads twice: inside the threshold window the
// read lands on the primary, after the window expires it moves to a replica.
func runTimeDemo(ctx context.Context, c *cluster, threshold time.Duration) error {
	if threshold <= 0 {
		threshold = route.DefaultWriteThreshold
	}
	router := c.router(route.NewTimeRouter(c.registry, threshold))
	session := route.NewSessionID()

	id, err := router.Write(ctx, session, fmt.Sprintf("time demo at %s", time.Now().Format(time.RFC3339)))
	if err != nil {
		return err
	}
	fmt.Printf("wrote record %d\n", id)

	records, decision, err := router.ReadOwn(ctx, session, 5)
	if err != nil {
		return err
	}
	fmt.Printf("read inside %s window: %d rows from %s (%s)\n",
		threshold, len(records), decision.Node.ID, decision.Label)

	fmt.Printf("waiting for the window to expire...\n")
	time.Sleep(threshold + time.Second)

	records, decision, err = router.ReadOwn(ctx, session, 5)
	if err != nil {
		return err
	}
	fmt.Printf("read after the window: %d rows from %s (%s)\n",
		len(records), decision.Node.ID, decision.Label)
	return nil
}

// runPositionDemo writes, then polls a replica's replay position until the
// write is visible there, at which point the read routes to the replica with
// an exact guarantee instead of a timer.
func runPositionDemo(ctx context.Context, c *cluster) error {
	router := c.router(route.NewPositionRouter(c.registry))
	session := route.NewSessionID()

	id, err := router.Write(ctx, session, fmt.Sprintf("position demo at %s", time.Now().Format(time.RFC3339)))
	if err != nil {
		return err
	}

	pos, ok := c.sessions.GetOrCreate(session).LastWritePosition()
	if !ok {
		return fmt.Errorf("write %d left no position in the session", id)
	}
	fmt.Printf("wrote record %d at position %s\n", id, pos)

	records, decision, err := router.ReadOwn(ctx, session, 5)
	if err != nil {
		return err
	}
	fmt.Printf("immediate read: %d rows from %s (%s)\n",
		len(records), decision.Node.ID, decision.Label)

	for _, replica := range c.registry.Replicas() {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := route.WaitCaughtUp(waitCtx, replica.Endpoint, pos, route.DefaultPollInterval)
		cancel()
		if err != nil {
			return err
		}
		fmt.Printf("%s replayed past %s\n", replica.Node.ID, pos)
	}

	records, decision, err = router.ReadOwn(ctx, session, 5)
	if err != nil {
		return err
	}
	fmt.Printf("read after catch-up: %d rows from %s (%s)\n",
		len(records), decision.Node.ID, decision.Label)
	return nil
}

// runStickyDemo shows that each session key keeps landing on the same
// replica no matter how often it reads, while writes stay on the primary.
func runStickyDemo(ctx context.Context, c *cluster) error {
	sticky, err := route.NewStickyRouter(c.registry)
	if err != nil {
		return err
	}
	router := c.router(sticky)

	for _, key := range []string{"alice", "bob", "carol"} {
		if _, err := router.Write(ctx, key, fmt.Sprintf("sticky demo write by %s", key)); err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			records, decision, err := router.ReadOwn(ctx, key, 5)
			if err != nil {
				return err
			}
			fmt.Printf("%s read %d: %d rows from %s (%s)\n",
				key, i+1, len(records), decision.Node.ID, decision.Label)
		}
	}
	return nil
}

// runLagDemo floods the primary with filler rows and reports per-standby
// replication lag until it drains.
func runLagDemo(ctx context.Context, c *cluster, rows, padding int) error {
	start := time.Now()
	inserted, err := c.primary.BulkInsert(ctx, rows, padding)
	if err != nil {
		return err
	}
	fmt.Printf("inserted %d filler rows in %s\n", inserted, time.Since(start).Round(time.Millisecond))

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		statuses, err := c.primary.ReplicationStatus(ctx)
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			return fmt.Errorf("primary reports no attached standbys")
		}

		drained := true
		for _, status := range statuses {
			fmt.Printf("%s: %s bytes behind, %ss replay lag\n",
				status.ApplicationName, status.LagBytes, status.LagSeconds)
			if !status.LagBytes.IsZero() {
				drained = false
			}
		}
		if drained {
			fmt.Println("all standbys caught up")
			return nil
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("standbys still lagging after 60s")
}
