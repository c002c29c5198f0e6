package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"autocraft.ai/internal/persistence/indexdb"
	persistlog "autocraft.ai/internal/persistence/log"
	"autocraft.ai/internal/persistence/snapshot"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/layout"
	"autocraft.ai/internal/sim/tuning"
	"autocraft.ai/internal/sim/world"
	"autocraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		layoutPath = flag.String("layout", "", "path to layout.yaml for fresh worlds (default: <configs>/layout.yaml)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (crafts/signals + catalogs + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("world dir: %v", err)
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		if p, _, err := snapshot.Latest(worldDir); err == nil {
			snapshotToLoad = p
		}
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		// Resume fallback: the snapshot carries the operational parameters.
		if snapshotToLoad == "" || !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	w, err := world.New(world.WorldConfig{
		ID:                 *worldID,
		TickRateHz:         tune.TickRateHz,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
		SignalMaxNodes:     tune.SignalMaxNodes,
		DefaultMaxStack:    tune.DefaultMaxStack,
		ContainerSlots:     tune.ContainerSlots,
	}, cats)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.RecipesDigest != "" && snap.RecipesDigest != cats.Recipes.Digest {
			logger.Printf("recipes changed since snapshot (snap=%s now=%s)", snap.RecipesDigest[:12], cats.Recipes.Digest[:12])
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	} else {
		lp := strings.TrimSpace(*layoutPath)
		if lp == "" {
			lp = filepath.Join(*configDir, "layout.yaml")
		}
		l, err := layout.Load(lp)
		if err != nil {
			logger.Fatalf("load layout: %v", err)
		}
		if err := w.ApplyLayout(l); err != nil {
			logger.Fatalf("apply layout: %v", err)
		}
		logger.Printf("fresh world from layout=%s", lp)
	}

	craftLog := persistlog.NewCraftLogger(worldDir)
	signalLog := persistlog.NewSignalLogger(worldDir)
	defer craftLog.Close()
	defer signalLog.Close()
	w.SetCraftLogger(multiCraftLogger{a: craftLog, b: idx})
	w.SetSignalLogger(multiSignalLogger{a: signalLog, b: idx})

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		state := struct {
			WorldID string             `json:"world_id"`
			Metrics world.WorldMetrics `json:"metrics"`
			Index   *indexdb.Stats     `json:"index,omitempty"`
		}{WorldID: *worldID, Metrics: w.Metrics()}
		if idx != nil {
			st := idx.Stats()
			state.Index = &st
		}
		_ = json.NewEncoder(rw).Encode(state)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger, ws.Options{
		SignalPerSecond: tune.RateLimits.SignalPerSecond,
		SignalBurst:     tune.RateLimits.SignalBurst,
		TuningDigest:    tune.Digest(),
	}).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := w.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap := <-snapCh:
				writeSnapshot(logger, worldDir, snap, idx)
			}
		}
	})
	g.Go(func() error {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})

	if err := g.Wait(); err != nil {
		logger.Printf("server stopped: %v", err)
	}

	// Final snapshot so a restart resumes where we stopped.
	writeSnapshot(logger, worldDir, w.ExportSnapshot(w.CurrentTick()), idx)
	logger.Printf("shutdown at tick=%d", w.CurrentTick())
}

func writeSnapshot(logger *log.Logger, worldDir string, snap snapshot.SnapshotV1, idx runtimeIndex) {
	path := snapshot.PathFor(worldDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Printf("snapshot write: %v", err)
		return
	}
	if idx != nil {
		idx.RecordSnapshot(path, snap)
	}
}
