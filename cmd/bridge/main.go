package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"twbridge.dev/internal/config"
	"twbridge.dev/internal/persistence/indexdb"
	persistlog "twbridge.dev/internal/persistence/log"
	"twbridge.dev/internal/sim/world"
	"twbridge.dev/internal/transport/web"
	"twbridge.dev/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/bridge.yaml", "bridge config path")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite audit index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bridge] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := signalContext()
	defer cancel()

	for {
		restart, err := run(ctx, *configPath, *dataDir, *disableDB, logger)
		if err != nil {
			logger.Fatalf("run: %v", err)
		}
		if !restart {
			return
		}
		logger.Printf("reload requested; restarting from %s", *configPath)
	}
}

// run starts one full bridge lifetime: world loop, transports, admin
// surface. Returns restart=true when an admin reload asked for a clean
// rebuild from configuration.
func run(ctx context.Context, configPath, dataDir string, disableDB bool, logger *log.Logger) (restart bool, err error) {
	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return false, err
	}

	w := world.New(world.Config{
		ID:         cfg.World.ID,
		TickRateHz: cfg.World.TickRateHz,
		Players:    cfg.World.Players,
		Debug:      cfg.Debug,
	}, logger)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(runCtx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	worldDir := filepath.Join(dataDir, "worlds", cfg.World.ID)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer auditLog.Close()

	var idx *indexdb.SQLiteIndex
	if !disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			return false, fmt.Errorf("open index backend: %w", err)
		}
		defer idx.Close()
	}
	w.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})
	// The loop must drain before the audit sinks close; a queued mutation
	// auditing into a torn-down writer would otherwise race the teardown.
	defer func() {
		cancelRun()
		<-worldDone
	}()

	wsSrv := ws.NewServer(w, ws.Options{
		RequirePairing:  cfg.RequirePairing(),
		PairWindow:      time.Duration(cfg.Pairing.WindowSeconds) * time.Second,
		MaxMsgPerSecond: cfg.WS.MaxMsgPerSecond,
		MaxMsgBytes:     cfg.WS.MaxMsgBytes,
		Origins:         cfg.WS.OriginWhitelist,
		Debug:           cfg.Debug,
	}, logger)
	defer wsSrv.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(w, wsSrv, idx))
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	if cfg.HTTPEnabled() {
		webSrv, err := web.NewServer(web.Options{
			Path:             cfg.HTTP.Path,
			CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
			CacheSeconds:     cfg.HTTP.CacheSeconds,
			WSDefaultURL:     cfg.AdvertisedWSURL(),
		}, logger)
		if err != nil {
			return false, fmt.Errorf("asset server: %w", err)
		}
		mux.HandleFunc(webSrv.Path(), webSrv.ScriptHandler())
		mux.HandleFunc("/", webSrv.RootHandler())
		logger.Printf("extension script: http://%s%s", cfg.ListenAddr(), webSrv.Path())
	}

	reloadCh := make(chan struct{}, 1)
	registerAdmin(mux, w, wsSrv, reloadCh)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	reloadRequested := false
	go func() {
		select {
		case <-ctx.Done():
		case <-reloadCh:
			reloadRequested = true
		}
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (ws endpoint /v1/ws)", cfg.ListenAddr())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return false, err
	}
	return reloadRequested && ctx.Err() == nil, nil
}

func loadConfig(path string, logger *log.Logger) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("config not found (%s); using defaults", path)
			return config.Defaults(), nil
		}
		return cfg, err
	}
	return cfg, nil
}

func registerAdmin(mux *http.ServeMux, w *world.World, wsSrv *ws.Server, reloadCh chan struct{}) {
	// Local-only: the admin capability check is "you can reach loopback".
	guard := func(next http.HandlerFunc) http.HandlerFunc {
		return func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			next(rw, r)
		}
	}

	mux.HandleFunc("/admin/v1/state", guard(func(rw http.ResponseWriter, r *http.Request) {
		ctx2, cancel2 := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel2()
		stats, err := w.Snapshot(ctx2)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"ok":     true,
			"world":  stats,
			"bridge": wsSrv.Stats(),
		})
	}))

	mux.HandleFunc("/admin/v1/pair", guard(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		code, ok := wsSrv.RotatePairCode()
		if !ok {
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": "pairing disabled"})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "code": code})
	}))

	mux.HandleFunc("/admin/v1/reload", guard(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		select {
		case reloadCh <- struct{}{}:
		default:
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true})
	}))
}

func metricsHandler(w *world.World, wsSrv *ws.Server, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		ctx2, cancel2 := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel2()
		stats, err := w.Snapshot(ctx2)
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		b := wsSrv.Stats()

		fmt.Fprintf(rw, "# HELP twbridge_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE twbridge_world_tick gauge\n")
		fmt.Fprintf(rw, "twbridge_world_tick %d\n", stats.Tick)

		fmt.Fprintf(rw, "# HELP twbridge_world_agents Bridge-managed agents alive.\n")
		fmt.Fprintf(rw, "# TYPE twbridge_world_agents gauge\n")
		fmt.Fprintf(rw, "twbridge_world_agents %d\n", stats.Agents)

		fmt.Fprintf(rw, "# HELP twbridge_connections Open websocket connections.\n")
		fmt.Fprintf(rw, "# TYPE twbridge_connections gauge\n")
		fmt.Fprintf(rw, "twbridge_connections %d\n", b.Connections)

		fmt.Fprintf(rw, "# HELP twbridge_sessions Bound sessions.\n")
		fmt.Fprintf(rw, "# TYPE twbridge_sessions gauge\n")
		fmt.Fprintf(rw, "twbridge_sessions %d\n", b.Sessions)

		fmt.Fprintf(rw, "# HELP twbridge_world_queue_depth Executor backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE twbridge_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "twbridge_world_queue_depth %d\n", stats.Queue)

		if idx != nil {
			fmt.Fprintf(rw, "# HELP twbridge_index_dropped_total Index writes dropped under saturation.\n")
			fmt.Fprintf(rw, "# TYPE twbridge_index_dropped_total counter\n")
			fmt.Fprintf(rw, "twbridge_index_dropped_total %d\n", idx.Dropped())
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// multiAuditLogger fans entries out to the JSONL log and the sqlite index.
type multiAuditLogger struct {
	a world.AuditLogger
	b *indexdb.SQLiteIndex
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
