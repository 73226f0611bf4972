package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"spawnerx.gg/internal/exchange"
	"spawnerx.gg/internal/exchange/config"
	"spawnerx.gg/internal/host"
	"spawnerx.gg/internal/persistence/indexdb"
	persistlog "spawnerx.gg/internal/persistence/log"
	"spawnerx.gg/internal/transport/ws"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		configDir    = flag.String("configs", "./configs", "config directory")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite exchange index")
		spawnerTypes = flag.String("spawner_types", "ZOMBIE,SKELETON,BLAZE", "comma-separated spawner types the stack registry reports")
		starterUnits = flag.Int("starter_units", 0, "seed joining players with one stacked spawner per type holding this many units")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.NewManager(*configDir)
	if err != nil {
		// The manager recovers defective documents; a load error still
		// leaves usable defaults behind.
		logger.Printf("config load: %v (continuing with recovered values)", err)
	}

	sim := host.NewSim(logger, host.Config{
		SpawnerTypes: splitTypes(*spawnerTypes),
		StarterUnits: *starterUnits,
	})
	plugin := exchange.New(logger, cfg, sim, sim, sim)
	sim.AttachPlugin(plugin)
	plugin.SeedMobs(sim, nil)

	exchLog := persistlog.NewExchangeLogger(*dataDir)
	defer exchLog.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "spawnerx.db"))
		if err != nil {
			logger.Fatalf("open exchange index: %v", err)
		}
		defer idx.Close()
	}
	sinks := multiAuditSink{a: exchLog}
	if idx != nil {
		sinks.b = idx
	}
	plugin.SetAudit(sinks)

	ctx, cancel := signalContext()
	defer cancel()

	go sim.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	if idx != nil {
		// Local-only operator view over recent exchange outcomes.
		mux.HandleFunc("/admin/v1/exchanges", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			limit := 50
			if q := r.URL.Query().Get("limit"); q != "" {
				if n, err := strconv.Atoi(q); err == nil {
					limit = n
				}
			}
			rows, err := idx.RecentExchanges(limit)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "exchanges": rows})
		})
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(sim, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
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

func splitTypes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
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

type multiAuditSink struct {
	a exchange.AuditSink
	b exchange.AuditSink
}

func (m multiAuditSink) WriteExchange(e exchange.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteExchange(e)
	}
	if m.b != nil {
		_ = m.b.WriteExchange(e)
	}
	return nil
}
