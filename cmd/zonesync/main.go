package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"zonesync/internal/config"
	"zonesync/internal/db"
	"zonesync/internal/reload"
	"zonesync/internal/resync"
	restsrv "zonesync/internal/server/rest"
	"zonesync/internal/zone"
)

// Build information set via -ldflags during build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	// Normalize GNU-style flags ("--flag") to Go's default ("-flag")
	if len(os.Args) > 1 {
		norm := make([]string, 0, len(os.Args))
		norm = append(norm, os.Args[0])
		for i := 1; i < len(os.Args); i++ {
			a := os.Args[i]
			if a == "--" {
				norm = append(norm, os.Args[i:]...)
				break
			}
			if strings.HasPrefix(a, "--") {
				a = "-" + strings.TrimPrefix(a, "--")
			}
			norm = append(norm, a)
		}
		os.Args = norm
	}

	var (
		cfgPath  string
		testOnly bool
		token    string
		showVer  bool
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "zonesync - zone file generator for database-backed CoreDNS\n\n")
		fmt.Fprintf(os.Stderr, "Usage: zonesync [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fmt.Fprintf(os.Stderr, "  -c, -config <file>     Path to config file (default: config.yaml)\n")
		fmt.Fprintf(os.Stderr, "  -t, -test              Validate config and exit\n")
		fmt.Fprintf(os.Stderr, "  -g, -gen-token <token> Generate bcrypt hash for API token and exit\n")
		fmt.Fprintf(os.Stderr, "  -v, -version           Print version and exit\n")
		fmt.Fprintf(os.Stderr, "  -h, -help              Show this help message\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  ZONESYNC_CONFIG        Config file path (overridden by -c flag)\n")
		fmt.Fprintf(os.Stderr, "  POSTGRES_HOST, POSTGRES_DB, POSTGRES_USER, POSTGRES_PASSWORD\n")
		fmt.Fprintf(os.Stderr, "  ZONES_DIRECTORY, COREDNS_CONTAINER, LOG_LEVEL, POLL_INTERVAL\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  zonesync                      Start with config.yaml or environment\n")
		fmt.Fprintf(os.Stderr, "  zonesync -c prod.yaml         Start with custom config\n")
		fmt.Fprintf(os.Stderr, "  zonesync -t                   Validate config\n")
		fmt.Fprintf(os.Stderr, "  zonesync -g mytoken           Generate API token hash\n")
	}

	flag.StringVar(&cfgPath, "c", "", "")
	flag.StringVar(&cfgPath, "config", "", "")
	flag.BoolVar(&testOnly, "t", false, "")
	flag.BoolVar(&testOnly, "test", false, "")
	flag.StringVar(&token, "g", "", "")
	flag.StringVar(&token, "gen-token", "", "")
	flag.BoolVar(&showVer, "v", false, "")
	flag.BoolVar(&showVer, "version", false, "")
	flag.Parse()

	if showVer {
		fmt.Printf("zonesync %s\n", Version)
		fmt.Printf("  Commit:    %s\n", GitCommit)
		fmt.Printf("  Built:     %s\n", BuildDate)
		fmt.Printf("  Go:        %s\n", runtime.Version())
		fmt.Printf("  Platform:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return
	}

	if token != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error generating bcrypt: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Bcrypt hash for API token '%s':\n%s\n", token, string(hash))
		fmt.Println("\nAdd this to your config.yaml:")
		fmt.Printf("api_token_hash: \"%s\"\n", string(hash))
		return
	}

	// Determine config path precedence: -c/--config > env > default
	if cfgPath == "" {
		cfgPath = os.Getenv("ZONESYNC_CONFIG")
	}
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if testOnly {
		fmt.Printf("Config OK: %s\n", cfgPath)
		return
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.Info("zonesync starting")

	gdb, err := db.Connect(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("record store unreachable")
	}
	defer db.Close(gdb)

	store := db.NewStore(gdb)
	if domains, records, err := store.Stats(context.Background()); err == nil {
		log.WithFields(logrus.Fields{
			"domains":   domains,
			"records":   records,
			"zones_dir": cfg.ZonesDir,
		}).Info("record store statistics")
	} else {
		log.WithError(err).Warn("failed to read store statistics")
	}

	renderer := zone.NewRenderer(cfg.DefaultTTL, cfg.SOA.Primary, cfg.SOA.Hostmaster)
	publisher := zone.NewPublisher(cfg.ZonesDir)

	var trigger reload.Trigger = reload.Nop{}
	if cfg.Reload.Container != "" {
		trigger = reload.NewCoreDNSTrigger(cfg.Reload.Container)
	} else {
		log.Warn("no reload container configured, relying on auto-reload")
	}

	// Subscription setup failure is not fatal: the syncer starts in poll
	// mode directly.
	var events resync.EventSource
	var notifier *db.Notifier
	if cfg.PushEnabled() {
		notifier, err = db.NewNotifier(cfg.DB.DSN, cfg.NotifyChannel, log)
		if err != nil {
			log.WithError(err).Warn("failed to subscribe to change notifications, using polling")
		} else {
			events = notifier
		}
	}

	syncer := resync.New(store, renderer, publisher, trigger, events, cfg.PollInterval(), log)

	var restServer *restsrv.Server
	if cfg.RESTListen != "" {
		restServer = restsrv.NewServer(cfg, store, syncer)
		go func() {
			log.WithField("listen", cfg.RESTListen).Info("ops API listening")
			if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("ops API stopped")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
	}()

	syncer.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if restServer != nil {
		_ = restServer.Shutdown(shutdownCtx)
	}
	if notifier != nil {
		_ = notifier.Close()
	}
	log.Info("zonesync stopped")
}
