package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"feedregistry/config"
	"feedregistry/native/feeds"
	"feedregistry/native/gov"
	"feedregistry/observability/logging"
	"feedregistry/rpc"
	"feedregistry/storage"
	"feedregistry/upstream"
)

const rpcTokenEnv = "FEEDREGISTRY_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("FEEDREGISTRY_ENV"))
	logger := logging.Setup("feedregistryd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := openDatabase(cfg, logger)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	timeout := time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
	fast := upstream.NewFastSource(upstream.NewClient(cfg.Upstream.FastSourceURL, timeout))
	schedule := upstream.NewFeeSchedule(upstream.NewClient(cfg.Upstream.FeeScheduleURL, timeout))
	relay := upstream.NewRelay(upstream.NewClient(cfg.Upstream.RelayURL, timeout))

	var dialer feeds.Dialer
	if strings.TrimSpace(cfg.Upstream.CalculatedFeedURL) != "" {
		dialer = upstream.NewCalculatedDialer(upstream.NewClient(cfg.Upstream.CalculatedFeedURL, timeout))
	}

	auth := gov.NewStaticAuthorizer()
	var adminCaller [20]byte
	if strings.TrimSpace(cfg.AdminAddress) != "" {
		adminCaller, err = config.ParseAddress(cfg.AdminAddress)
		if err != nil {
			logger.Error("invalid admin address", slog.Any("error", err))
			os.Exit(1)
		}
		auth.Grant(feeds.RoleFeedAdmin, adminCaller)
	}

	engine, err := feeds.NewEngine(feeds.EngineConfig{
		Fast:       fast,
		Schedule:   schedule,
		Relay:      relay,
		Auth:       auth,
		ProtocolID: cfg.ProtocolID,
	})
	if err != nil {
		logger.Error("failed to build engine", slog.Any("error", err))
		os.Exit(1)
	}
	engine.SetStore(db)

	restored, err := restoreOrSeed(engine, db, dialer, cfg, adminCaller)
	if err != nil {
		logger.Error("failed to restore registry state", slog.Any("error", err))
		os.Exit(1)
	}
	if restored {
		logger.Info("registry state restored from store")
	}

	server := rpc.NewServer(rpc.ServerConfig{
		Engine:            engine,
		Dialer:            dialer,
		Logger:            logger,
		AuthToken:         strings.TrimSpace(os.Getenv(rpcTokenEnv)),
		AdminCaller:       adminCaller,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	})

	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting JSON-RPC server", slog.String("addr", cfg.RPCAddress), slog.String("network", cfg.NetworkName))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server exited", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.Any("error", err))
	}
	logger.Info("feedregistryd stopped")
}

func openDatabase(cfg *config.Config, logger *slog.Logger) (storage.Database, error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		logger.Warn("DataDir not set, registry state will not survive restarts")
		return storage.NewMemDB(), nil
	}
	return storage.NewLevelDB(cfg.DataDir)
}

// restoreOrSeed rehydrates the engine from the store, or applies the
// configured seed file when the store holds no snapshot yet.
func restoreOrSeed(engine *feeds.Engine, db storage.Database, dialer feeds.Dialer, cfg *config.Config, caller [20]byte) (bool, error) {
	has, err := db.Has(feeds.RegistrySnapshotKey)
	if err != nil {
		return false, err
	}
	if has {
		return true, engine.Restore(dialer)
	}

	seed, err := config.LoadSeed(cfg.SeedFile)
	if err != nil {
		return false, err
	}
	if len(seed.Calculated) > 0 {
		if dialer == nil {
			return false, errors.New("seed lists calculated feeds but no CalculatedFeedURL is configured")
		}
		handles := make([]feeds.CalculatedFeed, 0, len(seed.Calculated))
		for _, raw := range seed.Calculated {
			addr, err := config.ParseAddress(raw)
			if err != nil {
				return false, err
			}
			handle, err := dialer.Dial(addr)
			if err != nil {
				return false, err
			}
			handles = append(handles, handle)
		}
		if err := engine.AddCalculated(caller, handles); err != nil {
			return false, err
		}
	}
	if len(seed.Aliases) > 0 {
		oldIDs := make([]feeds.FeedID, 0, len(seed.Aliases))
		newIDs := make([]feeds.FeedID, 0, len(seed.Aliases))
		for _, pair := range seed.Aliases {
			oldID, err := feeds.ParseFeedID(pair.Old)
			if err != nil {
				return false, err
			}
			newID, err := feeds.ParseFeedID(pair.New)
			if err != nil {
				return false, err
			}
			oldIDs = append(oldIDs, oldID)
			newIDs = append(newIDs, newID)
		}
		if err := engine.ChangeAliases(caller, oldIDs, newIDs); err != nil {
			return false, err
		}
	}
	return false, nil
}
