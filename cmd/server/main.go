package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/m-mizutani/ctxlog"
	"gorm.io/gorm/logger"

	staticassets "piltlab/internal/adapter/assets/static"
	httpadapter "piltlab/internal/adapter/http"
	"piltlab/internal/adapter/input/keybus"
	metricsinmem "piltlab/internal/adapter/metrics/inmemory"
	"piltlab/internal/adapter/render/view"
	gormrepo "piltlab/internal/adapter/repo/gorm"
	"piltlab/internal/adapter/repo/memory"
	"piltlab/internal/adapter/runtime/realtime"
	"piltlab/internal/app/assets"
	"piltlab/internal/app/history"
	"piltlab/internal/app/ports"
	"piltlab/internal/app/session"
	"piltlab/internal/app/simulate"
	"piltlab/internal/app/summary"
	"piltlab/migrations"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(os.Getenv("PILT_LOG_LEVEL"))}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.With(ctx, log)

	repo, txManager := mustBuildRepos(ctx, log)
	kpiRecorder := metricsinmem.NewRecorder()

	loop := realtime.NewLoop(intEnv("PILT_LOOP_BUFFER", 256))
	go loop.Run(ctx)

	h := httpadapter.Handler{
		SessionUC: &session.UseCase{
			Loop:       loop,
			NewSurface: func() ports.FrameSurface { return &view.Surface{} },
			NewKeys: func() ports.KeyInput {
				return keybus.New(loop, nil)
			},
			Repo:    repo,
			Metrics: kpiRecorder,
			Sim:     simulate.New(uint64(intEnv("PILT_SIM_SEED", 1))),
		},
		SummaryUC: summary.UseCase{Repo: repo},
		HistoryUC: history.UseCase{Records: repo},
		AssetsUC:  assets.UseCase{Store: staticassets.Provider{Root: resolveAssetsRoot()}},
		Simulate:  simulate.BlockRunner{TxManager: txManager, Repo: repo, Metrics: kpiRecorder},
		KPI:       kpiRecorder,
		Logger:    log,
	}

	addr := strings.TrimSpace(os.Getenv("PILT_HTTP_ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	s := server.Default(server.WithHostPorts(addr))
	h.RegisterRoutes(s)

	log.Info("pilt server listening", "addr", addr)
	s.Spin()
}

func mustBuildRepos(ctx context.Context, log *slog.Logger) (ports.TrialResultRepository, ports.TxManager) {
	dsn := strings.TrimSpace(os.Getenv("PILT_DB_DSN"))
	if dsn == "" {
		log.Warn("PILT_DB_DSN not set, trial records are kept in memory")
		store := memory.NewStore()
		return memory.NewTrialResultRepo(store), memory.NewTxManager(store)
	}
	db, applied, err := gormrepo.OpenMigrated(ctx, dsn, gormrepo.Options{
		MaxOpenConns: intEnv("PILT_DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns: intEnv("PILT_DB_MAX_IDLE_CONNS", 5),
		LogLevel:     logger.Warn,
	}, resolveMigrations())
	if err != nil {
		log.Error("open postgres", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "versions", applied)
	return gormrepo.NewTrialResultRepo(db), gormrepo.NewTxManager(db)
}

// resolveMigrations prefers PILT_MIGRATIONS_DIR, then ./migrations, then the
// copy embedded in the binary.
func resolveMigrations() fs.FS {
	if dir := strings.TrimSpace(os.Getenv("PILT_MIGRATIONS_DIR")); dir != "" {
		return os.DirFS(dir)
	}
	if st, err := os.Stat("./migrations"); err == nil && st.IsDir() {
		return os.DirFS("./migrations")
	}
	return migrations.FS
}

func resolveAssetsRoot() string {
	if root := strings.TrimSpace(os.Getenv("PILT_ASSETS_ROOT")); root != "" {
		return root
	}
	return "./assets"
}

func logLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
