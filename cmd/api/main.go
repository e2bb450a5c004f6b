package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/correction"
	appHTTP "github.com/cmlabs-hris/attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-engine/internal/service/attendance"
	correctionService "github.com/cmlabs-hris/attendance-engine/internal/service/correction"
	"github.com/cmlabs-hris/attendance-engine/internal/service/ledger"
	reportService "github.com/cmlabs-hris/attendance-engine/internal/service/report"
	"github.com/cmlabs-hris/attendance-engine/migrations"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type repositories struct {
	tx          database.Transactor
	attendances attendance.AttendanceRepository
	breaks      attendance.BreakRepository
	corrections correction.CorrectionRepository
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-engine"),
		slog.String("env", cfg.App.Env),
	)
}

func openRepositories(ctx context.Context, cfg *config.Config) (repositories, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		store := memory.NewStore()
		slog.Warn("Using in-memory store, data is lost on restart")
		return repositories{
			tx:          store,
			attendances: memory.NewAttendanceRepository(store),
			breaks:      memory.NewBreakRepository(store),
			corrections: memory.NewCorrectionRepository(store),
			close:       func() {},
		}, nil

	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{MaxConns: cfg.Database.MaxConns})
		if err != nil {
			return repositories{}, fmt.Errorf("connect to database: %w", err)
		}
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, db, migrations.FS); err != nil {
				db.Close()
				return repositories{}, fmt.Errorf("migrate database: %w", err)
			}
		}
		return repositories{
			tx:          postgresql.NewTransactor(db),
			attendances: postgresql.NewAttendanceRepository(db),
			breaks:      postgresql.NewBreakRepository(db),
			corrections: postgresql.NewCorrectionRepository(db),
			close:       db.Close,
		}, nil
	}
}

func newPublisher(ctx context.Context, cfg *config.Config, hub *events.Hub) (events.Publisher, func(), error) {
	if cfg.Events.Driver != config.EventsRedis {
		return hub, func() {}, nil
	}

	client, err := events.NewRedisClient(ctx, cfg.Events.RedisAddr, cfg.Events.RedisPassword, cfg.Events.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}
	}
	return events.Fanout{hub, events.NewRedisPublisher(client, cfg.Events.ChannelPrefix)}, closeFn, nil
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	hub := events.NewHub()
	publisher, closePublisher, err := newPublisher(ctx, cfg, hub)
	if err != nil {
		return err
	}
	defer closePublisher()

	policy := cfg.AttendancePolicy()
	clk := clock.System{}

	shift, err := attendanceService.NewFixedShift(cfg.Policy.ShiftStart, cfg.Policy.ShiftEnd, policy.Location)
	if err != nil {
		return err
	}

	l := ledger.New(repos.tx, repos.attendances, repos.breaks, clk, ledger.Options{WaitTimeout: cfg.Ledger.WaitTimeout})

	attendanceSvc := attendanceService.NewAttendanceService(l, repos.attendances, repos.breaks, shift, publisher, clk, policy)
	correctionSvc := correctionService.NewCorrectionService(l, repos.corrections, repos.attendances, publisher, clk, policy)
	reportSvc := reportService.NewReportService(repos.attendances, clk, policy)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	router := appHTTP.NewRouter(logger, cfg.App.AllowedOrigins, JWTService, appHTTP.Handlers{
		Attendance: appHTTP.NewAttendanceHandler(attendanceSvc),
		Correction: appHTTP.NewCorrectionHandler(correctionSvc, attendanceSvc),
		Report:     appHTTP.NewReportHandler(reportSvc),
		Events:     appHTTP.NewEventsHandler(hub, JWTService),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end on shutdown so event streams return
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server running",
			"addr", srv.Addr,
			"store", cfg.Store.Driver,
			"events", cfg.Events.Driver,
			"timezone", policy.Location.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
