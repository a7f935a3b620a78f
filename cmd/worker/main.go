package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"podforge.systems/podforge/internal/application"
	"podforge.systems/podforge/internal/config"
	"podforge.systems/podforge/internal/db"
	"podforge.systems/podforge/internal/fetch"
	"podforge.systems/podforge/internal/ingest"
	"podforge.systems/podforge/internal/mediastore"
	"podforge.systems/podforge/pkg/ytdlp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting ingest worker service")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if conf.DatabaseRetries <= 0 {
		conf.DatabaseRetries = 10
	}

	files, err := mediastore.New(conf.StorageRoot)
	if err != nil {
		slog.Error("failed to initialize media store", "root", conf.StorageRoot, "error", err)
		os.Exit(1)
	}

	client := ytdlp.New()
	client.Path = conf.YtdlpPath

	versionCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if version, err := client.Version(versionCtx); err != nil {
		slog.Warn("yt-dlp not available, YouTube ingestion will fail", "error", err)
	} else {
		slog.Info("yt-dlp available", "version", version)
	}
	cancel()

	pool, err := application.OpenDBPoolWithRetry(ctx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		slog.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	// Recover jobs stuck in "running" from previous crashes/restarts
	slog.Info("Recovering stuck ingest jobs from previous service instances")
	if err := dbc.Queries(ctx).RecoverStuckJobs(ctx); err != nil {
		slog.Error("failed to recover stuck ingest jobs", "error", err)
		// Non-fatal - continue startup
	}

	svc := ingest.NewService(
		dbc.Queries(ctx),
		files,
		fetch.NewDownloader(time.Duration(conf.DownloadTimeoutSeconds)*time.Second),
		client,
		ingest.Options{CleanupDelay: time.Duration(conf.CleanupDelayMinutes) * time.Minute},
	)

	wake := make(chan struct{}, 1)
	go listenAndSignal(ctx, conf.DatabaseDSN, wake)

	workers := conf.IngestWorkers
	if workers <= 0 {
		workers = 2
	}
	slog.Info("Ingest workers started", "workers", workers)
	for i := 0; i < workers; i++ {
		go ingestWorker(ctx, dbc, svc, wake)
	}

	<-ctx.Done()
	slog.Info("Ingest worker service stopping")
}

func ingestWorker(ctx context.Context, dbc *db.DatabaseConnection, svc *ingest.Service, wake <-chan struct{}) {
	q := dbc.Queries(ctx)
	for {
		if ctx.Err() != nil {
			return
		}

		// Drain as many jobs as we can
		for {
			job, err := q.DequeueJob(ctx)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					break
				}
				slog.Error("failed to dequeue ingest job", "error", err)
				time.Sleep(2 * time.Second)
				break
			}

			jobID := db.UUIDString(job.ID)
			if err := svc.RunJob(ctx, job); err != nil {
				var execErr *ytdlp.ExecError
				if errors.As(err, &execErr) {
					slog.Error("ingest job failed",
						"job_id", jobID,
						"error", err,
						"exit_code", execErr.ExitCode,
						"stdout", execErr.Stdout,
						"stderr", execErr.Stderr)
				} else {
					slog.Error("ingest job failed", "job_id", jobID, "error", err)
				}

				_ = q.MarkJobFailed(ctx, job.ID, err.Error())
				continue
			}
			_ = q.MarkJobDone(ctx, job.ID)
		}

		select {
		case <-ctx.Done():
			return
		case <-wake:
			// new job notification
		case <-time.After(5 * time.Second):
			// periodic poll; also picks up deferred cleanup jobs coming due
		}
	}
}

func listenAndSignal(ctx context.Context, dsn string, signalCh chan<- struct{}) {
	for {
		if ctx.Err() != nil {
			return
		}

		// Parse using pgxpool so pool_* DSN params are consumed client-side
		// (otherwise they get forwarded to Postgres as startup params and cause FATAL).
		poolConf, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			slog.Error("listen parse config failed", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

		conn, err := pgx.ConnectConfig(ctx, poolConf.ConnConfig)
		if err != nil {
			slog.Error("listen connect failed", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

		if err := db.New(conn).ListenIngestJobs(ctx); err != nil {
			slog.Error("LISTEN failed", "error", err)
			_ = conn.Close(ctx)
			time.Sleep(2 * time.Second)
			continue
		}

		for {
			if ctx.Err() != nil {
				_ = conn.Close(ctx)
				return
			}

			if err := conn.PgConn().WaitForNotification(ctx); err != nil {
				slog.Error("wait for notification failed", "error", err)
				_ = conn.Close(ctx)
				break
			}

			select {
			case signalCh <- struct{}{}:
			default:
			}
		}
	}
}
