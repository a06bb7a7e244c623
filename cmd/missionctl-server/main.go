package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	server "github.com/missionctl/missionctl/internal"
	"github.com/missionctl/missionctl/internal/auth"
	"github.com/missionctl/missionctl/internal/automation"
	automationrepo "github.com/missionctl/missionctl/internal/automation/repositoryimpl"
	"github.com/missionctl/missionctl/internal/calendar"
	calendarrepo "github.com/missionctl/missionctl/internal/calendar/repositoryimpl"
	"github.com/missionctl/missionctl/internal/config"
	"github.com/missionctl/missionctl/internal/content"
	contentrepo "github.com/missionctl/missionctl/internal/content/repositoryimpl"
	"github.com/missionctl/missionctl/internal/eventbus"
	"github.com/missionctl/missionctl/internal/notes"
	"github.com/missionctl/missionctl/internal/pushnotification"
	pushsubrepo "github.com/missionctl/missionctl/internal/pushsubscription/repositoryimpl"
	"github.com/missionctl/missionctl/internal/subagent"
	"github.com/missionctl/missionctl/internal/task"
	taskrepo "github.com/missionctl/missionctl/internal/task/repositoryimpl"
	"github.com/missionctl/missionctl/internal/taskrun"
	taskrunrepo "github.com/missionctl/missionctl/internal/taskrun/repositoryimpl"
	"github.com/missionctl/missionctl/internal/team"
	teamrepo "github.com/missionctl/missionctl/internal/team/repositoryimpl"
	"github.com/missionctl/missionctl/pkg/clog"
	"github.com/missionctl/missionctl/pkg/panicerr"
	"github.com/missionctl/missionctl/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, cancel, env); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, env *config.Env) error {
	// Setup storage
	var store storage.Storage
	var err error
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(ctx, env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
	}
	if err != nil {
		return err
	}

	db, err := automationrepo.Open(ctx, env.AutomationDBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	var taskRepo task.Repository
	if env.TaskDatabaseURL != "" {
		pg, err := taskrepo.NewPostgresRepository(ctx, env.TaskDatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		taskRepo = pg
		slog.Info("tasks stored in postgres")
	} else {
		taskRepo = taskrepo.NewYAMLRepository(store)
	}

	bus := eventbus.New()

	// Setup repositories
	runRepo := taskrunrepo.NewYAMLRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)
	runs := taskrun.NewRecorder(runRepo)
	taskStore := task.NewAutomationStore(taskRepo)

	engine := automation.NewService(
		automationrepo.NewRuleRepository(db),
		automationrepo.NewMetadataRepository(db),
		automationrepo.NewDecisionRepository(db),
		taskStore,
	)
	subagents := subagent.NewClient(config.SubagentEnvFromEnv(env))

	memory := notes.NewMemory(env.WorkspacePath)
	vault := notes.NewVault(env.VaultPath)

	// Setup push notification
	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSender := pushnotification.NewSender(vapidEnv, pushSubRepo)
	pushDispatcher := pushnotification.NewDispatcher(bus, pushSender)

	srv := server.NewServer(
		env,
		auth.NewServer(config.AuthEnvFromEnv(env)),
		task.NewServer(taskRepo, engine, runs, bus),
		taskrun.NewServer(runRepo),
		automation.NewServer(engine, taskStore, runs, subagents, bus),
		subagent.NewServer(subagents),
		content.NewServer(contentrepo.NewYAMLRepository(store)),
		calendar.NewServer(calendarrepo.NewYAMLRepository(store)),
		team.NewServer(teamrepo.NewYAMLRepository(store)),
		notes.NewServer(memory, vault),
		pushnotification.NewServer(vapidEnv, pushSubRepo, pushSender),
		eventbus.NewServer(bus),
	)

	panicerr.Go(ctx, "push-dispatcher", pushDispatcher.Run)

	watcher, err := notes.NewWatcher(vault, memory, bus)
	if err != nil {
		slog.Warn("note watcher disabled", "error", err)
	} else {
		panicerr.Go(ctx, "note-watcher", watcher.Run)
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after stream contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}
