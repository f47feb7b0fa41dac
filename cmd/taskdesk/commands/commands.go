package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	httpHandlers "github.com/taskdesk/core/internal/adapters/http"
	"github.com/taskdesk/core/internal/adapters/messenger"
	"github.com/taskdesk/core/internal/adapters/repository"
	"github.com/taskdesk/core/internal/application/services"
	"github.com/taskdesk/core/internal/domain/entities"
	"github.com/taskdesk/core/internal/infrastructure/config"
	"github.com/taskdesk/core/internal/infrastructure/database"
	"github.com/taskdesk/core/internal/infrastructure/logger"
	"github.com/taskdesk/core/internal/infrastructure/server"
	"github.com/taskdesk/core/internal/infrastructure/worker"
	"github.com/taskdesk/core/internal/ports"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the TaskDesk API server and maintenance worker",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewSweepCommand creates the one-shot overdue sweep command
func NewSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark stale tasks overdue and exit",
		Run: func(cmd *cobra.Command, args []string) {
			app := mustBootstrap()
			defer app.close()

			swept, err := app.sweeper.Sweep(context.Background(), time.Now().UTC())
			if err != nil {
				app.logger.Fatalw("sweep failed", "error", err)
			}
			fmt.Printf("Swept %d tasks to overdue\n", swept)
		},
	}
}

// NewRemindCommand creates the one-shot reminder pass command
func NewRemindCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Schedule and dispatch due reminders once and exit",
		Run: func(cmd *cobra.Command, args []string) {
			app := mustBootstrap()
			defer app.close()

			app.pipeline.RunTick(context.Background(), time.Now().UTC())
			fmt.Println("Reminder pass completed")
		},
	}
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new user",
		Run: func(cmd *cobra.Command, args []string) {
			chatID, _ := cmd.Flags().GetInt64("chat-id")
			firstName, _ := cmd.Flags().GetString("first-name")
			lastName, _ := cmd.Flags().GetString("last-name")
			role, _ := cmd.Flags().GetString("role")

			if chatID == 0 || firstName == "" {
				log.Fatal("chat-id and first-name are required")
			}

			createUser(chatID, firstName, lastName, role)
		},
	}

	createUserCmd.Flags().Int64("chat-id", 0, "External chat ID (required)")
	createUserCmd.Flags().String("first-name", "", "First name (required)")
	createUserCmd.Flags().String("last-name", "", "Last name")
	createUserCmd.Flags().String("role", "user", "Role (admin, user)")

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print TaskDesk version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fmt.Println("TaskDesk Core")
				return
			}
			fmt.Printf("%s %s\n", cfg.App.Name, cfg.App.Version)
		},
	}
}

// app holds the wired application for CLI commands
type app struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *database.DB
	sweeper   *services.OverdueSweeper
	pipeline  *services.Pipeline
	tasks     *services.TaskService
	users     *services.UserService
	stats     *services.StatsService
	reports   *services.ReportService
	messenger ports.Messenger
	cleanup   []func()
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

func mustBootstrap() *app {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		appLogger.Fatalw("Failed to connect to database", "error", err)
	}

	a := &app{cfg: cfg, logger: appLogger, db: db}
	a.cleanup = append(a.cleanup, func() { _ = appLogger.Close() }, func() { _ = db.Close() })

	userRepo := repository.NewUserRepository(db.DB)
	taskRepo := repository.NewTaskRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)

	var policy entities.TransitionPolicy = entities.AllowAnyTransition{}
	if cfg.Tasks.StrictTransitions {
		policy = entities.StrictTransitions{}
	}

	var out ports.Messenger
	if cfg.AMQP.URL != "" {
		amqpMessenger, err := messenger.NewAMQPMessenger(cfg.AMQP)
		if err != nil {
			appLogger.Fatalw("Failed to connect to message broker", "error", err)
		}
		a.cleanup = append(a.cleanup, amqpMessenger.Close)
		out = amqpMessenger
	} else {
		appLogger.Warn("AMQP URL not configured, logging outbound messages instead")
		out = messenger.NewLogMessenger(appLogger)
	}
	a.messenger = out

	sweeper := services.NewOverdueSweeper(taskRepo, appLogger)
	scheduler := services.NewReminderScheduler(taskRepo, notificationRepo, cfg.Scheduler, appLogger)
	dispatcher := services.NewNotificationDispatcher(notificationRepo, out, appLogger)

	a.sweeper = sweeper
	a.pipeline = services.NewPipeline(sweeper, scheduler, dispatcher, appLogger)
	a.tasks = services.NewTaskService(taskRepo, userRepo, notificationRepo, policy, appLogger)
	a.users = services.NewUserService(userRepo, appLogger)
	a.stats = services.NewStatsService(taskRepo)
	a.reports = services.NewReportService(taskRepo, cfg.Reports)

	return a
}

func runServer() {
	a := mustBootstrap()
	defer a.close()

	handlers := server.Handlers{
		Tasks:   httpHandlers.NewTaskHandler(a.tasks, a.logger),
		Users:   httpHandlers.NewUserHandler(a.users, a.tasks, a.logger),
		Stats:   httpHandlers.NewStatsHandler(a.stats, a.logger),
		Reports: httpHandlers.NewReportHandler(a.reports, a.logger),
	}

	srv := server.New(a.cfg, a.db, handlers, a.logger)

	var lock *worker.TickLock
	if a.cfg.Worker.LockEnabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.GetAddr(),
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.cleanup = append(a.cleanup, func() { _ = redisClient.Close() })
		lock = worker.NewTickLock(redisClient, a.cfg.Worker.LockTTL)
	}

	runner := worker.NewRunner(a.cfg.Worker.Interval, a.pipeline.RunTick, lock, a.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Errorw("worker exited", "error", err)
		}
	}()

	go func() {
		if err := srv.Start(); err != nil {
			a.logger.Fatalw("Server failed to start", "error", err)
		}
	}()

	a.logger.Infow("TaskDesk started",
		"port", a.cfg.Server.Port,
		"environment", a.cfg.App.Environment,
		"worker_interval", a.cfg.Worker.Interval,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Errorw("Server shutdown failed", "error", err)
	}
}

func runMigration(direction string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	m, err := newMigrator(db)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Migration failed: %v", err)
	}

	if err == migrate.ErrNoChange {
		fmt.Println("No migrations to run")
	} else {
		fmt.Printf("Migration %s completed successfully\n", direction)
	}
}

func showMigrationVersion() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	m, err := newMigrator(db)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	version, dirty, err := m.Version()
	if err == migrate.ErrNilVersion {
		fmt.Println("No migrations applied yet")
		return
	}
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}

	fmt.Printf("Current version: %d (dirty: %v)\n", version, dirty)
}

func newMigrator(db *database.DB) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	return migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
}

func createUser(chatID int64, firstName, lastName, role string) {
	a := mustBootstrap()
	defer a.close()

	parsedRole, err := entities.ParseUserRole(role)
	if err != nil {
		log.Fatalf("Invalid role: %v", err)
	}

	user, err := a.users.Register(context.Background(), ports.RegisterUserRequest{
		ChatID:    chatID,
		FirstName: firstName,
		LastName:  lastName,
		Role:      parsedRole,
	})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User created: id=%d chat_id=%d role=%s\n", user.ID, user.ChatID, user.Role)
}
