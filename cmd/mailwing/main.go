package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/mailwing/internal/config"
	"github.com/xxxsen/mailwing/internal/db"
	"github.com/xxxsen/mailwing/internal/filestore"
	"github.com/xxxsen/mailwing/internal/handler"
	"github.com/xxxsen/mailwing/internal/job"
	"github.com/xxxsen/mailwing/internal/middleware"
	"github.com/xxxsen/mailwing/internal/repo"
	"github.com/xxxsen/mailwing/internal/schedule"
	"github.com/xxxsen/mailwing/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mailwing",
		Short: "mailwing email server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run mailwing server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("mail_host", cfg.Mail.Host),
		zap.String("file_store", cfg.FileStore.Type),
	)

	userRepo := repo.NewUserRepo(conn)
	emailRepo := repo.NewEmailRepo(conn)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	mailSender := service.NewMailSender(cfg.Mail, store)

	accessTTL := time.Duration(cfg.JWT.AccessTTLMinutes) * time.Minute
	refreshTTL := time.Duration(cfg.JWT.RefreshTTLHours) * time.Hour
	authService := service.NewAuthService(userRepo, []byte(cfg.JWT.AccessSecret), []byte(cfg.JWT.RefreshSecret), accessTTL, refreshTTL)
	emailService := service.NewEmailService(emailRepo, mailSender)
	statsService := service.NewStatsService(userRepo, emailRepo, mailSender, cfg.Mail.Host)
	resetService := service.NewPasswordResetService(userRepo, mailSender, cfg.FrontendURL, time.Duration(cfg.JWT.ResetTokenMinutes)*time.Minute)

	deps := handler.RouterDeps{
		Auth:            handler.NewAuthHandler(authService, refreshTTL, cfg.JWT.CookieSecure),
		Emails:          handler.NewEmailHandler(emailService),
		Scheduler:       handler.NewSchedulerHandler(emailService, statsService),
		Dashboard:       handler.NewDashboardHandler(statsService),
		System:          handler.NewSystemHandler(statsService),
		PasswordReset:   handler.NewPasswordResetHandler(resetService),
		Files:           handler.NewFileHandler(store),
		AccessSecret:    []byte(cfg.JWT.AccessSecret),
		LoginRateWindow: time.Duration(cfg.RateLimit.LoginWindowMinutes) * time.Minute,
		LoginRateMax:    cfg.RateLimit.LoginMaxAttempts,
	}

	engine, err := webapi.NewEngine(
		"/api",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := schedule.NewCronScheduler()
	sendJob := job.NewSendDueJob(emailRepo, mailSender, uint(cfg.Scheduler.BatchLimit))
	if err := sched.AddJob(sendJob, "* * * * *"); err != nil {
		return fmt.Errorf("schedule send job: %w", err)
	}
	startDelay := time.Duration(cfg.Scheduler.StartDelaySeconds) * time.Second
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(startDelay):
		}
		sched.Start(ctx)
		logutil.GetLogger(ctx).Info("scheduler started",
			zap.Duration("start_delay", startDelay), zap.Strings("jobs", sched.Jobs()))
	}()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	sched.Stop()
	return nil
}
