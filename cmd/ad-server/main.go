package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/fpang/meta-ad-uploader/internal/assets"
	"github.com/fpang/meta-ad-uploader/internal/boot"
	"github.com/fpang/meta-ad-uploader/internal/config"
	"github.com/fpang/meta-ad-uploader/internal/httpapi"
	"github.com/fpang/meta-ad-uploader/internal/logging"
	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
	"github.com/fpang/meta-ad-uploader/internal/metaads"
	"github.com/fpang/meta-ad-uploader/internal/metrics"
	"github.com/fpang/meta-ad-uploader/internal/pipeline"
	"github.com/fpang/meta-ad-uploader/internal/progress"
	"github.com/fpang/meta-ad-uploader/internal/s3util"
	"github.com/fpang/meta-ad-uploader/internal/settings"
	"github.com/fpang/meta-ad-uploader/internal/submit"
)

// CLI flags
var (
	portFlag     int
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "ad-server",
	Short: "Ad creation service for the Meta Marketing API",
	Long: `ad-server accepts ad creation requests with their media, uploads the
media to the ad account, builds the creative for the selected strategy and
creates the ad, streaming progress to the browser over server-sent events.

Configuration is read from the environment (and a .env file when present).

Examples:
  ad-server
  ad-server --port 9090
  ad-server --log-level debug`,
	RunE:         runMain,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.Flags().StringVar(&logLevelFlag, "log-level", "", "Log level: trace, debug, info, warn, error (overrides "+logging.LevelEnvVar+")")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	_ = godotenv.Load()
	logging.Init()
	if logLevelFlag != "" {
		zerolog.SetGlobalLevel(logging.ParseLevel(logLevelFlag))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.SetServiceName("ad-server")

	var (
		bucket *s3util.Bucket
		store  settings.Store = settings.Static{}
	)
	if cfg.MediaBucket != "" || cfg.SettingsTable != "" || cfg.OriginVerifySSMParam != "" {
		clients, err := boot.InitAWS(ctx)
		if err != nil {
			return err
		}
		bucket = boot.InitMediaBucket(clients.Config, cfg.MediaBucket)
		store = boot.InitSettings(clients.Config, cfg.SettingsTable)
		if cfg.OriginVerifySecret, err = boot.LoadSecret(ctx, clients.SSM, cfg.OriginVerifySecret, cfg.OriginVerifySSMParam); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("No AWS resources configured, running with local fallbacks")
	}

	probeAvailable := mediaprobe.CheckFFprobeAvailable() == nil
	if !probeAvailable {
		log.Warn().Msg("ffprobe not found, placement customization cannot measure videos")
	}

	// One limiter for all tokens keeps the process under the app-level quota.
	limiter := rate.NewLimiter(rate.Limit(cfg.GraphRequestsPerSecond), 1)
	graphHTTP := &http.Client{Timeout: cfg.GraphTimeout}
	platforms := func(accessToken string) pipeline.Platform {
		return metaads.NewClient(accessToken,
			metaads.WithBaseURL(cfg.GraphBaseURL),
			metaads.WithHTTPClient(graphHTTP),
			metaads.WithRateLimiter(limiter),
		)
	}

	registry := progress.NewRegistry(cfg.JobTTL)
	deps := pipeline.Deps{
		Registry:  registry,
		Platforms: platforms,
		Settings:  store,
		Resolver:  assets.NewResolver(assets.NewDriveClient(), nil, cfg.UploadDir),
		Prober:    mediaprobe.NewProber(nil),
	}
	apiDeps := httpapi.Deps{Registry: registry}
	if bucket != nil {
		deps.Remover = bucket
		apiDeps.Store = bucket
	}
	runner := pipeline.NewRunner(deps, pipeline.Config{
		TranscodeInterval: cfg.TranscodePollInterval,
		TranscodeTimeout:  cfg.TranscodeTimeout,
		Submit: submit.Policy{
			Attempts:  cfg.SubmitAttempts,
			BaseDelay: cfg.SubmitBaseDelay,
		},
		JobTimeout: cfg.JobTimeout,
	})
	apiDeps.Runner = runner

	api := httpapi.NewServer(apiDeps, httpapi.Options{
		UploadDir:          cfg.UploadDir,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		PresignExpiry:      cfg.PresignExpiry,
		AllowedOrigins:     cfg.AllowedOrigins,
		OriginVerifySecret: cfg.OriginVerifySecret,
	})

	// Requests, and the jobs they run, derive from jobsCtx so that shutdown
	// can stop jobs that outlive the graceful period.
	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		BaseContext:  func(net.Listener) context.Context { return jobsCtx },
		Handler:      api.Handler(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	boot.StartupLog("ad-server", initStart).
		Version(commitHash+"@"+buildTime).
		S3Bucket("media", cfg.MediaBucket).
		DynamoTable("settings", cfg.SettingsTable).
		SSMParam("originVerify", cfg.OriginVerifySSMParam).
		Endpoint("graph", cfg.GraphBaseURL).
		Feature("directUploads", bucket != nil).
		Feature("originVerify", cfg.OriginVerifySecret != "").
		Feature("ffprobe", probeAvailable).
		Config("port", fmt.Sprint(cfg.Port)).
		Config("uploadDir", cfg.UploadDir).
		Config("jobTimeout", cfg.JobTimeout.String()).
		Config("transcodeTimeout", cfg.TranscodeTimeout.String()).
		Log()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("Starting ad server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)
	if errors.Is(shutdownErr, context.DeadlineExceeded) {
		log.Warn().Int("activeJobs", registry.Len()).Msg("Shutdown deadline reached, cancelling running jobs")
		cancelJobs()
	}

	// Cancelled jobs still remove their temp files and uploaded objects.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	if err := runner.Drain(drainCtx); err != nil {
		log.Error().Err(err).Msg("Jobs did not finish cleanup before exit")
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown: %w", shutdownErr)
	}
	log.Info().Int("activeJobs", registry.Len()).Msg("Server stopped")
	return nil
}
