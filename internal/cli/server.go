package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/config"
	transport "locus-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		logger.Warning("auth secret not configured; authenticated routes will reject every request")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	quizzes := app.NewQuizService(b.quizzes, b.results, b.cache)
	live := newLiveService(b)
	convert, err := newConvertService(cfg, quizzes)
	if err != nil {
		return err
	}

	router := transport.NewRouter(transport.RouterConfig{
		Quizzes:   quizzes,
		Live:      live,
		Analytics: app.NewAnalyticsService(b.quizzes, b.results),
		Convert:   convert,
		Auth: transport.NewAuthenticator(transport.AuthConfig{
			Secret:   []byte(cfg.Auth.Secret),
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		}),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Health:         b.health,
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("starting quiz service on :%s (store=%s)", finalPort, cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return live.Run(gctx, config.TTLDuration(cfg.Live.PollInterval, app.DefaultPollInterval))
	})
	if b.relay != nil {
		g.Go(func() error {
			return b.relay.Run(gctx, live.Deliver)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
