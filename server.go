package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"speaking9/api/auth"
	"speaking9/api/config"
	"speaking9/api/dbpool"
	"speaking9/api/loader"
	"speaking9/api/metrics"
	"speaking9/api/rest"
	"speaking9/api/scoring"
	"speaking9/api/storage"
	"speaking9/api/transcription"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()
	/* godotenv means go dotenv, not godot env*/

	configPath := flag.String("config", "config.yaml", "Path to optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msgf(
			`Invalid configuration
Copy .env.example to .env and/or
check your environment variables`,
		)
	}

	if cfg.Server.PrettyLog {
		log.Logger = log.Output(
			zerolog.ConsoleWriter{Out: os.Stderr},
		)
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	if err := dbpool.Init(cfg.DB.URL); err != nil {
		log.Fatal().Err(err).Msgf("Error creating database pool")
	}
	defer dbpool.Close()

	auth.InitOAuthGoogle(auth.OAuthGoogleSettings{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		CallbackURL:  cfg.OAuth.GoogleCallbackURL,
	})

	transcriber, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Model:         cfg.Transcription.Model,
		Language:      cfg.Transcription.Language,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
		Temperature:   cfg.Transcription.Temperature,
	})
	if err != nil {
		log.Fatal().Err(err).Msgf("Error creating transcription client")
	}

	scorer, err := scoring.NewClient(scoring.Config{
		Endpoint:    cfg.Scoring.Endpoint,
		APIKey:      cfg.Scoring.APIKey,
		Model:       cfg.Scoring.Model,
		Timeout:     cfg.Scoring.GetTimeoutDuration(),
		MaxRetries:  cfg.Scoring.MaxRetries,
		Temperature: cfg.Scoring.Temperature,
		MaxTokens:   cfg.Scoring.MaxTokens,
	})
	if err != nil {
		log.Fatal().Err(err).Msgf("Error creating scoring client")
	}

	store, err := storage.NewClient(storage.Config{
		Endpoint:   cfg.Storage.Endpoint,
		ServiceKey: cfg.Storage.ServiceKey,
		Bucket:     cfg.Storage.Bucket,
		Timeout:    cfg.Storage.GetTimeoutDuration(),
	})
	if err != nil {
		log.Fatal().Err(err).Msgf("Error creating storage client")
	}

	appMetrics := metrics.NewMetrics()

	authHandler := &auth.AuthHandler{
		DB:               dbpool.Pool,
		Store:            store,
		FinalRedirectURL: cfg.OAuth.FinalRedirectURL,
	}

	restHandler := &rest.RESTHandler{
		DB:             dbpool.Pool,
		Transcriber:    transcriber,
		Scorer:         scorer,
		Store:          store,
		Metrics:        appMetrics,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes(),
		PublicBaseURL:  cfg.Server.PublicBaseURL,
	}

	router := newRouter(authHandler, restHandler, appMetrics)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Msg(
			"listening on http://localhost:" + cfg.Server.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

func newRouter(authHandler *auth.AuthHandler, restHandler *rest.RESTHandler, appMetrics *metrics.Metrics) chi.Router {
	router := chi.NewRouter()
	router.Use(appMetrics.Middleware)

	router.Post(
		"/auth/sign-up",
		authHandler.SignUp,
	)
	router.Post(
		"/auth/sign-in",
		authHandler.SignIn,
	)
	router.Get(
		"/auth/oauth/google",
		authHandler.OAuthGoogleRedirect,
	)
	router.Get(
		"/auth/oauth/google/callback",
		authHandler.OAuthGoogleCallback,
	)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := authHandler.DB.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(authHandler.AuthMiddleware)
		r.Use(func(next http.Handler) http.Handler {
			return loader.Middleware(restHandler.DB, next)
		})

		r.Get("/auth/sign-out", authHandler.SignOut)
		r.Delete("/auth/account", authHandler.DeleteAccount)

		r.Get("/api/tests", restHandler.GetTests)
		r.Get("/api/tests/{testID}", restHandler.GetTest)
		r.Get("/api/tests/{testID}/progress", restHandler.GetTestProgress)
		r.Get("/api/tests/{testID}/results", restHandler.GetTestResults)
		r.Get("/api/tests/{testID}/report", restHandler.GetTestReport)
		r.Get("/api/tests/{testID}/share", restHandler.GetTestShareQR)

		r.Post("/api/transcribe", restHandler.Transcribe)
		r.Post("/api/score", restHandler.Score)
		r.Post("/api/score-complete-test", restHandler.ScoreCompleteTest)
	})

	return router
}
