package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecoquest-service/internal/ai"
	"ecoquest-service/internal/app"
	"ecoquest-service/internal/auth"
	"ecoquest-service/internal/config"
	"ecoquest-service/internal/infra/local"
	"ecoquest-service/internal/infra/memory"
	pgstore "ecoquest-service/internal/infra/postgres"
	redisstore "ecoquest-service/internal/infra/redis"
	transport "ecoquest-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the learning server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	localPath := cfg.Local.Path
	if localPath == "" {
		localPath = "data/ecoquest.json"
	}
	localStore, err := local.Open(localPath)
	if err != nil {
		return err
	}

	// The remote store is optional: when redis is unreachable the service
	// keeps running against the durable local file.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Printf("redis unreachable, falling back to local store: %v", err)
			redisClient = nil
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var profileRepo app.ProfileRepository = localStore
	var communityRepo app.CommunityRepository = localStore
	if redisClient != nil {
		profileRepo = redisstore.NewProfileRepository(redisClient)
		communityRepo = redisstore.NewCommunityRepository(redisClient)
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(memory.DefaultQuestionBank())
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}
	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisstore.NewQuestionRepository(redisClient, loader, cacheTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, cacheTTL)
	}

	profiles := app.NewProfileService(profileRepo, app.WithWriteRetry(
		cfg.Store.WriteRetries,
		config.TTLDuration(cfg.Store.RetryBackoff, 0),
	))
	questions := app.NewQuestionService(questionRepo)
	community := app.NewCommunityService(communityRepo)

	var provider ai.Provider
	if gemini := ai.NewGeminiProvider(cfg.Assistant.APIKey, cfg.Assistant.Model); gemini.Configured() {
		provider = gemini
	} else {
		log.Println("assistant: no API key configured, using scripted replies")
	}
	assistant := ai.NewAssistant(provider)

	var verifier auth.Verifier = auth.AnonymousVerifier{}
	if cfg.Auth.FirebaseCredentialsFile != "" || os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON") != "" {
		fb, err := auth.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseCredentialsFile)
		if err != nil {
			return err
		}
		verifier = fb
	}

	sessionCfg := app.SessionConfig{
		QuestionLimit: config.TTLDuration(cfg.Quiz.QuestionLimit, 0),
		ResultDelay:   config.TTLDuration(cfg.Quiz.ResultDelay, 0),
	}

	wsHandler := transport.NewWSHandler(profiles, questions, assistant, verifier, sessionCfg)
	communityHandler := transport.NewCommunityWSHandler(community, verifier)
	authHandler := transport.NewAuthHandler(auth.NewLocalAuthenticator(localStore))

	transport.InitMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/ws/community", communityHandler.ServeWS)
	mux.HandleFunc("/auth/signup", authHandler.SignUp)
	mux.HandleFunc("/auth/signin", authHandler.SignIn)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.Instrument(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting ecoquest service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
