// Package main our entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/johndosdos/huddle/internal"
	"github.com/johndosdos/huddle/internal/auth"
	"github.com/johndosdos/huddle/internal/broker"
	"github.com/johndosdos/huddle/internal/chat"
	"github.com/johndosdos/huddle/internal/config"
	"github.com/johndosdos/huddle/internal/database"
	"github.com/johndosdos/huddle/internal/feed"
	"github.com/johndosdos/huddle/internal/handler"
	"github.com/johndosdos/huddle/internal/logging"
	"github.com/johndosdos/huddle/internal/overlay"
	"github.com/johndosdos/huddle/internal/profile"
	ratelimiter "github.com/johndosdos/huddle/internal/rate_limiter"
	"github.com/johndosdos/huddle/internal/session"
	"github.com/johndosdos/huddle/internal/store"
	"github.com/johndosdos/huddle/internal/store/firestore"
	"github.com/johndosdos/huddle/internal/store/memory"
	"github.com/johndosdos/huddle/internal/store/postgres"
	"github.com/johndosdos/huddle/sql/schema"
)

func connect[T any](ctx context.Context, what string, fn func() (T, error)) (T, error) {
	return retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("%s connection attempt %d failed: %v", what, n+1, err)
		}),
	)
}

func connectNATS(ctx context.Context, cfg config.Config) (*nats.Conn, error) {
	var natsCredentials []nats.Option

	if cfg.NATSCred != "" {
		natsCredentials = append(natsCredentials, nats.UserCredentials(cfg.NATSCred))
	} else if cfg.NATSUser != "" && cfg.NATSPassword != "" {
		natsCredentials = append(natsCredentials, nats.UserInfo(cfg.NATSUser, cfg.NATSPassword))
	}

	natsCredentials = append(natsCredentials, nats.Timeout(5*time.Second))

	return connect(ctx, "NATS", func() (*nats.Conn, error) {
		return nats.Connect(cfg.NATSURL, natsCredentials...)
	})
}

// openStore builds the configured document store. The returned func releases
// whatever the store holds.
func openStore(ctx context.Context, cfg config.Config, db *database.Queries) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return memory.New(memory.Options{}), func() {}, nil

	case config.BackendFirestore:
		fs, err := firestore.NewStore(ctx, cfg.GCPProject)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {
			if err := fs.Close(); err != nil {
				log.Printf("couldn't close firestore client: %+v", err)
			}
		}, nil
	}

	if cfg.NATSURL == "" {
		log.Println("NATS_URL is not set; changes reach this instance only")
		return postgres.New(db, nil), func() {}, nil
	}

	log.Println("Initializing NATS connection...")
	conn, err := connectNATS(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to create jetstream instance: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     broker.StreamName,
		Subjects: []string{broker.SubjectChanges},
		MaxAge:   time.Hour,
		MaxBytes: 64 << 20,
	})
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to create/update stream: %w", err)
	}

	pg := postgres.New(db, broker.NewPublisher(js))
	if err := broker.Subscribe(ctx, stream, func(n broker.Notice) { pg.Changed(n.Collection) }); err != nil {
		conn.Close()
		return nil, nil, err
	}

	return pg, func() {
		if err := conn.Drain(); err != nil {
			log.Printf("couldn't drain NATS conn: %+v", err)
		}
	}, nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logCloser := logging.Setup(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	log.Println("Starting application...")

	// Init DB
	log.Println("Initializing Database connection...")
	dbConn, err := connect(ctx, "database", func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	})
	if err != nil {
		log.Fatalf("could not connect to the postgresql database: %v", err)
	}
	defer dbConn.Close()

	if err := schema.Up(ctx, dbConn); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	dbQueries := database.New(dbConn)

	st, closeStore, err := openStore(ctx, cfg, dbQueries)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer closeStore()

	authSvc := auth.NewService(database.NewPoolAccounts(dbConn), auth.Config{
		JWTSecret:       cfg.JWTSecret,
		Issuer:          cfg.JWTIssuer,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	guard := session.NewGuard(authSvc)

	// hub.Run tracks every open conversation view.
	hub := chat.NewHub()
	go hub.Run(ctx)

	feeds := feed.NewSynchronizer(st)
	sender := chat.NewSender(st, hub, chat.SenderOpts{RatePerMinute: cfg.SendRatePerMin})
	defer sender.Close()
	editor := profile.NewEditor(authSvc, st)
	overlays := overlay.NewTracker()

	authLimiter := ratelimiter.NewIPRateLimiter(cfg.AuthRatePerMin, time.Minute, ratelimiter.CleanupOpts{
		TTL:      10 * time.Minute,
		Interval: time.Minute,
	})
	defer authLimiter.Stop()

	r := chi.NewRouter()
	r.Use(internal.Middleware(authSvc, cfg.AccessTokenTTL))

	r.Get("/", handler.ServeRoot(guard))
	r.Get(session.LoginPath, guard.Require(session.Login, handler.ServeLoginPage()))
	r.Get(session.SignupPath, guard.Require(session.Signup, handler.ServeSignupPage()))
	r.With(authLimiter.Middleware).Post(session.LoginPath, handler.SubmitLoginForm(authSvc))
	r.With(authLimiter.Middleware).Post(session.SignupPath, handler.SubmitSignupForm(authSvc))
	r.Post("/account/logout", handler.SubmitLogoutReq(authSvc))
	r.Post("/account/refresh", handler.RefreshToken(authSvc))

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return guard.Require(session.Conversation, next) })

		r.Get(session.ConversationPath, handler.ServeChat())
		r.Get("/chat/stream", handler.StreamSSE(hub, feeds))
		r.Get("/ws", handler.ServeWs(hub, feeds, sender, nil))
		r.Post("/messages", handler.SubmitMessage(sender))
		r.Get("/profile/{userID}/card", handler.ServeProfileCard(overlays))
		r.Post("/profile/name", handler.SubmitDisplayName(editor, overlays, hub))
	})

	// Unknown paths land on the entry view; the guard moves signed-in users on.
	r.NotFound(guard.Require(session.Login, handler.ServeLoginPage()))

	server.Handler = r

	go func() {
		log.Printf("Server starting at 0.0.0.0:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	slog.Info("server configured",
		slog.String("store", cfg.StoreBackend),
		slog.Int("send_rate_per_min", cfg.SendRatePerMin))

	<-ctx.Done()
	log.Printf("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println(err)
	}

	log.Println("Server stopped")
}
