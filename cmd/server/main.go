package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-forum-accounts/accounts"
	"github.com/jrsteele09/go-forum-accounts/internal/config"
	"github.com/jrsteele09/go-forum-accounts/mail"
	"github.com/jrsteele09/go-forum-accounts/server"
	"github.com/jrsteele09/go-forum-accounts/sessions"
	"github.com/jrsteele09/go-forum-accounts/token"
	"github.com/jrsteele09/go-forum-accounts/users"
	"github.com/jrsteele09/go-forum-accounts/users/postgres"
	fakeuserrepo "github.com/jrsteele09/go-forum-accounts/users/repofake"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// cleanupInterval paces the sweeps of the in-memory session and used-token stores
const cleanupInterval = 10 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to a yaml/json/toml/env config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), config.Usage())
	}
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run(configPath string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := wire(ctx, c)
	if err != nil {
		return err
	}
	defer deps.close()

	handler, err := server.New(c, deps.server)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         c.GetPort(),
		Handler:      handler,
		ReadTimeout:  c.Server.ReadTimeout,
		WriteTimeout: c.Server.WriteTimeout,
		IdleTimeout:  c.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(srv) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

// dependencies holds what main builds and has to release on the way out
type dependencies struct {
	server  server.Deps
	mail    *mail.Dispatcher
	db      *sql.DB
	redis   *redis.Client
	cleanup context.CancelFunc
}

func wire(ctx context.Context, c *config.Config) (*dependencies, error) {
	d := &dependencies{}

	var userRepo users.UserRepo
	if c.Database.URL != "" {
		db, err := postgres.Open(ctx, c.Database.URL)
		if err != nil {
			return nil, err
		}
		d.db = db
		userRepo = postgres.NewUserRepo(db)
		log.Info().Msg("Users stored in Postgres")
	} else {
		userRepo = fakeuserrepo.NewFakeUserRepo()
		log.Warn().Msg("DATABASE_URL not set, users are kept in memory")
	}

	var (
		usedTokens  token.UsedTokens
		sessionRepo sessions.Repo
	)
	if c.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB})
		if err := d.redis.Ping(ctx).Err(); err != nil {
			d.close()
			return nil, errors.Wrap(err, "[wire] redis ping")
		}
		usedTokens = token.NewRedisUsedTokens(d.redis)
		sessionRepo = sessions.NewRedisRepo(d.redis)
	} else {
		memSessions := sessions.NewInMemoryRepo()
		memTokens := token.NewInMemoryUsedTokens()
		cleanupCtx, cancel := context.WithCancel(ctx)
		d.cleanup = cancel
		go memSessions.RunCleanup(cleanupCtx, cleanupInterval)
		go memTokens.RunCleanup(cleanupCtx, cleanupInterval)
		usedTokens = memTokens
		sessionRepo = memSessions
	}

	issuer, err := token.NewIssuer(token.NewHMACSigner(c.GetTokenSecret()), usedTokens,
		token.WithTTL(token.PurposeConfirmEmail, c.GetConfirmEmailTokenTTL()),
		token.WithTTL(token.PurposeResetPassword, c.GetResetPasswordTokenTTL()),
	)
	if err != nil {
		d.close()
		return nil, err
	}

	manager, err := users.NewManager(userRepo, issuer)
	if err != nil {
		d.close()
		return nil, err
	}

	authority, err := sessions.NewAuthority(sessionRepo, manager, userRepo, c)
	if err != nil {
		d.close()
		return nil, err
	}

	var sender mail.Sender
	if c.GetSmtpAccount() == "" {
		sender = mail.NewLogSender(log.Logger)
		log.Warn().Msg("SMTP_ACCOUNT not set, mail is logged instead of sent")
	} else if sender, err = mail.NewSMTPSender(c); err != nil {
		d.close()
		return nil, err
	}
	d.mail = mail.NewDispatcher(sender,
		mail.WithWorkers(c.GetMailWorkers()),
		mail.WithQueueSize(c.GetMailQueueSize()),
		mail.WithTimeout(c.GetSmtpTimeout()),
	)

	orchestrator, err := accounts.New(accounts.Deps{
		Credentials: manager,
		Tokens:      issuer,
		Mail:        d.mail,
		Sessions:    authority,
		Links:       server.NewLinks(c.GetBaseURL()),
		AppName:     c.GetAppName(),
	})
	if err != nil {
		d.close()
		return nil, err
	}

	d.server = server.Deps{Accounts: orchestrator, Sessions: authority, Users: manager}
	return d, nil
}

// close drains the mail queue before the stores go away
func (d *dependencies) close() {
	if d.mail != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.mail.Close(ctx); err != nil {
			log.Err(err).Msg("mail dispatcher did not drain")
		}
		cancel()
	}
	if d.cleanup != nil {
		d.cleanup()
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Err(err).Msg("redis close")
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Err(err).Msg("database close")
		}
	}
}

func setupLogging(c *config.Config) {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "server.ListenAndServe")
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
