package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-movie-server/auth"
	"github.com/jrsteele09/go-movie-server/avatar"
	"github.com/jrsteele09/go-movie-server/internal/config"
	"github.com/jrsteele09/go-movie-server/internal/fetch"
	"github.com/jrsteele09/go-movie-server/persistence"
	"github.com/jrsteele09/go-movie-server/proxy"
	"github.com/jrsteele09/go-movie-server/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errPanicRecovered = errors.New("panic recovered")

func main() {
	for {
		err := run()
		if err == nil {
			break
		}
		if !errors.Is(err, errPanicRecovered) {
			log.Fatal().Err(err).Msg("Error running server")
		}
		log.Error().Err(err).Msg("Restarting server")
		time.Sleep(1 * time.Second)
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errPanicRecovered
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	handler, err := buildServer(context.Background(), c)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(httpServer) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	err = shutdown(httpServer)
	handler.Wait()
	return err
}

func buildServer(ctx context.Context, c config.Config) (*server.Server, error) {
	store := persistence.Open(c)

	fetcher := fetch.New(fetch.WithTimeout(c.GetUpstreamTimeout()))
	strategies := []avatar.Strategy{}
	objects, err := avatar.NewS3Store(ctx, c)
	if err != nil {
		log.Warn().Err(err).Msg("Avatar uploads disabled")
	} else if objects != nil {
		strategies = append(strategies, avatar.NewUpload(objects))
	}
	strategies = append(strategies,
		avatar.NewCelebrity(fetcher, c.GetTMDBAPIKey()),
		avatar.NewPreset(),
	)

	authService, err := auth.NewService(
		auth.Repos{Users: store, Sessions: store},
		auth.WithAvatars(avatar.NewChain(strategies...)),
	)
	if err != nil {
		return nil, fmt.Errorf("[buildServer] auth service: %w", err)
	}

	return server.New(c, authService, proxy.NewFromConfig(c), store)
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || c.GetLogLevel() == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
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
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
