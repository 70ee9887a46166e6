package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
)

func main() {

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("radiowave"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := LoadConfig(".env.local", ".env")
	if err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(renderConfig(cfg))
	fmt.Println("============")

	ctx := context.Background()
	app, err := NewApp(ctx, cfg, lgr)
	if err != nil {
		panic(err)
	}

	logger := app.GetLogger("app")
	logger.Info("radiowave ready",
		"dialect", cfg.Dialect,
		"strategies", len(app.Authenticator().Strategies()),
	)

	sig := WaitExitSignal()
	logger.Info("shutting down", "signal", sig.String())

	if err := app.Close(); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}

// renderConfig returns the redacted configuration as indented JSON.
func renderConfig(cfg *Config) string {
	return print.MaybePrettyJSON(cfg.Redacted())
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
