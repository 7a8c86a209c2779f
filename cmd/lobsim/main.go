package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/uhyunpark/lobsim/params"
	"github.com/uhyunpark/lobsim/pkg/app/exchange"
	"github.com/uhyunpark/lobsim/pkg/util"
)

func main() {
	envPath := flag.String("env", "", "path to .env file (default: ./.env if present)")
	script := flag.String("script", "", "read commands from this file instead of stdin")
	flag.Parse()

	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv(*envPath)

	// Setup logging (console + JSON file)
	logger, err := util.NewLoggerWithFile(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File, "level", cfg.Log.Level)

	ex, err := exchange.New(cfg, sugar)
	if err != nil {
		sugar.Fatalw("exchange_init_failed", "err", err)
	}
	defer ex.Close()

	var in io.Reader = os.Stdin
	interactive := *script == ""
	if !interactive {
		f, err := os.Open(*script)
		if err != nil {
			sugar.Fatalw("script_open_failed", "path", *script, "err", err)
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// Restore default handling so a second signal kills the process.
		<-ctx.Done()
		stop()
	}()

	sh := &shell{ex: ex, out: os.Stdout, log: sugar, prompt: interactive}
	if err := sh.exec(command{verb: verbDay}); err != nil {
		sugar.Fatalw("first_day_failed", "err", err)
	}
	if interactive {
		sh.exec(command{verb: verbHelp})
	}
	if err := sh.run(ctx, in); err != nil {
		sugar.Errorw("input_failed", "err", err)
	}
	sugar.Infow("session_ended", "day", ex.Day(), "balance", ex.Portfolio().Balance().String())
}
