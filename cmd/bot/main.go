package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"histobot/internal/app"
	"histobot/pkg/logx"
)

func main() {
	var cfgPath, envFile string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json/yaml (optional when env is set)")
	flag.StringVar(&envFile, "env", ".env", "dotenv file loaded before the config")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logx.NewConsole("INFO")

	a, err := app.New(ctx, app.Options{ConfigPath: cfgPath, EnvFile: envFile})
	if err != nil {
		log.Error("fatal", logx.Err(err))
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		log.Error("fatal start", logx.Err(err))
		_ = a.Stop(context.Background(), app.StopFatalError)
		os.Exit(1)
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}
	fatal := a.Err()
	if err := a.Stop(context.Background(), reason); err != nil {
		log.Warn("shutdown incomplete", logx.Err(err))
	}
	if fatal != nil {
		log.Error("stopped after fatal error", logx.Err(fatal))
		os.Exit(1)
	}
}
