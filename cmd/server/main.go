package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zappabad/marketsim/internal/api"
	"github.com/zappabad/marketsim/internal/config"
	"github.com/zappabad/marketsim/internal/controller"
	"github.com/zappabad/marketsim/internal/logging"
)

func main() {
	var (
		envPath  = flag.String("env", ".env", "path to .env file, empty to skip")
		populate = flag.Bool("populate", false, "backfill price history before serving")
		start    = flag.Bool("start", false, "start the live tick loop immediately")
	)
	flag.Parse()

	cfg := config.LoadFromEnv(*envPath)

	log, err := logging.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctrl, err := controller.New(cfg, log)
	if err != nil {
		log.Fatal("controller init failed", zap.Error(err))
	}
	defer ctrl.Close()

	if *populate {
		if err := ctrl.Populate(); err != nil {
			log.Fatal("populate failed", zap.Error(err))
		}
		waitForPopulate(ctrl, log)
	}

	if *start {
		if err := ctrl.Start(); err != nil {
			log.Fatal("start failed", zap.Error(err))
		}
	}

	server := api.NewServer(ctrl, cfg.Server, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

func waitForPopulate(ctrl *controller.Controller, log *zap.Logger) {
	for ctrl.State() == controller.StatePopulating {
		status := ctrl.Status()
		log.Info("populating",
			zap.Int64("done", status.PopulateDone),
			zap.Int64("total", status.PopulateTotal))
		time.Sleep(2 * time.Second)
	}
	log.Info("populate complete", zap.Uint64("ticks", ctrl.Status().TotalTicks))
}
