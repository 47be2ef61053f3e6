package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/zappabad/marketsim/internal/config"
	"github.com/zappabad/marketsim/internal/controller"
	"github.com/zappabad/marketsim/internal/logging"
	"github.com/zappabad/marketsim/tui"
)

func main() {
	var (
		envPath  = flag.String("env", ".env", "path to .env file, empty to skip")
		logPath  = flag.String("log", "logs/terminal.log", "log file path")
		populate = flag.Bool("populate", false, "backfill price history before the UI opens")
	)
	flag.Parse()

	cfg := config.LoadFromEnv(*envPath)

	// Logs go to a file so zap output does not tear the terminal UI.
	log, err := logging.NewLoggerWithFile(cfg.Server.LogLevel, *logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctrl, err := controller.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "controller init failed: %v\n", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	if *populate {
		fmt.Println("Populating price history...")
		if err := ctrl.Populate(); err != nil {
			fmt.Fprintf(os.Stderr, "populate failed: %v\n", err)
			os.Exit(1)
		}
		for ctrl.State() == controller.StatePopulating {
			time.Sleep(200 * time.Millisecond)
		}
	}

	if err := ctrl.Start(); err != nil {
		log.Warn("start failed", zap.Error(err))
	}

	model := tui.NewModel(ctrl)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running TUI: %v\n", err)
		os.Exit(1)
	}
}
