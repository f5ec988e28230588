package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/app"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./zujuan.yaml if present)")
	logout := flag.Bool("logout", false, "forget the stored session before running")
	flag.Parse()

	if err := run(*configPath, *logout); err != nil {
		log.Printf("application error: %v", err)
		os.Exit(1)
	}
}

func run(configPath string, logout bool) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = application.Shutdown() }()

	ctx := context.Background()

	if logout {
		if err := application.Logout(ctx); err != nil {
			return err
		}
	}

	return application.Run(ctx)
}
