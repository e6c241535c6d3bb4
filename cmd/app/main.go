package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"CryptoNotify/internal/di"
	"CryptoNotify/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	checkOnly := flag.Bool("check", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *checkOnly {
		fmt.Printf("config ok: env=%s endpoint=%s history=%s consumer=%t\n",
			cfg.Environment, cfg.Endpoints.WebSocketURL, cfg.History.Backend, cfg.Kafka.Consumer.Enabled)
		return
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// blocks until SIGINT/SIGTERM
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
