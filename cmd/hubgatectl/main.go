package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hubgate/hubgate/internal/hub"
	"github.com/hubgate/hubgate/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to hub config.toml (optional)")
	flag.Parse()

	observability.InitLogger("hubgatectl")

	cfg := hub.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hubgatectl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	svc, err := hub.NewServiceWithConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hubgatectl: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "hubgatectl: %v\n", err)
		os.Exit(1)
	}
}
