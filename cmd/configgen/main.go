package main

import (
	"flag"
	"log"

	"github.com/hubgate/hubgate/internal/config"
)

func main() {
	kind := flag.String("kind", "hub", "config kind: hub|proxy")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing proxy config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		if *kind != "proxy" {
			log.Fatalf("validation is only supported for kind=proxy; hub configs are validated by hubgatectl -config")
		}
		path := *input
		if path == "" {
			path = "cmd/hubgatectl/proxy.toml"
		}
		if _, err := config.LoadProxyProcessConfig(path); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		switch *kind {
		case "hub":
			target = "cmd/hubgatectl/config.toml"
		case "proxy":
			target = "cmd/hubgatectl/proxy.toml"
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
