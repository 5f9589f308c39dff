// configgen writes and validates the fetcher's config files: the
// TOML configs for the daemon and the web server, the KEY=value
// install config consumed by the deploy scripting, and the pinned
// requirements manifest.
package main

import (
	"flag"
	"log"

	"github.com/philbudne/rss-fetcher/internal/config"
	"github.com/philbudne/rss-fetcher/internal/instconf"
	"github.com/philbudne/rss-fetcher/internal/manifest"
)

func main() {
	kind := flag.String("kind", "fetcher", "config kind: fetcher|web|install")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind path)")
	requirements := flag.String("requirements", "", "validate a requirements manifest and exit")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *requirements != "" {
		m, err := manifest.Load(*requirements)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated requirements at %s (%d entries)", *requirements, len(m.Requirements()))
		return
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}

		switch *kind {
		case "fetcher":
			if _, err := config.LoadFetcherConfig(path); err != nil {
				log.Fatal(err)
			}
		case "web":
			if _, err := config.LoadWebConfig(path); err != nil {
				log.Fatal(err)
			}
		case "install":
			if _, err := instconf.Load(path); err != nil {
				log.Fatal(err)
			}
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}

func defaultPath(kind string) string {
	switch kind {
	case "fetcher":
		return "fetcher.toml"
	case "web":
		return "web.toml"
	case "install":
		return "install.conf"
	default:
		log.Fatalf("unknown kind: %s", kind)
		return ""
	}
}
