package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/smtools/confgraph/internal/config"
	"github.com/smtools/confgraph/internal/confluence"
	"github.com/smtools/confgraph/internal/core"
	"github.com/smtools/confgraph/internal/driver"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := flag.String("config", "config/config.toml", "path to the TOML configuration file")
	idFile := flag.String("ids", "", "file with one page ID or page URL per line (defaults to arguments)")
	workers := flag.Int("workers", 0, "worker pool size (overrides configuration)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Falling back to defaults and environment", *cfgPath, err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if *workers > 0 {
		cfg.Concurrency.Workers = *workers
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	refs := flag.Args()
	if *idFile != "" {
		fileRefs, err := readRefs(*idFile)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *idFile, err)
		}
		refs = append(refs, fileRefs...)
	}
	if len(refs) == 0 {
		log.Fatal("No pages given: pass page IDs or URLs as arguments, or use -ids")
	}

	d, err := driver.NewNeo4jDriver(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password)
	if err != nil {
		log.Fatalf("Failed to connect to graph store: %v", err)
	}
	ctx := context.Background()
	defer d.Close(ctx)

	client := confluence.NewClient(confluence.ClientConfig{
		BaseURL:   cfg.Confluence.BaseURL,
		Token:     cfg.Confluence.Token,
		Timeout:   time.Duration(cfg.Confluence.TimeoutSeconds) * time.Second,
		VerifySSL: cfg.Confluence.VerifySSL,
		RateLimit: cfg.Confluence.RateLimit,
	})

	exporter := core.NewExporter(d, client, core.ExporterConfig{
		BaseURL:        cfg.Confluence.BaseURL,
		CacheSize:      cfg.Cache.Size,
		IncludeTimeout: time.Duration(cfg.Include.TimeoutSeconds) * time.Second,
		VerifySSL:      cfg.Confluence.VerifySSL,
	})

	if err := exporter.BuildIndices(ctx); err != nil {
		log.Fatalf("Failed to build indices: %v", err)
	}

	pageIDs := resolveRefs(ctx, client, refs)
	if len(pageIDs) == 0 {
		log.Fatal("No resolvable pages")
	}

	stats := exporter.ProcessBatch(ctx, pageIDs, cfg.Concurrency.Workers,
		time.Duration(cfg.Concurrency.PageTimeoutSeconds)*time.Second)

	fmt.Printf("Run %s: processed %d, failed %d in %s\n",
		stats.RunID, stats.Processed, stats.Failed, stats.Duration.Round(time.Millisecond))
	for id, msg := range stats.Errors {
		fmt.Printf("  page %s: %s\n", id, msg)
	}
	if stats.Failed > 0 {
		os.Exit(1)
	}
}

// resolveRefs turns a mix of page IDs and page URLs into page IDs,
// skipping anything it cannot resolve.
func resolveRefs(ctx context.Context, client *confluence.Client, refs []string) []string {
	var ids []string
	for _, ref := range refs {
		if !strings.Contains(ref, "/") {
			ids = append(ids, ref)
			continue
		}
		id, err := confluence.ResolvePageURL(ctx, client, ref)
		if err != nil {
			log.Printf("Skipping %s: %v", ref, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func readRefs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var refs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	return refs, scanner.Err()
}
