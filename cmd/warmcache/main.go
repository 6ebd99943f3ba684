// Command warmcache prefetches restaurant searches, and optionally menus,
// into the postgres cache so the first chat turns do not wait on SerpAPI.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/aimeeyu8/Tastebuddy/config"
	"github.com/aimeeyu8/Tastebuddy/harmony"
	"github.com/aimeeyu8/Tastebuddy/search"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the config file")
	cuisines := flag.String("cuisines", "", "comma separated cuisines (default: the full cuisine vocabulary)")
	locations := flag.String("locations", "", "comma separated locations (default: defaultLocation)")
	menus := flag.Bool("menus", false, "also prefetch the menu of every result")
	concurrency := flag.Int("concurrency", 4, "parallel searches")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := search.NewPgCache(cfg.Postgres.ConnStr(), cfg.Postgres.CacheTTL)
	if err != nil {
		log.Fatal("failed to connect to postgres:", err)
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	client, err := search.NewClient(cfg.SerpAPI, pg, slog.Default())
	if err != nil {
		log.Fatal(err)
	}

	terms := splitFlag(*cuisines)
	if len(terms) == 0 {
		terms = harmony.CuisineVocabulary()
	}
	places := splitFlag(*locations)
	if len(places) == 0 {
		places = []string{cfg.DefaultLocation}
	}
	slog.Info("warming search cache", "cuisines", len(terms), "locations", len(places), "menus", *menus)

	var searched, fetchedMenus, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*concurrency, 1))
	for _, location := range places {
		for _, term := range terms {
			g.Go(func() error {
				restaurants, err := client.Search(gctx, term, location, cfg.SerpAPI.SearchLimit)
				if err != nil {
					slog.Error("failed to search", "term", term, "location", location, "error", err)
					failed.Add(1)
					return nil
				}
				searched.Add(1)
				slog.Info("cached search", "term", term, "location", location, "restaurants", len(restaurants))

				if !*menus {
					return nil
				}
				for i := range restaurants {
					placeID := restaurants[i].PlaceID()
					if placeID == "" {
						continue
					}
					if _, err := client.MenuTexts(gctx, placeID); err != nil {
						slog.Error("failed to fetch menu", "place_id", placeID, "error", err)
						failed.Add(1)
						continue
					}
					fetchedMenus.Add(1)
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	slog.Info("warm cache complete", "searches", searched.Load(), "menus", fetchedMenus.Load(), "failures", failed.Load())
}

func splitFlag(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
