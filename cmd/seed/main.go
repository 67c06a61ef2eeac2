// Command seed loads boundary set fixtures (set metadata + a GeoJSON
// FeatureCollection) into the catalog. It is the development stand-in for
// the production shapefile import pipeline: same slug resolution, same
// geometry derivations.
//
// Usage:
//
//	seed [-verify] fixture.json [fixture.json ...]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/civicatlas/boundary-api/internal/boundaries"
	"github.com/civicatlas/boundary-api/internal/db"
	"github.com/joho/godotenv"
)

func main() {
	verify := flag.Bool("verify", false, "run spatial self-checks after loading each set")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: seed [-verify] fixture.json [fixture.json ...]")
	}

	_ = godotenv.Load(".env.local")
	db.Connect()
	boundaries.Init()

	ctx := context.Background()
	store := boundaries.NewPostGISStore(db.DB)

	for _, path := range flag.Args() {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}

		var fix boundaries.SetFixture
		if err := json.Unmarshal(raw, &fix); err != nil {
			log.Fatalf("parse %s: %v", path, err)
		}

		set, err := boundaries.LoadSet(ctx, db.DB, &fix)
		if err != nil {
			log.Fatalf("load %s: %v", path, err)
		}

		if *verify {
			if err := boundaries.VerifySet(ctx, store, db.DB, set.Slug); err != nil {
				log.Fatalf("verify %s: %v", set.Slug, err)
			}
			log.Printf("[seed] verified set=%s", set.Slug)
		}
	}
}
