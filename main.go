package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/civicatlas/boundary-api/internal/boundaries"
	"github.com/civicatlas/boundary-api/internal/cache"
	"github.com/civicatlas/boundary-api/internal/db"
	"github.com/civicatlas/boundary-api/internal/metrics"
	"github.com/civicatlas/boundary-api/internal/middleware"
	"github.com/civicatlas/boundary-api/internal/throttle"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	boundaries.Init()

	api := &boundaries.API{
		Store:   boundaries.NewPostGISStore(db.DB),
		SiteURL: os.Getenv("SITE_URL"),
	}

	gate := throttle.NewGateFromEnv()
	responseCache := cache.NewFromEnv()

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Get("/", RootHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/1.0", func(r chi.Router) {
		r.Use(middleware.ThrottleMiddleware(gate))
		r.Use(middleware.CacheMiddleware(responseCache))
		r.Mount("/", api.SetupRoutes())
	})

	fmt.Println("Server listening on port :" + port + "...")

	http.ListenAndServe("0.0.0.0:"+port, r)
}
