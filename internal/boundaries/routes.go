package boundaries

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the versioned read-only API. Routes register GET
// only; chi answers anything else with 405.
func (api *API) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/boundary-set/", api.ListBoundarySets)
	r.Get("/boundary-set/{slug}/", api.GetBoundarySet)
	r.Get("/boundary/", api.ListBoundaries)
	r.Get("/boundary/{slug}/", api.GetBoundary)

	// Source-system id redirect, e.g. /1.0/boundary-set/wards/12
	r.Get("/boundary-set/{slug}/{externalID}", api.RedirectByExternalID)

	return r
}
