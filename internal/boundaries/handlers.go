package boundaries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// apiRoot prefixes every resource URI.
const apiRoot = "/1.0"

// Fields stripped from every response of each resource. Request-level
// excludes stack on top of these.
var (
	setExcludes      = []string{"id", "singular", "kind_first"}
	boundaryExcludes = []string{"id", "display_name"}
)

// API wires the store and URL configuration into the HTTP surface. The
// site root is explicit configuration, used only where a fully-qualified
// URL is required.
type API struct {
	Store   Store
	SiteURL string
}

func boundarySetURI(slug string) string { return apiRoot + "/boundary-set/" + slug + "/" }
func boundaryURI(slug string) string    { return apiRoot + "/boundary/" + slug + "/" }

// ListBoundarySets handles GET /1.0/boundary-set/.
func (api *API) ListBoundarySets(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	sets, total, err := api.Store.BoundarySets(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	objects := make([]map[string]interface{}, 0, len(sets))
	for i := range sets {
		rec, err := api.setRecord(r.Context(), &sets[i])
		if err != nil {
			writeError(w, err)
			return
		}
		objects = append(objects, rec)
	}
	ShapeRecords(objects, DetailNone, setExcludes)

	writeJSON(w, r, Envelope{Meta: pageMeta(r, limit, offset, total), Objects: objects})
}

// GetBoundarySet handles GET /1.0/boundary-set/{slug}/.
func (api *API) GetBoundarySet(w http.ResponseWriter, r *http.Request) {
	set, err := api.Store.BoundarySetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := api.setRecord(r.Context(), set)
	if err != nil {
		writeError(w, err)
		return
	}
	ShapeRecord(rec, DetailNone, setExcludes)
	writeJSON(w, r, rec)
}

// ListBoundaries handles GET /1.0/boundary/ with the full filter surface:
// sets, contains, near, intersects, external_id(+__startswith), shape_type
// and excludes. Filters AND-combine; spatial predicates run against the
// geometry store and intersect by id.
func (api *API) ListBoundaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, offset, err := parsePagination(q)
	if err != nil {
		writeError(w, err)
		return
	}

	plan, err := Translate(r.Context(), q, api.Store)
	if err != nil {
		writeError(w, err)
		return
	}

	ids, empty, err := api.spatialIDs(r.Context(), plan)
	if err != nil {
		writeError(w, err)
		return
	}

	detail := ParseDetailLevel(q.Get("shape_type"))
	excludes := append(ParseExcludes(q.Get("excludes")), boundaryExcludes...)

	if empty {
		writeJSON(w, r, Envelope{
			Meta:    pageMeta(r, limit, offset, 0),
			Objects: []map[string]interface{}{},
		})
		return
	}

	t0 := time.Now()
	rows, total, err := api.Store.Boundaries(r.Context(), ListOptions{
		SetSlugs:         plan.SetSlugs,
		ExternalID:       plan.ExternalID,
		ExternalIDPrefix: plan.ExternalIDPrefix,
		IDs:              ids,
		Limit:            limit,
		Offset:           offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	addServerTiming(w, "dbread", time.Since(t0))

	objects := make([]map[string]interface{}, 0, len(rows))
	for i := range rows {
		objects = append(objects, boundaryRecord(&rows[i]))
	}
	ShapeRecords(objects, detail, excludes)

	writeJSON(w, r, Envelope{Meta: pageMeta(r, limit, offset, total), Objects: objects})
}

// GetBoundary handles GET /1.0/boundary/{slug}/ with the same
// shape_type/excludes handling as the list endpoint.
func (api *API) GetBoundary(w http.ResponseWriter, r *http.Request) {
	row, err := api.Store.BoundaryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	rec := boundaryRecord(row)
	ShapeRecord(rec, ParseDetailLevel(q.Get("shape_type")), append(ParseExcludes(q.Get("excludes")), boundaryExcludes...))
	writeJSON(w, r, rec)
}

// RedirectByExternalID handles GET /1.0/boundary-set/{slug}/{external_id},
// resolving a source-system id within one set to the canonical boundary
// URL. External ids may legitimately collide inside a set; the first match
// by id wins (deterministic, pending a product decision on ambiguity).
func (api *API) RedirectByExternalID(w http.ResponseWriter, r *http.Request) {
	setSlug := chi.URLParam(r, "slug")
	externalID := chi.URLParam(r, "externalID")

	slug, err := api.Store.FirstBoundarySlugByExternalID(r.Context(), setSlug, externalID)
	if err != nil {
		writeError(w, err)
		return
	}

	location := boundaryURI(slug)
	if api.SiteURL != "" {
		location = api.SiteURL + location
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// spatialIDs runs the plan's spatial predicates against the store and
// intersects the resulting id sets. empty=true means some predicate
// matched nothing, so the whole AND is empty and no listing query is
// needed.
func (api *API) spatialIDs(ctx context.Context, plan *QueryPlan) (ids []uuid.UUID, empty bool, err error) {
	if !plan.HasSpatialFilter() {
		return nil, false, nil
	}

	var sets [][]uuid.UUID
	if plan.Contains != nil {
		found, err := api.Store.FindContaining(ctx, plan.Contains.Lat, plan.Contains.Lon)
		if err != nil {
			return nil, false, err
		}
		sets = append(sets, found)
	}
	if plan.Near != nil {
		found, err := api.Store.FindWithinDistance(ctx, plan.Near.Point.Lat, plan.Near.Point.Lon, plan.Near.Meters)
		if err != nil {
			return nil, false, err
		}
		sets = append(sets, found)
	}
	if plan.IntersectsID != nil {
		found, err := api.Store.FindIntersecting(ctx, *plan.IntersectsID)
		if err != nil {
			return nil, false, err
		}
		sets = append(sets, found)
	}

	ids = intersectIDs(sets)
	return ids, len(ids) == 0, nil
}

func intersectIDs(sets [][]uuid.UUID) []uuid.UUID {
	if len(sets) == 0 {
		return nil
	}
	counts := make(map[uuid.UUID]int, len(sets[0]))
	for _, set := range sets {
		seen := make(map[uuid.UUID]struct{}, len(set))
		for _, id := range set {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			counts[id]++
		}
	}
	var out []uuid.UUID
	for _, id := range sets[0] {
		if counts[id] == len(sets) {
			out = append(out, id)
			counts[id] = 0 // keep output deduplicated
		}
	}
	return out
}

// setRecord serializes a boundary set, including the URI list of its
// member boundaries.
func (api *API) setRecord(ctx context.Context, set *BoundarySet) (map[string]interface{}, error) {
	slugs, err := api.Store.BoundarySlugsForSet(ctx, set.ID)
	if err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(slugs))
	for _, s := range slugs {
		uris = append(uris, boundaryURI(s))
	}

	return map[string]interface{}{
		"id":              set.ID.String(),
		"slug":            set.Slug,
		"name":            set.Name,
		"singular":        set.Singular,
		"kind_first":      set.KindFirst,
		"authority":       set.Authority,
		"domain":          set.Domain,
		"last_updated":    set.LastUpdated.Format("2006-01-02"),
		"href":            set.Href,
		"notes":           set.Notes,
		"count":           set.Count,
		"metadata_fields": []string(set.MetadataFields),
		"boundaries":      uris,
		"resource_uri":    boundarySetURI(set.Slug),
	}, nil
}

// boundaryRecord serializes a boundary. Geometry arrives from the store
// already rendered as GeoJSON, so the fields pass through as raw JSON.
func boundaryRecord(row *BoundaryRow) map[string]interface{} {
	rec := map[string]interface{}{
		"id":           row.ID.String(),
		"slug":         row.Slug,
		"set":          boundarySetURI(row.SetSlug),
		"kind":         row.Kind,
		"external_id":  row.ExternalID,
		"name":         row.Name,
		"display_name": row.DisplayName,
		"metadata":     json.RawMessage(row.Metadata),
		"shape":        json.RawMessage(row.Shape),
		"simple_shape": json.RawMessage(row.SimpleShape),
		"resource_uri": boundaryURI(row.Slug),
	}
	if len(row.Metadata) == 0 {
		rec["metadata"] = nil
	}
	if row.Centroid != nil {
		rec["centroid"] = json.RawMessage(*row.Centroid)
	} else {
		rec["centroid"] = nil
	}
	return rec
}

// addServerTiming is additive and safe to call multiple times.
func addServerTiming(w http.ResponseWriter, name string, d time.Duration) {
	w.Header().Add("Server-Timing", fmt.Sprintf("%s;dur=%d", name, d.Milliseconds()))
}
