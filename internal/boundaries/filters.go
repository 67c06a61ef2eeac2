package boundaries

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Point is a lat/lon pair in SRID 4269.
type Point struct {
	Lat float64
	Lon float64
}

// NearFilter is a distance predicate: boundaries within Meters of Point.
type NearFilter struct {
	Point  Point
	Meters float64
}

// QueryPlan is the translated form of a boundary list request's filters.
// All present predicates AND-combine.
type QueryPlan struct {
	SetSlugs         []string
	Contains         *Point
	Near             *NearFilter
	IntersectsID     *uuid.UUID
	ExternalID       string
	ExternalIDPrefix string
}

// BoundaryResolver is the one lookup the translator needs: resolving the
// "intersects" slug to a boundary id. Unknown slugs fail translation with
// ErrNotFound before any spatial query runs.
type BoundaryResolver interface {
	BoundaryIDBySlug(ctx context.Context, slug string) (uuid.UUID, error)
}

// metersPerUnit maps the distance units accepted by "near" to meters.
var metersPerUnit = map[string]float64{
	"m":  1,
	"km": 1000,
	"mi": 1609.344,
	"ft": 0.3048,
	"yd": 0.9144,
	"nm": 1852,
}

var distancePattern = regexp.MustCompile(`^([0-9]+)([a-z]*)$`)

// Translate maps request filter parameters onto a QueryPlan. Unrecognized
// parameters are ignored for forward compatibility; recognized parameters
// with malformed values fail with ErrInvalidFilter.
func Translate(ctx context.Context, params url.Values, resolver BoundaryResolver) (*QueryPlan, error) {
	plan := &QueryPlan{}

	if v := params.Get("sets"); v != "" {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				plan.SetSlugs = append(plan.SetSlugs, s)
			}
		}
	}

	if v := params.Get("contains"); v != "" {
		pt, err := parsePoint(v)
		if err != nil {
			return nil, fmt.Errorf("%w: contains=%q: %v", ErrInvalidFilter, v, err)
		}
		plan.Contains = pt
	}

	if v := params.Get("near"); v != "" {
		near, err := parseNear(v)
		if err != nil {
			return nil, err
		}
		plan.Near = near
	}

	if v := params.Get("intersects"); v != "" {
		id, err := resolver.BoundaryIDBySlug(ctx, v)
		if err != nil {
			return nil, err
		}
		plan.IntersectsID = &id
	}

	if v := params.Get("external_id"); v != "" {
		plan.ExternalID = v
	}
	if v := params.Get("external_id__startswith"); v != "" {
		plan.ExternalIDPrefix = v
	}

	return plan, nil
}

// HasSpatialFilter reports whether the plan carries any predicate that
// must run against the geometry store's spatial methods.
func (p *QueryPlan) HasSpatialFilter() bool {
	return p.Contains != nil || p.Near != nil || p.IntersectsID != nil
}

func parsePoint(v string) (*Point, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("want \"lat,lon\", got %d parts", len(parts))
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("bad latitude %q", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("bad longitude %q", parts[1])
	}
	return &Point{Lat: lat, Lon: lon}, nil
}

// parseNear parses "lat,lon,<digits><unit>", e.g. "41.88,-87.63,5mi":
// leading digits are the magnitude, trailing letters the unit.
func parseNear(v string) (*NearFilter, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: near=%q: want \"lat,lon,distance\"", ErrInvalidFilter, v)
	}
	pt, err := parsePoint(parts[0] + "," + parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: near=%q: %v", ErrInvalidFilter, v, err)
	}

	dist := strings.TrimSpace(parts[2])
	m := distancePattern.FindStringSubmatch(dist)
	if m == nil {
		return nil, fmt.Errorf("%w: near=%q: distance %q has no leading digits", ErrInvalidFilter, v, dist)
	}
	magnitude, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: near=%q: distance %q", ErrInvalidFilter, v, dist)
	}
	unit := m[2]
	if unit == "" {
		unit = "m"
	}
	factor, ok := metersPerUnit[unit]
	if !ok {
		return nil, fmt.Errorf("%w: near=%q: unknown unit %q", ErrInvalidFilter, v, unit)
	}

	return &NearFilter{Point: *pt, Meters: float64(magnitude) * factor}, nil
}
