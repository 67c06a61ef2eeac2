package boundaries

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/google/uuid"
)

// mockResolver implements BoundaryResolver over a fixed slug→id table.
type mockResolver struct {
	ids map[string]uuid.UUID
}

func (m mockResolver) BoundaryIDBySlug(_ context.Context, slug string) (uuid.UUID, error) {
	id, ok := m.ids[slug]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: boundary %q", ErrNotFound, slug)
	}
	return id, nil
}

func translate(t *testing.T, query string, resolver BoundaryResolver) (*QueryPlan, error) {
	t.Helper()
	params, err := url.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse query %q: %v", query, err)
	}
	if resolver == nil {
		resolver = mockResolver{}
	}
	return Translate(context.Background(), params, resolver)
}

// TestTranslate_Near verifies "near=41.88,-87.63,5mi" parses to magnitude
// 5 and the mile unit, converted to meters.
func TestTranslate_Near(t *testing.T) {
	plan, err := translate(t, "near=41.88,-87.63,5mi", nil)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if plan.Near == nil {
		t.Fatal("expected a near filter")
	}
	if plan.Near.Point.Lat != 41.88 || plan.Near.Point.Lon != -87.63 {
		t.Errorf("point = %+v, want 41.88,-87.63", plan.Near.Point)
	}
	want := 5 * 1609.344
	if plan.Near.Meters != want {
		t.Errorf("meters = %v, want %v", plan.Near.Meters, want)
	}
}

// TestTranslate_NearNoDigits verifies a distance with no leading digits
// fails with ErrInvalidFilter.
func TestTranslate_NearNoDigits(t *testing.T) {
	_, err := translate(t, "near=41.88,-87.63,mi", nil)
	if !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
}

// TestTranslate_NearUnits covers unit conversion and the bare-magnitude
// default of meters.
func TestTranslate_NearUnits(t *testing.T) {
	cases := []struct {
		dist string
		want float64
	}{
		{"3km", 3000},
		{"100m", 100},
		{"100", 100},
		{"2ft", 2 * 0.3048},
	}
	for _, c := range cases {
		plan, err := translate(t, "near=41.88,-87.63,"+c.dist, nil)
		if err != nil {
			t.Errorf("near=%s: %v", c.dist, err)
			continue
		}
		if plan.Near.Meters != c.want {
			t.Errorf("near=%s: meters = %v, want %v", c.dist, plan.Near.Meters, c.want)
		}
	}
}

// TestTranslate_NearUnknownUnit verifies an unrecognized unit is rejected.
func TestTranslate_NearUnknownUnit(t *testing.T) {
	_, err := translate(t, "near=41.88,-87.63,5furlongs", nil)
	if !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
}

// TestTranslate_Contains verifies point parsing and lat/lon order.
func TestTranslate_Contains(t *testing.T) {
	plan, err := translate(t, "contains=41.88,-87.63", nil)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if plan.Contains == nil || plan.Contains.Lat != 41.88 || plan.Contains.Lon != -87.63 {
		t.Errorf("contains = %+v, want lat 41.88 lon -87.63", plan.Contains)
	}
}

// TestTranslate_ContainsMalformed verifies a bad point is rejected.
func TestTranslate_ContainsMalformed(t *testing.T) {
	for _, q := range []string{"contains=41.88", "contains=abc,def"} {
		if _, err := translate(t, q, nil); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("%s: expected ErrInvalidFilter, got %v", q, err)
		}
	}
}

// TestTranslate_Sets verifies comma-separated set slugs restrict the plan.
func TestTranslate_Sets(t *testing.T) {
	plan, err := translate(t, "sets=wards,community-areas", nil)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(plan.SetSlugs) != 2 || plan.SetSlugs[0] != "wards" || plan.SetSlugs[1] != "community-areas" {
		t.Errorf("SetSlugs = %v", plan.SetSlugs)
	}
}

// TestTranslate_Intersects verifies the slug resolves to a boundary id,
// and an unknown slug fails with ErrNotFound.
func TestTranslate_Intersects(t *testing.T) {
	id := uuid.New()
	resolver := mockResolver{ids: map[string]uuid.UUID{"ward-5": id}}

	plan, err := translate(t, "intersects=ward-5", resolver)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if plan.IntersectsID == nil || *plan.IntersectsID != id {
		t.Errorf("IntersectsID = %v, want %v", plan.IntersectsID, id)
	}

	_, err = translate(t, "intersects=nope", resolver)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestTranslate_ExternalID covers exact and startswith variants.
func TestTranslate_ExternalID(t *testing.T) {
	plan, err := translate(t, "external_id=12&external_id__startswith=1", nil)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if plan.ExternalID != "12" || plan.ExternalIDPrefix != "1" {
		t.Errorf("external id = %q / prefix %q", plan.ExternalID, plan.ExternalIDPrefix)
	}
}

// TestTranslate_UnknownParamsIgnored verifies forward compatibility:
// unrecognized filter keys never fail translation.
func TestTranslate_UnknownParamsIgnored(t *testing.T) {
	plan, err := translate(t, "frobnicate=yes&sets=wards", nil)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(plan.SetSlugs) != 1 {
		t.Errorf("SetSlugs = %v, want [wards]", plan.SetSlugs)
	}
	if plan.HasSpatialFilter() {
		t.Error("unexpected spatial filter")
	}
}
