package boundaries

import (
	"encoding/json"
	"testing"

	"github.com/twpayne/go-geom"
)

// TestParseMetadataFields accepts both the JSON array form and the legacy
// pipe-delimited wire form.
func TestParseMetadataFields(t *testing.T) {
	got, err := ParseMetadataFields(json.RawMessage(`["WARD","ALDERMAN"]`))
	if err != nil || len(got) != 2 || got[0] != "WARD" {
		t.Errorf("array form: got %v, %v", got, err)
	}

	got, err = ParseMetadataFields(json.RawMessage(`"WARD|ALDERMAN"`))
	if err != nil || len(got) != 2 || got[1] != "ALDERMAN" {
		t.Errorf("piped form: got %v, %v", got, err)
	}

	got, err = ParseMetadataFields(nil)
	if err != nil || got != nil {
		t.Errorf("empty: got %v, %v", got, err)
	}

	if _, err = ParseMetadataFields(json.RawMessage(`42`)); err == nil {
		t.Error("numeric metadata_fields should be rejected")
	}
}

// TestAsMultiPolygon promotes polygons and rejects non-polygonal
// geometry.
func TestAsMultiPolygon(t *testing.T) {
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {1, 0}, {1, 1}, {0, 0}},
	})

	multi, err := asMultiPolygon(poly)
	if err != nil {
		t.Fatalf("polygon promotion: %v", err)
	}
	if multi.NumPolygons() != 1 {
		t.Errorf("NumPolygons = %d", multi.NumPolygons())
	}

	already := geom.NewMultiPolygon(geom.XY)
	if got, err := asMultiPolygon(already); err != nil || got != already {
		t.Errorf("multipolygon passthrough: %v, %v", got, err)
	}

	if _, err := asMultiPolygon(geom.NewPointFlat(geom.XY, []float64{0, 0})); err == nil {
		t.Error("point geometry should be rejected")
	}
}

// TestPropString renders string and float-typed attribute values the way
// shapefile attribute tables deliver them.
func TestPropString(t *testing.T) {
	props := map[string]interface{}{
		"WARD": " 5 ",
		"FID":  float64(12),
		"AREA": 1.5,
	}
	if got := propString(props, "WARD"); got != "5" {
		t.Errorf("WARD = %q", got)
	}
	if got := propString(props, "FID"); got != "12" {
		t.Errorf("FID = %q, want integer rendering", got)
	}
	if got := propString(props, "AREA"); got != "1.5" {
		t.Errorf("AREA = %q", got)
	}
	if got := propString(props, "MISSING"); got != "" {
		t.Errorf("MISSING = %q", got)
	}
	if got := propString(nil, "WARD"); got != "" {
		t.Errorf("nil props = %q", got)
	}
}
