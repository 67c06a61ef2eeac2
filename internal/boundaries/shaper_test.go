package boundaries

import "testing"

func sampleRecord() map[string]interface{} {
	return map[string]interface{}{
		"slug":         "ward-5",
		"name":         "5",
		"shape":        "full-geometry",
		"simple_shape": "simple-geometry",
		"centroid":     "point",
	}
}

// TestShapeRecord_DetailLevels verifies the three tiers are mutually
// exclusive: simple never carries shape, full never carries simple_shape,
// none carries neither.
func TestShapeRecord_DetailLevels(t *testing.T) {
	simple := sampleRecord()
	ShapeRecord(simple, DetailSimple, nil)
	if _, ok := simple["shape"]; ok {
		t.Error("simple: shape should be dropped")
	}
	if _, ok := simple["simple_shape"]; !ok {
		t.Error("simple: simple_shape should be kept")
	}

	full := sampleRecord()
	ShapeRecord(full, DetailFull, nil)
	if _, ok := full["simple_shape"]; ok {
		t.Error("full: simple_shape should be dropped")
	}
	if _, ok := full["shape"]; !ok {
		t.Error("full: shape should be kept")
	}

	none := sampleRecord()
	ShapeRecord(none, DetailNone, nil)
	if _, ok := none["shape"]; ok {
		t.Error("none: shape should be dropped")
	}
	if _, ok := none["simple_shape"]; ok {
		t.Error("none: simple_shape should be dropped")
	}
}

// TestShapeRecord_Idempotent verifies shaping twice changes nothing more.
func TestShapeRecord_Idempotent(t *testing.T) {
	rec := sampleRecord()
	ShapeRecord(rec, DetailSimple, []string{"centroid"})
	before := len(rec)
	ShapeRecord(rec, DetailSimple, []string{"centroid"})
	if len(rec) != before {
		t.Errorf("second shaping changed record: %v", rec)
	}
}

// TestShapeRecord_ExcludesBestEffort verifies unknown excluded fields are
// ignored and other fields stay intact.
func TestShapeRecord_ExcludesBestEffort(t *testing.T) {
	rec := sampleRecord()
	ShapeRecord(rec, DetailSimple, []string{"bogus_field", "centroid"})
	if _, ok := rec["centroid"]; ok {
		t.Error("centroid should be dropped")
	}
	if rec["slug"] != "ward-5" || rec["name"] != "5" {
		t.Errorf("unrelated fields disturbed: %v", rec)
	}
}

// TestShapeRecords_List verifies list shaping applies identical semantics
// per record.
func TestShapeRecords_List(t *testing.T) {
	records := []map[string]interface{}{sampleRecord(), sampleRecord()}
	ShapeRecords(records, DetailNone, []string{"name"})
	for i, rec := range records {
		if _, ok := rec["shape"]; ok {
			t.Errorf("record %d: shape kept", i)
		}
		if _, ok := rec["name"]; ok {
			t.Errorf("record %d: name kept", i)
		}
		if _, ok := rec["slug"]; !ok {
			t.Errorf("record %d: slug dropped", i)
		}
	}
}

// TestParseDetailLevel covers the default fallback.
func TestParseDetailLevel(t *testing.T) {
	cases := map[string]DetailLevel{
		"":        DetailSimple,
		"simple":  DetailSimple,
		"full":    DetailFull,
		"none":    DetailNone,
		"bizarre": DetailSimple,
	}
	for in, want := range cases {
		if got := ParseDetailLevel(in); got != want {
			t.Errorf("ParseDetailLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestParseExcludes covers trimming and empty entries.
func TestParseExcludes(t *testing.T) {
	got := ParseExcludes(" shape , ,centroid")
	if len(got) != 2 || got[0] != "shape" || got[1] != "centroid" {
		t.Errorf("ParseExcludes = %v", got)
	}
	if ParseExcludes("  ") != nil {
		t.Error("blank excludes should be nil")
	}
}
