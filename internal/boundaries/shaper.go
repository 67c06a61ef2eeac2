package boundaries

import "strings"

// DetailLevel selects which geometry tier a response carries.
type DetailLevel string

const (
	DetailSimple DetailLevel = "simple" // simple_shape only (default)
	DetailFull   DetailLevel = "full"   // full shape only
	DetailNone   DetailLevel = "none"   // no geometry
)

// ParseDetailLevel reads a shape_type parameter. Anything unrecognized
// falls back to the default, matching the permissive behavior of the
// query surface.
func ParseDetailLevel(v string) DetailLevel {
	switch DetailLevel(v) {
	case DetailFull:
		return DetailFull
	case DetailNone:
		return DetailNone
	default:
		return DetailSimple
	}
}

// ParseExcludes splits a comma-separated field exclusion list.
func ParseExcludes(v string) []string {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(v, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ShapeRecord trims one serialized record in place: the detail level keeps
// at most one geometry tier, then each excluded field is deleted
// best-effort. Unknown field names are ignored, never an error.
func ShapeRecord(record map[string]interface{}, detail DetailLevel, excludes []string) {
	if detail != DetailSimple {
		delete(record, "simple_shape")
	}
	if detail != DetailFull {
		delete(record, "shape")
	}
	for _, f := range excludes {
		delete(record, f)
	}
}

// ShapeRecords applies ShapeRecord to every record of a list response.
// List and detail responses share identical shaping semantics.
func ShapeRecords(records []map[string]interface{}, detail DetailLevel, excludes []string) {
	for _, r := range records {
		ShapeRecord(r, detail, excludes)
	}
}
