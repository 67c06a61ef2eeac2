package boundaries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
	"gorm.io/gorm"
)

// SetFixture is the on-disk form consumed by cmd/seed: one boundary set's
// metadata plus a GeoJSON FeatureCollection of its features. It stands in
// for the shapefile import pipeline in development and tests.
type SetFixture struct {
	Name        string `json:"name"`
	Singular    string `json:"singular"`
	KindFirst   bool   `json:"kind_first"`
	Authority   string `json:"authority"`
	Domain      string `json:"domain"`
	LastUpdated string `json:"last_updated"` // YYYY-MM-DD
	Href        string `json:"href"`
	Notes       string `json:"notes"`

	// MetadataFields accepts either a JSON array or the legacy
	// pipe-delimited wire form; see ParseMetadataFields.
	MetadataFields json.RawMessage `json:"metadata_fields"`

	// NameField and IDField name the feature properties holding the
	// display name and the source-system id.
	NameField string `json:"name_field"`
	IDField   string `json:"id_field"`

	Features json.RawMessage `json:"features"` // GeoJSON FeatureCollection
}

// ParseMetadataFields accepts either a JSON array or the legacy
// pipe-delimited wire form ("WARD|ALDERMAN").
func ParseMetadataFields(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var piped string
	if err := json.Unmarshal(raw, &piped); err != nil {
		return nil, fmt.Errorf("metadata_fields: want array or pipe-delimited string")
	}
	if piped == "" {
		return nil, nil
	}
	return strings.Split(piped, "|"), nil
}

// LoadSet creates one boundary set and all its boundaries inside a single
// transaction. Slug resolution runs against the transaction so the
// check-then-insert race the resolver documents cannot strand a duplicate,
// and the unique indexes backstop it regardless.
func LoadSet(ctx context.Context, gdb *gorm.DB, fix *SetFixture) (*BoundarySet, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(fix.Features, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	lastUpdated, err := time.Parse("2006-01-02", fix.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("last_updated %q: %w", fix.LastUpdated, err)
	}

	metadataFields, err := ParseMetadataFields(fix.MetadataFields)
	if err != nil {
		return nil, err
	}

	set := &BoundarySet{
		Name:           fix.Name,
		Singular:       fix.Singular,
		KindFirst:      fix.KindFirst,
		Authority:      fix.Authority,
		Domain:         fix.Domain,
		LastUpdated:    lastUpdated,
		Href:           fix.Href,
		Notes:          fix.Notes,
		Count:          len(fc.Features),
		MetadataFields: metadataFields,
	}

	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := ResolveSlug(set.SlugText(), slugExists(tx, "boundaries.boundary_sets"))
		if err != nil {
			return err
		}
		set.Slug = slug

		if err := tx.Create(set).Error; err != nil {
			return fmt.Errorf("create boundary set: %w", err)
		}

		for i, feature := range fc.Features {
			if err := insertBoundary(tx, set, fix, i, feature); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[seed] set=%s features=%d", set.Slug, set.Count)
	return set, nil
}

func insertBoundary(tx *gorm.DB, set *BoundarySet, fix *SetFixture, index int, feature *geojson.Feature) error {
	multi, err := asMultiPolygon(feature.Geometry)
	if err != nil {
		return fmt.Errorf("feature %d: %w", index, err)
	}
	shapeWKT, err := wkt.Marshal(multi)
	if err != nil {
		return fmt.Errorf("feature %d: encode wkt: %w", index, err)
	}

	name := propString(feature.Properties, fix.NameField)
	if name == "" {
		return fmt.Errorf("%w: feature %d has no %q property", ErrInvalidInput, index, fix.NameField)
	}
	externalID := propString(feature.Properties, fix.IDField)
	if externalID == "" {
		externalID = fmt.Sprintf("%d", index+1)
	}

	displayName := DisplayName(name, set.Singular, set.KindFirst)
	slug, err := ResolveSlug(displayName, slugExists(tx, "boundaries.boundaries"))
	if err != nil {
		return fmt.Errorf("feature %d: %w", index, err)
	}

	metadata, err := json.Marshal(feature.Properties)
	if err != nil {
		return fmt.Errorf("feature %d: encode metadata: %w", index, err)
	}

	// The database derives the simplified shape and centroid so they stay
	// consistent with the stored full-resolution geometry.
	err = tx.Exec(`
		WITH g AS (
			SELECT ST_Multi(ST_SetSRID(ST_GeomFromText(?), 4269)) AS shape
		)
		INSERT INTO boundaries.boundaries
			(id, slug, set_id, kind, external_id, name, display_name, metadata,
			 shape, simple_shape, centroid)
		SELECT
			uuid_generate_v4(), ?, ?, ?, ?, ?, ?, ?::jsonb,
			g.shape,
			ST_SimplifyPreserveTopology(g.shape, ?),
			ST_Centroid(g.shape)
		FROM g
	`, shapeWKT, slug, set.ID, set.Singular, externalID, name, displayName,
		string(metadata), SimplifyTolerance).Error
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// Concurrent loader claimed the slug between the existence check
		// and the insert.
		return fmt.Errorf("feature %d: slug %q already taken: %w", index, slug, err)
	}
	return err
}

// slugExists adapts a table's slug column to the resolver's lookup
// predicate, scoped to the entity's own table.
func slugExists(tx *gorm.DB, table string) func(string) (bool, error) {
	return func(slug string) (bool, error) {
		var n int64
		err := tx.Table(table).Where("slug = ?", slug).Count(&n).Error
		return n > 0, err
	}
}

func asMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		return t, nil
	case *geom.Polygon:
		multi := geom.NewMultiPolygon(t.Layout())
		if err := multi.Push(t); err != nil {
			return nil, err
		}
		return multi, nil
	default:
		return nil, fmt.Errorf("%w: geometry type %T is not polygonal", ErrInvalidInput, g)
	}
}

func propString(props map[string]interface{}, key string) string {
	if key == "" || props == nil {
		return ""
	}
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		// Shapefile attribute tables frequently carry integer ids as
		// floats; render them without a trailing ".0".
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// VerifySet cross-checks a freshly loaded set through the same spatial
// predicates the API serves: every boundary must intersect itself, and
// its centroid should normally fall inside it (concave shapes can move
// the centroid outside, so that check only warns).
func VerifySet(ctx context.Context, store Store, gdb *gorm.DB, setSlug string) error {
	var rows []struct {
		Slug string
		Lat  *float64
		Lon  *float64
	}
	err := gdb.WithContext(ctx).Raw(`
		SELECT b.slug, ST_Y(b.centroid) AS lat, ST_X(b.centroid) AS lon
		FROM boundaries.boundaries b
		JOIN boundaries.boundary_sets s ON s.id = b.set_id
		WHERE s.slug = ?
	`, setSlug).Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("verify query: %w", err)
	}

	for _, row := range rows {
		id, err := store.BoundaryIDBySlug(ctx, row.Slug)
		if err != nil {
			return err
		}

		intersecting, err := store.FindIntersecting(ctx, id)
		if err != nil {
			return err
		}
		if !containsID(intersecting, id) {
			return fmt.Errorf("boundary %q does not intersect itself; geometry is likely invalid", row.Slug)
		}

		if row.Lat != nil && row.Lon != nil {
			containing, err := store.FindContaining(ctx, *row.Lat, *row.Lon)
			if err != nil {
				return err
			}
			if !containsID(containing, id) {
				log.Printf("[seed] warn: centroid of %q falls outside its shape", row.Slug)
			}
		}
	}
	return nil
}

func containsID(ids []uuid.UUID, want uuid.UUID) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
