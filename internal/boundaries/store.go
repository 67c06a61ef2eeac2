package boundaries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/civicatlas/boundary-api/internal/metrics"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the geometry/catalog contract the API surface consumes. It is a
// thin interface over a spatial data engine; every predicate operates in
// SRID 4269 and callers reproject inputs before querying.
type Store interface {
	// Spatial predicates. Each returns the ids of boundaries matching the
	// predicate; multiple predicates AND-combine by id-set intersection.
	FindContaining(ctx context.Context, lat, lon float64) ([]uuid.UUID, error)
	FindWithinDistance(ctx context.Context, lat, lon, meters float64) ([]uuid.UUID, error)
	FindIntersecting(ctx context.Context, boundaryID uuid.UUID) ([]uuid.UUID, error)

	// Keyed lookup.
	BoundaryIDBySlug(ctx context.Context, slug string) (uuid.UUID, error)
	BoundaryBySlug(ctx context.Context, slug string) (*BoundaryRow, error)
	FirstBoundarySlugByExternalID(ctx context.Context, setSlug, externalID string) (string, error)

	// Catalog listing.
	Boundaries(ctx context.Context, opts ListOptions) ([]BoundaryRow, int64, error)
	BoundarySets(ctx context.Context, limit, offset int) ([]BoundarySet, int64, error)
	BoundarySetBySlug(ctx context.Context, slug string) (*BoundarySet, error)
	BoundarySlugsForSet(ctx context.Context, setID uuid.UUID) ([]string, error)
}

// ListOptions constrains a boundary listing. A nil IDs slice means no id
// constraint; callers short-circuit an empty intersection before reaching
// the store.
type ListOptions struct {
	SetSlugs         []string
	ExternalID       string
	ExternalIDPrefix string
	IDs              []uuid.UUID
	Limit            int
	Offset           int
}

// BoundaryRow is a boundary read for serialization: catalog fields plus
// geometry rendered to GeoJSON by the database (ST_AsGeoJSON).
type BoundaryRow struct {
	ID          uuid.UUID
	Slug        string
	SetSlug     string
	Kind        string
	ExternalID  string
	Name        string
	DisplayName string
	Metadata    datatypes.JSON
	Shape       string
	SimpleShape string
	Centroid    *string
}

// PostGISStore answers the Store contract with raw PostGIS SQL through
// gorm. It is the only component that speaks geometry.
type PostGISStore struct {
	db *gorm.DB
}

func NewPostGISStore(db *gorm.DB) *PostGISStore {
	return &PostGISStore{db: db}
}

func (s *PostGISStore) FindContaining(ctx context.Context, lat, lon float64) ([]uuid.UUID, error) {
	metrics.SpatialQueriesTotal.WithLabelValues("contains").Inc()
	return s.idQuery(ctx, `
		SELECT id FROM boundaries.boundaries
		WHERE ST_Contains(shape, ST_SetSRID(ST_MakePoint(?, ?), 4269))
	`, lon, lat)
}

// FindWithinDistance casts to geography so the distance is metric rather
// than in degrees.
func (s *PostGISStore) FindWithinDistance(ctx context.Context, lat, lon, meters float64) ([]uuid.UUID, error) {
	metrics.SpatialQueriesTotal.WithLabelValues("near").Inc()
	return s.idQuery(ctx, `
		SELECT id FROM boundaries.boundaries
		WHERE ST_DWithin(
			shape::geography,
			ST_SetSRID(ST_MakePoint(?, ?), 4269)::geography,
			?
		)
	`, lon, lat, meters)
}

func (s *PostGISStore) FindIntersecting(ctx context.Context, boundaryID uuid.UUID) ([]uuid.UUID, error) {
	metrics.SpatialQueriesTotal.WithLabelValues("intersects").Inc()
	return s.idQuery(ctx, `
		SELECT b.id FROM boundaries.boundaries b
		WHERE ST_Intersects(
			b.shape,
			(SELECT shape FROM boundaries.boundaries WHERE id = ?)
		)
	`, boundaryID)
}

func (s *PostGISStore) idQuery(ctx context.Context, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := s.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("spatial query failed: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan boundary id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostGISStore) BoundaryIDBySlug(ctx context.Context, slug string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.WithContext(ctx).
		Raw(`SELECT id FROM boundaries.boundaries WHERE slug = ?`, slug).
		Row().Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, fmt.Errorf("%w: boundary %q", ErrNotFound, slug)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("boundary lookup: %w", err)
	}
	return id, nil
}

const boundarySelect = `
	SELECT
		b.id,
		b.slug,
		s.slug AS set_slug,
		b.kind,
		b.external_id,
		b.name,
		b.display_name,
		COALESCE(b.metadata, 'null'::jsonb) AS metadata,
		ST_AsGeoJSON(b.shape) AS shape,
		ST_AsGeoJSON(b.simple_shape) AS simple_shape,
		ST_AsGeoJSON(b.centroid) AS centroid
	FROM boundaries.boundaries b
	JOIN boundaries.boundary_sets s ON s.id = b.set_id
`

func (s *PostGISStore) BoundaryBySlug(ctx context.Context, slug string) (*BoundaryRow, error) {
	rows, err := s.db.WithContext(ctx).
		Raw(boundarySelect+` WHERE b.slug = ?`, slug).Rows()
	if err != nil {
		return nil, fmt.Errorf("boundary query failed: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: boundary %q", ErrNotFound, slug)
	}
	row, err := scanBoundaryRow(rows)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// FirstBoundarySlugByExternalID resolves (set slug, external id) to a
// boundary slug. External ids are not guaranteed unique within a set;
// ties resolve to the first match by id so the redirect stays
// deterministic.
func (s *PostGISStore) FirstBoundarySlugByExternalID(ctx context.Context, setSlug, externalID string) (string, error) {
	var slug string
	err := s.db.WithContext(ctx).Raw(`
		SELECT b.slug
		FROM boundaries.boundaries b
		JOIN boundaries.boundary_sets s ON s.id = b.set_id
		WHERE s.slug = ? AND b.external_id = ?
		ORDER BY b.id
		LIMIT 1
	`, setSlug, externalID).Row().Scan(&slug)
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: no boundary in set %q with external id %q", ErrNotFound, setSlug, externalID)
	}
	if err != nil {
		return "", fmt.Errorf("external id lookup: %w", err)
	}
	return slug, nil
}

func (s *PostGISStore) Boundaries(ctx context.Context, opts ListOptions) ([]BoundaryRow, int64, error) {
	var conditions []string
	var args []interface{}

	if len(opts.SetSlugs) > 0 {
		conditions = append(conditions, "s.slug = ANY(?)")
		args = append(args, pq.Array(opts.SetSlugs))
	}
	if opts.ExternalID != "" {
		conditions = append(conditions, "b.external_id = ?")
		args = append(args, opts.ExternalID)
	}
	if opts.ExternalIDPrefix != "" {
		conditions = append(conditions, "b.external_id LIKE ? || '%'")
		args = append(args, opts.ExternalIDPrefix)
	}
	if opts.IDs != nil {
		conditions = append(conditions, "b.id = ANY(?)")
		args = append(args, pq.Array(opts.IDs))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM boundaries.boundaries b
		JOIN boundaries.boundary_sets s ON s.id = b.set_id
	` + where
	if err := s.db.WithContext(ctx).Raw(countQuery, args...).Row().Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("boundary count failed: %w", err)
	}

	query := boundarySelect + where + ` ORDER BY b.kind, b.display_name LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, 0, fmt.Errorf("boundary query failed: %w", err)
	}
	defer rows.Close()

	var out []BoundaryRow
	for rows.Next() {
		row, err := scanBoundaryRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *row)
	}
	return out, total, rows.Err()
}

func (s *PostGISStore) BoundarySets(ctx context.Context, limit, offset int) ([]BoundarySet, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&BoundarySet{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("boundary set count failed: %w", err)
	}

	var sets []BoundarySet
	if err := s.db.WithContext(ctx).
		Order("name").Limit(limit).Offset(offset).
		Find(&sets).Error; err != nil {
		return nil, 0, fmt.Errorf("boundary set query failed: %w", err)
	}
	return sets, total, nil
}

func (s *PostGISStore) BoundarySetBySlug(ctx context.Context, slug string) (*BoundarySet, error) {
	var set BoundarySet
	err := s.db.WithContext(ctx).First(&set, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: boundary set %q", ErrNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("boundary set lookup: %w", err)
	}
	return &set, nil
}

func (s *PostGISStore) BoundarySlugsForSet(ctx context.Context, setID uuid.UUID) ([]string, error) {
	var slugs []string
	if err := s.db.WithContext(ctx).
		Model(&Boundary{}).
		Where("set_id = ?", setID).
		Order("kind, display_name").
		Pluck("slug", &slugs).Error; err != nil {
		return nil, fmt.Errorf("boundary slugs query failed: %w", err)
	}
	return slugs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBoundaryRow(rows rowScanner) (*BoundaryRow, error) {
	var row BoundaryRow
	if err := rows.Scan(
		&row.ID,
		&row.Slug,
		&row.SetSlug,
		&row.Kind,
		&row.ExternalID,
		&row.Name,
		&row.DisplayName,
		&row.Metadata,
		&row.Shape,
		&row.SimpleShape,
		&row.Centroid,
	); err != nil {
		return nil, fmt.Errorf("scan boundary: %w", err)
	}
	return &row, nil
}
