package boundaries

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// SRID is the coordinate reference system for every stored geometry
// (EPSG:4269, NAD83). Callers must reproject before querying.
const SRID = 4269

// SimplifyTolerance is the tolerance used to derive simple_shape from shape.
const SimplifyTolerance = 0.0001

// BoundarySet is a named collection of related boundaries, such as all
// Wards or Community Areas.
type BoundarySet struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Slug     string    `json:"slug" gorm:"uniqueIndex;size:256"`
	Name     string    `json:"name" gorm:"uniqueIndex;size:64"` // plural, e.g. "Community Areas"
	Singular string    `json:"singular" gorm:"size:64"`         // e.g. "Community Area"

	// KindFirst controls display-name word order: true gives
	// "Austin Community Area", false gives "43rd Precinct".
	KindFirst bool `json:"kind_first"`

	Authority   string    `json:"authority" gorm:"size:256"` // entity responsible for accuracy
	Domain      string    `json:"domain" gorm:"size:256"`    // area covered, e.g. "Chicago"
	LastUpdated time.Time `json:"last_updated" gorm:"type:date"`
	Href        string    `json:"href"`  // url the data was found at, if any
	Notes       string    `json:"notes"` // loading notes, transformations applied
	Count       int       `json:"count"` // expected number of features

	// MetadataFields lists which source attribute columns were loaded.
	// Order is significant (display order).
	MetadataFields pq.StringArray `json:"metadata_fields" gorm:"type:text[]"`

	Boundaries []Boundary `json:"-" gorm:"foreignKey:SetID;constraint:OnDelete:CASCADE"`
}

func (BoundarySet) TableName() string { return "boundaries.boundary_sets" }

// SlugText returns the text the slug resolver derives this set's slug from.
func (bs *BoundarySet) SlugText() string { return bs.Name }

// Boundary is a single geographic feature, such as one Ward.
type Boundary struct {
	ID    uuid.UUID    `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Slug  string       `json:"slug" gorm:"uniqueIndex;size:256"`
	SetID uuid.UUID    `json:"set_id" gorm:"type:uuid;index"`
	Set   *BoundarySet `json:"-" gorm:"foreignKey:SetID"`

	// Kind is a copy of the parent set's Singular, denormalized for
	// display and slugging.
	Kind       string `json:"kind" gorm:"size:64"`
	ExternalID string `json:"external_id" gorm:"index;size:64"` // source-system id, not unique on its own
	Name       string `json:"name" gorm:"index;size:192"`

	// DisplayName is "{kind} {name}" or "{name} {kind}" depending on the
	// parent set's KindFirst.
	DisplayName string `json:"display_name" gorm:"size:256"`

	// Metadata holds the complete source attribute table for this feature.
	Metadata datatypes.JSON `json:"metadata"`

	// Geometry columns live in PostGIS; Go never manipulates them directly.
	// Reads go through ST_AsGeoJSON, writes through ST_GeomFromText.
	Shape       string  `json:"-" gorm:"type:geometry(MultiPolygon,4269)"`
	SimpleShape string  `json:"-" gorm:"type:geometry(MultiPolygon,4269)"`
	Centroid    *string `json:"-" gorm:"type:geometry(Point,4269)"`
}

func (Boundary) TableName() string { return "boundaries.boundaries" }

// SlugText returns the text the slug resolver derives this boundary's slug
// from. Display names like "Austin Community Area" slug to
// "austin-community-area".
func (b *Boundary) SlugText() string { return b.DisplayName }

// DisplayName composes a boundary's display name from its parts.
// It is a pure function of name, kind and the parent set's word order.
func DisplayName(name, kind string, kindFirst bool) string {
	if kindFirst {
		return kind + " " + name
	}
	return name + " " + kind
}
