package boundaries

import (
	"log"

	"github.com/civicatlas/boundary-api/internal/db"
)

// Init prepares the boundaries schema: PostGIS, tables, and the spatial
// indexes the query surface depends on.
func Init() {
	if err := db.EnsureSchema(db.DB, "boundaries"); err != nil {
		log.Fatal("Failed to ensure schema boundaries: ", err)
	}

	if err := db.EnsurePostGIS(db.DB); err != nil {
		log.Fatal("Failed to enable postgis extension: ", err)
	}

	if err := db.DB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Fatal("Failed to enable uuid-ossp extension: ", err)
	}

	if err := db.DB.AutoMigrate(
		&BoundarySet{},
		&Boundary{},
	); err != nil {
		log.Fatal("Failed to auto-migrate tables: ", err)
	}

	// GiST indexes make contains/near/intersects usable at scale.
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS boundaries_shape_gist ON boundaries.boundaries USING GIST (shape)`,
		`CREATE INDEX IF NOT EXISTS boundaries_simple_shape_gist ON boundaries.boundaries USING GIST (simple_shape)`,
	} {
		if err := db.DB.Exec(stmt).Error; err != nil {
			log.Fatal("Failed to create spatial index: ", err)
		}
	}
}
