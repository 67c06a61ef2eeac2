package db

import "gorm.io/gorm"

func EnsureSchema(d *gorm.DB, schema string) error {
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error
}

// EnsurePostGIS enables the PostGIS extension. All geometry columns and
// spatial predicates in this service depend on it.
func EnsurePostGIS(d *gorm.DB) error {
	return d.Exec(`CREATE EXTENSION IF NOT EXISTS postgis`).Error
}
