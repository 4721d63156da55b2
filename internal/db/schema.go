package db

import "gorm.io/gorm"

// Schema holds every table this module owns.
const Schema = "ridings"

func EnsureSchema(d *gorm.DB, schema string) error {
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error
}
