// Package db embeds the database schema.
package db

import _ "embed"

// Schema creates every table the shop service reads and writes. It is
// idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
