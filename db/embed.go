// Package db embeds the database schema.
package db

import _ "embed"

// Schema holds the DDL for every application table. It is idempotent and
// runs on startup.
//
//go:embed migrations/001_schema.sql
var Schema string
