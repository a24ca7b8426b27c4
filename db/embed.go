// Package db ships the SQL migrations with the binary.
package db

import "embed"

//go:embed migrations/*.up.sql
var Migrations embed.FS
