// Package db carries the schema migrations shipped inside the advocrm
// binary, so deployments never need the source tree to migrate.
package db

import "embed"

// Migrations holds the SQL files the migrate subcommand applies.
//
//go:embed migrations/*.sql
var Migrations embed.FS
