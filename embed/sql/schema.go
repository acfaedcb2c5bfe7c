package embedsql

import _ "embed"

// Schema is the full database schema, applied on init.
//
//go:embed schema.sql
var Schema string
