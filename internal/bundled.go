package internal

import _ "embed"

// bundledSchema is the resolution floor: a minimal native inventory
// document guaranteeing the gateway always has some schema.
//
//go:embed bundled_schema.json
var bundledSchema []byte
