// Package fixtures embeds the default profiles served when no fixture
// directory is configured.
package fixtures

import "embed"

// FS holds one directory per profile.
//
//go:embed sample
var FS embed.FS
