// Package data embeds the sample effect assets shipped with the module.
package data

import "embed"

// Effects holds effects/*.yaml. Load them with particle.NewFSSource(data.Effects, "effects").
//
//go:embed effects/*.yaml
var Effects embed.FS
