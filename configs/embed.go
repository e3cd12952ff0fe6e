// Package configs provides embedded configuration templates for artman.
//
// Templates are embedded at build time so every distribution carries them.
// They are used by:
//   - cmd/artman/cmd/config.go → `artman config init` (user config)
//   - cmd/artman/cmd/config.go → `artman config init --project` (.artman.yaml)
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/artman/config.yaml)
//  3. Project config (.artman.yaml)
//  4. Environment variables (ARTMAN_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration,
// written to ~/.config/artman/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration,
// written to .artman.yaml and meant to be version-controlled.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
