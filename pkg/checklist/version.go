// Package checklist holds build metadata for the checklist tool.
package checklist

// Version is the release version of the checklist binary.
const Version = "0.3.0"

// ModulePath is the Go module path of this repository.
const ModulePath = "github.com/mesh-intelligence/checklist"
