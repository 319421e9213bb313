// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//
// PipelineConfig maps the [pipeline] table of the config file onto the
// domain's pipeline bounds.
package file
