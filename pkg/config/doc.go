// Package config loads and validates faultd configuration files and
// translates them into the typed rule model.
//
// Configuration is read from JSON or YAML (selected by file extension),
// checked against an embedded JSON Schema for shape, then semantically
// validated field by field. Translation produces the immutable
// []rule.Rule the pipeline consumes; the engine itself never sees raw
// configuration.
package config
