// Package config loads opscore settings from a YAML file, a .env file and
// environment overrides, resolves secret references, and watches the file
// for changes.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables. Credentials may be written as secretref:env:NAME or
// secretref:file:/path (see package secret).
package config
