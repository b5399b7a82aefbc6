// Package config provides the configuration of a keyprobe run: probe
// settings, report preferences, and history storage. Values come from
// defaults, an optional YAML file, and command-line flags, in increasing
// order of precedence.
package config
