// Package config loads simulator configuration from YAML files and
// LOADSIM_-prefixed environment variables.
package config
