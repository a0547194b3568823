// Package config holds waypoint's settings: defaults, the YAML
// configuration file and validation.
package config
