// Package config loads and validates the TOML configuration that drives
// the kinetic service: storage paths, logging, and external tool settings.
package config
