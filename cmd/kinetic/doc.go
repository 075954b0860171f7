// Package main hosts the kinetic CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces stream registration, pipeline
// definition, pipeline execution, run history, and content queries. It
// centralizes configuration resolution and service wiring so subcommands
// can focus on user experience instead of plumbing.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands or
// flags here.
package main
