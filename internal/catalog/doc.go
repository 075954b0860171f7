// Package catalog persists content records, pipeline definitions, run
// history, and stream definitions in SQLite.
package catalog
