// Package stream defines the media source contract and the built-in
// stream adapters materialized from stored definitions.
package stream
