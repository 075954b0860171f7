// Package media defines the record shapes that flow through pipelines:
// stream records on the source side and content artifacts on the derived
// side.
package media
