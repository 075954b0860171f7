// Package objectstore implements content-addressed blob storage used for
// content versions and pipeline run logs.
package objectstore
