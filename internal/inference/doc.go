// Package inference provides the pooled clients for remote model
// endpoints used by augmenting steps.
package inference
