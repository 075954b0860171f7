// Package step defines the polymorphic pipeline step contract, the static
// step registry, and the built-in creator, augmentor, and filter steps.
// Steps serialize to {type, params} descriptors so pipelines are data.
package step
