// Package content assembles derived artifacts from media bytes and
// persists them through the catalog and object store.
package content
