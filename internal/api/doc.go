// Package api exposes the management surface for pipelines, streams,
// runs, and content. It translates catalog records into stable DTOs and
// validates mutations before they reach storage.
package api
