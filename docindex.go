// Package docindex provides a documentation index for a code-hosting
// organization. It periodically lists the organization's public
// repositories, collects the files stored under documentation path
// prefixes, and publishes a JSON snapshot together with a browsable index
// and an in-browser Markdown viewer.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., github/, fs/, minio/).
package docindex
