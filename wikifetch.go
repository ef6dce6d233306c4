// Package wikifetch provides a resumable batch fetcher for encyclopedia
// articles. It reads a list of work items (entities with an identifier and
// a display name), resolves each one to an article through a remote lookup
// service, and persists one result per item so that an interrupted run can
// be restarted without losing or repeating work.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., fs/, http/, sqlite/).
package wikifetch
