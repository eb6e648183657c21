// Package alignment holds the persisted Common Ground records: per-question
// survey responses, per-topic score rollups, groups and group members.
//
// User-owned rows are keyed by deterministic composite paths (see keys.go) so
// every write is an idempotent upsert rather than an insert.
package alignment
