// Package portfoliocms manages the editable content of a portfolio homepage.
//
// Content is stored as one row per (section, field) and assembled into a
// StructuredContent tree on read. Every section write first snapshots the whole
// tree into a Version, so a failed write can be rolled back to the latest
// auto-backup and editors can restore any earlier snapshot. Repositories
// (memory, Postgres, SQLite), blob stores (memory, filesystem, S3) and read
// caches (memory, Redis) are provided under subpackages.
//
// Snapshots
//
// A Version holds the full tree, not a per-section delta. At most one version
// is active; it marks the backup of record and is not guaranteed to match the
// live rows after later edits.
package portfoliocms
