// Package ingest feeds newly registered companies from the national court
// register (KRS) into the recipients table.
//
// A daily pass reads the register's bulletin for one day, fetches the
// current extract of every listed entity in batches, drops records without
// a register number, name or registration date, drops companies
// registered before the configured minimum date, and upserts the rest
// keyed on the register number. Newly inserted recipients get the current
// time as created_at, which is what the allocation engine's recency window
// selects on.
package ingest
