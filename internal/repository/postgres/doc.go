// Package postgres implements the service repositories on PostgreSQL using
// database/sql with the lib/pq driver. Category tags are read with
// array_agg and scanned through pq.Array.
//
// The schema lives in migrations/ and is embedded into the binary; Migrate
// applies pending files in lexical order, each in its own transaction.
package postgres
