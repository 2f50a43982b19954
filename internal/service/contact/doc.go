// Package contact records first contacts between sender identities and
// recipients once a message has been delivered.
//
// RecordContact relies on the repository's conflict-safe insert: a
// duplicate call for a pair already recorded is a no-op and never bumps
// the recipient's exposure count a second time, which makes redelivered
// queue messages safe.
package contact
