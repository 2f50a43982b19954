// Package queue is a durable delayed-delivery queue on Redis.
//
// Messages are published with a not-before time and a retry budget.
// Consumers claim due messages, which become invisible for a visibility
// timeout; a handler error re-schedules the message with backoff until the
// budget is spent, after which it moves to the dead-letter list and the
// publisher's failure callback is notified. Messages whose consumer died
// are returned to the ready set by Recover, so delivery is at-least-once.
//
// Redis layout under a prefix P:
//
//	P:msg         hash   id -> envelope JSON
//	P:ready       zset   id scored by not-before (unix ms)
//	P:processing  zset   id scored by visibility deadline (unix ms)
//	P:dead        list   dead-lettered ids, newest first
package queue
