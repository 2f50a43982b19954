// Package worker runs the long-lived background loops: the daily
// scheduling trigger, the delivery handler behind the dispatch queue
// consumer, and the sweep that returns stuck queue messages.
package worker
