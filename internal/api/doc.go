// Package api exposes the HTTP surface of the outreach engine: the queue
// failure callback, the public unsubscribe endpoint, an allocation preview
// tool, campaign and suppression administration, and health probes.
package api
