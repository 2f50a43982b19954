// Package delivery turns a planned assignment into a sent e-mail.
//
// Deliver is invoked by the queue consumer at the scheduled time. It loads
// the sender, recipient and campaign, records a pending email log with a
// fresh unsubscribe token, renders the campaign template, submits it through
// the configured Mailer and finally records the first contact.
//
// Errors wrapped with queue.Permanent (missing data, recipient without an
// address, revoked sender grant) are not retried by the queue.
package delivery
