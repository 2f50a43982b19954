// Package esp contains the outbound mail providers used by the delivery
// worker.
//
// Each provider implements Mailer and sends a single pre-rendered HTML
// message on behalf of one sender identity:
//
//   - GmailMailer refreshes the sender's OAuth token against Google and
//     submits an RFC 5322 message through the Gmail API.
//   - SESMailer sends through AWS SES v2 using the account-wide credentials.
//
// A revoked or expired Google grant surfaces as ErrTokenExpired so the
// caller can deactivate the sender instead of retrying.
package esp
