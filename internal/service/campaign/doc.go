// Package campaign manages outreach campaigns: listing them, creating new
// ones with a validated template, assigning a sender identity and toggling
// whether they take part in the daily allocation run.
//
// A campaign can only be activated once it has a sender identity from the
// same account. Repository implementations live in repository/postgres/ and
// repository/memory/.
package campaign
