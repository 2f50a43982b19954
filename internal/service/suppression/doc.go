// Package suppression manages opt-outs between sender identities and
// recipients.
//
// A suppression is keyed by the (sender identity, recipient) pair and is
// permanent: once present the allocation engine never pairs the two again.
// Entries come from unsubscribe links (signed tokens issued by Tokens),
// complaints and manual admin actions. Inserting an existing pair is a
// no-op.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package suppression
