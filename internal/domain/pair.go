package domain

// PairKey identifies a (sender identity, recipient) pair.
type PairKey struct {
	SenderID    string
	RecipientID string
}

// PairSet is a set of sender/recipient pairs.
type PairSet map[PairKey]struct{}

// NewPairSet builds a set from the given keys.
func NewPairSet(keys ...PairKey) PairSet {
	s := make(PairSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts the pair.
func (s PairSet) Add(senderID, recipientID string) {
	s[PairKey{SenderID: senderID, RecipientID: recipientID}] = struct{}{}
}

// Has reports whether the pair is in the set.
func (s PairSet) Has(senderID, recipientID string) bool {
	_, ok := s[PairKey{SenderID: senderID, RecipientID: recipientID}]
	return ok
}
