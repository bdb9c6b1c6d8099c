// Wire message shapes and constructors. Every completed signup or phonebook
// interaction ends with exactly one of these followed by connection close.

package core

// ChallengeMessage tells the peer which challenge mechanism stands between
// it and a provisioned account.
type ChallengeMessage struct {
	Type      string        `json:"type"`
	Challenge ChallengeBody `json:"challenge"`
}

// ChallengeBody names the mechanism inside a challenge message.
type ChallengeBody struct {
	Mechanism Outcome `json:"mechanism"`
}

// SignedUpMessage acknowledges a provisioned account.
type SignedUpMessage struct {
	Type string `json:"type"`
}

// ListingMessage carries the public phonebook: the self-ident blobs of
// identities willing to be discovered via this server.
type ListingMessage struct {
	Type           string   `json:"type"`
	SelfIdentBlobs []string `json:"selfIdentBlobs"`
}

func NewChallengeMessage(outcome Outcome) *ChallengeMessage {
	return &ChallengeMessage{
		Type:      "challenge",
		Challenge: ChallengeBody{Mechanism: outcome},
	}
}

func NewSignedUpMessage() *SignedUpMessage {
	return &SignedUpMessage{Type: "signedUp"}
}

func NewListingMessage(blobs []string) *ListingMessage {
	if blobs == nil {
		blobs = []string{}
	}
	return &ListingMessage{Type: "listing", SelfIdentBlobs: blobs}
}
