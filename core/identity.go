package core

import "encoding/json"

// PortableContact is the profile section of a self-ident payload, a
// portable-contacts-shaped document. DisplayName is mandatory; Emails is
// only required by challenge mechanisms that prove control of an address.
type PortableContact struct {
	DisplayName string   `json:"displayName"`
	Emails      []string `json:"emails,omitempty"`
}

// SelfIdentPayload is the declaration an identity makes about itself: its
// long-term root signing key, its profile, and the transit server it claims
// as its server of record. It travels as a signed blob; this struct is the
// verified claims set extracted from that blob.
type SelfIdentPayload struct {
	RootSignPubKey     string          `json:"rootSignPubKey"`
	TransitServerIdent string          `json:"transitServerIdent"`
	Poco               PortableContact `json:"poco"`
}

// ClientAuthorization names one client public key as authorized to act for
// an identity. It travels as a blob signed by the identity's root key.
type ClientAuthorization struct {
	AuthorizedClientKey string `json:"authorizedClientKey"`
}

// SignupBundle is the full provisioning request a client submits. SelfIdent
// and ClientAuths are signed blobs; StoreKeyring is opaque to the server and
// persisted verbatim; Because carries per-mechanism challenge responses
// keyed by mechanism name. PublicListing opts the identity into the
// phonebook.
type SignupBundle struct {
	SelfIdent     string                     `json:"selfIdent"`
	ClientAuths   []string                   `json:"clientAuths"`
	StoreKeyring  json.RawMessage            `json:"storeKeyring,omitempty"`
	Because       map[string]json.RawMessage `json:"because,omitempty"`
	PublicListing bool                       `json:"publicListing,omitempty"`
}

// ValidatedBundle is what the bundle validator produces on success: the
// verified payload plus the map of authorized client key to the raw
// authorization blob that named it.
type ValidatedBundle struct {
	Payload      *SelfIdentPayload
	RawSelfIdent string
	ClientAuths  map[string]string
}

// NewAccount carries everything the account store needs to provision an
// account. PublicListing is the raw self-ident blob to expose via the
// phonebook, or empty if the identity declined discovery.
type NewAccount struct {
	Payload       *SelfIdentPayload
	RawSelfIdent  string
	ClientAuths   map[string]string
	StoreKeyring  json.RawMessage
	PublicListing string
}
