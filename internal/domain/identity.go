package domain

import (
	"github.com/google/uuid"
)

// contactNamespace is the UUIDv5 namespace used to derive stable
// pseudo-identifiers for unauthenticated contacts.
var contactNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// DeriveContactID maps a manually supplied contact (email address or phone
// number) to a deterministic identifier, so tokens issued to the same contact
// share one scope even before the contact owns an account.
func DeriveContactID(contact string) uuid.UUID {
	return uuid.NewSHA1(contactNamespace, []byte(contact))
}

// Subject is an authenticated principal. The fields beyond ID belong to the
// hosting application; this module only reads them to pick a delivery address,
// a preferred channel, and the TOTP secret.
type Subject struct {
	ID               uuid.UUID
	Email            string
	Phone            string
	PreferredChannel TokenType
	TOTPSecret       string
}

// Target is the identity a token is issued to or verified for: either an
// authenticated subject or a manually addressed contact.
type Target struct {
	Subject *Subject

	// Contact is a manual recipient (email or phone). ContactID overrides the
	// derived identifier when the hosting application already tracks one.
	Contact   string
	ContactID uuid.UUID
}

// ResolveID returns the identifier the token scope is keyed on.
// Returns ErrNoTarget when neither a subject nor a contact is set.
func (t Target) ResolveID() (uuid.UUID, error) {
	if t.Subject != nil {
		return t.Subject.ID, nil
	}
	if t.Contact == "" {
		return uuid.Nil, ErrNoTarget
	}
	if t.ContactID != uuid.Nil {
		return t.ContactID, nil
	}
	return DeriveContactID(t.Contact), nil
}

// PreferredChannel returns the subject's preferred delivery channel,
// falling back to email.
func (t Target) PreferredChannel() TokenType {
	if t.Subject != nil && t.Subject.PreferredChannel != "" {
		return t.Subject.PreferredChannel
	}
	return TokenTypeEmail
}

// Address returns the delivery address for the given channel: the manual
// contact when set, otherwise the subject's email or phone.
func (t Target) Address(typ TokenType) string {
	if t.Contact != "" {
		return t.Contact
	}
	if t.Subject == nil {
		return ""
	}
	if typ == TokenTypeSMS {
		return t.Subject.Phone
	}
	return t.Subject.Email
}

// Secret returns the subject's stored TOTP secret, if any.
func (t Target) Secret() string {
	if t.Subject != nil {
		return t.Subject.TOTPSecret
	}
	return ""
}
