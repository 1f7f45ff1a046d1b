// Package ids defines the opaque identifiers used by the registries.
package ids

import "github.com/google/uuid"

// ClientID uniquely identifies a Client for the lifetime of its connection.
type ClientID uuid.UUID

// ChatID uniquely identifies a Chat for the lifetime of its existence.
type ChatID uuid.UUID

// NewClientID generates a fresh, random ClientID.
func NewClientID() ClientID {
	return ClientID(uuid.New())
}

// NewChatID generates a fresh, random ChatID.
func NewChatID() ChatID {
	return ChatID(uuid.New())
}

func (c ClientID) String() string {
	return uuid.UUID(c).String()
}

func (c ChatID) String() string {
	return uuid.UUID(c).String()
}
