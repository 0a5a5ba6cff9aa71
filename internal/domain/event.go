// Package domain defines the core types and interfaces for Kestrel.
package domain

import (
	"time"
)

// EntityClass identifies which kind of event is being scored.
type EntityClass string

const (
	ClassReview      EntityClass = "review"
	ClassTransaction EntityClass = "transaction"
)

// ReviewEvent is a product review submitted for fraud scoring.
// ID is assigned by the store after persistence and is zero at scoring time.
type ReviewEvent struct {
	ID                int64     `json:"id,omitempty"`
	UserID            int64     `json:"userId"`
	ProductID         string    `json:"productId,omitempty"`
	ReviewText        string    `json:"reviewText"`
	Rating            float64   `json:"rating"`
	IPAddress         string    `json:"ipAddress,omitempty"`
	DeviceFingerprint string    `json:"deviceFingerprint,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// TransactionEvent is a payment transaction submitted for fraud scoring.
// ID is assigned by the store after persistence and is zero at scoring time.
type TransactionEvent struct {
	ID                int64     `json:"id,omitempty"`
	UserID            int64     `json:"userId"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	Channel           string    `json:"channel"`
	IPAddress         string    `json:"ipAddress,omitempty"`
	DeviceFingerprint string    `json:"deviceFingerprint,omitempty"`

	// CountryMismatch is set by the caller's geolocation collaborator when
	// the transaction origin differs from the user's usual country.
	CountryMismatch bool `json:"countryMismatch,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
