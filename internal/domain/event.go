package domain

import "time"

type ListingAction string

const (
	ListingCreated ListingAction = "create"
	ListingUpdated ListingAction = "update"
	ListingClosed  ListingAction = "close"
	ListingDeleted ListingAction = "delete"
)

// ListingEvent announces a change the synchronization made to a listing.
type ListingEvent struct {
	Action           ListingAction    `json:"action"`
	ListingID        string           `json:"listing_id"`
	SourceID         string           `json:"source_id"`
	ExternalID       string           `json:"external_id,omitempty"`
	Status           ListingStatus    `json:"status,omitempty"`
	ModerationStatus ModerationStatus `json:"moderation_status,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}
