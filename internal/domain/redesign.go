package domain

import "time"

// RoomType enumerates the rooms a visitor may submit for redesign.
type RoomType string

const (
	RoomLivingRoom RoomType = "living_room"
	RoomBedroom    RoomType = "bedroom"
	RoomKitchen    RoomType = "kitchen"
	RoomBathroom   RoomType = "bathroom"
	RoomDiningRoom RoomType = "dining_room"
	RoomOffice     RoomType = "office"
	RoomEntryway   RoomType = "entryway"
	RoomOutdoor    RoomType = "outdoor"
)

// DesignStyle enumerates the design directions offered by the studio.
type DesignStyle string

const (
	StyleModern       DesignStyle = "modern"
	StyleMinimalist   DesignStyle = "minimalist"
	StyleIndustrial   DesignStyle = "industrial"
	StyleScandinavian DesignStyle = "scandinavian"
	StyleBohemian     DesignStyle = "bohemian"
	StyleLuxury       DesignStyle = "luxury"
	StyleTraditional  DesignStyle = "traditional"
	StyleContemporary DesignStyle = "contemporary"
)

// RedesignState enumerates the request lifecycle. Transitions are monotonic:
// pending -> running -> completed|failed. There is no path back to pending.
type RedesignState string

const (
	StatePending   RedesignState = "pending"
	StateRunning   RedesignState = "running"
	StateCompleted RedesignState = "completed"
	StateFailed    RedesignState = "failed"
)

// RedesignRequest is one visitor submission travelling through the pipeline.
// Email and the source image reference are set at creation and never change.
// OutputKey/OutputURL are populated exactly when the request completes.
type RedesignRequest struct {
	ID              string
	Email           string
	SourceKey       string
	SourceURL       string
	RoomType        RoomType
	Style           DesignStyle
	Prompt          string
	State           RedesignState
	OutputKey       string
	OutputURL       string
	Model           string
	ErrorMessage    string
	DurationSeconds int
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// Terminal reports whether the request reached a final state.
func (r RedesignRequest) Terminal() bool {
	return r.State == StateCompleted || r.State == StateFailed
}

// ParseRoomType validates a submitted room type.
func ParseRoomType(s string) (RoomType, error) {
	switch RoomType(s) {
	case RoomLivingRoom, RoomBedroom, RoomKitchen, RoomBathroom,
		RoomDiningRoom, RoomOffice, RoomEntryway, RoomOutdoor:
		return RoomType(s), nil
	}
	return "", ErrInvalidRoomType
}

// ParseDesignStyle validates a submitted design style.
func ParseDesignStyle(s string) (DesignStyle, error) {
	switch DesignStyle(s) {
	case StyleModern, StyleMinimalist, StyleIndustrial, StyleScandinavian,
		StyleBohemian, StyleLuxury, StyleTraditional, StyleContemporary:
		return DesignStyle(s), nil
	}
	return "", ErrInvalidStyle
}
