package models

import (
	"gorm.io/gorm"
)

// Room is a read-only collaborator here: room CRUD lives outside the booking
// core. The booking flow only needs price, capacity and identity.
type Room struct {
	gorm.Model

	RoomNumber string `json:"roomNumber" gorm:"column:room_number;uniqueIndex;type:varchar(50)"`

	Type   string `json:"type"`
	Status string `json:"status"`

	// Price per night in minor units.
	PriceCents   int64  `json:"priceCents" gorm:"column:price_cents"`
	MaxOccupancy int    `json:"maxOccupancy" gorm:"column:max_occupancy"`
	Description  string `json:"description" gorm:"type:text"`
}
