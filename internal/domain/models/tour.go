package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TourStatus string

const (
	TourScheduled TourStatus = "SCHEDULED"
	TourCompleted TourStatus = "COMPLETED"
	TourCancelled TourStatus = "CANCELLED"
)

func (s TourStatus) Valid() bool {
	switch s {
	case TourScheduled, TourCompleted, TourCancelled:
		return true
	}
	return false
}

type TourCategory string

const (
	TourCategoryHens           TourCategory = "GALLINAS"
	TourCategoryEggs           TourCategory = "HUEVOS"
	TourCategorySustainability TourCategory = "SOSTENIBILIDAD"
	TourCategoryGeneral        TourCategory = "GENERAL"
)

func (c TourCategory) Valid() bool {
	switch c {
	case TourCategoryHens, TourCategoryEggs, TourCategorySustainability, TourCategoryGeneral:
		return true
	}
	return false
}

// Tour экскурсия по ферме
type Tour struct {
	ID                  int64           `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Date                time.Time       `json:"date"`
	Time                string          `json:"time"`
	Duration            int             `json:"duration"`
	MaxParticipants     int             `json:"maxParticipants"`
	CurrentParticipants int             `json:"currentParticipants"`
	Guide               string          `json:"guide"`
	Status              TourStatus      `json:"status"`
	Category            TourCategory    `json:"category"`
	Price               decimal.Decimal `json:"price"`
	Image               string          `json:"image,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	Reviews             []Review        `json:"reviews,omitempty"`
}

// AvailableSpots свободные места
func (t *Tour) AvailableSpots() int {
	if n := t.MaxParticipants - t.CurrentParticipants; n > 0 {
		return n
	}
	return 0
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Booking запись пользователя на экскурсию
type Booking struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	TourID       int64           `json:"tourId"`
	UserID       int64           `json:"userId"`
	Status       BookingStatus   `json:"status"`
	Participants int             `json:"participants"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Tour         *Tour           `json:"tour,omitempty"`
}

// Review отзыв об экскурсии
type Review struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	TourID    int64     `json:"tourId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}
