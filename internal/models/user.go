package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system. Birth fields are optional until the
// user completes their profile; coordinates and timezone are resolved from
// the birth city at profile-save time.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  *string   `json:"display_name,omitempty"`
	Lang         Lang      `json:"lang"`
	BirthDate    *string   `json:"birth_date,omitempty"`
	BirthTime    *string   `json:"birth_time,omitempty"`
	BirthCity    *string   `json:"birth_city,omitempty"`
	BirthLat     *float64  `json:"birth_lat,omitempty"`
	BirthLon     *float64  `json:"birth_lon,omitempty"`
	BirthTZ      *string   `json:"birth_tz,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasBirthData reports whether the user profile is complete enough to compute
// a chart.
func (u *User) HasBirthData() bool {
	return u.BirthDate != nil && u.BirthLat != nil && u.BirthLon != nil && u.BirthTZ != nil
}

// Birth builds a BirthData from the stored profile. Callers must check
// HasBirthData first.
func (u *User) Birth() BirthData {
	b := BirthData{Date: *u.BirthDate, Lat: *u.BirthLat, Lon: *u.BirthLon, Timezone: *u.BirthTZ}
	if u.BirthTime != nil {
		b.Time = *u.BirthTime
	}
	if u.BirthCity != nil {
		b.City = *u.BirthCity
	}
	return b
}
