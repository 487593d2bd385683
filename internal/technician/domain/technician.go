package domain

import "time"

// Technician — мобильный техник; может быть привязан максимум к одной
// активной заявке (Status == busy ⟺ CurrentServiceID != nil).
type Technician struct {
	ID               string     `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Email            string     `json:"email" db:"email"`
	Phone            string     `json:"phone" db:"phone"`
	Latitude         float64    `json:"latitude" db:"latitude"`
	Longitude        float64    `json:"longitude" db:"longitude"`
	Status           string     `json:"status" db:"status"`
	CurrentServiceID *string    `json:"current_service_id,omitempty" db:"current_service_id"`
	Rating           float64    `json:"rating" db:"rating"`
	TotalServices    int        `json:"total_services" db:"total_services"`
	Specialties      []string   `json:"specialties" db:"specialties"`
	Vehicle          string     `json:"vehicle" db:"vehicle"`
	LicensePlate     string     `json:"license_plate" db:"license_plate"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// HasSpecialty проверяет, заявлена ли у техника категория
func (t *Technician) HasSpecialty(specialty string) bool {
	for _, s := range t.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}
