package domain

import "time"

// TrackingRecord — производная запись для клиентского отображения хода
// заявки. Всегда 1:1 с заявкой после первого назначения; источником
// истины по статусу заявки НЕ является.
type TrackingRecord struct {
	ID               string     `json:"id" db:"id"`
	ServiceID        string     `json:"service_id" db:"service_id"`
	TechnicianID     string     `json:"technician_id" db:"technician_id"`
	Status           string     `json:"status" db:"status"`
	Latitude         float64    `json:"latitude" db:"latitude"`
	Longitude        float64    `json:"longitude" db:"longitude"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty" db:"estimated_arrival"`
	ActualArrival    *time.Time `json:"actual_arrival,omitempty" db:"actual_arrival"`
	StartTime        *time.Time `json:"start_time,omitempty" db:"start_time"`
	CompletionTime   *time.Time `json:"completion_time,omitempty" db:"completion_time"`
	Notes            []Note     `json:"notes" db:"notes"`
	Distance         float64    `json:"distance" db:"distance"`
	Duration         float64    `json:"duration" db:"duration"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Note — элемент append-only списка заметок техника.
// Существующие заметки никогда не редактируются и не удаляются.
type Note struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
