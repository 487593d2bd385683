package domain

import (
	"time"

	constants "roadrescue/internal/shared/const"
)

// ServiceRequest — заявка клиента на дорожную помощь, от создания
// до завершения и оценки. Append-only история: записи не удаляются.
type ServiceRequest struct {
	ID                   string         `json:"id" db:"id"`
	UserID               *string        `json:"user_id,omitempty" db:"user_id"`
	Type                 string         `json:"type" db:"type"`
	Status               string         `json:"status" db:"status"`
	Latitude             *float64       `json:"latitude,omitempty" db:"latitude"`
	Longitude            *float64       `json:"longitude,omitempty" db:"longitude"`
	Address              string         `json:"address" db:"address"`
	ContactName          string         `json:"contact_name" db:"contact_name"`
	ContactPhone         string         `json:"contact_phone" db:"contact_phone"`
	VehicleDetails       VehicleDetails `json:"vehicle_details"`
	Description          string         `json:"description" db:"description"`
	AssignedTechnicianID *string        `json:"assigned_technician_id,omitempty" db:"assigned_technician_id"`
	EstimatedArrival     *time.Time     `json:"estimated_arrival,omitempty" db:"estimated_arrival"`
	ActualArrival        *time.Time     `json:"actual_arrival,omitempty" db:"actual_arrival"`
	CompletionTime       *time.Time     `json:"completion_time,omitempty" db:"completion_time"`
	Cost                 float64        `json:"cost" db:"cost"`
	PaymentStatus        string         `json:"payment_status" db:"payment_status"`
	Rating               *int           `json:"rating,omitempty" db:"rating"`
	Feedback             string         `json:"feedback,omitempty" db:"feedback"`
	Priority             string         `json:"priority" db:"priority"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
}

// VehicleDetails — данные автомобиля клиента
type VehicleDetails struct {
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Year         string `json:"year,omitempty"`
	Color        string `json:"color,omitempty"`
	LicensePlate string `json:"licensePlate,omitempty"`
	FuelType     string `json:"fuelType,omitempty"`
}

// HasLocation сообщает, передал ли клиент координаты
func (s *ServiceRequest) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// PriorityFor: critical тогда и только тогда, когда тип emergency
func PriorityFor(serviceType string) string {
	if serviceType == constants.ServiceTypeEmergency {
		return constants.PriorityCritical
	}
	return constants.PriorityNormal
}

// KnownServiceType проверяет, входит ли тип в известный словарь
func KnownServiceType(t string) bool {
	switch t {
	case constants.ServiceTypeBattery,
		constants.ServiceTypeFuel,
		constants.ServiceTypeMechanical,
		constants.ServiceTypeTowing,
		constants.ServiceTypeTire,
		constants.ServiceTypeLockout,
		constants.ServiceTypeMobileRepair,
		constants.ServiceTypeAccidentRecovery,
		constants.ServiceTypeEmergency:
		return true
	}
	return false
}

// KnownServiceStatus проверяет статус против закрытого словаря.
// Используется только для предупреждений: API принимает и сохраняет
// произвольные строки статуса для совместимости с наблюдаемым
// поведением клиентов.
func KnownServiceStatus(s string) bool {
	switch s {
	case constants.ServiceStatusPending,
		constants.ServiceStatusAssigned,
		constants.ServiceStatusInProgress,
		constants.ServiceStatusCompleted,
		constants.ServiceStatusCancelled:
		return true
	}
	return false
}
