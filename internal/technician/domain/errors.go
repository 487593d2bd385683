package domain

import "errors"

var (
	// ErrTechnicianNotFound возвращается когда техник не найден
	ErrTechnicianNotFound = errors.New("technician not found")

	// ErrTechnicianHasActiveService возвращается при попытке удалить
	// техника с непустым current_service_id
	ErrTechnicianHasActiveService = errors.New("technician has an active service")

	// ErrTechnicianNotAvailable возвращается условным бронированием,
	// когда техник уже занят
	ErrTechnicianNotAvailable = errors.New("technician is not available")

	// ErrInvalidCoordinates возвращается при невалидных координатах
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// ValidateCoordinates проверяет диапазоны широты и долготы
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
