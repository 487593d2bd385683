package domain

import "errors"

var (
	// ErrServiceNotFound возвращается когда заявка не найдена
	ErrServiceNotFound = errors.New("service not found")

	// ErrTrackingNotFound возвращается когда tracking-запись не найдена
	ErrTrackingNotFound = errors.New("tracking information not found")

	// ErrUnauthorized возвращается при отсутствии прав: вызывающий не
	// владелец заявки и не привязанный к ней техник
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidServiceType возвращается при неизвестной категории сервиса
	ErrInvalidServiceType = errors.New("invalid service type")

	// ErrInvalidCoordinates возвращается при невалидных координатах
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrMissingRequiredField возвращается при отсутствии обязательного поля
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidRating возвращается при оценке вне диапазона 1-5
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrServiceNotCompleted возвращается при попытке оценить
	// незавершенную заявку
	ErrServiceNotCompleted = errors.New("cannot rate a service that is not completed")
)

// ValidateCoordinates проверяет диапазоны широты и долготы
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
