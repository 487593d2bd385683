package constants

// Статусы заявки на обслуживание
const (
	ServiceStatusPending    = "pending"
	ServiceStatusAssigned   = "assigned"
	ServiceStatusInProgress = "in_progress"
	ServiceStatusCompleted  = "completed"
	ServiceStatusCancelled  = "cancelled"
)

// Статусы tracking-записи (отдельный словарь: en_route/arrived
// существуют только здесь)
const (
	TrackingStatusAssigned   = "assigned"
	TrackingStatusEnRoute    = "en_route"
	TrackingStatusArrived    = "arrived"
	TrackingStatusInProgress = "in_progress"
	TrackingStatusCompleted  = "completed"
)

// Статусы техника
const (
	TechnicianAvailable = "available"
	TechnicianBusy      = "busy"
	TechnicianOffline   = "offline"
)

// Приоритеты заявки
const (
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Категории сервиса
const (
	ServiceTypeBattery          = "battery"
	ServiceTypeFuel             = "fuel"
	ServiceTypeMechanical       = "mechanical"
	ServiceTypeTowing           = "towing"
	ServiceTypeTire             = "tire"
	ServiceTypeLockout          = "lockout"
	ServiceTypeMobileRepair     = "mobile_repair"
	ServiceTypeAccidentRecovery = "accident_recovery"
	ServiceTypeEmergency        = "emergency"
)

// Радиусы поиска техников (метры)
const (
	EmergencySearchRadiusMeters = 100_000 // 100 км для emergency
	RegularSearchRadiusMeters   = 50_000  // 50 км для обычных заявок
)

// События движка (routing keys RabbitMQ)
const (
	EventServiceAssigned        = "service.assigned"
	EventServiceStatusChanged   = "service.status_changed"
	EventServiceLocationUpdated = "service.location_updated"
)

// Роли пользователей
const (
	RoleCustomer   = "customer"
	RoleTechnician = "technician"
)
