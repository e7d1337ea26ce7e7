package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации и бизнес-правил
	ErrValidationFailed     = errors.New("validation failed")
	ErrPasswordTooShort     = errors.New("password is too short")
	ErrMatchTitleRequired   = errors.New("match title is required")
	ErrMatchInvalidCapacity = errors.New("match max players must be positive")
	ErrMatchInvalidTime     = errors.New("match start time must be before end time")
	ErrCityRequired         = errors.New("city is required")
	ErrPushTokenRequired    = errors.New("push token is required")

	// Ошибки состояния матча
	ErrMatchInPast        = errors.New("match date is in the past")
	ErrMatchInvalidStatus = errors.New("operation not valid for current match status")
	ErrMatchFull          = errors.New("match roster is full")

	// Ошибки конфликтов
	ErrMatchJoinConflict    = errors.New("user is already in this match")
	ErrSubscriptionConflict = errors.New("user is already subscribed to this city")
	ErrAuthEmailTaken       = errors.New("email is already taken")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound         = errors.New("user not found")
	ErrFieldNotFound        = errors.New("field not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrSubscriptionNotFound = errors.New("region subscription not found")

	// Прочее
	ErrUnsupportedImageType = errors.New("unsupported image content type")
)
