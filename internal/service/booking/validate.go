package booking

import "fmt"

const maxUserIDLen = 255

const (
	msgEventIDRequired = "event_id is required"
	msgEventIDPositive = "event_id must be a positive integer"
	msgUserIDRequired  = "user_id is required"
)

var msgUserIDTooLong = fmt.Sprintf("user_id must be at most %d characters", maxUserIDLen)

// validate checks the request without touching storage.  userID must
// already be trimmed.
func (s *Service) validate(eventID int64, userID string) *Rejected {
	if eventID == 0 {
		return invalid("event_id", msgEventIDRequired)
	}
	if err := s.validator.Var(eventID, "gt=0"); err != nil {
		return invalid("event_id", msgEventIDPositive)
	}
	if userID == "" {
		return invalid("user_id", msgUserIDRequired)
	}
	if err := s.validator.Var(userID, fmt.Sprintf("max=%d", maxUserIDLen)); err != nil {
		return invalid("user_id", msgUserIDTooLong)
	}
	return nil
}

func invalid(field, msg string) *Rejected {
	return &Rejected{Reason: ValidationFailed, Message: msg, Details: map[string]any{"field": field}}
}
