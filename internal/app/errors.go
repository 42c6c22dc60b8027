package app

import "fmt"

// DomainError is a failure the API reports deliberately: Status becomes
// the HTTP status, Code is the stable machine-readable identifier
// clients switch on (EMAIL_TAKEN, INVALID_ENTRY, ENTRY_PURGED, ...) and
// Message is safe to show to the user. Anything else surfacing from the
// service layer maps to a generic 500 in mapError.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}
