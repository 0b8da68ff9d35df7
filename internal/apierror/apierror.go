// Package apierror provides standardized error response structures for the API.
// Every error returned to clients goes through this package so internal details
// (stack traces, SQL errors) never leak.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps per-field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

// CreditLimitError tells the cashier by how much a credit sale overshoots the
// customer's limit so a supervisor can decide whether to override.
type CreditLimitError struct {
	Detail              string `json:"detail"`
	CreditLimitExceeded bool   `json:"credit_limit_exceeded"`
	CreditLimit         string `json:"credit_limit"`
	CurrentDebt         string `json:"current_debt"`
	WouldBeDebt         string `json:"would_be_debt"`
	Excess              string `json:"excess"`
}
