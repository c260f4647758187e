package types

import (
	"fmt"
	"strings"
	"time"
)

// User is the stored identity of an account holder.
// PasswordHash is the opaque verifier produced by the store and is never serialized.
type User struct {
	ID           string    `json:"id"`
	UserName     string    `json:"username"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles,omitempty"`
	Claims       []Claim   `json:"claims,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Claim is a single (type, value) attribute asserted about a user.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// NewClaim is a small convenience constructor used when assembling claim lists.
func NewClaim(claimType, value string) Claim {
	return Claim{Type: claimType, Value: value}
}

// Credentials is the username/password pair presented at login.
// It only lives for the duration of a verification call.
type Credentials struct {
	UserName string
	Password string
}

// String redacts the password so credentials can never end up in a log line.
func (c Credentials) String() string {
	return fmt.Sprintf("{UserName:%s Password:[REDACTED]}", c.UserName)
}

// GoString redacts the password for %#v as well.
func (c Credentials) GoString() string {
	return fmt.Sprintf("types.Credentials{UserName:%q, Password:\"[REDACTED]\"}", c.UserName)
}

// FieldError describes one failed rule during user creation.
type FieldError struct {
	Field       string `json:"field"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ValidationError is the structured failure returned by the store when a user
// cannot be created. The list is surfaced to clients as-is.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	codes := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		codes = append(codes, fe.Code)
	}
	return "validation failed: " + strings.Join(codes, ", ")
}

// Has reports whether the list contains a failure with the given code.
func (e *ValidationError) Has(code string) bool {
	for _, fe := range e.Errors {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// Error codes reported by the store on creation.
const (
	CodeDuplicateUserName               = "DuplicateUserName"
	CodeInvalidUserName                 = "InvalidUserName"
	CodeInvalidEmail                    = "InvalidEmail"
	CodeInvalidPhoneNumber              = "InvalidPhoneNumber"
	CodePasswordTooShort                = "PasswordTooShort"
	CodePasswordTooLong                 = "PasswordTooLong"
	CodePasswordRequiresNonAlphanumeric = "PasswordRequiresNonAlphanumeric"
	CodePasswordRequiresDigit           = "PasswordRequiresDigit"
	CodePasswordRequiresLower           = "PasswordRequiresLower"
	CodePasswordRequiresUpper           = "PasswordRequiresUpper"
)
