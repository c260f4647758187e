package user

import (
	"errors"
	"fmt"
	"regexp"
	"unicode"

	"github.com/Gkemhcs/kavach-auth/internal/types"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

const (
	minUserNameLength = 3
	maxUserNameLength = 64
	minPasswordLength = 6
)

var userNamePattern = regexp.MustCompile(`^[A-Za-z0-9._@+\-]+$`)

// Validator applies the account creation rules.
type Validator struct {
	region string
}

// NewValidator returns a Validator that parses national phone numbers in region.
func NewValidator(region string) *Validator {
	return &Validator{region: region}
}

// Validate checks u and password and returns every rule that failed, or nil.
// A valid phone number is rewritten to E.164 in place.
func (v *Validator) Validate(u *types.User, password string) *types.ValidationError {
	var failures []types.FieldError

	if err := validation.Validate(u.UserName,
		validation.Required,
		validation.Length(minUserNameLength, maxUserNameLength),
		validation.Match(userNamePattern),
	); err != nil {
		failures = append(failures, invalidUserName(u.UserName))
	}

	if err := validation.Validate(u.Email, validation.Required, is.Email); err != nil {
		failures = append(failures, types.FieldError{
			Field:       "email",
			Code:        types.CodeInvalidEmail,
			Description: fmt.Sprintf("Email '%s' is invalid.", u.Email),
		})
	}

	var e164 string
	if err := validation.Validate(u.PhoneNumber, validation.By(func(value interface{}) error {
		raw, _ := value.(string)
		if raw == "" {
			return nil
		}
		num, err := phonenumbers.Parse(raw, v.region)
		if err != nil {
			return err
		}
		if !phonenumbers.IsValidNumber(num) {
			return errors.New("not a valid number")
		}
		e164 = phonenumbers.Format(num, phonenumbers.E164)
		return nil
	})); err != nil {
		failures = append(failures, types.FieldError{
			Field:       "phone_number",
			Code:        types.CodeInvalidPhoneNumber,
			Description: fmt.Sprintf("Phone number '%s' is invalid.", u.PhoneNumber),
		})
	} else if e164 != "" {
		u.PhoneNumber = e164
	}

	failures = append(failures, passwordFailures(password)...)

	if len(failures) == 0 {
		return nil
	}
	return &types.ValidationError{Errors: failures}
}

func passwordFailures(password string) []types.FieldError {
	var out []types.FieldError
	var hasDigit, hasLower, hasUpper, hasSymbol bool

	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
	}

	add := func(code, description string) {
		out = append(out, types.FieldError{Field: "password", Code: code, Description: description})
	}

	if len([]rune(password)) < minPasswordLength {
		add(types.CodePasswordTooShort, fmt.Sprintf("Passwords must be at least %d characters.", minPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		add(types.CodePasswordTooLong, fmt.Sprintf("Passwords must be at most %d bytes.", MaxPasswordBytes))
	}
	if !hasSymbol {
		add(types.CodePasswordRequiresNonAlphanumeric, "Passwords must have at least one non alphanumeric character.")
	}
	if !hasDigit {
		add(types.CodePasswordRequiresDigit, "Passwords must have at least one digit ('0'-'9').")
	}
	if !hasLower {
		add(types.CodePasswordRequiresLower, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if !hasUpper {
		add(types.CodePasswordRequiresUpper, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	return out
}

func invalidUserName(name string) types.FieldError {
	return types.FieldError{
		Field: "username",
		Code:  types.CodeInvalidUserName,
		Description: fmt.Sprintf("Username '%s' is invalid, it must be %d to %d letters, digits or ._@+- characters.",
			name, minUserNameLength, maxUserNameLength),
	}
}

func duplicateUserName(name string) types.FieldError {
	return types.FieldError{
		Field:       "username",
		Code:        types.CodeDuplicateUserName,
		Description: fmt.Sprintf("Username '%s' is already taken.", name),
	}
}
