package validation

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/accountd/internal/server/models"
)

// Validator checks one proposed field value. A non-empty FieldError slice is
// a normal, expected outcome; the error return is reserved for collaborator
// failures and is propagated unchanged.
type Validator interface {
	Validate(ctx context.Context, value any) ([]FieldError, error)
}

// TakenFunc reports whether a value is already used by some account record.
// It is how validators reach the repository for uniqueness checks.
type TakenFunc func(ctx context.Context, value string) (bool, error)

// falsy mirrors the loose "value was not provided" notion used by the
// request decoding layer: nil, empty string, false and numeric zero all
// count as missing.
func falsy(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case bool:
		return !value
	case float64:
		return value == 0
	case int:
		return value == 0
	default:
		return false
	}
}

func one(title, detail, property string) []FieldError {
	return []FieldError{{Title: title, Detail: detail, PropertyName: property, Status: 400}}
}

// UsernameValidator enforces the username syntax rules and, when they pass,
// checks uniqueness through the repository.
type UsernameValidator struct {
	Taken TakenFunc
}

const usernameBannedChars = "<>&'\"\\/-`"

func (v *UsernameValidator) Validate(ctx context.Context, value any) ([]FieldError, error) {
	const title = "Username not valid"

	if falsy(value) {
		return one(title, "Username was not provided.", "username"), nil
	}
	username, ok := value.(string)
	if !ok {
		return one(title, "Username has to be a string.", "username"), nil
	}
	if utf8.RuneCountInString(username) < 2 {
		return one(title, "Username has to have at least two characters.", "username"), nil
	}
	if utf8.RuneCountInString(username) > 20 {
		return one(title, "Username can have up to 20 characters.", "username"), nil
	}
	if strings.TrimSpace(username) != username {
		return one(title, "Whitespace was found at the start or at the end of the username.", "username"), nil
	}
	if strings.Contains(username, "  ") {
		return one(title, "Double whitespace is not allowed in the username.", "username"), nil
	}
	if strings.ContainsAny(username, usernameBannedChars) || !isASCII(username) {
		return one(title, "A non-valid character (<>&'\"\\/- or a non ASCII) was found in your username.", "username"), nil
	}

	// Syntax is fine, check that the username is not already taken.
	taken, err := v.Taken(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return one(title, "This username is already taken.", "username"), nil
	}
	return nil, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// EmailValidator enforces email syntax and uniqueness.
type EmailValidator struct {
	Taken TakenFunc
}

func (v *EmailValidator) Validate(ctx context.Context, value any) ([]FieldError, error) {
	const title = "Email not valid"

	if falsy(value) {
		return one(title, "Email was not provided.", "email"), nil
	}
	email, ok := value.(string)
	if !ok {
		return one(title, "Email has to be a string.", "email"), nil
	}
	if !isEmail(email) {
		return one(title, "A non-valid email was provided.", "email"), nil
	}

	taken, err := v.Taken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return one(title, "This email is already taken.", "email"), nil
	}
	return nil, nil
}

// isEmail accepts a bare addr-spec ("user@host"); display names, comments
// and whitespace are rejected.
func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s, "@")
}

// PasswordValidator enforces the minimum password policy. Uniqueness does not
// apply; hashing happens in the orchestrator after validation.
type PasswordValidator struct{}

func (v *PasswordValidator) Validate(ctx context.Context, value any) ([]FieldError, error) {
	const title = "Password not valid"

	if falsy(value) {
		return one(title, "Password was not provided.", "password"), nil
	}
	password, ok := value.(string)
	if !ok {
		return one(title, "Password has to be a string.", "password"), nil
	}
	if utf8.RuneCountInString(password) < 8 {
		return one(title, "Password has to be at least 8 characters long.", "password"), nil
	}
	return nil, nil
}

// RoleValidator accepts only the closed set of known roles.
type RoleValidator struct{}

func (v *RoleValidator) Validate(ctx context.Context, value any) ([]FieldError, error) {
	const title = "Role not valid"

	role, ok := value.(string)
	if !ok {
		return one(title, "Role has to be a string.", "role"), nil
	}
	if !models.Role(role).IsKnown() {
		return one(title, "Role provided is not on a list of known roles.", "role"), nil
	}
	return nil, nil
}

// SignatureValidator bounds the free-text signature. An empty signature is
// valid; clearing it is a legitimate patch.
type SignatureValidator struct{}

func (v *SignatureValidator) Validate(ctx context.Context, value any) ([]FieldError, error) {
	const title = "Signature not valid"

	signature, ok := value.(string)
	if !ok {
		return one(title, "Signature has to be a string.", "signature"), nil
	}
	if utf8.RuneCountInString(signature) > 30 {
		return one(title, "Signature can have up to 30 characters.", "signature"), nil
	}
	if strings.TrimSpace(signature) != signature {
		return one(title, "Whitespace was found at the start or at the end of the signature.", "signature"), nil
	}
	return nil, nil
}
