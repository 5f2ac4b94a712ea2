// Package validation implements per-field validators for account mutations.
// Each validator checks one proposed value and reports structured field
// errors; a validator call only returns a Go error when a collaborator
// (e.g. the uniqueness lookup) itself fails.
package validation

// FieldError describes a single user-correctable problem with a proposed
// field value. It travels back to the caller on the success channel, never
// as a transport failure.
type FieldError struct {
	Title        string `json:"title"`
	Detail       string `json:"detail"`
	PropertyName string `json:"propertyName,omitempty"`
	Status       int    `json:"status"`
}
