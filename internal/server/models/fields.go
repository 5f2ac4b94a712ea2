package models

// Canonical names of the mutable account fields, as they appear in request
// bodies and change sets. Field names outside this set are dropped by the
// patch pipeline.
const (
	FieldUsername       = "username"
	FieldEmail          = "email"
	FieldPassword       = "password"
	FieldRole           = "role"
	FieldSignature      = "signature"
	FieldColor          = "color"
	FieldEmailConfirmed = "emailConfirmed"
)
