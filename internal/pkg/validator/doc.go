// Package validator validates request structs with go-playground/validator.
//
// Failures come back as V10ValidationError, a snake_case field to message
// map that the router renders under the "error" key.
package validator
