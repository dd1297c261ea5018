// Package auth renders the entry views: login, registration and inline
// form errors.
package auth

// ErrorTarget is the element inline form errors are swapped into.
const ErrorTarget = "form-error"
