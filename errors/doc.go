// Package errors provides the structured error type used by streamkit for
// construction and configuration failures.
//
// Stream stages never wrap the errors flowing through them; an AppError only
// appears when a stage is built with invalid arguments or a program is
// configured incorrectly.
package errors
