// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, the service layer, and storage can all import types without
// depending on each other.
package types

// Student represents a student record in our system.
//
// Struct tags serve two purposes:
//
//  1. json:"...": controls how the field appears when encoded to JSON
//     (camelCase names match the public REST contract).
//
//  2. validate:"...": rules checked by the go-playground/validator
//     package. "required" means the field must be non-empty.
//
// ID is assigned by the database. Any id sent by a client is ignored on
// create and replaced by the path id on update.
type Student struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
	Email     string `json:"email"     validate:"required"`
}
