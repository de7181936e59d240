// Package models defines the client's domain entities (Chat, Message,
// Loan), the loose wire/row shapes they are mapped from, and validation of
// user-supplied loan input.
//
// Every *FromDTO function documents the precedence order it applies to
// fields that arrive under more than one name.
package models
