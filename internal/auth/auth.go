// Package auth validates API keys presented to the web endpoints.
//
// It intentionally avoids policy decisions and storage concerns.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator validates an API key.
type Validator interface {
	Validate(key string) error
}

// StaticKey accepts a single shared key, compared in constant time.
// An empty configured key denies everything rather than opening the
// endpoints up.
type StaticKey struct {
	Key string
}

func (s StaticKey) Validate(key string) error {
	if s.Key == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Key), []byte(key)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(key string) error

func (f FuncValidator) Validate(key string) error {
	return f(key)
}
