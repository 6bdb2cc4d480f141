// Package service implements the account lifecycle: registration,
// activation, login, token refresh and the password flows.  This file
// defines the sentinel errors the service raises.  Handlers translate them
// into stable HTTP status codes; everything else propagates as a generic
// internal error.
package service

import "errors"

var (
	// ErrUserExists is returned when registering an email that is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned on login when the user is unknown or
	// the password does not verify.  The two cases are deliberately
	// indistinguishable so the endpoint leaks nothing about account existence.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotActive is returned on login with correct credentials for an
	// account that has not been activated yet.
	ErrUserNotActive = errors.New("user account is not active")

	// ErrInvalidToken covers a missing, malformed or wrong-owner token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for a token that exists but is past expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenNotFound is returned on refresh when the signed token verifies
	// cryptographically but its allow-list row has been revoked.
	ErrTokenNotFound = errors.New("token not found")

	// ErrSamePassword is returned when a password change supplies the old
	// password as the new one.
	ErrSamePassword = errors.New("new password must be different")

	// ErrConfiguration signals missing seed data (the default USER group).
	// Fatal misconfiguration, not a user error.
	ErrConfiguration = errors.New("default user group not found")
)
