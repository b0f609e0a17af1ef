package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Service codes (AA)
const (
	// ServiceCommon is for common/base errors shared by all modules.
	ServiceCommon = 0

	// ServiceSecurity is for the security engine (sessions, authz, audit).
	ServiceSecurity = 2

	// ServiceInfraDB is for database infrastructure.
	ServiceInfraDB = 10

	// ServiceInfraCache is for cache infrastructure.
	ServiceInfraCache = 11
)

// Category codes (BB)
const (
	// CategoryRequest is for request/validation errors (400).
	CategoryRequest = 1

	// CategoryAuthentication is for authentication errors (401).
	CategoryAuthentication = 2

	// CategoryAuthorization is for authorization errors (403).
	CategoryAuthorization = 3

	// CategoryResource is for resource not found errors (404).
	CategoryResource = 4

	// CategoryInternal is for internal errors (500).
	CategoryInternal = 7

	// CategoryDatabase is for database errors (500).
	CategoryDatabase = 8

	// CategoryConfig is for configuration errors (500).
	CategoryConfig = 12
)

// Common errors.
var (
	// ErrInvalidParam indicates a required argument is missing or malformed.
	ErrInvalidParam = New(MakeCode(ServiceCommon, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument, "Invalid parameter")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = New(MakeCode(ServiceCommon, CategoryResource, 1),
		http.StatusNotFound, codes.NotFound, "Resource not found")

	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = New(MakeCode(ServiceCommon, CategoryInternal, 1),
		http.StatusInternalServerError, codes.Internal, "Internal error")

	// ErrDatabase indicates a durable-store failure.
	ErrDatabase = New(MakeCode(ServiceInfraDB, CategoryDatabase, 1),
		http.StatusInternalServerError, codes.Internal, "Database error")

	// ErrInvalidConfig indicates an unusable configuration value.
	ErrInvalidConfig = New(MakeCode(ServiceCommon, CategoryConfig, 1),
		http.StatusInternalServerError, codes.FailedPrecondition, "Invalid configuration")
)

// Security errors.
var (
	// ErrUnauthorized indicates missing or failed authentication.
	ErrUnauthorized = New(MakeCode(ServiceSecurity, CategoryAuthentication, 1),
		http.StatusUnauthorized, codes.Unauthenticated, "Unauthorized")

	// ErrInvalidCredentials indicates a credential mismatch.
	ErrInvalidCredentials = New(MakeCode(ServiceSecurity, CategoryAuthentication, 2),
		http.StatusUnauthorized, codes.Unauthenticated, "Invalid credentials")

	// ErrAccountLocked indicates the account is temporarily locked.
	ErrAccountLocked = New(MakeCode(ServiceSecurity, CategoryAuthentication, 3),
		http.StatusUnauthorized, codes.PermissionDenied, "Account is temporarily locked")

	// ErrInvalidToken indicates a malformed, forged or unusable token.
	ErrInvalidToken = New(MakeCode(ServiceSecurity, CategoryAuthentication, 4),
		http.StatusUnauthorized, codes.Unauthenticated, "Invalid token")

	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = New(MakeCode(ServiceSecurity, CategoryAuthentication, 5),
		http.StatusUnauthorized, codes.Unauthenticated, "Token expired")

	// ErrTokenRevoked indicates the token was explicitly revoked.
	ErrTokenRevoked = New(MakeCode(ServiceSecurity, CategoryAuthentication, 6),
		http.StatusUnauthorized, codes.Unauthenticated, "Token revoked")

	// ErrSessionExpired indicates the session or refresh window lapsed.
	ErrSessionExpired = New(MakeCode(ServiceSecurity, CategoryAuthentication, 7),
		http.StatusUnauthorized, codes.Unauthenticated, "Session expired")

	// ErrForbidden indicates the subject is authenticated but not allowed.
	ErrForbidden = New(MakeCode(ServiceSecurity, CategoryAuthorization, 1),
		http.StatusForbidden, codes.PermissionDenied, "Access denied")

	// ErrUserNotFound indicates the subject does not exist in the store.
	ErrUserNotFound = New(MakeCode(ServiceSecurity, CategoryResource, 1),
		http.StatusNotFound, codes.NotFound, "User not found")

	// ErrNotImplemented indicates the operation needs an optional collaborator.
	ErrNotImplemented = New(MakeCode(ServiceCommon, CategoryInternal, 2),
		http.StatusNotImplemented, codes.Unimplemented, "Not implemented")
)
