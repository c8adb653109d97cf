/*
Package errs provides custom error types and application-level error code constants.

This file maps error codes to their CustomError templates.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// Reason is the short label used for metrics.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest, Reason: "invalid_params"},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests, Reason: "rate_limited"},
	ErrOriginNotAllowed:  {Code: ErrOriginNotAllowed, Message: "Origin not allowed.", Status: http.StatusForbidden, Reason: "origin_not_allowed"},

	// 4xxx: Relay Message Errors
	ErrMalformedMessage:   {Code: ErrMalformedMessage, Message: "Message is not valid UTF-8 JSON.", Reason: "malformed"},
	ErrInvalidPayload:     {Code: ErrInvalidPayload, Message: "Message payload is missing or has the wrong shape: %s", Reason: "invalid_payload"},
	ErrUnresolvedIdentity: {Code: ErrUnresolvedIdentity, Message: "Connection has no resolved identity.", Reason: "unresolved_identity"},
	ErrUnhandledType:      {Code: ErrUnhandledType, Message: "Unhandled message type %q.", Reason: "unhandled_type"},

	// 5xxx: Internal System Errors
	ErrUnknown:          {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError, Reason: "unknown"},
	ErrRelayUnavailable: {Code: ErrRelayUnavailable, Message: "Relay is not available.", Status: http.StatusServiceUnavailable, Reason: "relay_unavailable"},
}
