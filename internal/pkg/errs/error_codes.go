/*
Package errs provides custom error types and application-level error code constants.

Codes identify both HTTP-level failures and the reasons an inbound relay
message is dropped. Relay drops are never reported to the remote client; the
codes are used for logs and metrics only.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrOriginNotAllowed indicates that the WebSocket Origin header is not on the allow list.
	ErrOriginNotAllowed = 1008
)

// 4xxx: Relay Message Errors
const (
	// ErrMalformedMessage indicates that an inbound frame was not valid JSON.
	ErrMalformedMessage = 4001

	// ErrInvalidPayload indicates a missing required field or a field of the wrong shape.
	ErrInvalidPayload = 4002

	// ErrUnresolvedIdentity indicates an operation from a connection with no bound user,
	// or on a user that no longer has a registry record.
	ErrUnresolvedIdentity = 4003

	// ErrUnhandledType indicates an inbound message type the router does not know.
	ErrUnhandledType = 4004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrRelayUnavailable indicates the relay event loop is stopped or did not answer in time.
	ErrRelayUnavailable = 5001
)
