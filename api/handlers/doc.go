/*
Package handlers maps the record HTTP API onto an interfaces.RecordRegistry.

Read endpoints are public. Mutating endpoints go through Authenticate, which
recovers the caller identity from the request signature and drops replayed
nonces; the registry then
decides whether that caller may act on the addressed record.

Registry errors are reported by kind:

	InvalidVersion          400
	UriTooLong              400
	InvalidOwner            400
	InvalidRequest          400
	Unauthenticated         401
	Unauthorized            403
	NotFound                404
	AlreadyExists           409
	AddressBindingInvalid   500
	BackendUnavailable      503
*/
package handlers
