/*
Package api holds the HTTP contract of the audit registry: JSON wire types,
request authentication helpers and server configuration.

The subpackages implement both ends of the contract:

1. handlers - chi handlers mapping requests onto the registry service
2. clients - a Go client that signs requests with the owner's key

# Request authentication

Mutating requests are signed by the record owner. The client sends

	X-Registry-Timestamp: <unix seconds>
	X-Registry-Nonce:     <unique per request>
	X-Registry-Signer:    0x<owner address>
	X-Registry-Signature: 0x<65-byte secp256k1 signature>

where the signature covers

	keccak256("audit-registry request" || METHOD || "\n" || PATH || "\n" ||
	    TIMESTAMP || "\n" || NONCE || "\n" || SIGNER || BODY)

The server recovers the signing address and accepts the request only if it
equals the claimed signer, which then becomes the caller identity. Requests
whose timestamp is more than MaxClockSkew away from the server clock are
rejected, as are nonces the signer has already used.

# Endpoints

	POST /api/records                    create the signer's record
	PUT  /api/records/metadata           update the signer's record
	PUT  /api/records/{owner}/metadata   update owner's record (owner must sign)
	GET  /api/records/{owner}            read a record
	GET  /api/records/{owner}/address    derive a record address

Errors are returned as {"error": "<Kind>"}.
*/
package api
