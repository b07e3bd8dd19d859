// Package clients provides a Go client for the registry HTTP API.
//
// RegistryClient signs every mutating request with the owner's secp256k1
// key, so the server attributes the request to the key's Ethereum address.
// Registry errors come back as *RequestError values that match the
// interfaces sentinels with errors.Is:
//
//	client := clients.NewRegistryClient("http://127.0.0.1:8080", key)
//	if _, err := client.CreateRecord(1); errors.Is(err, interfaces.ErrAlreadyExists) {
//	    // record exists already
//	}
package clients
