// Package registry implements the record lifecycle: one record per owning
// identity, stored at an address derived from the owner, created once with a
// positive version and afterwards mutable only by its owner.
//
// Every precondition of an operation is checked before the store is written,
// so a rejected call leaves the stored record untouched. Operations on the
// same address are serialized by a per-address lock within the process.
//
// # Usage
//
//	store := storage.NewMemoryStore(log)
//	svc := registry.NewService(store, addressing.NewRecordDeriver(), log)
//
//	rec, err := svc.CreateRecord(ctx, owner, 1)
//	err = svc.UpdateRecord(ctx, owner, interfaces.MetadataInput{
//	    URI:      "ipfs://bafy...",
//	    Checksum: sum,
//	})
//
// Updates naming a foreign owner fail with interfaces.ErrUnauthorized.
package registry
