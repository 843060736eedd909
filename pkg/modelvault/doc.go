// Package modelvault keeps a user's uploaded 3D avatar models, the blob
// store holding their binary data, and the user profile's active-model
// pointer mutually consistent.
//
// Three independently-failable resources are involved: a BlobStore holding
// binary objects under per-user keys, a Catalog of asset records, and the
// profile row whose model URL designates the currently active asset. None
// of them provide transactions spanning the others, so the Service runs
// each workflow as a fixed sequence of calls and surfaces partial failures
// as named, recoverable states (see PartialError) instead of pretending
// atomicity.
//
// Basic usage:
//
//	svc, err := modelvault.New(
//	    modelvault.WithCatalog(memorycatalog.New()),
//	    modelvault.WithBlobStore(memorystorage.New()),
//	)
//	res, err := svc.UploadAndActivate(ctx, modelvault.UploadModelRequest{
//	    UserID:   userID,
//	    FileName: "avatar.vrm",
//	    Content:  file,
//	})
//
// Storage backends live under storage/ (memory, fs, s3) and catalog
// backends under catalog/ (memory, postgres).
package modelvault
