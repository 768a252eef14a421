// Package upload publishes a file into a project folder. An upload runs as
// five sequential stages across the metadata and object-storage services:
//
//	Reserve   create a storage object in the folder's bucket
//	Grant     obtain a signed upload URL and upload key for it
//	Transfer  PUT the bytes to the signed URL (no bearer token)
//	Finalize  close the upload with the key from Grant
//	Publish   create the item and its first version in the folder
//
// Each upload is an Attempt whose State records the last stage that
// completed. The first failing stage aborts the attempt with a *FailedError;
// nothing is retried. A storage object reserved by an aborted attempt is an
// orphan, handed to the configured OrphanPolicy.
package upload
