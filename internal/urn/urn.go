// Package urn parses and formats OSS storage-object identifiers of the form
// urn:adsk.objects:os.object:<bucketKey>/<objectKey>.
package urn

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Prefix is the fixed scheme portion of every storage-object URN.
const Prefix = "urn:adsk.objects:os.object:"

// ErrInvalidIdentifier is returned when an id is not a storage-object URN.
var ErrInvalidIdentifier = errors.New("urn: invalid storage object identifier")

// ObjectID is a decoded storage-object URN. ObjectKey is held unescaped; it
// may contain "/" separators.
type ObjectID struct {
	BucketKey string
	ObjectKey string
}

// Parse decodes a storage-object URN. Percent-escapes in the object key are
// decoded, so "bucketA/obj%2Fpath" and "bucketA/obj/path" yield the same key.
func Parse(id string) (ObjectID, error) {
	rest, ok := strings.CutPrefix(id, Prefix)
	if !ok {
		return ObjectID{}, fmt.Errorf("%w: %q: missing %q prefix", ErrInvalidIdentifier, id, Prefix)
	}

	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return ObjectID{}, fmt.Errorf("%w: %q: expected <bucket>/<object>", ErrInvalidIdentifier, id)
	}

	key, err := url.PathUnescape(object)
	if err != nil {
		return ObjectID{}, fmt.Errorf("%w: %q: %w", ErrInvalidIdentifier, id, err)
	}

	return ObjectID{BucketKey: bucket, ObjectKey: key}, nil
}

// String formats the id back into URN form with the object key unescaped,
// matching what the metadata service returns.
func (o ObjectID) String() string {
	return Prefix + o.BucketKey + "/" + o.ObjectKey
}

// EscapedBucketKey returns the bucket key encoded for a URL path segment.
func (o ObjectID) EscapedBucketKey() string {
	return url.PathEscape(o.BucketKey)
}

// EscapedObjectKey returns the object key encoded as a single URL path
// segment. Embedded "/" separators become %2F.
func (o ObjectID) EscapedObjectKey() string {
	return url.PathEscape(o.ObjectKey)
}
