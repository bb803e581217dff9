package blob

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrBucketNotFound marks a list/put/delete against a bucket that does
	// not exist. The syncer treats this as fatal before any transfer starts.
	ErrBucketNotFound = errors.New("bucket not found")

	ErrInvalidKey = errors.New("invalid key")
)

type Client interface {
	ListObjects(ctx context.Context) ([]*ObjectInfo, error)
	PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error)
	DeleteObject(ctx context.Context, key string) (bool, error)
}

type ObjectInfo struct {
	Key          string `json:"key"`
	ETag         string `json:"etag"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}

type PutObjectParams struct {
	Key      string
	Size     int64
	Body     io.Reader
	Metadata Metadata
}

type PutObjectResponse struct {
	Key          string
	ETag         string
	Size         int64
	LastModified time.Time
}

// Metadata carries the object headers resolved for an upload. Zero values
// mean "unset"; the backend omits them from the request.
type Metadata struct {
	ContentType     string
	ContentEncoding string
	CacheControl    string
	Expires         *time.Time
	// ReducedRedundancy selects the cheaper AWS storage class. Backends
	// without storage tiers ignore it.
	ReducedRedundancy bool
	// Extra holds custom headers without a first-class S3 field; they are
	// stored as user metadata on the object.
	Extra map[string]string
}

// MetadataFromHeaders splits a resolved header map into the backend metadata
// struct. Well-known headers map to their dedicated fields, everything else
// lands in Extra.
func MetadataFromHeaders(headers map[string]string, reducedRedundancy bool) Metadata {
	md := Metadata{ReducedRedundancy: reducedRedundancy}
	for name, value := range headers {
		switch strings.ToLower(name) {
		case "content-type":
			md.ContentType = value
		case "content-encoding":
			md.ContentEncoding = value
		case "cache-control":
			md.CacheControl = value
		case "expires":
			if t, err := http.ParseTime(value); err == nil {
				md.Expires = &t
			}
		default:
			if md.Extra == nil {
				md.Extra = make(map[string]string)
			}
			md.Extra[name] = value
		}
	}
	return md
}
