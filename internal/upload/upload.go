// Package upload abstracts image hosting: bytes in, publicly fetchable URL
// out. The URL is stored verbatim on whatever entity references the image;
// nothing else about the host leaks into the data model.
package upload

import (
	"context"
	"io"
)

type Uploader interface {
	// Upload stores the image bytes and returns a public URL for them.
	Upload(ctx context.Context, r io.Reader, contentType string) (string, error)
}
