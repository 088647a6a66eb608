package graphql

import (
	"context"
	"fmt"
	"mime/multipart"
)

// Upload is the value of an Upload argument. In a multipart request the
// operations JSON carries the key of the file part in its place; the file
// itself travels in the request context.
type Upload struct {
	key string
}

func (Upload) ImplementsGraphQLType(name string) bool { return name == "Upload" }

func (u *Upload) UnmarshalGraphQL(input interface{}) error {
	key, ok := input.(string)
	if !ok {
		return fmt.Errorf("Upload must be sent as a multipart file part, got %T", input)
	}
	u.key = key
	return nil
}

type uploadsKey struct{}

func contextWithUploads(ctx context.Context, files map[string]*multipart.FileHeader) context.Context {
	return context.WithValue(ctx, uploadsKey{}, files)
}

func uploadFrom(ctx context.Context, u *Upload) (*multipart.FileHeader, bool) {
	files, _ := ctx.Value(uploadsKey{}).(map[string]*multipart.FileHeader)
	fh, ok := files[u.key]
	return fh, ok
}
