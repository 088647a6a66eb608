// Package graphql exposes the catalog over a GraphQL endpoint, mirroring the
// REST surface: the same services, validation and error classes.
package graphql

import (
	_ "embed"

	"bookcatalog/internal/auth"
	"bookcatalog/internal/book"

	graphqlgo "github.com/graph-gophers/graphql-go"
)

//go:embed schema.graphql
var schemaSDL string

// Options tunes the resolvers.
type Options struct {
	// RequireAuthForWrites rejects book mutations from anonymous callers.
	RequireAuthForWrites bool
}

// NewSchema parses the embedded schema and binds it to the services.
func NewSchema(books *book.Service, authn *auth.Service, opts Options) (*graphqlgo.Schema, error) {
	root := &Resolver{books: books, auth: authn, opts: opts}
	return graphqlgo.ParseSchema(schemaSDL, root,
		graphqlgo.MaxDepth(8),
		graphqlgo.UseStringDescriptions(),
	)
}
