package graphql

import (
	"context"
	"io"
	"strings"

	"bookcatalog/internal/auth"
	"bookcatalog/internal/book"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/user"

	graphqlgo "github.com/graph-gophers/graphql-go"
)

// Resolver is the root of both Query and Mutation.
type Resolver struct {
	books *book.Service
	auth  *auth.Service
	opts  Options
}

type paginationInput struct {
	Page  *int32
	Limit *int32
}

type filterInput struct {
	Title  *string
	Author *string
	Genre  *string
}

func (r *Resolver) Books(ctx context.Context, args struct {
	Pagination *paginationInput
	Filter     *filterInput
}) (*paginatedResolver, error) {
	var p book.Pagination
	if args.Pagination != nil {
		p.Page = int(deref(args.Pagination.Page))
		p.Limit = int(deref(args.Pagination.Limit))
	}
	var f book.Filter
	if args.Filter != nil {
		f.Title = strings.TrimSpace(deref(args.Filter.Title))
		f.Author = strings.TrimSpace(deref(args.Filter.Author))
		f.Genre = strings.TrimSpace(deref(args.Filter.Genre))
	}

	page, err := r.books.FindAll(ctx, p, f)
	if err != nil {
		return nil, resolverError(ctx, "books", err)
	}
	return &paginatedResolver{page}, nil
}

func (r *Resolver) Book(ctx context.Context, args struct{ ID graphqlgo.ID }) (*bookResolver, error) {
	b, err := r.books.FindOne(ctx, string(args.ID))
	if err != nil {
		return nil, resolverError(ctx, "book", err)
	}
	return &bookResolver{b}, nil
}

func (r *Resolver) SearchBooks(ctx context.Context, args struct{ Query string }) ([]*bookResolver, error) {
	books, err := r.books.Search(ctx, strings.TrimSpace(args.Query))
	if err != nil {
		return nil, resolverError(ctx, "searchBooks", err)
	}
	return bookResolvers(books), nil
}

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		return nil, errUnauthenticated
	}
	u, err := r.auth.CurrentUser(ctx, userID)
	if err != nil {
		return nil, resolverError(ctx, "me", err)
	}
	return &userResolver{u}, nil
}

type signUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"notblank,max=100"`
}

type signInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *Resolver) SignUp(ctx context.Context, args struct{ Input signUpInput }) (*authPayloadResolver, error) {
	in := args.Input
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if details := httpx.ValidateStruct(in); len(details) > 0 {
		return nil, badInput(details)
	}

	res, err := r.auth.Register(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		return nil, resolverError(ctx, "signUp", err)
	}
	return &authPayloadResolver{res}, nil
}

func (r *Resolver) SignIn(ctx context.Context, args struct{ Input signInInput }) (*authPayloadResolver, error) {
	in := args.Input
	in.Email = strings.TrimSpace(in.Email)
	if details := httpx.ValidateStruct(in); len(details) > 0 {
		return nil, badInput(details)
	}

	res, err := r.auth.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, resolverError(ctx, "signIn", err)
	}
	return &authPayloadResolver{res}, nil
}

func (r *Resolver) Logout(ctx context.Context) *messageResolver {
	return &messageResolver{r.auth.Logout(ctx)}
}

type createBookInput struct {
	Title         string
	Author        string
	PublishedYear int32
	Genre         string
	Description   *string
	Isbn          *string
}

type updateBookInput struct {
	Title         *string
	Author        *string
	PublishedYear *int32
	Genre         *string
	Description   *string
	Isbn          *string
}

func (r *Resolver) CreateBook(ctx context.Context, args struct {
	Input createBookInput
	Image *Upload
}) (*bookResolver, error) {
	if err := r.authorizeWrite(ctx); err != nil {
		return nil, err
	}

	in := book.CreateInput{
		Title:         args.Input.Title,
		Author:        args.Input.Author,
		PublishedYear: int(args.Input.PublishedYear),
		Genre:         args.Input.Genre,
		Description:   args.Input.Description,
		ISBN:          args.Input.Isbn,
	}
	if details := httpx.ValidateStruct(in); len(details) > 0 {
		return nil, badInput(details)
	}

	img, closer, err := openUpload(ctx, args.Image)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	b, err := r.books.Create(ctx, in, img)
	if err != nil {
		return nil, resolverError(ctx, "createBook", err)
	}
	return &bookResolver{b}, nil
}

func (r *Resolver) UpdateBook(ctx context.Context, args struct {
	ID    graphqlgo.ID
	Input updateBookInput
	Image *Upload
}) (*bookResolver, error) {
	if err := r.authorizeWrite(ctx); err != nil {
		return nil, err
	}

	in := book.UpdateInput{
		Title:       args.Input.Title,
		Author:      args.Input.Author,
		Genre:       args.Input.Genre,
		Description: args.Input.Description,
		ISBN:        args.Input.Isbn,
	}
	if args.Input.PublishedYear != nil {
		year := int(*args.Input.PublishedYear)
		in.PublishedYear = &year
	}
	if details := httpx.ValidateStruct(in); len(details) > 0 {
		return nil, badInput(details)
	}

	img, closer, err := openUpload(ctx, args.Image)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	b, err := r.books.Update(ctx, string(args.ID), in, img)
	if err != nil {
		return nil, resolverError(ctx, "updateBook", err)
	}
	return &bookResolver{b}, nil
}

func (r *Resolver) DeleteBook(ctx context.Context, args struct{ ID graphqlgo.ID }) (*messageResolver, error) {
	if err := r.authorizeWrite(ctx); err != nil {
		return nil, err
	}
	if err := r.books.Remove(ctx, string(args.ID)); err != nil {
		return nil, resolverError(ctx, "deleteBook", err)
	}
	return &messageResolver{book.DeletedMessage}, nil
}

func (r *Resolver) authorizeWrite(ctx context.Context) error {
	if r.opts.RequireAuthForWrites && httpx.UserIDFromContext(ctx) == "" {
		return errUnauthenticated
	}
	return nil
}

// openUpload resolves an Upload argument to a cover image. A nil upload
// yields a nil image.
func openUpload(ctx context.Context, u *Upload) (*book.Image, io.Closer, error) {
	if u == nil {
		return nil, nil, nil
	}
	fh, ok := uploadFrom(ctx, u)
	if !ok {
		return nil, nil, badInput([]httpx.ErrorDetail{{Field: "image", Message: "image file part is missing"}})
	}
	img, closer, err := book.OpenImage(fh)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, badInput([]httpx.ErrorDetail{{Field: "image", Message: err.Error()}})
	}
	return img, closer, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

type bookResolver struct{ b book.Book }

func bookResolvers(books []book.Book) []*bookResolver {
	out := make([]*bookResolver, 0, len(books))
	for _, b := range books {
		out = append(out, &bookResolver{b})
	}
	return out
}

func (r *bookResolver) ID() graphqlgo.ID          { return graphqlgo.ID(r.b.ID) }
func (r *bookResolver) Title() string             { return r.b.Title }
func (r *bookResolver) Author() string            { return r.b.Author }
func (r *bookResolver) PublishedYear() int32      { return int32(r.b.PublishedYear) }
func (r *bookResolver) Genre() string             { return r.b.Genre }
func (r *bookResolver) Description() *string      { return r.b.Description }
func (r *bookResolver) Isbn() *string             { return r.b.ISBN }
func (r *bookResolver) ImageURL() *string         { return r.b.ImageURL }
func (r *bookResolver) CreatedAt() graphqlgo.Time { return graphqlgo.Time{Time: r.b.CreatedAt} }
func (r *bookResolver) UpdatedAt() graphqlgo.Time { return graphqlgo.Time{Time: r.b.UpdatedAt} }

type paginatedResolver struct{ p book.PaginatedBooks }

func (r *paginatedResolver) Books() []*bookResolver { return bookResolvers(r.p.Books) }
func (r *paginatedResolver) Total() int32           { return int32(r.p.Total) }
func (r *paginatedResolver) Page() int32            { return int32(r.p.Page) }
func (r *paginatedResolver) Limit() int32           { return int32(r.p.Limit) }
func (r *paginatedResolver) TotalPages() int32      { return int32(r.p.TotalPages) }
func (r *paginatedResolver) HasNextPage() bool      { return r.p.HasNextPage }
func (r *paginatedResolver) HasPreviousPage() bool  { return r.p.HasPreviousPage }

type userResolver struct{ u user.User }

func (r *userResolver) ID() graphqlgo.ID          { return graphqlgo.ID(r.u.ID) }
func (r *userResolver) Email() string             { return r.u.Email }
func (r *userResolver) Name() string              { return r.u.Name }
func (r *userResolver) CreatedAt() graphqlgo.Time { return graphqlgo.Time{Time: r.u.CreatedAt} }
func (r *userResolver) UpdatedAt() graphqlgo.Time { return graphqlgo.Time{Time: r.u.UpdatedAt} }

type authPayloadResolver struct{ res auth.Result }

func (r *authPayloadResolver) AccessToken() string { return r.res.Token }
func (r *authPayloadResolver) User() *userResolver  { return &userResolver{r.res.User} }

type messageResolver struct{ message string }

func (r *messageResolver) Message() string { return r.message }
