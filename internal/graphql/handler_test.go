package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookcatalog/internal/auth"
	"bookcatalog/internal/book"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/testutil"
	"bookcatalog/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "graphql-test-secret"

type fakeImages struct {
	uploads map[string][]byte
	deleted []string
}

func (f *fakeImages) Upload(_ context.Context, key string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[key] = data
	return "https://img.example/books/" + key + ".png", nil
}

func (f *fakeImages) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type gqlResponse struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func (r gqlResponse) code() string {
	if len(r.Errors) == 0 {
		return ""
	}
	code, _ := r.Errors[0].Extensions["code"].(string)
	return code
}

func newTestServer(t *testing.T, images book.ImageStore) (http.Handler, *book.Service) {
	t.Helper()
	books := book.NewService(book.NewMemoryRepo(), images)
	users := user.NewService(user.NewMemoryRepo())
	schema, err := NewSchema(books, auth.NewService(testSecret, time.Hour, users), Options{RequireAuthForWrites: true})
	require.NoError(t, err)
	return httpx.Chain(&Handler{Schema: schema}, httpx.OptionalAuthMiddleware(testSecret)), books
}

func exec(t *testing.T, h http.Handler, r *http.Request) gqlResponse {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func post(t *testing.T, h http.Handler, token, query string, vars map[string]any) gqlResponse {
	t.Helper()
	r := testutil.NewRequestWithAuth(http.MethodPost, "/graphql", map[string]any{"query": query, "variables": vars}, token)
	return exec(t, h, r)
}

func TestBooksQuery_Pagination(t *testing.T) {
	h, books := newTestServer(t, nil)
	for i := 0; i < 12; i++ {
		_, err := books.Create(context.Background(), book.CreateInput{Title: "Paged", Author: "A", PublishedYear: 2000, Genre: "G"}, nil)
		require.NoError(t, err)
	}

	resp := post(t, h, "", `query($p: PaginationInput) {
		books(pagination: $p, filter: {title: "paged"}) {
			books { id title publishedYear imageUrl }
			total page limit totalPages hasNextPage hasPreviousPage
		}
	}`, map[string]any{"p": map[string]any{"page": 2, "limit": 5}})

	require.Empty(t, resp.Errors)
	page := resp.Data["books"].(map[string]any)
	assert.EqualValues(t, 12, page["total"])
	assert.EqualValues(t, 3, page["totalPages"])
	assert.Equal(t, true, page["hasNextPage"])
	assert.Equal(t, true, page["hasPreviousPage"])
	assert.Len(t, page["books"], 5)
}

func TestBookQuery_NotFound(t *testing.T) {
	h, _ := newTestServer(t, nil)

	resp := post(t, h, "", `{ book(id: "missing") { id } }`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeNotFound, resp.code())
	assert.Equal(t, "Book with ID missing not found", resp.Errors[0].Message)
}

func TestSearchBooks(t *testing.T) {
	h, books := newTestServer(t, nil)
	ctx := context.Background()
	for _, in := range []book.CreateInput{
		{Title: "Pride and Prejudice", Author: "Jane Austen", PublishedYear: 1813, Genre: "Classic Fiction"},
		{Title: "Dune", Author: "Frank Herbert", PublishedYear: 1965, Genre: "Science Fiction"},
	} {
		_, err := books.Create(ctx, in, nil)
		require.NoError(t, err)
	}

	resp := post(t, h, "", `{ searchBooks(query: "CLASSIC") { title } }`, nil)

	require.Empty(t, resp.Errors)
	found := resp.Data["searchBooks"].([]any)
	require.Len(t, found, 1)
	assert.Equal(t, "Pride and Prejudice", found[0].(map[string]any)["title"])
}

func TestAuthFlow(t *testing.T) {
	h, _ := newTestServer(t, nil)

	resp := post(t, h, "", `mutation { signUp(input: {email: "ada@example.com", password: "secret1", name: "Ada"}) { accessToken user { id email } } }`, nil)
	require.Empty(t, resp.Errors)
	token := resp.Data["signUp"].(map[string]any)["accessToken"].(string)
	assert.NotEmpty(t, token)

	resp = post(t, h, "", `mutation { signUp(input: {email: "ada@example.com", password: "secret1", name: "Ada"}) { accessToken } }`, nil)
	assert.Equal(t, CodeAlreadyExists, resp.code())
	assert.Equal(t, "User already exists", resp.Errors[0].Message)

	resp = post(t, h, "", `mutation { signIn(input: {email: "ada@example.com", password: "wrong"}) { accessToken } }`, nil)
	assert.Equal(t, CodeUnauthenticated, resp.code())
	assert.Equal(t, "Invalid credentials", resp.Errors[0].Message)

	resp = post(t, h, "", `mutation { signIn(input: {email: "ada@example.com", password: "secret1"}) { accessToken } }`, nil)
	require.Empty(t, resp.Errors)

	resp = post(t, h, token, `{ me { email name } }`, nil)
	require.Empty(t, resp.Errors)
	assert.Equal(t, "Ada", resp.Data["me"].(map[string]any)["name"])

	resp = post(t, h, "", `{ me { email } }`, nil)
	assert.Equal(t, CodeUnauthenticated, resp.code())

	resp = post(t, h, "", `mutation { logout { message } }`, nil)
	require.Empty(t, resp.Errors)
	assert.Equal(t, auth.LogoutMessage, resp.Data["logout"].(map[string]any)["message"])
}

func TestSignUp_Validation(t *testing.T) {
	h, _ := newTestServer(t, nil)

	resp := post(t, h, "", `mutation { signUp(input: {email: "nope", password: "1", name: "Ada"}) { accessToken } }`, nil)

	assert.Equal(t, CodeBadUserInput, resp.code())
	assert.NotEmpty(t, resp.Errors[0].Extensions["details"])
}

func TestBookMutations(t *testing.T) {
	h, _ := newTestServer(t, nil)
	token := testutil.GenerateTestToken(testSecret, "u-1", "ada@example.com")

	resp := post(t, h, "", `mutation { createBook(input: {title: "T", author: "A", publishedYear: 2001, genre: "G"}) { id } }`, nil)
	assert.Equal(t, CodeUnauthenticated, resp.code())

	resp = post(t, h, token, `mutation { createBook(input: {title: " ", author: "A", publishedYear: 2001, genre: "G"}) { id } }`, nil)
	assert.Equal(t, CodeBadUserInput, resp.code())

	resp = post(t, h, token, `mutation { createBook(input: {title: "Emma", author: "Jane Austen", publishedYear: 1815, genre: "Classic", isbn: "978-0141439587"}) { id title isbn description } }`, nil)
	require.Empty(t, resp.Errors)
	created := resp.Data["createBook"].(map[string]any)
	id := created["id"].(string)
	assert.Nil(t, created["description"])

	resp = post(t, h, token, `mutation($id: ID!) { updateBook(id: $id, input: {genre: "Romance"}) { title genre } }`, map[string]any{"id": id})
	require.Empty(t, resp.Errors)
	updated := resp.Data["updateBook"].(map[string]any)
	assert.Equal(t, "Emma", updated["title"])
	assert.Equal(t, "Romance", updated["genre"])

	resp = post(t, h, token, `mutation($id: ID!) { deleteBook(id: $id) { message } }`, map[string]any{"id": id})
	require.Empty(t, resp.Errors)
	assert.Equal(t, book.DeletedMessage, resp.Data["deleteBook"].(map[string]any)["message"])

	resp = post(t, h, token, `mutation($id: ID!) { deleteBook(id: $id) { message } }`, map[string]any{"id": id})
	assert.Equal(t, CodeNotFound, resp.code())
}

func pngBytes() []byte {
	// 1x1 transparent PNG.
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
		0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
		0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
		0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
	}
}

func multipartRequest(t *testing.T, token, operations, fileMap string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("operations", operations))
	require.NoError(t, mw.WriteField("map", fileMap))
	fw, err := mw.CreateFormFile("0", "cover.png")
	require.NoError(t, err)
	_, err = fw.Write(file)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/graphql", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestCreateBook_MultipartUpload(t *testing.T) {
	images := &fakeImages{}
	h, _ := newTestServer(t, images)
	token := testutil.GenerateTestToken(testSecret, "u-1", "ada@example.com")

	ops := `{"query":"mutation($in: CreateBookInput!, $img: Upload) { createBook(input: $in, image: $img) { id imageUrl } }",` +
		`"variables":{"in":{"title":"Covered","author":"A","publishedYear":2001,"genre":"Art"},"img":null}}`
	resp := exec(t, h, multipartRequest(t, token, ops, `{"0":["variables.img"]}`, pngBytes()))

	require.Empty(t, resp.Errors)
	created := resp.Data["createBook"].(map[string]any)
	assert.Contains(t, created["imageUrl"], "https://img.example/books/")
	require.Len(t, images.uploads, 1)
	for _, data := range images.uploads {
		assert.Equal(t, pngBytes(), data)
	}
}

func TestCreateBook_MultipartRejectsNonImage(t *testing.T) {
	h, _ := newTestServer(t, &fakeImages{})
	token := testutil.GenerateTestToken(testSecret, "u-1", "ada@example.com")

	ops := `{"query":"mutation($img: Upload) { createBook(input: {title: \"T\", author: \"A\", publishedYear: 2001, genre: \"G\"}, image: $img) { id } }","variables":{"img":null}}`
	resp := exec(t, h, multipartRequest(t, token, ops, `{"0":["variables.img"]}`, []byte("just some text")))

	assert.Equal(t, CodeBadUserInput, resp.code())
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, testutil.NewRequest(http.MethodPost, "/graphql", map[string]any{"query": "  "}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetVariable(t *testing.T) {
	vars := map[string]any{
		"input": map[string]any{"image": nil},
		"files": []any{nil, nil},
	}

	require.NoError(t, setVariable(vars, "variables.input.image", "0"))
	require.NoError(t, setVariable(vars, "variables.files.1", "1"))

	assert.Equal(t, "0", vars["input"].(map[string]any)["image"])
	assert.Equal(t, []any{nil, "1"}, vars["files"])
	assert.Error(t, setVariable(vars, "variables.files.9", "2"))
	assert.Error(t, setVariable(vars, "operations.image", "3"))
}
