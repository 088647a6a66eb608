package book

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"bookcatalog/internal/httpx"
)

const (
	imageField         = "image"
	multipartMaxMemory = 1 << 20
)

// DeletedMessage acknowledges a removed book.
const DeletedMessage = "Book deleted successfully"

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrImageHostUnavailable):
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "IMAGE_HOST_UNAVAILABLE", err.Error(), nil)
	default:
		httpx.InternalError(w, r, err)
	}
}

// List handles GET /books
// @Summary List books
// @Description Paginated listing, newest first, with optional substring filters
// @Tags books
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Param title query string false "Title contains"
// @Param author query string false "Author contains"
// @Param genre query string false "Genre contains"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	var details []httpx.ErrorDetail
	page, ok := queryInt(qs.Get("page"))
	if !ok {
		details = append(details, httpx.ErrorDetail{Field: "page", Message: "page must be an integer"})
	}
	limit, ok := queryInt(qs.Get("limit"))
	if !ok {
		details = append(details, httpx.ErrorDetail{Field: "limit", Message: "limit must be an integer"})
	}
	if len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	res, err := h.service.FindAll(r.Context(), Pagination{Page: page, Limit: limit}, Filter{
		Title:  strings.TrimSpace(qs.Get("title")),
		Author: strings.TrimSpace(qs.Get("author")),
		Genre:  strings.TrimSpace(qs.Get("genre")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

// Search handles GET /books/search
// @Summary Search books
// @Description Case-insensitive match on title, author or genre
// @Tags books
// @Produce json
// @Param q query string false "Search term"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books/search [get]
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.Search(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, books, map[string]any{"count": len(books)})
}

// Get handles GET /books/{id}
// @Summary Get a book
// @Tags books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.FindOne(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Create handles POST /books
// @Summary Create a book
// @Description Accepts JSON, or multipart/form-data with an optional "image" file part
// @Tags books
// @Accept json,mpfd
// @Produce json
// @Security Bearer
// @Param request body CreateInput true "Book fields"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 503 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		in  CreateInput
		img *Image
	)
	if isMultipart(r) {
		form, err := readForm(r)
		if err != nil {
			httpx.BadRequest(w, r, err)
			return
		}
		defer form.cleanup()

		if details := form.bindCreate(&in); len(details) > 0 {
			httpx.ValidationFailed(w, r, details)
			return
		}
		if img, err = form.image(); err != nil {
			httpx.ValidationFailed(w, r, []httpx.ErrorDetail{{Field: imageField, Message: err.Error()}})
			return
		}
	} else if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}

	if details := httpx.ValidateStruct(in); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	b, err := h.service.Create(r.Context(), in, img)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, b)
}

// Update handles PATCH /books/{id}
// @Summary Update a book
// @Description Partial update; omitted fields keep their value. Accepts JSON or multipart/form-data.
// @Tags books
// @Accept json,mpfd
// @Produce json
// @Security Bearer
// @Param id path string true "Book ID"
// @Param request body UpdateInput true "Fields to change"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [patch]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var (
		in  UpdateInput
		img *Image
	)
	if isMultipart(r) {
		form, err := readForm(r)
		if err != nil {
			httpx.BadRequest(w, r, err)
			return
		}
		defer form.cleanup()

		if details := form.bindUpdate(&in); len(details) > 0 {
			httpx.ValidationFailed(w, r, details)
			return
		}
		if img, err = form.image(); err != nil {
			httpx.ValidationFailed(w, r, []httpx.ErrorDetail{{Field: imageField, Message: err.Error()}})
			return
		}
	} else if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}

	if details := httpx.ValidateStruct(in); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	b, err := h.service.Update(r.Context(), r.PathValue("id"), in, img)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /books/{id}
// @Summary Delete a book
// @Tags books
// @Produce json
// @Security Bearer
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONMessage(w, r, DeletedMessage)
}

func queryInt(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

type bookForm struct {
	*multipart.Form
	opened []io.Closer
}

func readForm(r *http.Request) (*bookForm, error) {
	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, httpx.ErrBodyTooLarge
		}
		return nil, errors.New("invalid multipart form")
	}
	return &bookForm{Form: r.MultipartForm}, nil
}

func (f *bookForm) cleanup() {
	for _, c := range f.opened {
		_ = c.Close()
	}
	_ = f.RemoveAll()
}

func (f *bookForm) value(key string) (string, bool) {
	vs, ok := f.Value[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func (f *bookForm) optional(key string) *string {
	if v, ok := f.value(key); ok {
		return &v
	}
	return nil
}

func (f *bookForm) year(dst **int) []httpx.ErrorDetail {
	v, ok := f.value("published_year")
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return []httpx.ErrorDetail{{Field: "published_year", Message: "published_year must be an integer"}}
	}
	*dst = &n
	return nil
}

func (f *bookForm) bindCreate(in *CreateInput) []httpx.ErrorDetail {
	in.Title, _ = f.value("title")
	in.Author, _ = f.value("author")
	in.Genre, _ = f.value("genre")
	in.Description = f.optional("description")
	in.ISBN = f.optional("isbn")

	var year *int
	details := f.year(&year)
	if year != nil {
		in.PublishedYear = *year
	}
	return details
}

func (f *bookForm) bindUpdate(in *UpdateInput) []httpx.ErrorDetail {
	in.Title = f.optional("title")
	in.Author = f.optional("author")
	in.Genre = f.optional("genre")
	in.Description = f.optional("description")
	in.ISBN = f.optional("isbn")
	return f.year(&in.PublishedYear)
}

// image returns the uploaded cover, or nil when no file part was sent.
func (f *bookForm) image() (*Image, error) {
	headers := f.File[imageField]
	if len(headers) == 0 {
		return nil, nil
	}
	img, file, err := OpenImage(headers[0])
	if file != nil {
		f.opened = append(f.opened, file)
	}
	return img, err
}

// OpenImage opens an uploaded file part as a cover image. Only image
// content types are accepted, judged by sniffing the bytes. The returned
// closer is non-nil whenever the part was opened and must be closed by the
// caller once the image has been consumed.
func OpenImage(fh *multipart.FileHeader) (*Image, io.Closer, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, nil, errors.New("image could not be read")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, file, errors.New("image could not be read")
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, file, errors.New("image must be an image file")
	}

	return &Image{
		Filename:    fh.Filename,
		ContentType: contentType,
		Body:        io.MultiReader(bytes.NewReader(head), file),
	}, file, nil
}
