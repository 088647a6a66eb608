package graphql

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"bookcatalog/internal/httpx"

	graphqlgo "github.com/graph-gophers/graphql-go"
)

const multipartMaxMemory = 1 << 20

type params struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
	Extensions    map[string]interface{} `json:"extensions"`
}

// Handler serves POST /graphql. It accepts application/json bodies and
// multipart requests carrying files (operations, map, then file parts).
type Handler struct {
	Schema *graphqlgo.Schema
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httpx.JSONError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "GraphQL requests must use POST", nil)
		return
	}

	var (
		p   params
		err error
	)
	ctx := r.Context()
	if isMultipart(r) {
		var files map[string]*multipart.FileHeader
		p, files, err = readMultipart(r)
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		ctx = contextWithUploads(ctx, files)
	} else {
		err = httpx.DecodeJSON(r, &p)
	}
	if err != nil {
		httpx.BadRequest(w, r, err)
		return
	}
	if strings.TrimSpace(p.Query) == "" {
		httpx.BadRequest(w, r, errors.New("query is required"))
		return
	}

	resp := h.Schema.Exec(ctx, p.Query, p.OperationName, p.Variables)
	body, err := json.Marshal(resp)
	if err != nil {
		httpx.InternalError(w, r, fmt.Errorf("encode graphql response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		log.Printf("graphql write failed: request_id=%s error=%v", httpx.RequestIDFrom(r), err)
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readMultipart decodes the operations and map fields and places each
// mapped file key into the variables at its object path.
func readMultipart(r *http.Request) (params, map[string]*multipart.FileHeader, error) {
	var p params
	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return p, nil, httpx.ErrBodyTooLarge
		}
		return p, nil, errors.New("invalid multipart form")
	}
	form := r.MultipartForm

	ops := form.Value["operations"]
	if len(ops) == 0 {
		return p, nil, errors.New("operations field is required")
	}
	if err := json.Unmarshal([]byte(ops[0]), &p); err != nil {
		return p, nil, fmt.Errorf("invalid operations field: %w", err)
	}

	var fileMap map[string][]string
	if m := form.Value["map"]; len(m) > 0 {
		if err := json.Unmarshal([]byte(m[0]), &fileMap); err != nil {
			return p, nil, fmt.Errorf("invalid map field: %w", err)
		}
	}

	files := make(map[string]*multipart.FileHeader, len(fileMap))
	for key, paths := range fileMap {
		headers := form.File[key]
		if len(headers) == 0 {
			return p, nil, fmt.Errorf("file part %q is missing", key)
		}
		files[key] = headers[0]
		for _, path := range paths {
			if err := setVariable(p.Variables, path, key); err != nil {
				return p, nil, err
			}
		}
	}
	return p, files, nil
}

// setVariable writes value at a dotted path such as "variables.image" or
// "variables.files.0".
func setVariable(vars map[string]interface{}, path, value string) error {
	parts := strings.Split(path, ".")
	if len(parts) < 2 || parts[0] != "variables" || vars == nil {
		return fmt.Errorf("unsupported map path %q", path)
	}

	var cur interface{} = vars
	for i, part := range parts[1:] {
		last := i == len(parts)-2
		switch node := cur.(type) {
		case map[string]interface{}:
			if last {
				node[part] = value
				return nil
			}
			cur = node[part]
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return fmt.Errorf("unsupported map path %q", path)
			}
			if last {
				node[idx] = value
				return nil
			}
			cur = node[idx]
		default:
			return fmt.Errorf("unsupported map path %q", path)
		}
	}
	return fmt.Errorf("unsupported map path %q", path)
}
