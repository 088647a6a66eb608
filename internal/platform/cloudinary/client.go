package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// DefaultFolder is the Cloudinary folder book covers are stored under.
const DefaultFolder = "books"

var ErrInvalidImageURL = errors.New("invalid image url")

type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether enough credentials are present to talk to Cloudinary.
func (c Config) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Client uploads and deletes hosted images.
type Client struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("cloudinary: missing cloud name or credentials")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}

	folder := cfg.Folder
	if folder == "" {
		folder = DefaultFolder
	}
	return &Client{cld: cld, folder: folder}, nil
}

// Upload streams body to Cloudinary under folder/key and returns the secure URL.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		PublicID: key,
		Folder:   c.folder,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload %s: %w", key, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload %s: %s", key, res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload %s: no url returned", key)
	}
	return res.SecureURL, nil
}

// Delete destroys the hosted image behind imageURL.
func (c *Client) Delete(ctx context.Context, imageURL string) error {
	publicID, err := PublicIDFromURL(c.folder, imageURL)
	if err != nil {
		return err
	}
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy %s: %s", publicID, res.Error.Message)
	}
	if res.Result != "ok" {
		return fmt.Errorf("cloudinary destroy %s: result %q", publicID, res.Result)
	}
	return nil
}

// PublicIDFromURL maps a delivery URL such as
// https://res.cloudinary.com/<cloud>/image/upload/v123/books/<id>-<ts>.jpg
// back to the public id "books/<id>-<ts>".
func PublicIDFromURL(folder, imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil || u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageURL, imageURL)
	}
	file := path.Base(u.Path)
	stem := strings.TrimSuffix(file, path.Ext(file))
	if stem == "" || stem == "." || stem == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageURL, imageURL)
	}
	if folder == "" {
		return stem, nil
	}
	return folder + "/" + stem, nil
}
