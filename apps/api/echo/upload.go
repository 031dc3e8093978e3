package echoapi

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmonsalve/aula/core"
)

// uploadExts maps the accepted content types of voucher scans and signed
// contracts to the stored file extension.
var uploadExts = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// imageExts is the subset accepted by the generic image upload endpoint.
var imageExts = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

var (
	errFileRequired    = echo.NewHTTPError(http.StatusBadRequest, "a file is required")
	errFileTooLarge    = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file is too large")
	errUnsupportedFile = echo.NewHTTPError(http.StatusUnsupportedMediaType, "only JPEG, PNG and PDF files are accepted")
	errNotAnImage      = echo.NewHTTPError(http.StatusUnsupportedMediaType, "only JPEG and PNG images are accepted")
)

const imageSubdir = "images"

// registerUploadAPI exposes a generic authed image upload; vouchers and
// contracts go through their own endpoints.
func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config) {
	ug := g.Group("/uploads", jwt)
	ug.POST("/images", func(ctx echo.Context) error {
		relPath, err := saveUpload(ctx, conf, "file", imageSubdir, imageExts, errNotAnImage)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusCreated, UploadResponse{Path: relPath, URL: mediaURL(conf, relPath)})
	})
}

type UploadResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

func mediaURL(conf *core.Config, relPath string) string {
	base := strings.TrimRight(conf.MediaBaseURL, "/")
	if base == "" {
		base = "/media"
	}
	return base + "/" + filepath.ToSlash(relPath)
}

// saveUploadedFile stores the multipart file from field under
// MediaRoot/subdir with a random name and returns its media-relative path.
func saveUploadedFile(ctx echo.Context, conf *core.Config, field, subdir string) (string, error) {
	return saveUpload(ctx, conf, field, subdir, uploadExts, errUnsupportedFile)
}

func saveUpload(ctx echo.Context, conf *core.Config, field, subdir string, exts map[string]string, errBadType error) (string, error) {
	header, err := ctx.FormFile(field)
	if err != nil {
		return "", errFileRequired
	}
	if conf.MaxUploadSize > 0 && header.Size > conf.MaxUploadSize {
		return "", errFileTooLarge
	}

	src, err := header.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = src.Close() }()

	// sniff the actual content type; the client's header is not trusted
	sniff := make([]byte, 512)
	n, err := src.Read(sniff)
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "reading uploaded file")
	}
	ext, ok := exts[http.DetectContentType(sniff[:n])]
	if !ok {
		return "", errBadType
	}
	if _, err = src.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "rewinding uploaded file")
	}

	relPath := filepath.Join(subdir, uuid.NewString()+ext)
	absPath := filepath.Join(conf.MediaRoot, relPath)
	if err = os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}

	dst, err := os.Create(absPath)
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	defer func() { _ = dst.Close() }()

	if _, err = io.Copy(dst, src); err != nil {
		return "", errors.Wrap(err, "saving uploaded file")
	}
	return relPath, nil
}
