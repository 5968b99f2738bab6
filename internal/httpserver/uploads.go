package httpserver

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"storefront/internal/domain"
	"storefront/internal/storage"
)

const (
	defaultMaxUploadBytes = 5 << 20
	uploadField           = "file"
	sniffLen              = 512
)

// imageMeta is what gets validated before an upload reaches storage.
// Fields are checked in order, so an empty file reports its size first.
type imageMeta struct {
	Size        int64  `validate:"gt=0,ltefield=MaxSize"`
	Filename    string `validate:"required"`
	ContentType string `validate:"required,oneof=image/jpeg image/jpg image/png image/webp image/gif"`
	MaxSize     int64
}

type uploadValidator struct {
	validate *validator.Validate
	maxBytes int64
}

func newUploadValidator(maxBytes int64) *uploadValidator {
	return &uploadValidator{validate: validator.New(), maxBytes: maxBytes}
}

// formUpload opens the multipart file field. It returns a nil upload when
// the field is absent. The returned close func is always safe to call.
func (v *uploadValidator) formUpload(c *gin.Context) (*storage.Upload, func(), error) {
	noop := func() {}
	fh, err := c.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, domain.Invalid("invalid multipart form")
	}
	return v.open(fh)
}

// requireUpload is formUpload for routes where the image is mandatory.
func (v *uploadValidator) requireUpload(c *gin.Context) (*storage.Upload, func(), error) {
	up, closeFn, err := v.formUpload(c)
	if err == nil && up == nil {
		return nil, closeFn, domain.Invalid("Please select an image")
	}
	return up, closeFn, err
}

func (v *uploadValidator) open(fh *multipart.FileHeader) (*storage.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	closeFn := func() { _ = f.Close() }

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		closeFn()
		return nil, func() {}, err
	}
	head = head[:n]

	contentType := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head)
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	meta := imageMeta{Filename: fh.Filename, ContentType: contentType, Size: fh.Size, MaxSize: v.maxBytes}
	if err := v.validate.Struct(meta); err != nil {
		closeFn()
		return nil, func() {}, uploadError(err, v.maxBytes)
	}

	return &storage.Upload{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        io.MultiReader(bytes.NewReader(head), f),
	}, closeFn, nil
}

func uploadError(err error, maxBytes int64) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Invalid("invalid image upload")
	}
	switch verrs[0].Field() {
	case "ContentType":
		return domain.Invalid("only jpeg, png, webp and gif images are allowed")
	case "Size":
		if verrs[0].Tag() == "gt" {
			return domain.Invalid("image is empty")
		}
		return domain.Invalid("image must be at most %d MB", maxBytes>>20)
	}
	return domain.Invalid("Please select an image")
}
