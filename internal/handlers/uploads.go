package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/logging"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing; larger
// file parts spill to temp files.
const maxUploadMemory = 32 << 20

// saveUpload streams a multipart file to media storage under a fresh key in
// the given prefix and returns its public location.
func saveUpload(ctx context.Context, storage MediaStorage, prefix string, header *multipart.FileHeader) (string, error) {
	ctx, span := logging.StartSpan(ctx, "media.upload")
	defer span.End()

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(header.Filename))
	key := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), ext)

	location, err := storage.Save(ctx, key, file)
	if err != nil {
		return "", err
	}
	return location, nil
}

// formFile returns the named multipart file header when the field is
// present, nil otherwise.
func formFile(r *http.Request, field string) *multipart.FileHeader {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	_ = file.Close()
	return header
}
