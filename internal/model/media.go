package model

import (
	"errors"
	"path"
	"strings"
)

const (
	MaxAvatarSizeBytes = 5 * 1024 * 1024
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	AvatarExt          = ".jpg"
	AvatarCacheControl = "public, max-age=31536000" // 1 year

	MaxPostSizeBytes = 10 * 1024 * 1024
	PostCacheControl = "public, max-age=31536000"

	// MaxListedPosts caps a single storage listing, matching the mobile grid's single page.
	MaxListedPosts = 100
)

// Supported content types for uploads
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
	ContentTypeMP4  = "video/mp4"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

var postExtensions = map[string]string{
	ContentTypeJPEG: "jpg",
	ContentTypePNG:  "png",
	ContentTypeGIF:  "gif",
	ContentTypeWebP: "webp",
	ContentTypeMP4:  "mp4",
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeInvalidMediaType  = "INVALID_MEDIA_TYPE"
	CodeInvalidPayload    = "INVALID_PAYLOAD"
	CodeStorageNotEnabled = "STORAGE_DISABLED"
)

var (
	ErrFileTooLarge      = errors.New("file too large")
	ErrInvalidMediaType  = errors.New("invalid media type")
	ErrInvalidPayload    = errors.New("invalid base64 payload")
	ErrInvalidPostPath   = errors.New("post path must live under the owner's folder")
	ErrStorageNotEnabled = errors.New("object storage is not configured")
)

// UploadResult is the uploaded object location. URL is public, Key is the bucket key.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// CreatePostRequest is the body of POST /posts. Path is optional; when empty the
// server names the object "<userId>/<epochMillis>.<ext>".
type CreatePostRequest struct {
	Path          string `json:"path" validate:"omitempty,max=255"`
	ContentBase64 string `json:"content_base64" validate:"required"`
	ContentType   string `json:"content_type" validate:"required"`
}

// ImageListResponse is the GET /users/{id}/images payload.
type ImageListResponse struct {
	Images []string `json:"images"`
}

// IsAllowedImageType reports if the provided content type is a supported image
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// PostExtension returns the file extension for a post content type.
func PostExtension(contentType string) (string, bool) {
	ext, ok := postExtensions[contentType]
	return ext, ok
}

// KeyMatchesType reports whether key's extension agrees with contentType.
// ".jpeg" is accepted for JPEG.
func KeyMatchesType(key, contentType string) bool {
	want, ok := postExtensions[contentType]
	if !ok {
		return false
	}
	got := strings.ToLower(strings.TrimPrefix(path.Ext(key), "."))
	return got == want || (want == "jpg" && got == "jpeg")
}
