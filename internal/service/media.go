package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"socialmaps/internal/logger"
	domain "socialmaps/internal/model"
	"socialmaps/internal/storage"
)

// MediaService stores posts and avatars in object storage.
type MediaService struct {
	store storage.ObjectStore
	log   *zap.Logger
	now   func() time.Time
}

// NewMediaService accepts a nil store; every call then fails with ErrStorageNotEnabled.
func NewMediaService(store storage.ObjectStore) *MediaService {
	return &MediaService{
		store: store,
		log:   logger.Named("media_service"),
		now:   time.Now,
	}
}

// AddPost uploads a base64 payload as "<userID>/<epochMillis>.<ext>".
func (s *MediaService) AddPost(ctx context.Context, userID, contentBase64, contentType string) (*domain.UploadResult, error) {
	return s.AddPostAt(ctx, userID, "", contentBase64, contentType)
}

// AddPostAt is AddPost with a caller-chosen key. The key must sit under "<userID>/".
func (s *MediaService) AddPostAt(ctx context.Context, userID, key, contentBase64, contentType string) (*domain.UploadResult, error) {
	if s.store == nil {
		return nil, domain.ErrStorageNotEnabled
	}

	contentType = normalizeContentType(contentType)
	ext, ok := domain.PostExtension(contentType)
	if !ok {
		return nil, domain.ErrInvalidMediaType
	}

	data, err := decodeBase64Payload(contentBase64, domain.MaxPostSizeBytes)
	if err != nil {
		return nil, err
	}

	if key == "" {
		key = fmt.Sprintf("%s/%d.%s", userID, s.now().UnixMilli(), ext)
	} else if key, err = ownedKey(userID, key); err != nil {
		return nil, err
	} else if !domain.KeyMatchesType(key, contentType) {
		return nil, domain.ErrInvalidMediaType
	}

	if err := s.store.Put(ctx, key, data, contentType, domain.PostCacheControl); err != nil {
		return nil, err
	}

	s.log.Info("post uploaded", zap.String("user_id", userID), zap.String("key", key), zap.Int("bytes", len(data)))
	return &domain.UploadResult{URL: s.store.PublicURL(key), Key: key}, nil
}

// GetUserImages lists up to MaxListedPosts public URLs under "<userID>/". Order is the store's.
func (s *MediaService) GetUserImages(ctx context.Context, userID string) ([]string, error) {
	if s.store == nil {
		return nil, domain.ErrStorageNotEnabled
	}

	keys, err := s.store.List(ctx, userID+"/", domain.MaxListedPosts)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		urls = append(urls, s.store.PublicURL(key))
	}
	return urls, nil
}

// UploadAvatar enforces size/type, normalizes to a 200x200 JPEG and uploads it.
func (s *MediaService) UploadAvatar(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*domain.UploadResult, error) {
	if s.store == nil {
		return nil, domain.ErrStorageNotEnabled
	}

	data, _, err := readAndValidateImage(file, header, domain.MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := resizeToJPEG(data, domain.AvatarWidth, domain.AvatarHeight, 85)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s/%s%s", domain.AvatarFolder, userID, uuid.NewString(), domain.AvatarExt)
	if err := s.store.Put(ctx, key, jpegBytes, domain.ContentTypeJPEG, domain.AvatarCacheControl); err != nil {
		return nil, err
	}

	return &domain.UploadResult{URL: s.store.PublicURL(key), Key: key}, nil
}

// ownedKey cleans key and checks it stays inside the user's folder.
func ownedKey(userID, key string) (string, error) {
	if userID == "" || strings.Contains(key, "..") {
		return "", domain.ErrInvalidPostPath
	}

	cleaned := path.Clean(strings.TrimPrefix(key, "/"))
	prefix := userID + "/"
	if !strings.HasPrefix(cleaned, prefix) || len(cleaned) == len(prefix) {
		return "", domain.ErrInvalidPostPath
	}
	return cleaned, nil
}

// decodeBase64Payload accepts plain base64 or a data URL and enforces maxSize on the decoded bytes.
func decodeBase64Payload(payload string, maxSize int64) ([]byte, error) {
	if i := strings.Index(payload, ";base64,"); strings.HasPrefix(payload, "data:") && i != -1 {
		payload = payload[i+len(";base64,"):]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, domain.ErrInvalidPayload
	}

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > maxSize+2 {
		return nil, domain.ErrFileTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, domain.ErrInvalidPayload
		}
	}
	if int64(len(data)) > maxSize {
		return nil, domain.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, domain.ErrInvalidPayload
	}
	return data, nil
}

func normalizeContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file multipart.File, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", domain.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	contentType = normalizeContentType(contentType)
	if !domain.IsAllowedImageType(contentType) {
		return nil, "", domain.ErrInvalidMediaType
	}

	return data, contentType, nil
}

// resizeToJPEG center-crops to the target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMediaType, err)
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}
