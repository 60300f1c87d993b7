// Package media stores complaint photos on disk and hands out opaque
// references for the complaint record to carry.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/civicdesk/platform/internal/shared/errors"
	"github.com/civicdesk/platform/internal/shared/types"
)

// Object describes a stored photo
type Object struct {
	Ref         string    `json:"ref"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  types.ID  `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// allowedContentTypes are the photo formats accepted for upload
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var refPattern = regexp.MustCompile(`^[a-f0-9]{32}\.(jpg|png|webp)$`)

// Store is a disk-backed photo store
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates a photo store rooted at dir
func NewStore(dir string, maxUploadMB int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &Store{dir: dir, maxBytes: int64(maxUploadMB) << 20}, nil
}

// Save writes a photo and returns its object descriptor. The returned ref is
// opaque to callers and safe to embed in complaint records.
func (s *Store) Save(ctx context.Context, uploadedBy types.ID, contentType string, r io.Reader) (*Object, error) {
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, errors.BadRequest("unsupported content type, expected image/jpeg, image/png or image/webp")
	}

	id := uuid.New()
	ref := fmt.Sprintf("%x%s", id[:], ext)
	path := filepath.Join(s.dir, ref)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create media file")
	}

	written, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "failed to write media file")
	}
	if written > s.maxBytes {
		os.Remove(path)
		return nil, errors.BadRequest("photo exceeds the upload size limit")
	}

	obj := &Object{
		Ref:         ref,
		ContentType: contentType,
		Size:        written,
		UploadedBy:  uploadedBy,
		UploadedAt:  time.Now().UTC(),
	}

	if err := s.writeMeta(obj); err != nil {
		os.Remove(path)
		return nil, err
	}

	return obj, nil
}

// Open returns the photo content and descriptor for a ref
func (s *Store) Open(ctx context.Context, ref string) (io.ReadCloser, *Object, error) {
	if !refPattern.MatchString(ref) {
		return nil, nil, errors.BadRequest("invalid photo reference")
	}

	obj, err := s.readMeta(ref)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NotFound("photo", ref)
		}
		return nil, nil, errors.Wrap(err, "failed to open media file")
	}

	return f, obj, nil
}

// Exists reports whether a ref resolves to a stored photo
func (s *Store) Exists(ref string) bool {
	if !refPattern.MatchString(ref) {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dir, ref))
	return err == nil
}

func (s *Store) writeMeta(obj *Object) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrap(err, "failed to marshal media metadata")
	}
	if err := os.WriteFile(filepath.Join(s.dir, obj.Ref+".json"), data, 0o640); err != nil {
		return errors.Wrap(err, "failed to write media metadata")
	}
	return nil
}

func (s *Store) readMeta(ref string) (*Object, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ref+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("photo", ref)
		}
		return nil, errors.Wrap(err, "failed to read media metadata")
	}

	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrap(err, "failed to parse media metadata")
	}
	return &obj, nil
}
