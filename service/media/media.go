// Package media is the attachment upload boundary. The engine only needs a
// blob to become a publicly resolvable URL; where the bytes land is an
// external concern. LocalUploader is the dev/test implementation.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

// Uploader accepts a binary blob at a destination path and returns a
// resolvable URL. Failures surface as errs.ErrMediaUpload and are shown to
// the user as recoverable.
type Uploader interface {
	Upload(ctx context.Context, data []byte, path string) (string, error)
}

// AttachmentPath scopes a destination by sender, receiver and timestamp.
func AttachmentPath(senderID, receiverID string, t time.Time, name string) string {
	return fmt.Sprintf("%s/%s/%d_%s", senderID, receiverID, t.UnixMilli(), name)
}

// LocalUploader writes blobs under a directory and serves them from a base
// URL (main mounts the directory as a static route).
type LocalUploader struct {
	Dir     string
	BaseURL string
}

func (u *LocalUploader) Upload(_ context.Context, data []byte, path string) (string, error) {
	full := filepath.Join(u.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errs.ErrMediaUpload.WrapMsg("mkdir", "path", path)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", errs.ErrMediaUpload.WrapMsg("write", "path", path)
	}
	return u.BaseURL + "/" + path, nil
}
