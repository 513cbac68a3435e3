package clip

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/code19m/errx"
)

// Upload is a content handle: a file name plus the bytes to attach.
// The reader is consumed on first use and its bytes are kept, so the same
// Upload may be assigned to several slots.
type Upload struct {
	// Name is the original file name. Only its base name is kept.
	Name string

	// ContentType overrides content sniffing when set.
	ContentType string

	r    io.Reader
	data []byte
	read bool
}

// NewUpload wraps r as a content handle named name.
func NewUpload(name string, r io.Reader) *Upload {
	return &Upload{Name: name, r: r}
}

// UploadBytes wraps data as a content handle named name.
func UploadBytes(name string, data []byte) *Upload {
	return &Upload{Name: name, data: data, read: true}
}

// OpenFile reads the file at path into a content handle.
func OpenFile(path string) (*Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}
	return UploadBytes(filepath.Base(path), data), nil
}

func (u *Upload) fileName() string {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return ""
	}
	base := filepath.Base(filepath.ToSlash(name))
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// bytes validates the handle and returns its content.
func (u *Upload) bytes() ([]byte, error) {
	name := u.fileName()
	if name == "" {
		return nil, invalidContent("upload has no file name", nil)
	}
	if u.read {
		return u.data, nil
	}
	if u.r == nil {
		return nil, invalidContent("upload has no content", errx.D{"file_name": name})
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, u.r); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"file_name": name}))
	}
	u.data, u.read, u.r = buf.Bytes(), true, nil
	return u.data, nil
}

func invalidContent(msg string, details errx.D) error {
	return errx.New(
		msg,
		errx.WithCode(CodeInvalidContent),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(details),
	)
}
