package miniowr

import (
	"errors"
	"testing"

	"github.com/code19m/errx"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/rise-and-shine/docclip/filestore"
)

func TestWrapMinioError(t *testing.T) {
	c := &Client{bucket: "attachments"}

	tests := []struct {
		name string
		err  error
		code string
	}{
		{name: "no such key", err: minio.ErrorResponse{Code: "NoSuchKey"}, code: filestore.CodeFileNotFound},
		{name: "not found", err: minio.ErrorResponse{Code: "NotFound"}, code: filestore.CodeFileNotFound},
		{name: "access denied", err: minio.ErrorResponse{Code: "AccessDenied"}, code: ""},
		{name: "plain error", err: errors.New("connection refused"), code: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := c.wrapMinioError(tc.err, "users/avatar/a.png")
			e := errx.AsErrorX(err)
			if tc.code == "" {
				assert.NotEqual(t, filestore.CodeFileNotFound, e.Code())
				return
			}
			assert.Equal(t, tc.code, e.Code())
			assert.Equal(t, errx.T_NotFound, e.Type())
		})
	}
}
