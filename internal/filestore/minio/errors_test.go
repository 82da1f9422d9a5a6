package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/koustreak/s3hub/internal/errs"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback errs.ErrKind
		want     errs.ErrKind
	}{
		{
			name:     "nil passes through",
			err:      nil,
			fallback: errs.ErrKindBackendFailed,
			want:     errs.ErrKindUnknown,
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			fallback: errs.ErrKindBackendFailed,
			want:     errs.ErrKindTimeout,
		},
		{
			name:     "wrapped cancellation",
			err:      fmt.Errorf("request aborted: %w", context.Canceled),
			fallback: errs.ErrKindBackendFailed,
			want:     errs.ErrKindTimeout,
		},
		{
			name:     "404 status",
			err:      miniogo.ErrorResponse{StatusCode: http.StatusNotFound, Code: "NoSuchKey"},
			fallback: errs.ErrKindBackendFailed,
			want:     errs.ErrKindNotFound,
		},
		{
			name:     "forbidden status",
			err:      miniogo.ErrorResponse{StatusCode: http.StatusForbidden, Code: "AccessDenied"},
			fallback: errs.ErrKindBackendFailed,
			want:     errs.ErrKindPermissionDenied,
		},
		{
			name:     "bad signature by code",
			err:      miniogo.ErrorResponse{Code: "SignatureDoesNotMatch"},
			fallback: errs.ErrKindBackendFailed,
			want:     errs.ErrKindPermissionDenied,
		},
		{
			name:     "throttling by code",
			err:      miniogo.ErrorResponse{Code: "SlowDown"},
			fallback: errs.ErrKindBackendFailed,
			want:     errs.ErrKindTimeout,
		},
		{
			name:     "unknown error gets listing fallback",
			err:      errors.New("connection reset by peer"),
			fallback: errs.ErrKindListingFailed,
			want:     errs.ErrKindListingFailed,
		},
		{
			name:     "unknown error gets backend fallback",
			err:      errors.New("connection reset by peer"),
			fallback: errs.ErrKindBackendFailed,
			want:     errs.ErrKindBackendFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, tt.fallback, "op failed")
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}
