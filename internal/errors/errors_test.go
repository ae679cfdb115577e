package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMap(t *testing.T) {
	tests := []struct {
		name string
		in   error
		kind Kind
		code int
	}{
		{"not found", gorm.ErrRecordNotFound, KindNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), KindNotFound, http.StatusNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, KindConflict, http.StatusConflict},
		{"deadline", context.DeadlineExceeded, KindBackend, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), KindBackend, http.StatusInternalServerError},
		{"validation", Validation("Message cannot be empty"), KindValidation, http.StatusBadRequest},
		{"auth", AuthRequired("login required"), KindAuthRequired, http.StatusUnauthorized},
		{"forbidden", Forbidden("not yours"), KindForbidden, http.StatusForbidden},
		{"external", ExternalService("all models failed"), KindExternalService, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.in))
			assert.Equal(t, tt.code, HTTPStatus(tt.in))
			assert.True(t, Is(tt.in, tt.kind))
		})
	}
}

func TestMap_Nil(t *testing.T) {
	assert.NoError(t, Map(nil))
	assert.False(t, Is(nil, KindBackend))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Message cannot be empty", Message(Validation("Message cannot be empty")))
	assert.Equal(t, "record not found", Message(gorm.ErrRecordNotFound))

	cause := errors.New("s3 down")
	err := Backend("upload failed", cause)
	assert.Equal(t, "upload failed", Message(err))
	assert.ErrorIs(t, err, cause)
}
