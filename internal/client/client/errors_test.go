package client

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"Not found."}`, "Not found."},
		{"errors list", `{"errors":[{"detail":"title is required"},{"detail":"description is required"}]}`, "title is required\ndescription is required"},
		{"errors win over detail", `{"detail":"x","errors":[{"detail":"y"}]}`, "y"},
		{"empty errors falls back to detail", `{"detail":"x","errors":[]}`, "x"},
		{"errors without details", `{"errors":[{"code":"x"}]}`, DefaultErrorMessage},
		{"blank details skipped", `{"errors":[{"detail":"a"},{"code":"x"},{"detail":""},{"detail":"b"}]}`, "a\nb"},
		{"unknown shape", `{"message":"nope"}`, DefaultErrorMessage},
		{"not json", `<html>502</html>`, DefaultErrorMessage},
		{"empty body", ``, DefaultErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseErrorMessage([]byte(tt.body)))
		})
	}
}

func TestErrorClassification(t *testing.T) {
	transport := transportError(errors.New("connection refused"))
	assert.True(t, IsTransportFailure(transport))
	assert.False(t, IsRejection(transport))

	rejected := fmt.Errorf("update note: %w", &APIError{Status: 400, Message: "bad"})
	assert.True(t, IsRejection(rejected))
	assert.False(t, IsTransportFailure(rejected))
	assert.False(t, IsNotFound(rejected))
	assert.Equal(t, "bad", ErrorMessage(rejected))

	assert.True(t, IsNotFound(&APIError{Status: 404}))
	assert.Equal(t, "unauthorized", ErrorMessage(ErrUnauthorized))
}

func TestUseLocalCopy(t *testing.T) {
	assert.True(t, UseLocalCopy(ErrUnavailable))
	assert.True(t, UseLocalCopy(fmt.Errorf("get notes: %w", ErrUnauthorized)))
	assert.False(t, UseLocalCopy(&APIError{Status: 500, Message: DefaultErrorMessage}))
	assert.False(t, UseLocalCopy(errors.New("boom")))
}
