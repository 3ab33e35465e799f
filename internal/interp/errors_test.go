package interp

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"bare", &Error{Message: "boom"}, "boom"},
		{"located", &Error{Script: "a.exodep", Line: 3, Message: "boom"}, "a.exodep, line 3: boom"},
		{"whole script", &Error{Script: "a.exodep", Message: "boom"}, "a.exodep: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", newError(KindFetchFailure, "unable to retrieve %s", "x"))

	assert.ErrorIs(t, err, ErrFetchFailure)
	assert.NotErrorIs(t, err, ErrUnresolvedVariable)
	assert.Equal(t, KindFetchFailure, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestWrapError_KeepsCause(t *testing.T) {
	err := wrapError(KindLocalFileOperation, fs.ErrNotExist, "unable to '%s' on '%s'", "rm", "x")

	assert.Equal(t, "unable to 'rm' on 'x': file does not exist", err.Message)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorIs(t, err, ErrLocalFileOperation)
}
