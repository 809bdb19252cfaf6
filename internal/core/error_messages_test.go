package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/glossary/internal/format"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "not found", err: ErrNotFound, wantCode: "DICT001"},
		{name: "wrapped not found", err: fmt.Errorf("get entry 7: %w", ErrNotFound), wantCode: "DICT001"},
		{name: "too long", err: fmt.Errorf("edit: %w", ErrTooLong), wantCode: "DICT002"},
		{name: "empty source", err: ErrEmptySource, wantCode: "DICT003"},
		{name: "no actor", err: ErrNoActor, wantCode: "DICT004"},
		{name: "unknown format from loader", err: fmt.Errorf("%w: terms.bin", format.ErrUnknownFormat), wantCode: "FILE002"},
		{name: "too many uploads", err: ErrTooManyUploads, wantCode: "UPL001"},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), wantCode: "DB001"},
		{name: "deadline before generic timeout", err: errors.New("context deadline exceeded"), wantCode: "UPL003"},
		{name: "timeout", err: errors.New("i/o timeout"), wantCode: "DB003"},
		{name: "invalid csv", err: errors.New("load: invalid csv: bare quote"), wantCode: "FILE003"},
		{name: "case insensitive", err: errors.New("INVALID PO at line 3"), wantCode: "FILE003"},
		{name: "unknown error", err: errors.New("some random internal error"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err); got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrNotFound)
	want := "Dictionary entry not found (Code: DICT001). Reload the glossary and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(ErrTooLong) {
		t.Error("ErrTooLong should be user facing")
	}
	if IsUserFacing(errors.New("random internal error xyz")) {
		t.Error("unknown error should not be user facing")
	}
}
