package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/gmvsync/internal/reconcile"
	"github.com/JonMunkholm/gmvsync/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"missing profile", fmt.Errorf("%w: matcher profile for individuals not set", reconcile.ErrStructural), "CFG001"},
		{"config validation", errors.New("config validation: validation failed:\n  - GMV_XCM_PROFILE_INDIVIDUALS is required"), "CFG001"},
		{"structural", fmt.Errorf("structures: %w: relationship type \"x\" does not exist", reconcile.ErrStructural), "CFG002"},
		{"invalid config", errors.New("config validation: validation failed:\n  - DB_DRIVER must be one of"), "CFG003"},
		{"folder missing", fmt.Errorf("%w: 2024-03-01", reconcile.ErrFolderNotFound), "SRC001"},
		{"invalid folder", fmt.Errorf("%w: \"../etc\"", ErrInvalidFolder), "SRC002"},
		{"run in progress", ErrRunInProgress, "RUN001"},
		{"run not found", fmt.Errorf("%w: abc", ErrRunNotFound), "RUN002"},
		{"cancelled", fmt.Errorf("emails: %w", context.Canceled), "RUN003"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"), "DB001"},
		{"deadline", fmt.Errorf("ping: %w", context.DeadlineExceeded), "DB003"},
		{"access denied", errors.New("Error 1045 (28000): Access denied for user 'crm'"), "DB004"},
		{"ambiguous", fmt.Errorf("gmv id 1: %w", store.ErrAmbiguous), "DB005"},
		{"unknown field", fmt.Errorf("create contact: %w: nickname", store.ErrUnknownField), "DB006"},
		{"unknown error falls back", errors.New("something strange"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrRunInProgress)
	want := "Another import is running (Code: RUN001). Wait for it to finish and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}

	ue := NewUserError(fmt.Errorf("wrap: %w", ErrRunNotFound))
	if !errors.Is(ue, ErrRunNotFound) {
		t.Error("UserError should unwrap to the technical error")
	}
	if ue.Error() != "No run with this id exists" {
		t.Errorf("Error() = %q", ue.Error())
	}
	if !IsUserFacing(ue) || IsUserFacing(errors.New("x")) {
		t.Error("IsUserFacing mismatch")
	}
}
