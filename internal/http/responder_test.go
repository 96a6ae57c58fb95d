package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/application"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/scheduler"
)

func TestResponderLogsErrorKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind string
	}{
		{"not found", application.ErrNotFound, "not_found"},
		{"no matching schedule", application.ErrNoMatchingSchedule, "no_matching_schedule"},
		{"already exists", application.ErrAlreadyExists, "already_exists"},
		{"conflict", &application.ConflictError{Report: &scheduler.Report{}}, "conflict"},
		{"unexpected", errors.New("boom"), "unexpected"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			resp := newResponder(slog.New(slog.NewJSONHandler(&buf, nil)))

			resp.handleServiceError(context.Background(), httptest.NewRecorder(), tc.err)

			if !strings.Contains(buf.String(), `"error_kind":"`+tc.kind+`"`) {
				t.Fatalf("expected an error_kind=%s entry, got %q", tc.kind, buf.String())
			}
		})
	}
}
