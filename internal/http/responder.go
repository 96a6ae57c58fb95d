package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/application"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

var (
	errBadRequestBody = errors.New("invalid request body")
	errInvalidZoneID  = errors.New("invalid zone id")
	errInvalidDate    = errors.New("a valid date parameter is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	r.loggerFor(ctx).ErrorContext(ctx, "service call failed", "error", err, "error_kind", application.ErrorKind(err))

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrNoMatchingSchedule):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "NO_MATCHING_SCHEDULE",
			Message:   "no schedule matches the given signature",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "the resource already exists"})
	default:
		var cErr *application.ConflictError
		if errors.As(err, &cErr) {
			r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
				ErrorCode: "SCHEDULE_CONFLICT",
				Message:   "the proposed rule overlaps existing rules",
				Conflicts: toConflictDTOs(cErr),
			})
			return
		}

		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the request contains invalid values",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is malformed"
	case http.StatusNotFound:
		return "the requested resource was not found"
	case http.StatusConflict:
		return "the request conflicts with the current state"
	case http.StatusUnprocessableEntity:
		return "the request contains invalid values"
	default:
		return "internal server error"
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflictDTO     `json:"conflicts,omitempty"`
}

type conflictDTO struct {
	RuleID string `json:"rule_id"`
	Day    string `json:"day"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Period string `json:"period"`
	Kind   string `json:"kind"`
}

func toConflictDTOs(cErr *application.ConflictError) []conflictDTO {
	if cErr == nil || cErr.Report == nil || len(cErr.Report.Conflicts) == 0 {
		return nil
	}

	out := make([]conflictDTO, 0, len(cErr.Report.Conflicts))
	for _, conflict := range cErr.Report.Conflicts {
		out = append(out, conflictDTO{
			RuleID: conflict.RuleID,
			Day:    conflict.Day.String(),
			Start:  recurrence.FormatMinute(conflict.StartMin),
			End:    recurrence.FormatMinute(conflict.EndMin),
			Period: string(conflict.Period),
			Kind:   string(conflict.Kind),
		})
	}
	return out
}
