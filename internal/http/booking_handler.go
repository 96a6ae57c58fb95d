package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/application"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

type bookingService interface {
	SyncBooking(ctx context.Context, booking application.Booking) error
	RemoveBooking(ctx context.Context, id string) error
	ComputeBookingViews(ctx context.Context, zoneID string, date time.Time, slots application.WeekSlots) (application.ZoneDayViews, error)
}

type BookingHandler struct {
	bookings  bookingService
	capacity  capacityService
	responder responder
}

func NewBookingHandler(bookings bookingService, capacity capacityService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, capacity: capacity, responder: newResponder(logger)}
}

// Sync upserts one mirrored booking instance for the zone.
func (h *BookingHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.bookings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zoneID, ok := ZoneIDFromContext(r.Context())
	if !ok || strings.TrimSpace(zoneID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidZoneID)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.bookings.SyncBooking(r.Context(), req.toBooking(zoneID)); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Remove drops one mirrored booking instance by ID.
func (h *BookingHandler) Remove(w http.ResponseWriter, r *http.Request, instanceID string) {
	if h == nil || h.bookings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.bookings.RemoveBooking(r.Context(), instanceID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Views returns the occupied, unavailable and exhausted views for the date
// query parameter.
func (h *BookingHandler) Views(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.bookings == nil || h.capacity == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zoneID, ok := ZoneIDFromContext(r.Context())
	if !ok || strings.TrimSpace(zoneID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidZoneID)
		return
	}

	date := parseDate(r.URL.Query().Get("date"))
	if date.IsZero() {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	slots, err := h.capacity.EvaluateWeek(r.Context(), zoneID, date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	views, err := h.bookings.ComputeBookingViews(r.Context(), zoneID, date, slots)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toViewsResponse(views))
}

type bookingRequest struct {
	ID        string   `json:"id"`
	BookingID string   `json:"booking_id"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Racks     []string `json:"racks"`
	Title     string   `json:"title"`
	Color     string   `json:"color"`
	Locked    bool     `json:"locked"`
}

func (r bookingRequest) toBooking(zoneID string) application.Booking {
	return application.Booking{
		ID:        strings.TrimSpace(r.ID),
		BookingID: strings.TrimSpace(r.BookingID),
		ZoneID:    zoneID,
		Start:     parseTimestamp(r.Start),
		End:       parseTimestamp(r.End),
		Racks:     append([]string(nil), r.Racks...),
		Title:     r.Title,
		Color:     r.Color,
		Locked:    r.Locked,
	}
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type viewsResponse struct {
	ZoneID      string                   `json:"zone_id"`
	Date        string                   `json:"date"`
	Occupied    map[string][]intervalDTO `json:"occupied"`
	Unavailable map[string][]intervalDTO `json:"unavailable"`
	Exhausted   map[string][]string      `json:"exhausted"`
}

type intervalDTO struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	StartMin int    `json:"start_min"`
	EndMin   int    `json:"end_min"`
}

func toViewsResponse(views application.ZoneDayViews) viewsResponse {
	response := viewsResponse{
		ZoneID:      views.ZoneID,
		Date:        views.Date.Format(recurrence.DateLayout),
		Occupied:    toIntervalDTOMap(views.Occupied),
		Unavailable: toIntervalDTOMap(views.Unavailable),
		Exhausted:   make(map[string][]string, len(views.Exhausted)),
	}
	for rack, minutes := range views.Exhausted {
		sorted := append([]int(nil), minutes...)
		sort.Ints(sorted)
		times := make([]string, 0, len(sorted))
		for _, minute := range sorted {
			times = append(times, recurrence.FormatMinute(minute))
		}
		response.Exhausted[rack] = times
	}
	return response
}

func toIntervalDTOMap(intervals map[string][]application.MinuteInterval) map[string][]intervalDTO {
	out := make(map[string][]intervalDTO, len(intervals))
	for rack, list := range intervals {
		dtos := make([]intervalDTO, 0, len(list))
		for _, interval := range list {
			dtos = append(dtos, intervalDTO{
				Start:    recurrence.FormatMinute(interval.StartMin),
				End:      recurrence.FormatMinute(interval.EndMin),
				StartMin: interval.StartMin,
				EndMin:   interval.EndMin,
			})
		}
		out[rack] = dtos
	}
	return out
}
