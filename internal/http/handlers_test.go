package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/application"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/scheduler"
)

var monday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

type zoneServiceStub struct {
	zone    application.Zone
	zones   []application.Zone
	err     error
	deleted string
}

func (s *zoneServiceStub) CreateZone(ctx context.Context, input application.ZoneInput) (application.Zone, error) {
	if s.err != nil {
		return application.Zone{}, s.err
	}
	return s.zone, nil
}

func (s *zoneServiceStub) UpdateZone(ctx context.Context, id string, input application.ZoneInput) (application.Zone, error) {
	if s.err != nil {
		return application.Zone{}, s.err
	}
	return s.zone, nil
}

func (s *zoneServiceStub) GetZone(ctx context.Context, id string) (application.Zone, error) {
	if s.err != nil {
		return application.Zone{}, s.err
	}
	return s.zone, nil
}

func (s *zoneServiceStub) ListZones(ctx context.Context) ([]application.Zone, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.zones, nil
}

func (s *zoneServiceStub) DeleteZone(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = id
	return nil
}

type scheduleServiceStub struct {
	rules     []recurrence.Rule
	saveErr   error
	deleteErr error

	savedZoneID string
}

func (s *scheduleServiceStub) SaveRule(ctx context.Context, params application.SaveRuleParams) ([]recurrence.Rule, error) {
	s.savedZoneID = params.ZoneID
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	return s.rules, nil
}

func (s *scheduleServiceStub) DeleteRule(ctx context.Context, params application.DeleteRuleParams) error {
	return s.deleteErr
}

type capacityServiceStub struct {
	slots     application.WeekSlots
	blocks    []application.Block
	overrides []application.CapacityOverride
	err       error
}

func (s *capacityServiceStub) EvaluateWeek(ctx context.Context, zoneID string, weekStart time.Time) (application.WeekSlots, error) {
	if s.err != nil {
		return application.WeekSlots{}, s.err
	}
	return s.slots, nil
}

func (s *capacityServiceStub) ComputeDayBlocks(slots application.WeekSlots, day time.Weekday) []application.Block {
	return s.blocks
}

func (s *capacityServiceStub) ListOverrides(ctx context.Context, zoneID string, from, to time.Time) ([]application.CapacityOverride, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.overrides, nil
}

type bookingServiceStub struct {
	views   application.ZoneDayViews
	err     error
	synced  []application.Booking
	removed string
}

func (s *bookingServiceStub) SyncBooking(ctx context.Context, booking application.Booking) error {
	if s.err != nil {
		return s.err
	}
	s.synced = append(s.synced, booking)
	return nil
}

func (s *bookingServiceStub) RemoveBooking(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.removed = id
	return nil
}

func (s *bookingServiceStub) ComputeBookingViews(ctx context.Context, zoneID string, date time.Time, slots application.WeekSlots) (application.ZoneDayViews, error) {
	if s.err != nil {
		return application.ZoneDayViews{}, s.err
	}
	return s.views, nil
}

func newTestRouter(zones *zoneServiceStub, schedules *scheduleServiceStub, capacity *capacityServiceStub, bookings *bookingServiceStub) http.Handler {
	return NewRouter(RouterConfig{
		Zones:     NewZoneHandler(zones, nil),
		Schedules: NewScheduleHandler(schedules, capacity, nil),
		Bookings:  NewBookingHandler(bookings, capacity, nil),
	})
}

func performRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return out
}

func TestZoneEndpoints(t *testing.T) {
	zone := application.Zone{
		ID:        "zone-1",
		Name:      "Main Side",
		Racks:     []string{"rack-1", "rack-2"},
		CreatedAt: monday,
		UpdatedAt: monday,
	}

	t.Run("create returns the stored zone", func(t *testing.T) {
		zones := &zoneServiceStub{zone: zone}
		router := newTestRouter(zones, &scheduleServiceStub{}, &capacityServiceStub{}, &bookingServiceStub{})

		rec := performRequest(t, router, http.MethodPost, "/zones", `{"name":"Main Side","racks":["rack-1","rack-2"]}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		dto := decodeBody[zoneDTO](t, rec)
		if dto.ID != "zone-1" || len(dto.Racks) != 2 {
			t.Fatalf("unexpected zone payload %+v", dto)
		}
	})

	t.Run("list returns every zone", func(t *testing.T) {
		zones := &zoneServiceStub{zones: []application.Zone{zone}}
		router := newTestRouter(zones, &scheduleServiceStub{}, &capacityServiceStub{}, &bookingServiceStub{})

		rec := performRequest(t, router, http.MethodGet, "/zones", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		payload := decodeBody[listZonesResponse](t, rec)
		if len(payload.Zones) != 1 {
			t.Fatalf("expected 1 zone, got %+v", payload)
		}
	})

	t.Run("malformed bodies are rejected", func(t *testing.T) {
		router := newTestRouter(&zoneServiceStub{}, &scheduleServiceStub{}, &capacityServiceStub{}, &bookingServiceStub{})

		rec := performRequest(t, router, http.MethodPost, "/zones", "{not json")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing zones yield 404", func(t *testing.T) {
		zones := &zoneServiceStub{err: application.ErrNotFound}
		router := newTestRouter(zones, &scheduleServiceStub{}, &capacityServiceStub{}, &bookingServiceStub{})

		rec := performRequest(t, router, http.MethodGet, "/zones/missing", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("delete responds with no content", func(t *testing.T) {
		zones := &zoneServiceStub{zone: zone}
		router := newTestRouter(zones, &scheduleServiceStub{}, &capacityServiceStub{}, &bookingServiceStub{})

		rec := performRequest(t, router, http.MethodDelete, "/zones/zone-1", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if zones.deleted != "zone-1" {
			t.Fatalf("expected zone-1 to be deleted, got %q", zones.deleted)
		}
	})

	t.Run("unsupported methods carry an Allow header", func(t *testing.T) {
		router := newTestRouter(&zoneServiceStub{}, &scheduleServiceStub{}, &capacityServiceStub{}, &bookingServiceStub{})

		rec := performRequest(t, router, http.MethodPatch, "/zones", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
			t.Fatalf("expected Allow header naming POST, got %q", allow)
		}
	})
}

func TestScheduleEndpoints(t *testing.T) {
	t.Run("save returns the inserted rows", func(t *testing.T) {
		schedules := &scheduleServiceStub{rules: []recurrence.Rule{{
			ID:         "rule-1",
			ZoneID:     "zone-1",
			Day:        time.Monday,
			StartMin:   9 * 60,
			EndMin:     10 * 60,
			Capacity:   10,
			Period:     recurrence.PeriodGeneralUse,
			Kind:       recurrence.KindWeekly,
			AnchorDate: monday,
			Exclusions: recurrence.NewExclusionSet(),
		}}}
		router := newTestRouter(&zoneServiceStub{}, schedules, &capacityServiceStub{}, &bookingServiceStub{})

		body := `{"day":1,"start_min":540,"end_min":600,"capacity":10,"period":"general-use","kind":"weekly-on-day","reference_date":"2024-01-01"}`
		rec := performRequest(t, router, http.MethodPost, "/zones/zone-1/schedule", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if schedules.savedZoneID != "zone-1" {
			t.Fatalf("expected the path zone to reach the service, got %q", schedules.savedZoneID)
		}

		payload := decodeBody[saveRuleResponse](t, rec)
		if len(payload.Rules) != 1 || payload.Rules[0].Start != "09:00" {
			t.Fatalf("unexpected payload %+v", payload)
		}
	})

	t.Run("conflicts surface as 409 with the full list", func(t *testing.T) {
		schedules := &scheduleServiceStub{saveErr: &application.ConflictError{
			Report: &scheduler.Report{Conflicts: []scheduler.Conflict{{
				RuleID:   "existing",
				Day:      time.Monday,
				StartMin: 8*60 + 30,
				EndMin:   9*60 + 30,
				Period:   recurrence.PeriodGeneralUse,
				Kind:     recurrence.KindWeekly,
			}}},
		}}
		router := newTestRouter(&zoneServiceStub{}, schedules, &capacityServiceStub{}, &bookingServiceStub{})

		body := `{"day":1,"start_min":510,"end_min":570,"period":"performance","kind":"weekly-on-day","reference_date":"2024-01-01"}`
		rec := performRequest(t, router, http.MethodPost, "/zones/zone-1/schedule", body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}

		payload := decodeBody[errorResponse](t, rec)
		if payload.ErrorCode != "SCHEDULE_CONFLICT" {
			t.Fatalf("expected SCHEDULE_CONFLICT, got %q", payload.ErrorCode)
		}
		if len(payload.Conflicts) != 1 || payload.Conflicts[0].Start != "08:30" {
			t.Fatalf("unexpected conflicts %+v", payload.Conflicts)
		}
	})

	t.Run("validation failures surface as 422", func(t *testing.T) {
		vErr := &application.ValidationError{FieldErrors: map[string]string{"time": "start must be before end"}}
		schedules := &scheduleServiceStub{saveErr: vErr}
		router := newTestRouter(&zoneServiceStub{}, schedules, &capacityServiceStub{}, &bookingServiceStub{})

		body := `{"day":1,"start_min":600,"end_min":540,"period":"general-use","kind":"weekly-on-day","reference_date":"2024-01-01"}`
		rec := performRequest(t, router, http.MethodPost, "/zones/zone-1/schedule", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}

		payload := decodeBody[errorResponse](t, rec)
		if payload.Errors["time"] == "" {
			t.Fatalf("expected the field errors in the body, got %+v", payload)
		}
	})

	t.Run("delete without a match yields 404 with a code", func(t *testing.T) {
		schedules := &scheduleServiceStub{deleteErr: application.ErrNoMatchingSchedule}
		router := newTestRouter(&zoneServiceStub{}, schedules, &capacityServiceStub{}, &bookingServiceStub{})

		body := `{"mode":"single","target_date":"2024-01-08","start_min":540,"end_min":600,"period":"general-use","kind":"weekly-on-day"}`
		rec := performRequest(t, router, http.MethodDelete, "/zones/zone-1/schedule", body)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}

		payload := decodeBody[errorResponse](t, rec)
		if payload.ErrorCode != "NO_MATCHING_SCHEDULE" {
			t.Fatalf("expected NO_MATCHING_SCHEDULE, got %q", payload.ErrorCode)
		}
	})

	t.Run("week evaluation renders the slot map", func(t *testing.T) {
		capacity := &capacityServiceStub{slots: application.WeekSlots{
			ZoneID:      "zone-1",
			WeekStart:   monday,
			SlotMinutes: 30,
			OpenMin:     9 * 60,
			CloseMin:    10 * 60,
			Assignments: map[application.SlotKey]application.SlotAssignment{
				{Day: time.Monday, Minute: 9 * 60}: {RuleID: "rule-1", Capacity: 10, Period: recurrence.PeriodGeneralUse},
			},
		}}
		router := newTestRouter(&zoneServiceStub{}, &scheduleServiceStub{}, capacity, &bookingServiceStub{})

		rec := performRequest(t, router, http.MethodGet, "/zones/zone-1/schedule?week_start=2024-01-01", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		payload := decodeBody[weekResponse](t, rec)
		if len(payload.Slots) != 1 || payload.Slots[0].Time != "09:00" {
			t.Fatalf("unexpected payload %+v", payload)
		}
	})

	t.Run("week evaluation requires a valid date", func(t *testing.T) {
		router := newTestRouter(&zoneServiceStub{}, &scheduleServiceStub{}, &capacityServiceStub{}, &bookingServiceStub{})

		rec := performRequest(t, router, http.MethodGet, "/zones/zone-1/schedule?week_start=yesterday", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("blocks render for the requested date", func(t *testing.T) {
		capacity := &capacityServiceStub{blocks: []application.Block{{
			StartSlot: 0,
			EndSlot:   1,
			StartMin:  9 * 60,
			EndMin:    10 * 60,
			Period:    recurrence.PeriodGeneralUse,
			Capacity:  10,
		}}}
		router := newTestRouter(&zoneServiceStub{}, &scheduleServiceStub{}, capacity, &bookingServiceStub{})

		rec := performRequest(t, router, http.MethodGet, "/zones/zone-1/schedule/blocks?date=2024-01-01", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		payload := decodeBody[blocksResponse](t, rec)
		if payload.Date != "2024-01-01" || len(payload.Blocks) != 1 {
			t.Fatalf("unexpected payload %+v", payload)
		}
		if payload.Blocks[0].Start != "09:00" || payload.Blocks[0].End != "10:00" {
			t.Fatalf("unexpected block %+v", payload.Blocks[0])
		}
	})

	t.Run("overrides render inside the window", func(t *testing.T) {
		capacity := &capacityServiceStub{overrides: []application.CapacityOverride{{
			ZoneID:   "zone-1",
			Date:     monday,
			Period:   recurrence.PeriodClosed,
			Capacity: 0,
		}}}
		router := newTestRouter(&zoneServiceStub{}, &scheduleServiceStub{}, capacity, &bookingServiceStub{})

		rec := performRequest(t, router, http.MethodGet, "/zones/zone-1/schedule/overrides?from=2024-01-01&to=2024-01-07", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		payload := decodeBody[overridesResponse](t, rec)
		if len(payload.Overrides) != 1 || payload.Overrides[0].Period != "closed" {
			t.Fatalf("unexpected payload %+v", payload)
		}
	})
}

func TestBookingEndpoints(t *testing.T) {
	t.Run("sync accepts a mirrored instance", func(t *testing.T) {
		bookings := &bookingServiceStub{}
		router := newTestRouter(&zoneServiceStub{}, &scheduleServiceStub{}, &capacityServiceStub{}, bookings)

		body := `{"id":"inst-1","booking_id":"bk-1","start":"2024-01-01T09:00:00Z","end":"2024-01-01T10:00:00Z","racks":["rack-1"]}`
		rec := performRequest(t, router, http.MethodPut, "/zones/zone-1/bookings", body)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}

		if len(bookings.synced) != 1 {
			t.Fatalf("expected 1 synced booking, got %d", len(bookings.synced))
		}
		synced := bookings.synced[0]
		if synced.ZoneID != "zone-1" || synced.ID != "inst-1" {
			t.Fatalf("unexpected booking %+v", synced)
		}
		if !synced.Start.Equal(monday.Add(9 * time.Hour)) {
			t.Fatalf("unexpected start %s", synced.Start)
		}
	})

	t.Run("remove drops the instance from the path", func(t *testing.T) {
		bookings := &bookingServiceStub{}
		router := newTestRouter(&zoneServiceStub{}, &scheduleServiceStub{}, &capacityServiceStub{}, bookings)

		rec := performRequest(t, router, http.MethodDelete, "/zones/zone-1/bookings/inst-1", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if bookings.removed != "inst-1" {
			t.Fatalf("expected inst-1 to be removed, got %q", bookings.removed)
		}
	})

	t.Run("views render minutes as clock times", func(t *testing.T) {
		bookings := &bookingServiceStub{views: application.ZoneDayViews{
			ZoneID: "zone-1",
			Date:   monday,
			Occupied: map[string][]application.MinuteInterval{
				"rack-1": {{StartMin: 9 * 60, EndMin: 10 * 60}},
			},
			Unavailable: map[string][]application.MinuteInterval{},
			Exhausted: map[string][]int{
				"rack-2": {10 * 60, 9 * 60},
			},
		}}
		router := newTestRouter(&zoneServiceStub{}, &scheduleServiceStub{}, &capacityServiceStub{}, bookings)

		rec := performRequest(t, router, http.MethodGet, "/zones/zone-1/schedule/views?date=2024-01-01", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		payload := decodeBody[viewsResponse](t, rec)
		occupied := payload.Occupied["rack-1"]
		if len(occupied) != 1 || occupied[0].Start != "09:00" || occupied[0].End != "10:00" {
			t.Fatalf("unexpected occupied view %+v", occupied)
		}
		exhausted := payload.Exhausted["rack-2"]
		if len(exhausted) != 2 || exhausted[0] != "09:00" || exhausted[1] != "10:00" {
			t.Fatalf("expected sorted clock times, got %v", exhausted)
		}
	})
}

func TestRequestLoggerMiddleware(t *testing.T) {
	router := NewRouter(RouterConfig{
		Zones:      NewZoneHandler(&zoneServiceStub{}, nil),
		Middleware: []func(http.Handler) http.Handler{RequestLogger(nil)},
	})

	rec := performRequest(t, router, http.MethodGet, "/zones", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 through the middleware, got %d", rec.Code)
	}
}
