package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/application"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

type scheduleService interface {
	SaveRule(ctx context.Context, params application.SaveRuleParams) ([]recurrence.Rule, error)
	DeleteRule(ctx context.Context, params application.DeleteRuleParams) error
}

type capacityService interface {
	EvaluateWeek(ctx context.Context, zoneID string, weekStart time.Time) (application.WeekSlots, error)
	ComputeDayBlocks(slots application.WeekSlots, day time.Weekday) []application.Block
	ListOverrides(ctx context.Context, zoneID string, from, to time.Time) ([]application.CapacityOverride, error)
}

type ScheduleHandler struct {
	schedules scheduleService
	capacity  capacityService
	responder responder
}

func NewScheduleHandler(schedules scheduleService, capacity capacityService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, capacity: capacity, responder: newResponder(logger)}
}

// GetWeek returns the evaluated slot map for the seven days starting at the
// week_start query parameter.
func (h *ScheduleHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.capacity == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zoneID, ok := ZoneIDFromContext(r.Context())
	if !ok || strings.TrimSpace(zoneID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidZoneID)
		return
	}

	weekStart := parseDate(r.URL.Query().Get("week_start"))
	if weekStart.IsZero() {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	slots, err := h.capacity.EvaluateWeek(r.Context(), zoneID, weekStart)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toWeekResponse(slots))
}

// Save validates and persists one proposed rule. Overlaps surface as 409
// responses carrying the full conflict list.
func (h *ScheduleHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.schedules == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zoneID, ok := ZoneIDFromContext(r.Context())
	if !ok || strings.TrimSpace(zoneID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidZoneID)
		return
	}

	var req saveRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	rules, err := h.schedules.SaveRule(r.Context(), req.toParams(zoneID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, saveRuleResponse{Rules: toRuleDTOs(rules)})
}

// Delete removes rule rows addressed by mode, target date and signature.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.schedules == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zoneID, ok := ZoneIDFromContext(r.Context())
	if !ok || strings.TrimSpace(zoneID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidZoneID)
		return
	}

	var req deleteRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.schedules.DeleteRule(r.Context(), req.toParams(zoneID)); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Blocks returns the merged display blocks for the date query parameter.
func (h *ScheduleHandler) Blocks(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.capacity == nil {
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

	blocks := h.capacity.ComputeDayBlocks(slots, date.Weekday())
	h.responder.writeJSON(r.Context(), w, http.StatusOK, blocksResponse{
		Date:   date.Format(recurrence.DateLayout),
		Blocks: toBlockDTOs(blocks),
	})
}

// Overrides returns per-date capacity override records within an inclusive
// date window.
func (h *ScheduleHandler) Overrides(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.capacity == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zoneID, ok := ZoneIDFromContext(r.Context())
	if !ok || strings.TrimSpace(zoneID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidZoneID)
		return
	}

	from := parseDate(r.URL.Query().Get("from"))
	to := parseDate(r.URL.Query().Get("to"))
	if from.IsZero() || to.IsZero() {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	overrides, err := h.capacity.ListOverrides(r.Context(), zoneID, from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, overridesResponse{Overrides: toOverrideDTOs(overrides)})
}

type saveRuleRequest struct {
	Day           int      `json:"day"`
	StartMin      int      `json:"start_min"`
	EndMin        int      `json:"end_min"`
	Capacity      int      `json:"capacity"`
	Period        string   `json:"period"`
	Kind          string   `json:"kind"`
	Racks         []string `json:"racks"`
	ReferenceDate string   `json:"reference_date"`
	ReplacingIDs  []string `json:"replacing_ids"`
}

func (r saveRuleRequest) toParams(zoneID string) application.SaveRuleParams {
	return application.SaveRuleParams{
		ZoneID: zoneID,
		Proposal: application.RuleProposal{
			Day:      time.Weekday(r.Day),
			StartMin: r.StartMin,
			EndMin:   r.EndMin,
			Capacity: r.Capacity,
			Period:   recurrence.PeriodType(r.Period),
			Kind:     recurrence.Kind(r.Kind),
			Racks:    append([]string(nil), r.Racks...),
		},
		ReferenceDate: parseDate(r.ReferenceDate),
		ReplacingIDs:  append([]string(nil), r.ReplacingIDs...),
	}
}

type deleteRuleRequest struct {
	Mode       string `json:"mode"`
	TargetDate string `json:"target_date"`
	StartMin   int    `json:"start_min"`
	EndMin     int    `json:"end_min"`
	Period     string `json:"period"`
	Kind       string `json:"kind"`
}

func (r deleteRuleRequest) toParams(zoneID string) application.DeleteRuleParams {
	return application.DeleteRuleParams{
		ZoneID:     zoneID,
		Mode:       application.DeleteMode(r.Mode),
		TargetDate: parseDate(r.TargetDate),
		Signature: application.RuleSignature{
			StartMin: r.StartMin,
			EndMin:   r.EndMin,
			Period:   recurrence.PeriodType(r.Period),
			Kind:     recurrence.Kind(r.Kind),
		},
	}
}

type saveRuleResponse struct {
	Rules []ruleDTO `json:"rules"`
}

type ruleDTO struct {
	ID         string   `json:"id"`
	ZoneID     string   `json:"zone_id"`
	Day        int      `json:"day"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	StartMin   int      `json:"start_min"`
	EndMin     int      `json:"end_min"`
	Capacity   int      `json:"capacity"`
	Period     string   `json:"period"`
	Kind       string   `json:"kind"`
	AnchorDate string   `json:"anchor_date"`
	EndDate    string   `json:"end_date,omitempty"`
	Exclusions []string `json:"exclusions,omitempty"`
	Racks      []string `json:"racks,omitempty"`
}

func toRuleDTO(rule recurrence.Rule) ruleDTO {
	dto := ruleDTO{
		ID:         rule.ID,
		ZoneID:     rule.ZoneID,
		Day:        int(rule.Day),
		Start:      recurrence.FormatMinute(rule.StartMin),
		End:        recurrence.FormatMinute(rule.EndMin),
		StartMin:   rule.StartMin,
		EndMin:     rule.EndMin,
		Capacity:   rule.Capacity,
		Period:     string(rule.Period),
		Kind:       string(rule.Kind),
		AnchorDate: rule.AnchorDate.Format(recurrence.DateLayout),
		Racks:      append([]string(nil), rule.Racks...),
	}
	if rule.EndDate != nil {
		dto.EndDate = rule.EndDate.Format(recurrence.DateLayout)
	}
	for _, date := range rule.Exclusions.Dates() {
		dto.Exclusions = append(dto.Exclusions, date.Format(recurrence.DateLayout))
	}
	return dto
}

func toRuleDTOs(rules []recurrence.Rule) []ruleDTO {
	if len(rules) == 0 {
		return nil
	}
	out := make([]ruleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleDTO(rule))
	}
	return out
}

type weekResponse struct {
	ZoneID      string    `json:"zone_id"`
	WeekStart   string    `json:"week_start"`
	SlotMinutes int       `json:"slot_minutes"`
	OpenMin     int       `json:"open_min"`
	CloseMin    int       `json:"close_min"`
	Slots       []slotDTO `json:"slots"`
}

type slotDTO struct {
	Day      int      `json:"day"`
	Minute   int      `json:"minute"`
	Time     string   `json:"time"`
	RuleID   string   `json:"rule_id"`
	Capacity int      `json:"capacity"`
	Period   string   `json:"period"`
	Racks    []string `json:"racks,omitempty"`
}

func toWeekResponse(slots application.WeekSlots) weekResponse {
	response := weekResponse{
		ZoneID:      slots.ZoneID,
		WeekStart:   slots.WeekStart.Format(recurrence.DateLayout),
		SlotMinutes: slots.SlotMinutes,
		OpenMin:     slots.OpenMin,
		CloseMin:    slots.CloseMin,
	}

	for day := time.Sunday; day <= time.Saturday; day++ {
		for minute := slots.OpenMin; minute < slots.CloseMin; minute += slots.SlotMinutes {
			assignment, ok := slots.Assignments[application.SlotKey{Day: day, Minute: minute}]
			if !ok {
				continue
			}
			response.Slots = append(response.Slots, slotDTO{
				Day:      int(day),
				Minute:   minute,
				Time:     recurrence.FormatMinute(minute),
				RuleID:   assignment.RuleID,
				Capacity: assignment.Capacity,
				Period:   string(assignment.Period),
				Racks:    append([]string(nil), assignment.Racks...),
			})
		}
	}
	return response
}

type blocksResponse struct {
	Date   string     `json:"date"`
	Blocks []blockDTO `json:"blocks"`
}

type blockDTO struct {
	StartSlot int    `json:"start_slot"`
	EndSlot   int    `json:"end_slot"`
	Start     string `json:"start"`
	End       string `json:"end"`
	StartMin  int    `json:"start_min"`
	EndMin    int    `json:"end_min"`
	Period    string `json:"period"`
	Capacity  int    `json:"capacity"`
}

func toBlockDTOs(blocks []application.Block) []blockDTO {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]blockDTO, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, blockDTO{
			StartSlot: block.StartSlot,
			EndSlot:   block.EndSlot,
			Start:     recurrence.FormatMinute(block.StartMin),
			End:       recurrence.FormatMinute(block.EndMin),
			StartMin:  block.StartMin,
			EndMin:    block.EndMin,
			Period:    string(block.Period),
			Capacity:  block.Capacity,
		})
	}
	return out
}

type overridesResponse struct {
	Overrides []overrideDTO `json:"overrides"`
}

type overrideDTO struct {
	Date     string `json:"date"`
	Period   string `json:"period"`
	Capacity int    `json:"capacity"`
}

func toOverrideDTOs(overrides []application.CapacityOverride) []overrideDTO {
	if len(overrides) == 0 {
		return nil
	}
	out := make([]overrideDTO, 0, len(overrides))
	for _, override := range overrides {
		out = append(out, overrideDTO{
			Date:     override.Date.Format(recurrence.DateLayout),
			Period:   string(override.Period),
			Capacity: override.Capacity,
		})
	}
	return out
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	date, err := time.Parse(recurrence.DateLayout, value)
	if err != nil {
		return time.Time{}
	}
	return date
}
