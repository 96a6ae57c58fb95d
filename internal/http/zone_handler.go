package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/application"
)

type zoneService interface {
	CreateZone(ctx context.Context, input application.ZoneInput) (application.Zone, error)
	UpdateZone(ctx context.Context, id string, input application.ZoneInput) (application.Zone, error)
	GetZone(ctx context.Context, id string) (application.Zone, error)
	ListZones(ctx context.Context) ([]application.Zone, error)
	DeleteZone(ctx context.Context, id string) error
}

type ZoneHandler struct {
	service   zoneService
	responder responder
}

func NewZoneHandler(service zoneService, logger *slog.Logger) *ZoneHandler {
	return &ZoneHandler{service: service, responder: newResponder(logger)}
}

func (h *ZoneHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zones, err := h.service.ListZones(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listZonesResponse{Zones: toZoneDTOs(zones)})
}

func (h *ZoneHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	zone, err := h.service.CreateZone(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toZoneDTO(zone))
}

func (h *ZoneHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zoneID, ok := ZoneIDFromContext(r.Context())
	if !ok || strings.TrimSpace(zoneID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidZoneID)
		return
	}

	zone, err := h.service.GetZone(r.Context(), zoneID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toZoneDTO(zone))
}

func (h *ZoneHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zoneID, ok := ZoneIDFromContext(r.Context())
	if !ok || strings.TrimSpace(zoneID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidZoneID)
		return
	}

	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	zone, err := h.service.UpdateZone(r.Context(), zoneID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toZoneDTO(zone))
}

func (h *ZoneHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zoneID, ok := ZoneIDFromContext(r.Context())
	if !ok || strings.TrimSpace(zoneID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidZoneID)
		return
	}

	if err := h.service.DeleteZone(r.Context(), zoneID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type zoneRequest struct {
	Name  string   `json:"name"`
	Racks []string `json:"racks"`
}

func (r zoneRequest) toInput() application.ZoneInput {
	return application.ZoneInput{
		Name:  strings.TrimSpace(r.Name),
		Racks: append([]string(nil), r.Racks...),
	}
}

type listZonesResponse struct {
	Zones []zoneDTO `json:"zones"`
}

type zoneDTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Racks     []string `json:"racks"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func toZoneDTO(zone application.Zone) zoneDTO {
	return zoneDTO{
		ID:        zone.ID,
		Name:      zone.Name,
		Racks:     append([]string(nil), zone.Racks...),
		CreatedAt: zone.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: zone.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toZoneDTOs(zones []application.Zone) []zoneDTO {
	if len(zones) == 0 {
		return nil
	}
	out := make([]zoneDTO, 0, len(zones))
	for _, zone := range zones {
		out = append(out, toZoneDTO(zone))
	}
	return out
}
