// Package installations contiene DTOs para los endpoints de instalaciones.
package installations

import (
	"time"

	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

// InstallationResponse es la representación pública de una instalación.
// El shared secret nunca se serializa, salvo en la respuesta de creación.
type InstallationResponse struct {
	ID             string         `json:"id"`
	Properties     map[string]any `json:"properties"`
	EventsCount    int            `json:"eventsCount"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	FirstStartedAt *time.Time     `json:"firstStartedAt,omitempty"`
}

func NewInstallationResponse(inst *core.Installation) *InstallationResponse {
	props := inst.Properties
	if props == nil {
		props = map[string]any{}
	}
	return &InstallationResponse{
		ID:             inst.APIID,
		Properties:     props,
		EventsCount:    inst.EventsCount,
		CreatedAt:      inst.CreatedAt,
		UpdatedAt:      inst.UpdatedAt,
		FirstStartedAt: inst.FirstStartedAt,
	}
}

// CreatedInstallationResponse agrega el secreto recién emitido. Es la única
// vez que el cliente lo ve.
type CreatedInstallationResponse struct {
	*InstallationResponse
	SharedSecret string `json:"sharedSecret"`
}

// EventResponse es la representación pública de un evento de instalación.
type EventResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Version    string         `json:"version"`
	Properties map[string]any `json:"properties,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func NewEventResponse(ev *core.InstallationEvent) *EventResponse {
	return &EventResponse{
		ID:         ev.APIID,
		Type:       ev.Type,
		Version:    ev.Version,
		Properties: ev.Properties,
		OccurredAt: ev.OccurredAt,
		CreatedAt:  ev.CreatedAt,
	}
}
