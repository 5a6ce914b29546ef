// Package excursions contiene DTOs para los endpoints de excursiones.
package excursions

import (
	"time"

	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

// ExcursionResponse es la representación pública de una excursión.
type ExcursionResponse struct {
	ID        string    `json:"id"`
	CreatorID string    `json:"creatorId"`
	Name      string    `json:"name"`
	TrailName string    `json:"trailName"`
	Themes    []string  `json:"themes"`
	Zones     []int     `json:"zones"`
	PlannedAt time.Time `json:"plannedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewExcursionResponse(e *core.Excursion) *ExcursionResponse {
	themes := e.Themes
	if themes == nil {
		themes = []string{}
	}
	zones := e.Zones
	if zones == nil {
		zones = []int{}
	}
	return &ExcursionResponse{
		ID:        e.APIID,
		CreatorID: e.CreatorID,
		Name:      e.Name,
		TrailName: e.TrailName,
		Themes:    themes,
		Zones:     zones,
		PlannedAt: e.PlannedAt,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func NewExcursionResponses(list []*core.Excursion) []*ExcursionResponse {
	out := make([]*ExcursionResponse, 0, len(list))
	for _, e := range list {
		out = append(out, NewExcursionResponse(e))
	}
	return out
}

// ParticipantResponse es la representación pública de un participante.
type ParticipantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewParticipantResponse(p *core.Participant) *ParticipantResponse {
	return &ParticipantResponse{ID: p.APIID, Name: p.Name, CreatedAt: p.CreatedAt}
}

func NewParticipantResponses(list []*core.Participant) []*ParticipantResponse {
	out := make([]*ParticipantResponse, 0, len(list))
	for _, p := range list {
		out = append(out, NewParticipantResponse(p))
	}
	return out
}
