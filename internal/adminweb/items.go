package adminweb

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"delivery-bot/internal/model"
	"delivery-bot/internal/repository"
)

type itemDTO struct {
	ItemID          string    `json:"item_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           int64     `json:"price"`
	Bonus           float64   `json:"bonus"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"active"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type itemRequest struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Price           int64   `json:"price"`
	Bonus           float64 `json:"bonus"`
	DurationMinutes int     `json:"duration_minutes"`
}

func (r *itemRequest) validate() string {
	switch {
	case r.Name == "":
		return "name is required"
	case r.Price <= 0:
		return "price must be positive"
	case r.Bonus <= 0:
		return "bonus must be positive"
	case r.DurationMinutes <= 0:
		return "duration_minutes must be positive"
	}
	return ""
}

func toItemDTO(i *model.ShopItem) itemDTO {
	return itemDTO{
		ItemID:          i.ItemID,
		Name:            i.Name,
		Description:     i.Description,
		Price:           i.Price,
		Bonus:           i.Bonus,
		DurationMinutes: i.DurationMinutes,
		Active:          i.Active,
		UpdatedAt:       i.UpdatedAt,
	}
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	out := make([]itemDTO, 0, len(items))
	for _, i := range items {
		out = append(out, toItemDTO(i))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.Get(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
		itemRequest
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.catalog.Create(r.Context(), req.ItemID, req.Name, req.Description, req.Price, req.Bonus, req.DurationMinutes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(item))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.catalog.Update(r.Context(), chi.URLParam(r, "itemID"), req.Name, req.Description, req.Price, req.Bonus, req.DurationMinutes)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

func (s *Server) handleSetItemActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemID")
		if err := s.catalog.SetActive(r.Context(), itemID, active); err != nil {
			if errors.Is(err, repository.ErrItemNotFound) {
				writeError(w, http.StatusNotFound, "item not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to update item")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"item_id": itemID, "active": active})
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Overview(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"total_users":      stats.TotalUsers,
		"total_deliveries": stats.TotalDeliveries,
		"total_money":      stats.TotalMoney,
		"active_buffs":     stats.ActiveBuffs,
	})
}

func (s *Server) handlePruneBuffs(w http.ResponseWriter, r *http.Request) {
	n, err := s.admin.PruneExpiredBuffs(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to prune buffs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"pruned": n})
}
