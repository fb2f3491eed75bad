package adminweb

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"delivery-bot/internal/model"
	"delivery-bot/internal/repository"
	"delivery-bot/internal/service"
)

type userDTO struct {
	TelegramID   int64      `json:"telegram_id"`
	Username     string     `json:"username"`
	Deliveries   int64      `json:"deliveries"`
	Money        int64      `json:"money"`
	Experience   int64      `json:"experience"`
	LastDelivery *time.Time `json:"last_delivery,omitempty"`
	Blocked      bool       `json:"blocked"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type buffDTO struct {
	ItemID    string    `json:"item_id"`
	Name      string    `json:"name"`
	Bonus     float64   `json:"bonus"`
	ExpiresAt time.Time `json:"expires_at"`
}

type transactionDTO struct {
	ID          int64     `json:"id"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserDTO(u *model.User) userDTO {
	return userDTO{
		TelegramID:   u.TelegramID,
		Username:     u.Username,
		Deliveries:   u.Deliveries,
		Money:        u.Money,
		Experience:   u.Experience,
		LastDelivery: u.LastDelivery,
		Blocked:      u.Blocked,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.admin.ListUsers(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":  out,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// handleExportUsers streams every account as one JSON document.
func (s *Server) handleExportUsers(w http.ResponseWriter, r *http.Request) {
	const page = 500

	var out []userDTO
	for offset := 0; ; offset += page {
		users, _, err := s.admin.ListUsers(r.Context(), offset, page)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "export failed")
			return
		}
		for _, u := range users {
			out = append(out, toUserDTO(u))
		}
		if len(users) < page {
			break
		}
	}

	w.Header().Set("Content-Disposition", "attachment; filename=users.json")
	writeJSON(w, http.StatusOK, map[string]any{
		"exported_at": time.Now().UTC(),
		"count":       len(out),
		"users":       out,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.admin.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if _, err := s.admin.Apply(r.Context(), service.Op{Kind: service.OpDelete, UserID: id}); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleRenameUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Username string `json:"username"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.admin.Apply(r.Context(), service.Op{Kind: service.OpRename, UserID: id, Name: req.Username})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrInvalidName), errors.Is(err, service.ErrNameTooLong):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to rename user")
		}
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(res.User))
}

func (s *Server) handleUserBuffs(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	buffs, err := s.admin.ActiveBuffs(r.Context(), id, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load buffs")
		return
	}

	out := make([]buffDTO, 0, len(buffs))
	for _, b := range buffs {
		out = append(out, buffDTO{ItemID: b.ItemID, Name: b.Name, Bonus: b.Bonus, ExpiresAt: b.ExpiresAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"buffs": out})
}

func (s *Server) handleUserTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	txs, err := s.admin.History(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionDTO{
			ID:          t.ID,
			Amount:      t.Amount,
			Type:        t.Type,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Delta int64 `json:"delta"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.admin.Apply(r.Context(), service.Op{Kind: service.OpAdjustBalance, UserID: id, Amount: req.Delta})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to adjust balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    toUserDTO(res.User),
		"clamped": res.Clamped,
	})
}

func (s *Server) handleGrantBuff(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		ItemID string `json:"item_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.admin.Apply(r.Context(), service.Op{Kind: service.OpGrantBuff, UserID: id, ItemID: req.ItemID})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, repository.ErrItemNotFound):
			writeError(w, http.StatusNotFound, "item not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to grant buff")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(res.User),
		"buff": buffDTO{ItemID: res.Buff.ItemID, Name: res.Buff.Name, Bonus: res.Buff.Bonus, ExpiresAt: res.Buff.ExpiresAt},
	})
}

func (s *Server) handleBlockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, true)
}

func (s *Server) handleUnblockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, false)
}

func (s *Server) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id, ok := userID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	res, err := s.admin.Apply(r.Context(), service.Op{Kind: service.OpSetBlocked, UserID: id, Blocked: blocked})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(res.User))
}
