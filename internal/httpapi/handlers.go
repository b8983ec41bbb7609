package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/loot-draft-backend/internal/archive"
	"github.com/DoyleJ11/loot-draft-backend/internal/engine"
	"github.com/DoyleJ11/loot-draft-backend/internal/hub"
	"github.com/DoyleJ11/loot-draft-backend/internal/types"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxCodeAttempts     = 10
	codeLength          = 6
)

// History lists archived outcomes.
type History interface {
	Recent(ctx context.Context, limit int) ([]archive.Outcome, error)
}

// GenerateCode returns a session id short enough for players to type when
// they join from a second device: six characters of upper-case letters and
// digits from crypto/rand. CreateSession retries on the rare collision.
func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("generate session code: %w", err)
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createRequest struct {
	ID      string          `json:"id,omitempty"`
	Manager string          `json:"manager"`
	Roster  []engine.Member `json:"roster"`
	Items   string          `json:"items"`
}

// CreateSession rolls a new session. Without an id in the body a fresh
// six character code is generated.
func CreateSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, types.ServerMessage{Type: types.MsgError, Error: "bad json", Code: "bad_json"})
			return
		}
		cmd := engine.CreateSession{ID: req.ID, Manager: req.Manager, Roster: req.Roster, Items: req.Items}

		if cmd.ID != "" {
			up, err := h.Create(cmd)
			if err != nil {
				writeError(w, 0, err)
				return
			}
			writeJSON(w, http.StatusCreated, types.Snapshot(up))
			return
		}

		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code, err := GenerateCode()
			if err != nil {
				writeError(w, 0, err)
				return
			}
			cmd.ID = code
			up, err := h.Create(cmd)
			if errors.Is(err, hub.ErrSessionExists) {
				log.Debug("collision on code, regenerating", zap.String("code", code))
				continue
			}
			if err != nil {
				writeError(w, 0, err)
				return
			}
			writeJSON(w, http.StatusCreated, types.Snapshot(up))
			return
		}
		writeError(w, 0, errors.New("failed to generate session code"))
	}
}

func GetSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, ok := h.Get(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, 0, hub.ErrSessionNotFound)
			return
		}
		writeJSON(w, http.StatusOK, types.Snapshot(lb.View()))
	}
}

// PostCommand applies one ClientMessage to the session named in the path.
func PostCommand(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg types.ClientMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			writeJSON(w, http.StatusBadRequest, types.ServerMessage{Type: types.MsgError, Error: "bad json", Code: "bad_json"})
			return
		}
		cmd, err := types.ToCommand(msg)
		if err != nil {
			writeError(w, 0, err)
			return
		}
		up, err := h.Dispatch(chi.URLParam(r, "id"), cmd)
		if err != nil {
			writeError(w, up.Version, err)
			return
		}
		status := http.StatusOK
		if _, ok := cmd.(engine.CreateSession); ok {
			status = http.StatusCreated
		}
		writeJSON(w, status, types.Snapshot(up))
	}
}

// ListHistory serves GET /history?limit=N. A nil store means the archive
// is not configured.
func ListHistory(store History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeJSON(w, http.StatusServiceUnavailable, types.ServerMessage{
				Type: types.MsgError, Error: "archive disabled", Code: "archive_disabled",
			})
			return
		}
		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, types.ServerMessage{Type: types.MsgError, Error: "invalid limit", Code: "bad_request"})
				return
			}
			limit = min(n, maxHistoryLimit)
		}
		outcomes, err := store.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, 0, err)
			return
		}
		if outcomes == nil {
			outcomes = []archive.Outcome{}
		}
		writeJSON(w, http.StatusOK, outcomes)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func statusFor(code string) int {
	switch code {
	case "session_not_found":
		return http.StatusNotFound
	case "not_manager":
		return http.StatusForbidden
	case "invalid_state", "insufficient_quantity", "no_action_to_undo", "session_exists":
		return http.StatusConflict
	case "internal":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeError(w http.ResponseWriter, version int, err error) {
	msg := types.Failure(version, err)
	writeJSON(w, statusFor(msg.Code), msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
