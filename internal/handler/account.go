package handler

import (
	"net/http"
	"time"

	"github.com/templui/authgate/internal/ctxkeys"
	"github.com/templui/authgate/internal/service"
)

type accountHandler struct {
	userService *service.UserService
}

func NewAccountHandler(userService *service.UserService) *accountHandler {
	return &accountHandler{userService: userService}
}

type meResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Me returns the account behind the bearer token. Requires RequireBearer.
func (h *accountHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.ByID(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		writeFault(w, r, "failed to load authenticated user", err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Status:    user.Status.String(),
		CreatedAt: user.CreatedAt,
	})
}
