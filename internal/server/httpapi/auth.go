package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type userInfoResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func toUserInfo(u *models.User) userInfoResponse {
	return userInfoResponse{
		ID:        u.ID,
		Username:  u.UserName,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), services.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, toUserInfo(user))
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			unauthorized(w, "No active account found with the given credentials")
			return
		}
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{Access: pair.AccessToken, Refresh: pair.RefreshToken})
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		writeErrors(w, http.StatusBadRequest, []string{"refresh: This field is required."})
		return
	}

	pair, err := h.users.RefreshToken(r.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) || errors.Is(err, common.ErrRefreshTokenExpired) {
			unauthorized(w, "Token is invalid or expired")
			return
		}
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{Access: pair.AccessToken, Refresh: pair.RefreshToken})
}

func (h *Handler) userInfo(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserInfo(user))
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.users.ChangePassword(r.Context(), userID(r), req.OldPassword, req.NewPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "password changed", "user_id", userID(r))
	writeJSON(w, http.StatusOK, errorDetail{Detail: msg})
}
