package authapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/inspectauth/pkg/auth"
	"github.com/dmitrymomot/inspectauth/pkg/binder"
)

type tokenRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type linkRequest struct {
	LinkToken string `json:"linkToken"`
	Password  string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// acceptedMessage is returned whether or not the email exists.
const acceptedMessage = "If an account exists for this email, a message has been sent."

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := binder.JSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, res.User)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := binder.JSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := binder.JSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	pair, err := h.auth.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, pair)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := binder.JSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.Logout(r.Context(), in.RefreshToken); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if err := h.auth.LogoutAll(r.Context(), p.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := binder.JSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.auth.VerifyEmail(r.Context(), in.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handler) resendVerification(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if err := binder.JSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.ResendVerification(r.Context(), in.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusAccepted, messageResponse{Message: acceptedMessage})
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if err := binder.JSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.InitiatePasswordReset(r.Context(), in.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusAccepted, messageResponse{Message: acceptedMessage})
}

func (h *Handler) completePasswordReset(w http.ResponseWriter, r *http.Request) {
	var in resetRequest
	if err := binder.JSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.CompletePasswordReset(r.Context(), in.Token, in.Password, in.ConfirmPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if err := binder.JSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	p := PrincipalFromContext(r.Context())
	if err := h.auth.ChangePassword(r.Context(), p.UserID, in.CurrentPassword, in.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	user, err := h.auth.GetUser(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if err := h.auth.Deactivate(r.Context(), p.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) beginOAuth(w http.ResponseWriter, r *http.Request) {
	req, err := h.social.BeginLogin(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("mode") == "json" {
		writeData(w, http.StatusOK, req)
		return
	}
	http.Redirect(w, r, req.URL, http.StatusFound)
}

// oauthCallback accepts both query callbacks and Apple's form_post.
func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, errors.Join(errMalformedForm, err))
		return
	}
	if providerErr := r.Form.Get("error"); providerErr != "" {
		writeJSON(w, http.StatusUnauthorized, Envelope{Error: &ErrorDetail{
			Code:    "oauth_denied",
			Message: "Sign-in was cancelled or denied by the provider.",
		}})
		return
	}

	res, err := h.social.CompleteLogin(r.Context(), chi.URLParam(r, "provider"), r.Form.Get("code"), r.Form.Get("state"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.IsNewUser {
		status = http.StatusCreated
	}
	writeData(w, status, res)
}

func (h *Handler) linkSocial(w http.ResponseWriter, r *http.Request) {
	var in linkRequest
	if err := binder.JSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.social.LinkSocialAccount(r.Context(), in.LinkToken, in.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}
