package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"marketplace/db"
	"marketplace/internal/auth"
	"marketplace/models"
)

func (h *Handler) setSessionCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteNoneMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   60 * 60,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{"refreshToken", "accessToken"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   h.SecureCookies,
			SameSite: http.SameSiteNoneMode,
		})
	}
}

func publicUser(u *db.User) map[string]interface{} {
	var mobile interface{}
	if u.Mobile.Valid {
		mobile = u.Mobile.String
	}
	return map[string]interface{}{
		"id":     u.ID,
		"name":   u.Name,
		"email":  u.Email,
		"role":   u.Role,
		"mobile": mobile,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// RegisterHandler handles POST /api/auth/register.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	user := &db.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
		Role:     req.Role,
		Mobile:   nullString(req.Mobile),
	}
	if err := h.Store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrConflict) {
			writeMessage(w, http.StatusBadRequest, "Email already in use")
			return
		}
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"user":    publicUser(user),
	})
}

// LoginHandler handles POST /api/auth/login. Issues a fresh token pair and
// stores the refresh token on the user row, invalidating any prior session.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, "Email is not registered")
			return
		}
		h.storeError(w, r, err)
		return
	}
	if !auth.CheckPassword(req.Password, user.Password) {
		writeMessage(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	accessToken, refreshToken, err := h.Tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if err := h.Store.SetRefreshToken(r.Context(), user.ID, nullString(refreshToken)); err != nil {
		h.storeError(w, r, err)
		return
	}

	h.setSessionCookies(w, accessToken, refreshToken)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Login successful",
		"accessToken": accessToken,
	})
}

// RefreshHandler handles POST /api/auth/token. Rotation: the presented
// refresh token must exactly match the stored one, and a new pair replaces
// it so a superseded token cannot be replayed.
func (h *Handler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refreshToken")
	if err != nil || cookie.Value == "" {
		writeMessage(w, http.StatusUnauthorized, "No refresh token provided")
		return
	}

	claims, err := h.Tokens.ValidateRefresh(cookie.Value)
	if err != nil {
		writeMessage(w, http.StatusForbidden, "Invalid or expired refresh token")
		return
	}

	user, err := h.Store.GetUserByID(r.Context(), claims.UserID)
	if err != nil || !user.RefreshToken.Valid || user.RefreshToken.String != cookie.Value {
		writeMessage(w, http.StatusForbidden, "Invalid refresh token")
		return
	}

	accessToken, refreshToken, err := h.Tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if err := h.Store.SetRefreshToken(r.Context(), user.ID, nullString(refreshToken)); err != nil {
		h.storeError(w, r, err)
		return
	}

	h.setSessionCookies(w, accessToken, refreshToken)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

// LogoutHandler handles POST /api/auth/logout. Clears the stored refresh
// token when the cookie still validates; cookies are cleared either way.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("refreshToken"); err == nil && cookie.Value != "" {
		if claims, err := h.Tokens.ValidateRefresh(cookie.Value); err == nil {
			if err := h.Store.SetRefreshToken(r.Context(), claims.UserID, sql.NullString{}); err != nil {
				h.storeError(w, r, err)
				return
			}
		}
	}

	h.clearSessionCookies(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// MeHandler handles GET /api/auth/me.
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	claims := IdentityFromContext(r.Context())

	user, err := h.Store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User found",
		"user":    publicUser(user),
	})
}

// UpdateProfileHandler handles PUT /api/auth/profile. A password change
// requires the current password to verify first.
func (h *Handler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims := IdentityFromContext(r.Context())

	var req models.ProfileUpdateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.Store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	if req.Email != user.Email {
		if _, err := h.Store.GetUserByEmail(r.Context(), req.Email); err == nil {
			writeMessage(w, http.StatusBadRequest, "Email already in use")
			return
		} else if !errors.Is(err, db.ErrNotFound) {
			h.storeError(w, r, err)
			return
		}
	}

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			writeMessage(w, http.StatusBadRequest, "Current password is required to set a new password")
			return
		}
		if !auth.CheckPassword(req.CurrentPassword, user.Password) {
			writeMessage(w, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		hashed, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			h.storeError(w, r, err)
			return
		}
		user.Password = hashed
	}

	user.Name = req.Name
	user.Email = req.Email
	user.Mobile = nullString(req.Mobile)

	if err := h.Store.UpdateUserProfile(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrConflict) {
			writeMessage(w, http.StatusBadRequest, "Email already in use")
			return
		}
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    publicUser(user),
	})
}

// DeleteAccountHandler handles DELETE /api/auth/account. Verifies the
// password, then tears down the account and everything referencing it in a
// single transaction.
func (h *Handler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	claims := IdentityFromContext(r.Context())

	var req models.AccountDeleteRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.Store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if !auth.CheckPassword(req.Password, user.Password) {
		writeMessage(w, http.StatusUnauthorized, "Incorrect password")
		return
	}

	if err := h.Store.DeleteUserCascade(r.Context(), user.ID); err != nil {
		h.storeError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	writeMessage(w, http.StatusOK, "Account and all associated data deleted successfully")
}
