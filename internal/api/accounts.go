package api

import (
	"context"
	"net/http"
	"net/mail"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"storyia/internal/auth"
	"storyia/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,30}$`)

const maxPhotoSize = 2 << 20

var minBirthDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// checkUsername validates the format and case-insensitive uniqueness of
// name. exceptID excludes the account being edited.
func (h *Handlers) checkUsername(ctx context.Context, fe FieldErrors, name string, exceptID int64) error {
	if !usernamePattern.MatchString(name) {
		fe.add("username", "Use 3-30 letters, digits, dots, underscores or hyphens.")
		return nil
	}
	taken, err := h.store.UsernameTaken(ctx, name, exceptID)
	if err != nil {
		return err
	}
	if taken {
		fe.add("username", "This username is already taken.")
	}
	return nil
}

func checkEmail(fe FieldErrors, email string) {
	if email == "" {
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		fe.add("email", "Enter a valid email address.")
	}
}

// checkBirthDate parses s and keeps it between 1900-01-01 and today.
func checkBirthDate(fe FieldErrors, s string, now time.Time) *string {
	if s == "" {
		return nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		fe.add("birth_date", "Enter a valid date (YYYY-MM-DD).")
		return nil
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(minBirthDate) || d.After(today) {
		fe.add("birth_date", "Birth date must be between 1900-01-01 and today.")
		return nil
	}
	return &s
}

type signupRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	fe := FieldErrors{}
	if !usernamePattern.MatchString(req.Username) {
		fe.add("username", "Use 3-30 letters, digits, dots, underscores or hyphens.")
	}
	checkEmail(fe, req.Email)
	if err := auth.ValidatePassword(req.Password, req.Username); err != nil {
		fe.add("password", err.Error())
	}
	if len(fe) > 0 {
		writeFieldErrors(w, fe)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	u := models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  hash,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	id, err := h.store.CreateUser(r.Context(), &u)
	if err != nil {
		if isConflict(err) {
			writeError(w, http.StatusConflict, "Username already taken")
			return
		}
		h.storeError(w, err, "User")
		return
	}
	u.ID = id
	h.signer.SetCookie(w, id)
	writeJSON(w, http.StatusCreated, u)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login accepts either the username or the email address.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.store.GetUserByLogin(r.Context(), strings.TrimSpace(req.Username))
	if err != nil || !auth.CheckPassword(u.Password, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	h.signer.SetCookie(w, u.ID)
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	writeMessage(w, "Logged out successfully")
}

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.GetUser(r.Context(), userID(r))
	if err != nil {
		h.storeError(w, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type profileRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	BirthDate *string `json:"birth_date"`
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	u, err := h.store.GetUser(ctx, userID(r))
	if err != nil {
		h.storeError(w, err, "User")
		return
	}

	fe := FieldErrors{}
	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
		if err := h.checkUsername(ctx, fe, u.Username, u.ID); err != nil {
			h.storeError(w, err, "User")
			return
		}
	}
	if req.Email != nil {
		u.Email = strings.TrimSpace(*req.Email)
		checkEmail(fe, u.Email)
	}
	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.BirthDate != nil {
		u.BirthDate = checkBirthDate(fe, strings.TrimSpace(*req.BirthDate), time.Now())
	}
	if len(fe) > 0 {
		writeFieldErrors(w, fe)
		return
	}

	if err := h.store.UpdateUser(ctx, u); err != nil {
		if isConflict(err) {
			writeFieldErrors(w, FieldErrors{"username": "This username is already taken."})
			return
		}
		h.storeError(w, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+(1<<20))
	if !h.parseMultipart(w, r) {
		return
	}
	data, header, ok, err := formFile(r, "photo")
	if err != nil || !ok {
		writeFieldErrors(w, FieldErrors{"photo": "This field is required."})
		return
	}
	if len(data) > maxPhotoSize {
		writeFieldErrors(w, FieldErrors{"photo": "The image must be at most 2MB."})
		return
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		writeFieldErrors(w, FieldErrors{"photo": "Upload a valid image."})
		return
	}

	ctx := r.Context()
	u, err := h.store.GetUser(ctx, userID(r))
	if err != nil {
		h.storeError(w, err, "User")
		return
	}
	rel := uploadName(dirPhotos, u.ID, filepath.Ext(header.Filename))
	if err := h.saveFile(rel, data); err != nil {
		h.logger.Error("failed to save photo", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if err := h.store.SetUserPhoto(ctx, u.ID, rel); err != nil {
		h.removeFiles(rel)
		h.storeError(w, err, "User")
		return
	}
	h.removeFiles(u.Photo)
	u.Photo = rel
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.store.GetUser(ctx, userID(r))
	if err != nil {
		h.storeError(w, err, "User")
		return
	}
	if err := h.store.SetUserPhoto(ctx, u.ID, ""); err != nil {
		h.storeError(w, err, "User")
		return
	}
	h.removeFiles(u.Photo)
	u.Photo = ""
	writeJSON(w, http.StatusOK, u)
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	u, err := h.store.GetUser(ctx, userID(r))
	if err != nil {
		h.storeError(w, err, "User")
		return
	}

	fe := FieldErrors{}
	if !auth.CheckPassword(u.Password, req.CurrentPassword) {
		fe.add("current_password", auth.ErrIncorrectPassword.Error())
	}
	if req.NewPassword != req.ConfirmPassword {
		fe.add("confirm_password", auth.ErrPasswordMismatch.Error())
	}
	if err := auth.ValidatePassword(req.NewPassword, u.Username); err != nil {
		fe.add("new_password", err.Error())
	}
	if len(fe) > 0 {
		writeFieldErrors(w, fe)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := h.store.SetPassword(ctx, u.ID, hash); err != nil {
		h.storeError(w, err, "User")
		return
	}
	h.signer.SetCookie(w, u.ID)
	writeMessage(w, "Password updated successfully")
}

// DeleteAccount removes the caller's account with everything it owns.
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		h.storeError(w, err, "User")
		return
	}
	h.removeUserFiles(id)
	auth.ClearCookie(w)
	writeMessage(w, "Account deleted successfully")
}
