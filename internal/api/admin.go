package api

import (
	"net/http"
	"strings"
	"time"

	"storyia/internal/auth"
	"storyia/internal/models"
)

const errAdminTarget = "Action not allowed on an administrator."

// caller loads the staff account making an admin request.
func (h *Handlers) caller(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	u, err := h.store.GetUser(r.Context(), userID(r))
	if err != nil {
		h.storeError(w, err, "User")
		return u, false
	}
	return u, true
}

func (h *Handlers) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.store.ListUsers(r.Context(), models.UserFilter{
		Query: strings.TrimSpace(q.Get("q")),
		Order: q.Get("order"),
	})
	if err != nil {
		h.storeError(w, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type adminUserRequest struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	IsStaff     *bool   `json:"is_staff"`
	IsSuperuser *bool   `json:"is_superuser"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// AdminCreateUser adds an account. The superuser flag is only honored
// when the caller is a superuser.
func (h *Handlers) AdminCreateUser(w http.ResponseWriter, r *http.Request) {
	me, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req adminUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u := models.User{
		Username:    strings.TrimSpace(deref(req.Username)),
		Email:       strings.TrimSpace(deref(req.Email)),
		FirstName:   strings.TrimSpace(deref(req.FirstName)),
		LastName:    strings.TrimSpace(deref(req.LastName)),
		IsStaff:     deref(req.IsStaff),
		IsSuperuser: deref(req.IsSuperuser) && me.IsSuperuser,
	}
	password := deref(req.Password)

	fe := FieldErrors{}
	if err := h.checkUsername(r.Context(), fe, u.Username, 0); err != nil {
		h.storeError(w, err, "User")
		return
	}
	checkEmail(fe, u.Email)
	if err := auth.ValidatePassword(password, u.Username); err != nil {
		fe.add("password", err.Error())
	}
	if len(fe) > 0 {
		writeFieldErrors(w, fe)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	u.Password = hash
	if _, err := h.store.CreateUser(r.Context(), &u); err != nil {
		if isConflict(err) {
			writeFieldErrors(w, FieldErrors{"username": "This username is already taken."})
			return
		}
		h.storeError(w, err, "User")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// adminTarget loads the account named by the path and refuses superuser
// targets to callers who are not superusers themselves.
func (h *Handlers) adminTarget(w http.ResponseWriter, r *http.Request, me models.User) (models.User, bool) {
	id, ok := pathID(w, r, "id", "User")
	if !ok {
		return models.User{}, false
	}
	target, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "User")
		return target, false
	}
	if target.IsSuperuser && !me.IsSuperuser {
		writeError(w, http.StatusForbidden, errAdminTarget)
		return target, false
	}
	return target, true
}

func (h *Handlers) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	me, ok := h.caller(w, r)
	if !ok {
		return
	}
	target, ok := h.adminTarget(w, r, me)
	if !ok {
		return
	}
	var req adminUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	fe := FieldErrors{}
	if req.Username != nil {
		target.Username = strings.TrimSpace(*req.Username)
		if err := h.checkUsername(ctx, fe, target.Username, target.ID); err != nil {
			h.storeError(w, err, "User")
			return
		}
	}
	if req.Email != nil {
		target.Email = strings.TrimSpace(*req.Email)
		checkEmail(fe, target.Email)
	}
	if req.FirstName != nil {
		target.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		target.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.IsStaff != nil {
		target.IsStaff = *req.IsStaff
	}
	if req.IsSuperuser != nil && me.IsSuperuser {
		target.IsSuperuser = *req.IsSuperuser
	}
	password := deref(req.Password)
	if password != "" {
		if err := auth.ValidatePassword(password, target.Username); err != nil {
			fe.add("password", err.Error())
		}
	}
	if len(fe) > 0 {
		writeFieldErrors(w, fe)
		return
	}

	if err := h.store.UpdateUser(ctx, target); err != nil {
		if isConflict(err) {
			writeFieldErrors(w, FieldErrors{"username": "This username is already taken."})
			return
		}
		h.storeError(w, err, "User")
		return
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err := h.store.SetPassword(ctx, target.ID, hash); err != nil {
			h.storeError(w, err, "User")
			return
		}
	}
	writeJSON(w, http.StatusOK, target)
}

func (h *Handlers) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	me, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "User")
	if !ok {
		return
	}
	if id == me.ID {
		writeError(w, http.StatusBadRequest, "You cannot delete your own account.")
		return
	}
	target, ok := h.adminTarget(w, r, me)
	if !ok {
		return
	}
	if err := h.store.DeleteUser(r.Context(), target.ID); err != nil {
		h.storeError(w, err, "User")
		return
	}
	h.removeUserFiles(target.ID)
	writeMessage(w, "User deleted successfully")
}

func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.SignupStats(r.Context(), time.Now())
	if err != nil {
		h.storeError(w, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
