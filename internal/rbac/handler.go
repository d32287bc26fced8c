package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/permbase/permbase/internal/platform/httpx"
)

// RoleFinder resolves a role for mutation endpoints.
type RoleFinder interface {
	FindRole(ctx context.Context, id int64) (Role, error)
}

// Handler exposes the role-permission admin API.
type Handler struct {
	logger    *slog.Logger
	matcher   *Matcher
	hooks     *Hooks
	store     Store
	roles     RoleFinder
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, matcher *Matcher, hooks *Hooks, store Store, roles RoleFinder) *Handler {
	return &Handler{
		logger:    logger,
		matcher:   matcher,
		hooks:     hooks,
		store:     store,
		roles:     roles,
		validator: validator.New(),
	}
}

// MountRoutes registers the permission routes under /{roleID}. Routes are
// registered flat so the role CRUD handler can share the same subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{roleID}/permissions", h.listPermissions)
	r.Put("/{roleID}/permissions", h.syncPermissions)
	r.Delete("/{roleID}/permissions", h.detachAllPermissions)
	r.Post("/{roleID}/permissions/{permissionID}", h.attachPermission)
	r.Delete("/{roleID}/permissions/{permissionID}", h.detachPermission)
	r.Get("/{roleID}/check", h.checkPermission)
	r.Post("/{roleID}/users/{userID}", h.assignUser)
	r.Delete("/{roleID}/users/{userID}", h.removeUser)
}

type syncRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,dive,gt=0"`
}

type checkResponse struct {
	RoleID  int64    `json:"role_id"`
	Granted bool     `json:"granted"`
	Mode    string   `json:"mode"`
	Queried []string `json:"queried"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	perms, err := h.matcher.Permissions(r.Context(), roleID)
	if err != nil {
		h.respondError(w, r, "list role permissions", err)
		return
	}
	if perms == nil {
		perms = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) syncPermissions(w http.ResponseWriter, r *http.Request) {
	role, ok := h.findRole(w, r)
	if !ok {
		return
	}
	var req syncRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	refs := make([]PermissionRef, 0, len(req.PermissionIDs))
	for _, id := range req.PermissionIDs {
		refs = append(refs, ByID(id))
	}
	result, err := h.hooks.SyncPermissions(r.Context(), role, refs)
	if err != nil {
		h.respondError(w, r, "sync permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) detachAllPermissions(w http.ResponseWriter, r *http.Request) {
	role, ok := h.findRole(w, r)
	if !ok {
		return
	}
	if err := h.hooks.DetachPermissions(r.Context(), role, nil); err != nil {
		h.respondError(w, r, "detach all permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) attachPermission(w http.ResponseWriter, r *http.Request) {
	role, ok := h.findRole(w, r)
	if !ok {
		return
	}
	permID, ok := h.pathID(w, r, "permissionID")
	if !ok {
		return
	}
	if err := h.hooks.AttachPermission(r.Context(), role, ByID(permID)); err != nil {
		h.respondError(w, r, "attach permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) detachPermission(w http.ResponseWriter, r *http.Request) {
	role, ok := h.findRole(w, r)
	if !ok {
		return
	}
	permID, ok := h.pathID(w, r, "permissionID")
	if !ok {
		return
	}
	if err := h.hooks.DetachPermission(r.Context(), role, ByID(permID)); err != nil {
		h.respondError(w, r, "detach permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) checkPermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	patterns := r.URL.Query()["permission"]
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "any"
	}
	if mode != "any" && mode != "all" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "mode must be any or all")
		return
	}

	var granted bool
	var err error
	if mode == "all" {
		granted, err = h.matcher.HasAllPermissions(r.Context(), roleID, patterns...)
	} else {
		granted, err = h.matcher.HasAnyPermission(r.Context(), roleID, patterns...)
	}
	if err != nil {
		h.respondError(w, r, "check permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{
		RoleID:  roleID,
		Granted: granted,
		Mode:    mode,
		Queried: patterns,
	})
}

func (h *Handler) assignUser(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.store.AssignUser(r.Context(), roleID, userID); err != nil {
		h.respondError(w, r, "assign user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeUser(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.store.RemoveUser(r.Context(), roleID, userID); err != nil {
		h.respondError(w, r, "remove user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) findRole(w http.ResponseWriter, r *http.Request) (Role, bool) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return Role{}, false
	}
	role, err := h.roles.FindRole(r.Context(), roleID)
	if err != nil {
		h.respondError(w, r, "find role", err)
		return Role{}, false
	}
	return role, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrUnknownRole), errors.Is(err, ErrUnknownPermission):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyAttached):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidPermissionRef):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
