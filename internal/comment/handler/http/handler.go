package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/service"
)

const (
	HeaderUserID     = "X-User-ID"
	HeaderUserName   = "X-User-Name"
	HeaderTotalCount = "X-Total-Count"
)

var errUnauthorized = errors.New("missing identity")

type Handler struct {
	svc service.CommentService
	log zerolog.Logger
}

func New(svc service.CommentService, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type contentRequest struct {
	Content string `json:"content"`
}

type reportRequest struct {
	Reason string `json:"reason"`
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) GetThread(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	t, err := h.svc.Thread(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set(HeaderTotalCount, strconv.Itoa(t.TotalCount()))
	writeJSON(w, r, stdhttp.StatusOK, t)
}

func (h *Handler) CreateRoot(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	author, ok := identity(r)
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}

	var req contentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeJSON(w, r, stdhttp.StatusBadRequest, errorBody("bad json"))
		return
	}

	c, err := h.svc.CreateRoot(r.Context(), chi.URLParam(r, "postID"), author, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusCreated, c)
}

func (h *Handler) CreateReply(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	author, ok := identity(r)
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}

	var req contentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeJSON(w, r, stdhttp.StatusBadRequest, errorBody("bad json"))
		return
	}

	c, err := h.svc.Reply(r.Context(), chi.URLParam(r, "id"), author, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusCreated, c)
}

func (h *Handler) GetSubtree(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	c, err := h.svc.Subtree(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, c)
}

func (h *Handler) GetPath(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	items, err := h.svc.Path(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, items)
}

func (h *Handler) DeleteComment(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	author, ok := identity(r)
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}

	deleted, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), author.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, map[string]any{"deleted": deleted})
}

func (h *Handler) Like(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.setLike(w, r, h.svc.Like)
}

func (h *Handler) Unlike(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.setLike(w, r, h.svc.Unlike)
}

func (h *Handler) setLike(w stdhttp.ResponseWriter, r *stdhttp.Request, op func(ctx context.Context, id, userID string) ([]string, error)) {
	author, ok := identity(r)
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}

	likes, err := op(r.Context(), chi.URLParam(r, "id"), author.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, map[string]any{"likes": likes})
}

func (h *Handler) Report(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	author, ok := identity(r)
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}

	var req reportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeJSON(w, r, stdhttp.StatusBadRequest, errorBody("bad json"))
		return
	}

	rep, err := h.svc.Report(r.Context(), chi.URLParam(r, "id"), author.ID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusCreated, rep)
}

func (h *Handler) ListReports(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if _, ok := identity(r); !ok {
		writeError(w, r, errUnauthorized)
		return
	}

	reports, err := h.svc.Reports(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, reports)
}

// RenameUser changes the display name on every comment of the caller.
func (h *Handler) RenameUser(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	author, ok := identity(r)
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}
	userID := chi.URLParam(r, "userID")
	if userID != author.ID {
		writeError(w, r, service.ErrForbidden)
		return
	}

	var req renameRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeJSON(w, r, stdhttp.StatusBadRequest, errorBody("bad json"))
		return
	}

	n, err := h.svc.RenameAuthor(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stdhttp.StatusOK, map[string]any{"updated": n})
}

func identity(r *stdhttp.Request) (model.Author, bool) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		return model.Author{}, false
	}
	return model.Author{ID: id, Name: strings.TrimSpace(r.Header.Get(HeaderUserName))}, true
}

func writeError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, r, stdhttp.StatusBadRequest, errorBody("invalid input"))
	case errors.Is(err, errUnauthorized):
		writeJSON(w, r, stdhttp.StatusUnauthorized, errorBody("missing "+HeaderUserID+" header"))
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, r, stdhttp.StatusForbidden, errorBody("forbidden"))
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, r, stdhttp.StatusNotFound, errorBody("not found"))
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeJSON(w, r, stdhttp.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]any {
	return map[string]any{"error": msg}
}

func writeJSON(w stdhttp.ResponseWriter, r *stdhttp.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
