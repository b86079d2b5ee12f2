package web

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hpungsan/fishfacts/internal/catalog"
	"github.com/hpungsan/fishfacts/internal/errors"
	"github.com/hpungsan/fishfacts/internal/species"
)

// sessionCookie carries the browser's catalog session id.
const sessionCookie = "fishfacts_session"

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    *catalog.Store
	renderer *Renderer
	logger   *zap.Logger
}

// HandleCatalog handles GET /: render the catalog view.
// A first visit creates a session and starts the initial load; the page
// shows the loading message and refreshes until the load resolves.
// JSON clients without a session get one synchronous load instead, and HEAD
// requests without a session fetch nothing.
func (h *Handlers) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.existing(r); !ok {
		switch {
		case r.Method == http.MethodHead:
			h.respond(w, r, http.StatusOK, catalog.ViewState{})
			return
		case wantsJSON(r):
			h.respond(w, r, http.StatusOK, h.store.Preview(r.Context()))
			return
		}
	}

	sess, created := h.session(w, r)
	if created {
		sess.StartLoad(h.store.Context())
	}
	h.respond(w, r, http.StatusOK, sess.State())
}

// HandleSearch handles POST /search: re-query upstream and filter by name.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	query := r.FormValue("q")

	sess, _ := h.session(w, r)
	sess.SetQuery(query)
	sess.StartSearch(h.store.Context(), query)

	h.afterAction(w, r, http.StatusAccepted, sess)
}

// HandleSort handles POST /sort: reorder the displayed catalog.
func (h *Handlers) HandleSort(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	key, err := species.ParseSortKey(r.FormValue("key"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	sess, created := h.session(w, r)
	if created {
		// Sorting an empty catalog is a no-op, but a new visitor still needs
		// the initial load.
		sess.StartLoad(h.store.Context())
	}
	sess.Sort(key)

	h.afterAction(w, r, http.StatusOK, sess)
}

// afterAction answers a state-changing request: HTMX and JSON clients get the
// new state directly, browsers are redirected back to the catalog (POST/redirect/GET).
func (h *Handlers) afterAction(w http.ResponseWriter, r *http.Request, jsonStatus int, sess *catalog.Session) {
	switch {
	case r.Header.Get("HX-Request") == "true", wantsJSON(r):
		h.respond(w, r, jsonStatus, sess.State())
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// respond renders a view state with content negotiation.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, status int, state catalog.ViewState) {
	if wantsJSON(r) {
		renderJSON(w, status, catalogJSONFor(state))
		return
	}

	data := h.renderer.catalogPage(state)

	// If htmx targets #results, render only the results fragment
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "catalog", "results", data)
		return
	}
	h.renderer.renderPage(w, r, "catalog", data)
}

// session returns the caller's session, creating one (and setting the
// cookie) when the request carries no known id.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*catalog.Session, bool) {
	if sess, ok := h.existing(r); ok {
		return sess, false
	}

	sess := h.store.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Debug("new session", zap.String("session", sess.ID), zap.String("request_id", RequestIDFrom(r.Context())))
	return sess, true
}

// existing returns the session named by the request cookie, if it is live.
func (h *Handlers) existing(r *http.Request) (*catalog.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	return h.store.Get(c.Value)
}
