package api

import (
	"net/http"

	"trainhub/internal/widget"
)

func chatsHandler(widgets *widget.Catalog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		items := []widget.Widget{}
		if widgets != nil {
			items = widgets.List()
		}
		writeJSON(w, http.StatusOK, map[string]any{"chats": items, "total": len(items)})
	})
}

func chatItemHandler(widgets *widget.Catalog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		slug := pathTail(r.URL.Path, "/api/chats/")
		if slug == "" {
			writeError(w, http.StatusBadRequest, "missing chat slug")
			return
		}
		if widgets == nil {
			writeError(w, http.StatusNotFound, "chat not found")
			return
		}
		item, ok := widgets.Lookup(slug)
		if !ok {
			writeError(w, http.StatusNotFound, "chat not found")
			return
		}
		writeJSON(w, http.StatusOK, item)
	})
}
