package handler

import (
	"net/http"

	"github.com/sakif/memopad/internal/markdown"
)

type renderRequest struct {
	Markdown string `json:"markdown"`
}

// HandleRender renders posted markdown without storing it. Rendering is a
// pure function of the input, so the route needs no authentication.
//
// HTTP: POST /api/render {"markdown": "..."} -> {"html": "..."}
func HandleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, htmlResponse{HTML: markdown.RenderHTML(req.Markdown)})
}
