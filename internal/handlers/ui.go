package handlers

import (
	_ "embed"
	"net/http"
)

//go:embed index.html
var indexPage []byte

// UIHandlers serves the embedded single-page UI.
type UIHandlers struct{}

func NewUIHandlers() *UIHandlers {
	return &UIHandlers{}
}

func (h *UIHandlers) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}
