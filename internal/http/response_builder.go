package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
)

// The write handlers answer HTMX form posts with small HTML fragments and
// HX-Trigger headers so the page can refresh the affected partials.

func writeErrorFragment(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}

func writeSuccessFragment(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`))
}

// setTrigger emits an HX-Trigger header with a JSON payload.
func setTrigger(w http.ResponseWriter, event string, payload map[string]any) {
	body, err := json.Marshal(map[string]any{event: payload})
	if err != nil {
		w.Header().Set("HX-Trigger", strconv.Quote(event))
		return
	}
	w.Header().Set("HX-Trigger", string(body))
}
