package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/studyhive/backend/service"
)

type HelperHandler struct {
	Helper *service.HelperService
}

type TopicHelpRequest struct {
	Category string `json:"category" validate:"required"`
}

// Topics asks the external generative endpoint to describe a study category.
// One call, no retries; failures collapse to a generic upstream error.
func (h *HelperHandler) Topics(w http.ResponseWriter, r *http.Request) {
	var req TopicHelpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Category = strings.TrimSpace(req.Category)
	if err := validate.Struct(req); err != nil {
		if !writeFieldErrors(w, err) {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}
	help, err := h.Helper.DescribeCategory(req.Category)
	if err != nil {
		log.Printf("helper: %v", err)
		writeError(w, http.StatusBadGateway, "helper service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, help)
}
