package handlers

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rsaiteja/codegpt/internal/middleware"
	"github.com/rsaiteja/codegpt/internal/models"
	"github.com/rsaiteja/codegpt/internal/services/ai"
)

// maxUploadSize bounds handwritten-code image uploads
const maxUploadSize = 8 << 20

// Home renders the analysis page
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":    "CodeGPT",
		"User":     middleware.GetUser(r),
		"Features": ai.AllFeatures,
		"Code":     "",
		"Error":    r.URL.Query().Get("error"),
	}
	h.render(w, "home.html", data)
}

// Analyze handles the analysis form submission. Anonymous users can analyze
// code; history is recorded only for authenticated users.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.redirect(w, r, "/?error=Invalid+request")
		return
	}

	user := middleware.GetUser(r)

	req, errMsg := h.buildRequest(r)
	if errMsg != "" {
		h.redirect(w, r, "/?error="+errMsg)
		return
	}
	if user != nil {
		req.UserID = user.ID.String()
	} else {
		req.UserID = "anonymous"
	}

	result, err := h.aiService.Analyze(r.Context(), req)
	if err != nil {
		h.redirect(w, r, "/?error=Analysis+failed,+please+try+again")
		return
	}

	if user != nil {
		entry := models.NewHistoryEntry(user.ID, req.Code, result.FeatureLabels(), result.CombinedOutput())
		if err := h.historyRepo.Create(entry); err != nil {
			h.redirect(w, r, "/?error=Could+not+save+history")
			return
		}
	}

	data := map[string]interface{}{
		"Title":    "CodeGPT",
		"User":     user,
		"Features": ai.AllFeatures,
		"Code":     req.Code,
		"Result":   result,
	}
	h.render(w, "home.html", data)
}

// buildRequest reads the code, feature selection, and optional image upload
// out of a parsed multipart form. A non-empty second return is a
// URL-encoded user-facing error.
func (h *Handler) buildRequest(r *http.Request) (*ai.Request, string) {
	req := &ai.Request{Code: r.FormValue("code")}

	for _, raw := range r.Form["features"] {
		feature, ok := ai.ParseFeature(raw)
		if !ok {
			return nil, "Unknown+feature+selected"
		}
		req.Features = append(req.Features, feature)
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil {
			return nil, "Could+not+read+uploaded+image"
		}
		req.ImageData = data
		req.ImageMIME = header.Header.Get("Content-Type")
		if req.ImageMIME == "" {
			req.ImageMIME = "image/png"
		}
	} else if err != http.ErrMissingFile {
		return nil, "Could+not+read+uploaded+image"
	}

	if req.Code == "" && req.ImageData == nil {
		return nil, "Paste+some+code+or+upload+an+image"
	}
	return req, ""
}

// APIAnalyze is the JSON surface for analysis requests
func (h *Handler) APIAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user := middleware.GetUser(r)
	if user == nil {
		h.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Code      string   `json:"code"`
		Features  []string `json:"features"`
		Image     string   `json:"image,omitempty"`
		ImageMIME string   `json:"image_mime,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req := &ai.Request{
		UserID: user.ID.String(),
		Code:   body.Code,
	}
	for _, raw := range body.Features {
		feature, ok := ai.ParseFeature(raw)
		if !ok {
			h.jsonError(w, "Unknown feature: "+raw, http.StatusBadRequest)
			return
		}
		req.Features = append(req.Features, feature)
	}
	if body.Image != "" {
		data, err := base64.StdEncoding.DecodeString(body.Image)
		if err != nil {
			h.jsonError(w, "Invalid image encoding", http.StatusBadRequest)
			return
		}
		req.ImageData = data
		req.ImageMIME = body.ImageMIME
		if req.ImageMIME == "" {
			req.ImageMIME = "image/png"
		}
	}
	if req.Code == "" && req.ImageData == nil {
		h.jsonError(w, "Code or image is required", http.StatusBadRequest)
		return
	}

	result, err := h.aiService.Analyze(r.Context(), req)
	if err != nil {
		h.jsonError(w, "Analysis failed", http.StatusInternalServerError)
		return
	}

	entry := models.NewHistoryEntry(user.ID, req.Code, result.FeatureLabels(), result.CombinedOutput())
	if err := h.historyRepo.Create(entry); err != nil {
		h.jsonError(w, "Could not save history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// AIUsage returns AI usage statistics for the current user
func (h *Handler) AIUsage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		h.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats := h.aiService.GetUsageStats(user.ID.String())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
