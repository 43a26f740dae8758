package server

import (
	"net/http"
)

const maxUploadBytes = 20 << 20 // 20 MiB

// handleUpload receives a multipart file, hands it to the configured
// uploader and returns the public URL. Gallery and chat both post here
// first, then reference the URL in their own entries.
func handleUpload(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.Uploader == nil {
			writeError(w, http.StatusServiceUnavailable, "uploads are not configured")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		url, err := app.Uploader.Upload(r.Context(), file, contentType)
		if err != nil {
			writeError(w, http.StatusBadGateway, "upload failed")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"url": url})
	}
}
