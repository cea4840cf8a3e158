package handlers

import (
	"net/http"

	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/model"
)

const maxUploadBytes = 32 << 20

func (a *API) uploadMedia(w http.ResponseWriter, r *http.Request, caller model.User) {
	if a.Media == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "media storage not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		httpx.WriteError(w, http.StatusBadRequest, "no file selected")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj, err := a.Media.Upload(r.Context(), header.Filename, contentType, file)
	if err != nil {
		a.logger.Error("media upload failed", "err", err, "filename", header.Filename)
		httpx.WriteError(w, http.StatusBadGateway, "upload failed")
		return
	}

	item := model.MediaItem{
		Filename:         obj.Filename,
		OriginalFilename: header.Filename,
		FilePath:         obj.Path,
		PublicURL:        obj.PublicURL,
		FileSize:         obj.Size,
		MimeType:         obj.ContentType,
		AltText:          r.FormValue("alt_text"),
		Caption:          r.FormValue("caption"),
		Tags:             r.MultipartForm.Value["tags"],
		UsageContext:     r.FormValue("usage_context"),
		UploadedBy:       caller.ID,
		CreatedAt:        a.now().UTC(),
	}
	if err := a.Content.CreateMedia(r.Context(), &item); err != nil {
		a.storeError(w, r, err, "")
		return
	}
	respond(w, http.StatusCreated, map[string]any{
		"media_id":   item.ID,
		"public_url": item.PublicURL,
		"message":    "File uploaded successfully",
	})
}
