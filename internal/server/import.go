package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/nao1215/webkb/internal/importer"
)

// maxUploadFile bounds a single uploaded file.
const maxUploadFile = 20 << 20

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "combined"
	}
	if mode != "combined" && mode != "zip" {
		writeDetail(w, http.StatusBadRequest, "mode must be combined or zip.")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeDetail(w, http.StatusBadRequest, "No files uploaded.")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeDetail(w, http.StatusBadRequest, "No files uploaded.")
		return
	}

	files := make([]importer.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.logger.Warn("failed to open upload", "file", fh.Filename, "error", err)
			continue
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadFile))
		_ = f.Close()
		if err != nil {
			s.logger.Warn("failed to read upload", "file", fh.Filename, "error", err)
			continue
		}
		files = append(files, importer.File{Name: fh.Filename, Data: data})
	}

	docs, err := s.importer.Parse(files)
	if err != nil {
		if errors.Is(err, importer.ErrNoDocuments) {
			writeDetail(w, http.StatusBadRequest, userMessage(err))
			return
		}
		writeDetail(w, http.StatusInternalServerError, "Import failed.")
		return
	}

	if mode == "combined" {
		combined := importer.ExportCombined(docs)
		if strings.TrimSpace(combined) == "" {
			writeDetail(w, http.StatusBadRequest, "Uploaded files did not contain readable content.")
			return
		}
		writeAttachment(w, "text/markdown; charset=utf-8", "combined.md", []byte(combined), 0)
		return
	}

	var buf bytes.Buffer
	if err := importer.ExportZip(&buf, docs); err != nil {
		s.logger.Error("failed to build zip", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to build archive.")
		return
	}
	writeAttachment(w, "application/zip", "documents.zip", buf.Bytes(), 0)
}
