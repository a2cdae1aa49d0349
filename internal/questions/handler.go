package questions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spencereven/Quiz/internal/models"
)

// maxUploadBytes caps import uploads at 10MB.
const maxUploadBytes = 10 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetQuestion serves one random question of the requested type. A missing
// type parameter is a client error; an empty result for the type is a
// not-found condition.
func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	qt := models.QuestionType(r.URL.Query().Get("type"))
	if qt == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Question type is required"})
		return
	}

	question, err := h.service.GetQuestion(r.Context(), qt)
	if err != nil {
		log.Printf("[handler] GetQuestion error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get question"})
		return
	}
	if question == nil {
		writeJSON(w, http.StatusNotFound, models.MessageResponse{Message: "No questions found for the selected type"})
		return
	}

	writeJSON(w, http.StatusOK, question)
}

// ListQuestions serves every question of the requested type.
func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	qt := models.QuestionType(r.URL.Query().Get("type"))
	if qt == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Question type is required"})
		return
	}

	questions, err := h.service.GetQuestionsByType(r.Context(), qt)
	if err != nil {
		log.Printf("[handler] ListQuestions error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get questions"})
		return
	}
	if questions == nil {
		questions = []models.Question{}
	}

	writeJSON(w, http.StatusOK, questions)
}

// UploadQuestions imports a question file. Partial success is a valid,
// non-error outcome: the response always reports the accepted count and the
// full list of rejected rows.
func (h *Handler) UploadQuestions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, models.UploadResponse{
			Success: false,
			Message: fmt.Sprintf("File upload error: %v", err),
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.UploadResponse{Success: false, Message: "No file uploaded"})
		return
	}
	defer file.Close()

	if !allowedUpload(header) {
		writeJSON(w, http.StatusBadRequest, models.UploadResponse{
			Success: false,
			Message: "Only JSON, CSV and Excel files are allowed",
		})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.UploadResponse{
			Success: false,
			Message: fmt.Sprintf("File upload error: %v", err),
		})
		return
	}

	summary, err := h.service.ImportFile(r.Context(), header.Filename, data)
	if err != nil {
		h.writeImportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UploadResponse{
		Success: true,
		Message: fmt.Sprintf("导入完成。成功 %d 条，失败 %d 条。", summary.SuccessCount, summary.ErrorCount),
		Data:    summary,
	})
}

func (h *Handler) writeImportError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnsupportedFormat) {
		writeJSON(w, http.StatusBadRequest, models.UploadResponse{Success: false, Message: "Unsupported file format"})
		return
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		log.Printf("[handler] UploadQuestions decode error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.UploadResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to process %s file", decodeErr.Format),
		})
		return
	}

	log.Printf("[handler] UploadQuestions error: %v", err)
	writeJSON(w, http.StatusInternalServerError, models.UploadResponse{Success: false, Message: "Failed to upload questions"})
}

// ClearQuestions empties the question bank.
func (h *Handler) ClearQuestions(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context()); err != nil {
		log.Printf("[handler] ClearQuestions error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.UploadResponse{Success: false, Message: "Failed to clear questions"})
		return
	}

	writeJSON(w, http.StatusOK, models.UploadResponse{Success: true, Message: "题库已清空"})
}

// allowedMIMETypes accepts json/csv/xlsx/xls uploads; either the MIME type
// or the filename extension matching suffices.
var allowedMIMETypes = map[string]bool{
	"application/json": true,
	"text/csv":         true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel":                                          true,
}

var allowedExtensions = map[string]bool{
	".json": true,
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

func allowedUpload(header *multipart.FileHeader) bool {
	if allowedMIMETypes[header.Header.Get("Content-Type")] {
		return true
	}
	return allowedExtensions[strings.ToLower(filepath.Ext(header.Filename))]
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
