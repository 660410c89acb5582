package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"englearn/internal/app/apiresp"
	"englearn/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 8 << 20

type quizService interface {
	ListQuizzes(ctx context.Context, scope Scope) ([]QuizSummary, error)
	CreateQuiz(ctx context.Context, scope Scope, in CreateQuizInput) (*Quiz, error)
	GetDetail(ctx context.Context, scope Scope, quizID int64) (*QuizDetail, error)
	ReplaceContent(ctx context.Context, scope Scope, quizID int64, payload ImportPayload) (*ReplaceResult, error)
	UpdateQuiz(ctx context.Context, scope Scope, quizID int64, patch QuizPatch) (*UpdateResult, error)
	DeleteQuiz(ctx context.Context, scope Scope, quizID int64) error
	ExportDetailExcel(ctx context.Context, scope Scope, quizID int64) ([]byte, error)

	AddGroup(ctx context.Context, scope Scope, quizID int64, in ImportGroup) (*Group, error)
	UpdateGroup(ctx context.Context, scope Scope, groupID int64, patch GroupPatch) (*Group, error)
	DeleteGroup(ctx context.Context, scope Scope, groupID int64) error
	AddQuestion(ctx context.Context, scope Scope, groupID int64, in ImportQuestion) (*Question, error)
	UpdateQuestion(ctx context.Context, scope Scope, questionID int64, patch QuestionPatch) (*Question, error)
	DeleteQuestion(ctx context.Context, scope Scope, questionID int64) error
	AddOption(ctx context.Context, scope Scope, questionID int64, in ImportOption) (*Option, error)
	UpdateOption(ctx context.Context, scope Scope, optionID int64, patch OptionPatch) (*Option, error)
	DeleteOption(ctx context.Context, scope Scope, optionID int64) error
	AddAsset(ctx context.Context, scope Scope, in AssetInput) (*Asset, error)
	UpdateAsset(ctx context.Context, scope Scope, assetID int64, patch AssetPatch) (*Asset, error)
	DeleteAsset(ctx context.Context, scope Scope, assetID int64) error
}

type Handler struct {
	svc      quizService
	validate *validator.Validate
	log      *logger.Logger
}

type createQuizRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	QuizType    int    `json:"quizType" validate:"omitempty,min=1"`
	IsActive    *bool  `json:"isActive"`
}

type addOptionRequest struct {
	Content   string `json:"content" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type addAssetRequest struct {
	OwnerType   int    `json:"ownerType" validate:"required,oneof=1 2"`
	OwnerID     int64  `json:"ownerID" validate:"required,gt=0"`
	AssetType   int    `json:"assetType" validate:"required,oneof=1 2 3 5"`
	URL         string `json:"url" validate:"max=2048"`
	ContentText string `json:"contentText"`
	Caption     string `json:"caption" validate:"max=500"`
	MimeType    string `json:"mimeType" validate:"max=255"`
}

type importResponse struct {
	Message string `json:"message"`
	QuizID  int64  `json:"quizID"`
	Version int64  `json:"version"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func NewHandler(svc quizService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{svc: svc, validate: v, log: log}
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListQuizzes(r.Context(), scope)
	if err != nil {
		h.writeServiceError(w, r, "list quizzes", err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req createQuizRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apiresp.WriteValidation(w, r, err)
		return
	}
	item, err := h.svc.CreateQuiz(r.Context(), scope, CreateQuizInput{
		Title:       req.Title,
		Description: req.Description,
		QuizType:    req.QuizType,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.writeServiceError(w, r, "create quiz", err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}
	detail, err := h.svc.GetDetail(r.Context(), scope, quizID)
	if err != nil {
		h.writeServiceError(w, r, "get quiz detail", err, "quiz_id", quizID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, detail)
}

func (h *Handler) ImportQuiz(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}
	var payload ImportPayload
	if !h.decode(w, r, &payload) {
		return
	}
	res, err := h.svc.ReplaceContent(r.Context(), scope, quizID, payload)
	if err != nil {
		h.writeServiceError(w, r, "import quiz", err, "quiz_id", quizID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, importResponse{
		Message: "quiz content imported",
		QuizID:  res.QuizID,
		Version: res.Version,
	})
}

func (h *Handler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}
	var patch QuizPatch
	if !h.decode(w, r, &patch) {
		return
	}
	res, err := h.svc.UpdateQuiz(r.Context(), scope, quizID, patch)
	if err != nil {
		h.writeServiceError(w, r, "update quiz", err, "quiz_id", quizID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, res)
}

func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}
	if err := h.svc.DeleteQuiz(r.Context(), scope, quizID); err != nil {
		h.writeServiceError(w, r, "delete quiz", err, "quiz_id", quizID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, messageResponse{Message: "quiz deleted"})
}

func (h *Handler) ExportQuiz(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}
	b, err := h.svc.ExportDetailExcel(r.Context(), scope, quizID)
	if err != nil {
		h.writeServiceError(w, r, "export quiz", err, "quiz_id", quizID)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz-%d.xlsx"`, quizID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *Handler) AddGroup(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	quizID, ok := pathID(w, r, "quizId")
	if !ok {
		return
	}
	var in ImportGroup
	if !h.decode(w, r, &in) {
		return
	}
	item, err := h.svc.AddGroup(r.Context(), scope, quizID, in)
	if err != nil {
		h.writeServiceError(w, r, "add group", err, "quiz_id", quizID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupId")
	if !ok {
		return
	}
	var patch GroupPatch
	if !h.decode(w, r, &patch) {
		return
	}
	item, err := h.svc.UpdateGroup(r.Context(), scope, groupID, patch)
	if err != nil {
		h.writeServiceError(w, r, "update group", err, "group_id", groupID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupId")
	if !ok {
		return
	}
	if err := h.svc.DeleteGroup(r.Context(), scope, groupID); err != nil {
		h.writeServiceError(w, r, "delete group", err, "group_id", groupID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, messageResponse{Message: "group deleted"})
}

func (h *Handler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupId")
	if !ok {
		return
	}
	var in ImportQuestion
	if !h.decode(w, r, &in) {
		return
	}
	item, err := h.svc.AddQuestion(r.Context(), scope, groupID, in)
	if err != nil {
		h.writeServiceError(w, r, "add question", err, "group_id", groupID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	questionID, ok := pathID(w, r, "questionId")
	if !ok {
		return
	}
	var patch QuestionPatch
	if !h.decode(w, r, &patch) {
		return
	}
	item, err := h.svc.UpdateQuestion(r.Context(), scope, questionID, patch)
	if err != nil {
		h.writeServiceError(w, r, "update question", err, "question_id", questionID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	questionID, ok := pathID(w, r, "questionId")
	if !ok {
		return
	}
	if err := h.svc.DeleteQuestion(r.Context(), scope, questionID); err != nil {
		h.writeServiceError(w, r, "delete question", err, "question_id", questionID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, messageResponse{Message: "question deleted"})
}

func (h *Handler) AddOption(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	questionID, ok := pathID(w, r, "questionId")
	if !ok {
		return
	}
	var req addOptionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apiresp.WriteValidation(w, r, err)
		return
	}
	item, err := h.svc.AddOption(r.Context(), scope, questionID, ImportOption{Content: req.Content, IsCorrect: req.IsCorrect})
	if err != nil {
		h.writeServiceError(w, r, "add option", err, "question_id", questionID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	optionID, ok := pathID(w, r, "optionId")
	if !ok {
		return
	}
	var patch OptionPatch
	if !h.decode(w, r, &patch) {
		return
	}
	item, err := h.svc.UpdateOption(r.Context(), scope, optionID, patch)
	if err != nil {
		h.writeServiceError(w, r, "update option", err, "option_id", optionID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	optionID, ok := pathID(w, r, "optionId")
	if !ok {
		return
	}
	if err := h.svc.DeleteOption(r.Context(), scope, optionID); err != nil {
		h.writeServiceError(w, r, "delete option", err, "option_id", optionID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, messageResponse{Message: "option deleted"})
}

func (h *Handler) AddAsset(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req addAssetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apiresp.WriteValidation(w, r, err)
		return
	}
	item, err := h.svc.AddAsset(r.Context(), scope, AssetInput{
		Owner: Owner{Kind: OwnerKind(req.OwnerType), ID: req.OwnerID},
		ImportAsset: ImportAsset{
			AssetType:   AssetType(req.AssetType),
			URL:         req.URL,
			ContentText: req.ContentText,
			Caption:     req.Caption,
			MimeType:    req.MimeType,
		},
	})
	if err != nil {
		h.writeServiceError(w, r, "add asset", err, "owner_type", req.OwnerType, "owner_id", req.OwnerID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	assetID, ok := pathID(w, r, "assetId")
	if !ok {
		return
	}
	var patch AssetPatch
	if !h.decode(w, r, &patch) {
		return
	}
	item, err := h.svc.UpdateAsset(r.Context(), scope, assetID, patch)
	if err != nil {
		h.writeServiceError(w, r, "update asset", err, "asset_id", assetID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	assetID, ok := pathID(w, r, "assetId")
	if !ok {
		return
	}
	if err := h.svc.DeleteAsset(r.Context(), scope, assetID); err != nil {
		h.writeServiceError(w, r, "delete asset", err, "asset_id", assetID)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, messageResponse{Message: "asset deleted"})
}

// scope reads the course from the route. Routes without {courseId} are global.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (Scope, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "courseId"))
	if raw == "" {
		return GlobalScope(), true
	}
	courseID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || courseID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid course id")
		return Scope{}, false
	}
	return CourseScope(courseID), true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid "+strings.TrimSuffix(key, "Id")+" id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error, keysAndValues ...interface{}) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrQuizNotFound),
		errors.Is(err, ErrCourseNotFound),
		errors.Is(err, ErrGroupNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrOptionNotFound),
		errors.Is(err, ErrAssetNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrVersionConflict):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ErrImportFailed), errors.Is(err, ErrUpdateFailed), errors.Is(err, ErrDeleteFailed):
		h.log.Error(op+" failed", append(keysAndValues, "error", err)...)
		apiresp.WriteError(w, r, http.StatusInternalServerError, err.Error())
	default:
		h.log.Error(op+" failed", append(keysAndValues, "error", err)...)
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
