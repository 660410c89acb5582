package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

var _ quizService = (*Service)(nil)

type mockQuizService struct {
	listFn           func(ctx context.Context, scope Scope) ([]QuizSummary, error)
	createFn         func(ctx context.Context, scope Scope, in CreateQuizInput) (*Quiz, error)
	detailFn         func(ctx context.Context, scope Scope, quizID int64) (*QuizDetail, error)
	replaceFn        func(ctx context.Context, scope Scope, quizID int64, payload ImportPayload) (*ReplaceResult, error)
	updateFn         func(ctx context.Context, scope Scope, quizID int64, patch QuizPatch) (*UpdateResult, error)
	deleteFn         func(ctx context.Context, scope Scope, quizID int64) error
	exportFn         func(ctx context.Context, scope Scope, quizID int64) ([]byte, error)
	addGroupFn       func(ctx context.Context, scope Scope, quizID int64, in ImportGroup) (*Group, error)
	updateGroupFn    func(ctx context.Context, scope Scope, groupID int64, patch GroupPatch) (*Group, error)
	deleteGroupFn    func(ctx context.Context, scope Scope, groupID int64) error
	addQuestionFn    func(ctx context.Context, scope Scope, groupID int64, in ImportQuestion) (*Question, error)
	updateQuestionFn func(ctx context.Context, scope Scope, questionID int64, patch QuestionPatch) (*Question, error)
	deleteQuestionFn func(ctx context.Context, scope Scope, questionID int64) error
	addOptionFn      func(ctx context.Context, scope Scope, questionID int64, in ImportOption) (*Option, error)
	updateOptionFn   func(ctx context.Context, scope Scope, optionID int64, patch OptionPatch) (*Option, error)
	deleteOptionFn   func(ctx context.Context, scope Scope, optionID int64) error
	addAssetFn       func(ctx context.Context, scope Scope, in AssetInput) (*Asset, error)
	updateAssetFn    func(ctx context.Context, scope Scope, assetID int64, patch AssetPatch) (*Asset, error)
	deleteAssetFn    func(ctx context.Context, scope Scope, assetID int64) error
}

var errNotImplemented = errors.New("not implemented")

func (m *mockQuizService) ListQuizzes(ctx context.Context, scope Scope) ([]QuizSummary, error) {
	if m.listFn == nil {
		return nil, errNotImplemented
	}
	return m.listFn(ctx, scope)
}

func (m *mockQuizService) CreateQuiz(ctx context.Context, scope Scope, in CreateQuizInput) (*Quiz, error) {
	if m.createFn == nil {
		return nil, errNotImplemented
	}
	return m.createFn(ctx, scope, in)
}

func (m *mockQuizService) GetDetail(ctx context.Context, scope Scope, quizID int64) (*QuizDetail, error) {
	if m.detailFn == nil {
		return nil, errNotImplemented
	}
	return m.detailFn(ctx, scope, quizID)
}

func (m *mockQuizService) ReplaceContent(ctx context.Context, scope Scope, quizID int64, payload ImportPayload) (*ReplaceResult, error) {
	if m.replaceFn == nil {
		return nil, errNotImplemented
	}
	return m.replaceFn(ctx, scope, quizID, payload)
}

func (m *mockQuizService) UpdateQuiz(ctx context.Context, scope Scope, quizID int64, patch QuizPatch) (*UpdateResult, error) {
	if m.updateFn == nil {
		return nil, errNotImplemented
	}
	return m.updateFn(ctx, scope, quizID, patch)
}

func (m *mockQuizService) DeleteQuiz(ctx context.Context, scope Scope, quizID int64) error {
	if m.deleteFn == nil {
		return errNotImplemented
	}
	return m.deleteFn(ctx, scope, quizID)
}

func (m *mockQuizService) ExportDetailExcel(ctx context.Context, scope Scope, quizID int64) ([]byte, error) {
	if m.exportFn == nil {
		return nil, errNotImplemented
	}
	return m.exportFn(ctx, scope, quizID)
}

func (m *mockQuizService) AddGroup(ctx context.Context, scope Scope, quizID int64, in ImportGroup) (*Group, error) {
	if m.addGroupFn == nil {
		return nil, errNotImplemented
	}
	return m.addGroupFn(ctx, scope, quizID, in)
}

func (m *mockQuizService) UpdateGroup(ctx context.Context, scope Scope, groupID int64, patch GroupPatch) (*Group, error) {
	if m.updateGroupFn == nil {
		return nil, errNotImplemented
	}
	return m.updateGroupFn(ctx, scope, groupID, patch)
}

func (m *mockQuizService) DeleteGroup(ctx context.Context, scope Scope, groupID int64) error {
	if m.deleteGroupFn == nil {
		return errNotImplemented
	}
	return m.deleteGroupFn(ctx, scope, groupID)
}

func (m *mockQuizService) AddQuestion(ctx context.Context, scope Scope, groupID int64, in ImportQuestion) (*Question, error) {
	if m.addQuestionFn == nil {
		return nil, errNotImplemented
	}
	return m.addQuestionFn(ctx, scope, groupID, in)
}

func (m *mockQuizService) UpdateQuestion(ctx context.Context, scope Scope, questionID int64, patch QuestionPatch) (*Question, error) {
	if m.updateQuestionFn == nil {
		return nil, errNotImplemented
	}
	return m.updateQuestionFn(ctx, scope, questionID, patch)
}

func (m *mockQuizService) DeleteQuestion(ctx context.Context, scope Scope, questionID int64) error {
	if m.deleteQuestionFn == nil {
		return errNotImplemented
	}
	return m.deleteQuestionFn(ctx, scope, questionID)
}

func (m *mockQuizService) AddOption(ctx context.Context, scope Scope, questionID int64, in ImportOption) (*Option, error) {
	if m.addOptionFn == nil {
		return nil, errNotImplemented
	}
	return m.addOptionFn(ctx, scope, questionID, in)
}

func (m *mockQuizService) UpdateOption(ctx context.Context, scope Scope, optionID int64, patch OptionPatch) (*Option, error) {
	if m.updateOptionFn == nil {
		return nil, errNotImplemented
	}
	return m.updateOptionFn(ctx, scope, optionID, patch)
}

func (m *mockQuizService) DeleteOption(ctx context.Context, scope Scope, optionID int64) error {
	if m.deleteOptionFn == nil {
		return errNotImplemented
	}
	return m.deleteOptionFn(ctx, scope, optionID)
}

func (m *mockQuizService) AddAsset(ctx context.Context, scope Scope, in AssetInput) (*Asset, error) {
	if m.addAssetFn == nil {
		return nil, errNotImplemented
	}
	return m.addAssetFn(ctx, scope, in)
}

func (m *mockQuizService) UpdateAsset(ctx context.Context, scope Scope, assetID int64, patch AssetPatch) (*Asset, error) {
	if m.updateAssetFn == nil {
		return nil, errNotImplemented
	}
	return m.updateAssetFn(ctx, scope, assetID, patch)
}

func (m *mockQuizService) DeleteAsset(ctx context.Context, scope Scope, assetID int64) error {
	if m.deleteAssetFn == nil {
		return errNotImplemented
	}
	return m.deleteAssetFn(ctx, scope, assetID)
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v body=%s", err, rr.Body.String())
	}
	return out
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	e, ok := decodeMap(t, rr)["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error payload, body=%s", rr.Body.String())
	}
	msg, _ := e["message"].(string)
	return msg
}

func TestGetQuizOK(t *testing.T) {
	h := NewHandler(&mockQuizService{
		detailFn: func(ctx context.Context, scope Scope, quizID int64) (*QuizDetail, error) {
			if !scope.IsGlobal() || quizID != 12 {
				t.Fatalf("unexpected scope/quiz %+v %d", scope, quizID)
			}
			return &QuizDetail{Quiz: Quiz{QuizID: 12, Title: "Listening"}, Groups: []Group{}}, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/quiz/12", nil)
	req = withParam(req, "quizId", "12")
	w := httptest.NewRecorder()
	h.GetQuiz(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := decodeMap(t, w)["data"].(map[string]any)
	if data["quizID"] != float64(12) || data["title"] != "Listening" {
		t.Fatalf("unexpected data %+v", data)
	}
}

func TestGetQuizInvalidID(t *testing.T) {
	h := NewHandler(&mockQuizService{}, nil)
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/admin/quiz/abc", nil), "quizId", "abc")
	w := httptest.NewRecorder()
	h.GetQuiz(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if msg := errorMessage(t, w); msg != "invalid quiz id" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestCourseScopeFromRoute(t *testing.T) {
	var got Scope
	h := NewHandler(&mockQuizService{
		listFn: func(ctx context.Context, scope Scope) ([]QuizSummary, error) {
			got = scope
			return []QuizSummary{}, nil
		},
	}, nil)

	req := withParam(httptest.NewRequest(http.MethodGet, "/api/teacher/courses/9/quiz", nil), "courseId", "9")
	w := httptest.NewRecorder()
	h.ListQuizzes(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.IsGlobal() || got.CourseID() != 9 {
		t.Fatalf("expected course scope 9, got %+v", got)
	}

	req = withParam(httptest.NewRequest(http.MethodGet, "/api/teacher/courses/x/quiz", nil), "courseId", "x")
	w = httptest.NewRecorder()
	h.ListQuizzes(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad course id, got %d", w.Code)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	h := NewHandler(&mockQuizService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/quiz", bytes.NewReader([]byte(`{"description":"x"}`)))
	w := httptest.NewRecorder()
	h.CreateQuiz(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	e := decodeMap(t, w)["error"].(map[string]any)
	fields, _ := e["fields"].(map[string]any)
	if fields["title"] != "required" {
		t.Fatalf("expected title required, got %+v", e)
	}
}

func TestCreateQuizOK(t *testing.T) {
	h := NewHandler(&mockQuizService{
		createFn: func(ctx context.Context, scope Scope, in CreateQuizInput) (*Quiz, error) {
			if in.Title != "Unit 1" || in.QuizType != 2 {
				t.Fatalf("unexpected input %+v", in)
			}
			return &Quiz{QuizID: 1, Title: in.Title, QuizType: in.QuizType, IsActive: true}, nil
		},
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/quiz", bytes.NewReader([]byte(`{"title":"Unit 1","quizType":2}`)))
	w := httptest.NewRecorder()
	h.CreateQuiz(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestImportQuizPassesPayload(t *testing.T) {
	h := NewHandler(&mockQuizService{
		replaceFn: func(ctx context.Context, scope Scope, quizID int64, payload ImportPayload) (*ReplaceResult, error) {
			if quizID != 3 || len(payload.Groups) != 1 {
				t.Fatalf("unexpected call quiz=%d payload=%+v", quizID, payload)
			}
			g := payload.Groups[0]
			if g.Instruction != "Listen" || len(g.Assets) != 1 || g.Assets[0].AssetType != AssetAudio {
				t.Fatalf("unexpected group %+v", g)
			}
			q := g.Questions[0]
			if len(q.Options) != 2 || !q.Options[0].IsCorrect || q.Options[1].IsCorrect {
				t.Fatalf("unexpected options %+v", q.Options)
			}
			if parseScoreWeight(q.ScoreWeight) != 1.0 {
				t.Fatalf("unexpected score weight %s", q.ScoreWeight)
			}
			return &ReplaceResult{QuizID: 3, Version: 2}, nil
		},
	}, nil)

	body := `{"groups":[{"instruction":"Listen","groupType":1,"groupOrder":1,"assets":[{"assetType":1,"url":"a.mp3"}],` +
		`"questions":[{"content":"Q1?","questionType":1,"questionOrder":1,"scoreWeight":1.0,` +
		`"options":[{"content":"A","isCorrect":true},{"content":"B","isCorrect":false}],"assets":[]}]}]}`
	req := withParam(httptest.NewRequest(http.MethodPost, "/api/admin/quiz/3/import", bytes.NewReader([]byte(body))), "quizId", "3")
	w := httptest.NewRecorder()
	h.ImportQuiz(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	data := decodeMap(t, w)["data"].(map[string]any)
	if data["message"] == "" || data["version"] != float64(2) {
		t.Fatalf("unexpected data %+v", data)
	}
}

func TestImportQuizErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "not found", err: ErrQuizNotFound, status: http.StatusNotFound, message: "quiz not found"},
		{name: "conflict", err: ErrVersionConflict, status: http.StatusConflict, message: ErrVersionConflict.Error()},
		{name: "transaction failure", err: fmt.Errorf("%w: %v", ErrImportFailed, errors.New("check constraint violated")), status: http.StatusInternalServerError, message: "import failed: check constraint violated"},
		{name: "unexpected", err: errors.New("driver exploded"), status: http.StatusInternalServerError, message: "internal error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&mockQuizService{
				replaceFn: func(ctx context.Context, scope Scope, quizID int64, payload ImportPayload) (*ReplaceResult, error) {
					return nil, tc.err
				},
			}, nil)
			req := withParam(httptest.NewRequest(http.MethodPost, "/api/admin/quiz/3/import", bytes.NewReader([]byte(`{"groups":[]}`))), "quizId", "3")
			w := httptest.NewRecorder()
			h.ImportQuiz(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			if msg := errorMessage(t, w); msg != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, msg)
			}
		})
	}
}

func TestImportQuizBadBody(t *testing.T) {
	h := NewHandler(&mockQuizService{}, nil)
	req := withParam(httptest.NewRequest(http.MethodPost, "/api/admin/quiz/3/import", bytes.NewReader([]byte(`{"groups":`))), "quizId", "3")
	w := httptest.NewRecorder()
	h.ImportQuiz(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdateQuizDecodesPatch(t *testing.T) {
	h := NewHandler(&mockQuizService{
		updateFn: func(ctx context.Context, scope Scope, quizID int64, patch QuizPatch) (*UpdateResult, error) {
			if patch.Title.Set {
				t.Fatalf("title should be absent")
			}
			if !patch.Description.Set || patch.Description.Value != "" {
				t.Fatalf("description should be present and empty")
			}
			if len(patch.Groups) != 1 || patch.Groups[0].GroupID != 4 || len(patch.Groups[0].Questions) != 1 {
				t.Fatalf("unexpected groups %+v", patch.Groups)
			}
			q := patch.Groups[0].Questions[0]
			if q.QuestionID != 8 || !q.Content.Set || q.QuestionType.Set {
				t.Fatalf("unexpected question patch %+v", q)
			}
			if len(q.Options) != 1 || !q.Options[0].IsCorrect.Set || !q.Options[0].IsCorrect.Value || q.Options[0].Content.Set {
				t.Fatalf("unexpected option patch %+v", q.Options)
			}
			return &UpdateResult{QuizID: quizID, Version: 5, GroupsUpdated: 0, QuestionsUpdated: 1, OptionsUpdated: 1}, nil
		},
	}, nil)

	body := `{"description":"","groups":[{"groupID":4,"questions":[{"questionID":8,"content":"New?","options":[{"optionID":2,"isCorrect":true}]}]}]}`
	req := withParam(httptest.NewRequest(http.MethodPut, "/api/admin/quiz/3", bytes.NewReader([]byte(body))), "quizId", "3")
	w := httptest.NewRecorder()
	h.UpdateQuiz(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestUpdateQuizRejectsEmptyTitle(t *testing.T) {
	h := NewHandler(&mockQuizService{
		updateFn: func(ctx context.Context, scope Scope, quizID int64, patch QuizPatch) (*UpdateResult, error) {
			_, err := quizSet(patch)
			return nil, err
		},
	}, nil)
	req := withParam(httptest.NewRequest(http.MethodPut, "/api/admin/quiz/3", bytes.NewReader([]byte(`{"title":""}`))), "quizId", "3")
	w := httptest.NewRecorder()
	h.UpdateQuiz(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDeleteQuizFailureSurfacesMessage(t *testing.T) {
	h := NewHandler(&mockQuizService{
		deleteFn: func(ctx context.Context, scope Scope, quizID int64) error {
			return fmt.Errorf("%w: %v", ErrDeleteFailed, errors.New("lock timeout"))
		},
	}, nil)
	req := withParam(httptest.NewRequest(http.MethodDelete, "/api/admin/quiz/3", nil), "quizId", "3")
	w := httptest.NewRecorder()
	h.DeleteQuiz(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if msg := errorMessage(t, w); msg != "delete failed: lock timeout" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestExportQuiz(t *testing.T) {
	h := NewHandler(&mockQuizService{
		exportFn: func(ctx context.Context, scope Scope, quizID int64) ([]byte, error) {
			return []byte("xlsx"), nil
		},
	}, nil)
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/admin/quiz/3/export", nil), "quizId", "3")
	w := httptest.NewRecorder()
	h.ExportQuiz(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="quiz-3.xlsx"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if w.Body.String() != "xlsx" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestAddAssetValidation(t *testing.T) {
	called := false
	h := NewHandler(&mockQuizService{
		addAssetFn: func(ctx context.Context, scope Scope, in AssetInput) (*Asset, error) {
			called = true
			return &Asset{AssetID: 1, Owner: in.Owner, AssetType: in.AssetType, URL: in.URL}, nil
		},
	}, nil)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{name: "asset type four", body: `{"ownerType":1,"ownerID":2,"assetType":4}`, status: http.StatusBadRequest, field: "assetType"},
		{name: "bad owner type", body: `{"ownerType":3,"ownerID":2,"assetType":1}`, status: http.StatusBadRequest, field: "ownerType"},
		{name: "missing owner", body: `{"ownerType":2,"assetType":1}`, status: http.StatusBadRequest, field: "ownerID"},
		{name: "ok", body: `{"ownerType":2,"ownerID":2,"assetType":5,"url":"v.mp4"}`, status: http.StatusCreated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest(http.MethodPost, "/api/admin/quiz/assets", bytes.NewReader([]byte(tc.body)))
			w := httptest.NewRecorder()
			h.AddAsset(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, w.Code, w.Body.String())
			}
			if tc.field != "" {
				fields, _ := decodeMap(t, w)["error"].(map[string]any)["fields"].(map[string]any)
				if _, ok := fields[tc.field]; !ok {
					t.Fatalf("expected field %s in %+v", tc.field, fields)
				}
				if called {
					t.Fatalf("service should not be called on validation failure")
				}
				return
			}
			data := decodeMap(t, w)["data"].(map[string]any)
			if data["ownerType"] != float64(2) || data["ownerID"] != float64(2) {
				t.Fatalf("unexpected asset %+v", data)
			}
		})
	}
}

func TestAddOptionRequiresContent(t *testing.T) {
	h := NewHandler(&mockQuizService{}, nil)
	req := withParam(httptest.NewRequest(http.MethodPost, "/api/admin/quiz/questions/5/options", bytes.NewReader([]byte(`{"isCorrect":true}`))), "questionId", "5")
	w := httptest.NewRecorder()
	h.AddOption(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMutatorNotFoundMapping(t *testing.T) {
	h := NewHandler(&mockQuizService{
		deleteGroupFn: func(ctx context.Context, scope Scope, groupID int64) error { return ErrGroupNotFound },
		deleteQuestionFn: func(ctx context.Context, scope Scope, questionID int64) error {
			return ErrQuestionNotFound
		},
		deleteOptionFn: func(ctx context.Context, scope Scope, optionID int64) error { return ErrOptionNotFound },
		deleteAssetFn:  func(ctx context.Context, scope Scope, assetID int64) error { return ErrAssetNotFound },
	}, nil)

	tests := []struct {
		name    string
		param   string
		handler http.HandlerFunc
	}{
		{name: "group", param: "groupId", handler: h.DeleteGroup},
		{name: "question", param: "questionId", handler: h.DeleteQuestion},
		{name: "option", param: "optionId", handler: h.DeleteOption},
		{name: "asset", param: "assetId", handler: h.DeleteAsset},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := withParam(httptest.NewRequest(http.MethodDelete, "/x/1", nil), tc.param, "1")
			w := httptest.NewRecorder()
			tc.handler(w, req)
			if w.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d", w.Code)
			}
		})
	}
}

func TestUpdateQuestionPassesPatch(t *testing.T) {
	h := NewHandler(&mockQuizService{
		updateQuestionFn: func(ctx context.Context, scope Scope, questionID int64, patch QuestionPatch) (*Question, error) {
			if questionID != 5 || !patch.ScoreWeight.Set || patch.ScoreWeight.Value != 2.5 || patch.Content.Set {
				t.Fatalf("unexpected call %d %+v", questionID, patch)
			}
			return &Question{QuestionID: 5, ScoreWeight: 2.5, Options: []Option{}, Assets: []Asset{}}, nil
		},
	}, nil)
	req := withParam(httptest.NewRequest(http.MethodPut, "/api/admin/quiz/questions/5", bytes.NewReader([]byte(`{"scoreWeight":2.5}`))), "questionId", "5")
	w := httptest.NewRecorder()
	h.UpdateQuestion(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
