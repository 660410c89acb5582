package quiz

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Optional tells an absent JSON field apart from one that is present.
// A present null is treated as absent.
type Optional[T any] struct {
	Set   bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	if strings.TrimSpace(string(b)) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Optional[T]{Set: true, Value: v}
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

type QuizPatch struct {
	Version     *int64           `json:"version,omitempty"`
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	QuizType    Optional[int]    `json:"quizType"`
	IsActive    Optional[bool]   `json:"isActive"`
	Groups      []GroupPatch     `json:"groups"`
}

// GroupPatch with GroupID 0 addresses the ungrouped questions of the quiz.
type GroupPatch struct {
	GroupID     int64            `json:"groupID"`
	Instruction Optional[string] `json:"instruction"`
	GroupType   Optional[int]    `json:"groupType"`
	GroupOrder  Optional[int]    `json:"groupOrder"`
	Questions   []QuestionPatch  `json:"questions"`
}

type QuestionPatch struct {
	QuestionID    int64             `json:"questionID"`
	Content       Optional[string]  `json:"content"`
	QuestionType  Optional[int]     `json:"questionType"`
	QuestionOrder Optional[int]     `json:"questionOrder"`
	ScoreWeight   Optional[float64] `json:"scoreWeight"`
	MetaJSON      Optional[string]  `json:"metaJson"`
	Options       []OptionPatch     `json:"options"`
}

type OptionPatch struct {
	OptionID  int64            `json:"optionID"`
	Content   Optional[string] `json:"content"`
	IsCorrect Optional[bool]   `json:"isCorrect"`
}

type AssetPatch struct {
	AssetType   Optional[AssetType] `json:"assetType"`
	URL         Optional[string]    `json:"url"`
	ContentText Optional[string]    `json:"contentText"`
	Caption     Optional[string]    `json:"caption"`
	MimeType    Optional[string]    `json:"mimeType"`
}

type UpdateResult struct {
	QuizID           int64 `json:"quizID"`
	Version          int64 `json:"version"`
	GroupsUpdated    int   `json:"groupsUpdated"`
	QuestionsUpdated int   `json:"questionsUpdated"`
	OptionsUpdated   int   `json:"optionsUpdated"`
}

// setList accumulates "col = $n" assignments for an UPDATE statement.
type setList struct {
	cols []string
	args []any
}

func (s *setList) add(col string, v any) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setList) empty() bool {
	return len(s.cols) == 0
}

// statement renders the UPDATE with the caller's WHERE clause. Placeholders in
// where start after the assignment arguments.
func (s *setList) statement(table, where string, whereArgs ...any) (string, []any) {
	next := len(s.args) + 1
	for i := range whereArgs {
		where = strings.Replace(where, fmt.Sprintf("$w%d", i+1), fmt.Sprintf("$%d", next+i), 1)
	}
	args := append(append([]any{}, s.args...), whereArgs...)
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(s.cols, ", "), where), args
}

func quizSet(p QuizPatch) (setList, error) {
	var s setList
	if p.Title.Set {
		title := strings.TrimSpace(p.Title.Value)
		if title == "" {
			return s, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		s.add("title", title)
	}
	if p.Description.Set {
		s.add("description", strings.TrimSpace(p.Description.Value))
	}
	if p.QuizType.Set {
		if p.QuizType.Value < 1 {
			return s, fmt.Errorf("%w: quizType must be positive", ErrInvalidInput)
		}
		s.add("quiz_type", p.QuizType.Value)
	}
	if p.IsActive.Set {
		s.add("is_active", p.IsActive.Value)
	}
	return s, nil
}

func groupSet(p GroupPatch) (setList, error) {
	var s setList
	if p.Instruction.Set {
		s.add("instruction", p.Instruction.Value)
	}
	if p.GroupType.Set {
		s.add("group_type", p.GroupType.Value)
	}
	if p.GroupOrder.Set {
		if p.GroupOrder.Value < 0 {
			return s, fmt.Errorf("%w: groupOrder cannot be negative", ErrInvalidInput)
		}
		s.add("group_order", p.GroupOrder.Value)
	}
	return s, nil
}

func questionSet(p QuestionPatch) (setList, error) {
	var s setList
	if p.Content.Set {
		s.add("content", p.Content.Value)
	}
	if p.QuestionType.Set {
		s.add("question_type", p.QuestionType.Value)
	}
	if p.QuestionOrder.Set {
		if p.QuestionOrder.Value < 0 {
			return s, fmt.Errorf("%w: questionOrder cannot be negative", ErrInvalidInput)
		}
		s.add("question_order", p.QuestionOrder.Value)
	}
	if p.ScoreWeight.Set {
		s.add("score_weight", p.ScoreWeight.Value)
	}
	if p.MetaJSON.Set {
		s.add("meta_json", nullableText(p.MetaJSON.Value))
	}
	return s, nil
}

func optionSet(p OptionPatch) setList {
	var s setList
	if p.Content.Set {
		s.add("content", p.Content.Value)
	}
	if p.IsCorrect.Set {
		s.add("is_correct", p.IsCorrect.Value)
	}
	return s
}

func assetSet(p AssetPatch) (setList, error) {
	var s setList
	if p.AssetType.Set {
		if !p.AssetType.Value.Valid() {
			return s, fmt.Errorf("%w: unknown assetType %d", ErrInvalidInput, p.AssetType.Value)
		}
		s.add("asset_type", int(p.AssetType.Value))
	}
	if p.URL.Set {
		s.add("url", p.URL.Value)
	}
	if p.ContentText.Set {
		s.add("content_text", p.ContentText.Value)
	}
	if p.Caption.Set {
		s.add("caption", p.Caption.Value)
	}
	if p.MimeType.Set {
		s.add("mime_type", p.MimeType.Value)
	}
	return s, nil
}
