package quiz

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// AssetType codes are stored as-is. There is no code 4.
type AssetType int

const (
	AssetAudio AssetType = 1
	AssetImage AssetType = 2
	AssetText  AssetType = 3
	AssetVideo AssetType = 5
)

func (t AssetType) Valid() bool {
	switch t {
	case AssetAudio, AssetImage, AssetText, AssetVideo:
		return true
	default:
		return false
	}
}

type OwnerKind int

const (
	OwnerGroup    OwnerKind = 1
	OwnerQuestion OwnerKind = 2
)

func (k OwnerKind) Valid() bool {
	return k == OwnerGroup || k == OwnerQuestion
}

// Owner identifies the group or question an asset belongs to.
type Owner struct {
	Kind OwnerKind
	ID   int64
}

func GroupOwner(groupID int64) Owner {
	return Owner{Kind: OwnerGroup, ID: groupID}
}

func QuestionOwner(questionID int64) Owner {
	return Owner{Kind: OwnerQuestion, ID: questionID}
}

const virtualGroupInstruction = "Answer the following questions"

type Quiz struct {
	QuizID      int64     `json:"quizID"`
	CourseID    *int64    `json:"courseID,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	QuizType    int       `json:"quizType"`
	IsActive    bool      `json:"isActive"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type QuizSummary struct {
	Quiz
	GroupCount    int `json:"groupCount"`
	QuestionCount int `json:"questionCount"`
}

type QuizDetail struct {
	Quiz
	Groups []Group `json:"groups"`
}

type Group struct {
	GroupID     int64      `json:"groupID"`
	QuizID      int64      `json:"quizID"`
	Instruction string     `json:"instruction"`
	GroupType   int        `json:"groupType"`
	GroupOrder  int        `json:"groupOrder"`
	Assets      []Asset    `json:"assets"`
	Questions   []Question `json:"questions"`
}

type Question struct {
	QuestionID    int64    `json:"questionID"`
	QuizID        int64    `json:"quizID"`
	GroupID       *int64   `json:"groupID,omitempty"`
	Content       string   `json:"content"`
	QuestionType  int      `json:"questionType"`
	QuestionOrder int      `json:"questionOrder"`
	ScoreWeight   float64  `json:"scoreWeight"`
	MetaJSON      string   `json:"metaJson,omitempty"`
	Options       []Option `json:"options"`
	Assets        []Asset  `json:"assets"`
}

type Option struct {
	OptionID   int64  `json:"optionID"`
	QuestionID int64  `json:"questionID"`
	Content    string `json:"content"`
	IsCorrect  bool   `json:"isCorrect"`
}

type Asset struct {
	AssetID     int64     `json:"assetID"`
	Owner       Owner     `json:"-"`
	AssetType   AssetType `json:"assetType"`
	URL         string    `json:"url"`
	ContentText string    `json:"contentText"`
	Caption     string    `json:"caption"`
	MimeType    string    `json:"mimeType"`
}

// MarshalJSON flattens Owner into the ownerType/ownerID pair used on the wire.
func (a Asset) MarshalJSON() ([]byte, error) {
	type alias Asset
	return json.Marshal(struct {
		alias
		OwnerType OwnerKind `json:"ownerType"`
		OwnerID   int64     `json:"ownerID"`
	}{alias: alias(a), OwnerType: a.Owner.Kind, OwnerID: a.Owner.ID})
}

func (a *Asset) UnmarshalJSON(b []byte) error {
	type alias Asset
	aux := struct {
		*alias
		OwnerType OwnerKind `json:"ownerType"`
		OwnerID   int64     `json:"ownerID"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	a.Owner = Owner{Kind: aux.OwnerType, ID: aux.OwnerID}
	return nil
}

type CreateQuizInput struct {
	Title       string
	Description string
	QuizType    int
	IsActive    *bool
}

// ImportPayload is the full content tree accepted by ReplaceContent.
type ImportPayload struct {
	Version *int64        `json:"version,omitempty"`
	Groups  []ImportGroup `json:"groups"`
}

type ImportGroup struct {
	Instruction string           `json:"instruction"`
	GroupType   int              `json:"groupType"`
	GroupOrder  int              `json:"groupOrder"`
	Assets      []ImportAsset    `json:"assets"`
	Questions   []ImportQuestion `json:"questions"`
}

type ImportQuestion struct {
	Content       string          `json:"content"`
	QuestionType  int             `json:"questionType"`
	QuestionOrder int             `json:"questionOrder"`
	ScoreWeight   json.RawMessage `json:"scoreWeight,omitempty"`
	MetaJSON      json.RawMessage `json:"metaJson,omitempty"`
	Options       []ImportOption  `json:"options"`
	Assets        []ImportAsset   `json:"assets"`
}

type ImportOption struct {
	Content   string `json:"content"`
	IsCorrect bool   `json:"isCorrect"`
}

type ImportAsset struct {
	AssetType   AssetType `json:"assetType"`
	URL         string    `json:"url"`
	ContentText string    `json:"contentText"`
	Caption     string    `json:"caption"`
	MimeType    string    `json:"mimeType"`
}

type ReplaceResult struct {
	QuizID  int64 `json:"quizID"`
	Version int64 `json:"version"`
}

// parseScoreWeight accepts a JSON number or a numeric string. Anything else
// falls back to 1.0.
func parseScoreWeight(raw json.RawMessage) float64 {
	const fallback = 1.0
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return fallback
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return fallback
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// parseMetaJSON keeps string payloads verbatim and stores any other JSON
// value as its raw text.
func parseMetaJSON(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return str
		}
	}
	return s
}

// normalizeAsset keeps contentText for text assets and url/mimeType for
// everything else.
func normalizeAsset(in ImportAsset) ImportAsset {
	if in.AssetType == AssetText {
		in.URL = ""
		in.MimeType = ""
		return in
	}
	in.ContentText = ""
	return in
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
