package quiz

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestRenderDetailWorkbook(t *testing.T) {
	groupID := int64(1)
	detail := &QuizDetail{
		Quiz: Quiz{QuizID: 1, Title: "Listening"},
		Groups: []Group{
			{
				GroupID:     1,
				Instruction: "Listen",
				GroupOrder:  1,
				Assets:      []Asset{{AssetID: 1, Owner: GroupOwner(1), AssetType: AssetAudio, URL: "a.mp3"}},
				Questions: []Question{
					{
						QuestionID:    2,
						GroupID:       &groupID,
						Content:       "Q1?",
						QuestionOrder: 1,
						ScoreWeight:   1,
						Options: []Option{
							{OptionID: 3, Content: "A", IsCorrect: true},
							{OptionID: 4, Content: "B"},
						},
					},
					{QuestionID: 5, GroupID: &groupID, Content: "Essay", QuestionOrder: 2, ScoreWeight: 2},
				},
			},
			{GroupID: 6, Instruction: "Empty", GroupOrder: 2},
		},
	}

	b, err := renderDetailWorkbook(detail)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	// header, two option rows, one option-less question, one empty group
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "group_order" || rows[0][len(exportHeaders)-1] != "is_correct" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][2] != "Listen" || rows[1][3] != "audio:a.mp3" || rows[1][7] != "Q1?" || rows[1][11] != "A" || rows[1][12] != "TRUE" {
		t.Fatalf("unexpected first option row %v", rows[1])
	}
	if rows[2][11] != "B" || rows[2][12] != "FALSE" {
		t.Fatalf("unexpected second option row %v", rows[2])
	}
	if rows[3][7] != "Essay" || len(rows[3]) > 10 {
		t.Fatalf("option-less question should stop after question columns, got %v", rows[3])
	}
	if rows[4][2] != "Empty" || len(rows[4]) > 4 {
		t.Fatalf("empty group should only fill group columns, got %v", rows[4])
	}
}

func TestAssetSummary(t *testing.T) {
	got := assetSummary([]Asset{
		{AssetType: AssetText, ContentText: "passage"},
		{AssetType: AssetVideo, URL: "v.mp4"},
	})
	if got != "text:passage; video:v.mp4" {
		t.Fatalf("unexpected summary %q", got)
	}
}
