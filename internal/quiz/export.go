package quiz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"group_order", "group_id", "instruction", "group_assets",
	"question_order", "question_id", "question_type", "content", "score_weight", "question_assets",
	"option_id", "option", "is_correct",
}

func (s *Service) ExportDetailExcel(ctx context.Context, scope Scope, quizID int64) ([]byte, error) {
	detail, err := s.GetDetail(ctx, scope, quizID)
	if err != nil {
		return nil, err
	}
	return renderDetailWorkbook(detail)
}

// renderDetailWorkbook writes one row per option. Questions without options
// still get a single row.
func renderDetailWorkbook(detail *QuizDetail) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	writeRow := func(values []any) {
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	for _, g := range detail.Groups {
		groupCols := []any{g.GroupOrder, g.GroupID, g.Instruction, assetSummary(g.Assets)}
		if len(g.Questions) == 0 {
			writeRow(groupCols)
			continue
		}
		for _, q := range g.Questions {
			questionCols := append(append([]any{}, groupCols...),
				q.QuestionOrder, q.QuestionID, q.QuestionType, q.Content, q.ScoreWeight, assetSummary(q.Assets))
			if len(q.Options) == 0 {
				writeRow(questionCols)
				continue
			}
			for _, o := range q.Options {
				writeRow(append(append([]any{}, questionCols...), o.OptionID, o.Content, o.IsCorrect))
			}
		}
	}
	_ = f.SetColWidth(sheet, "A", "M", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func assetSummary(assets []Asset) string {
	out := ""
	for i, a := range assets {
		if i > 0 {
			out += "; "
		}
		ref := a.URL
		if a.AssetType == AssetText {
			ref = a.ContentText
		}
		out += fmt.Sprintf("%s:%s", assetTypeName(a.AssetType), ref)
	}
	return out
}

func assetTypeName(t AssetType) string {
	switch t {
	case AssetAudio:
		return "audio"
	case AssetImage:
		return "image"
	case AssetText:
		return "text"
	case AssetVideo:
		return "video"
	default:
		return fmt.Sprintf("type%d", int(t))
	}
}
