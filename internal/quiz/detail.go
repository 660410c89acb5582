package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type rowQueryer interface {
	queryer
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// quizContent is the stored shape of a quiz: real groups plus any questions
// saved without a group.
type quizContent struct {
	groups    []Group
	ungrouped []Question
}

func loadQuiz(ctx context.Context, q rowQueryer, scope Scope, quizID int64) (*Quiz, error) {
	cond, condArgs := scope.condition("q", 2)
	args := append([]any{quizID}, condArgs...)

	var out Quiz
	var courseID sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT q.id, q.course_id, q.title, q.description, q.quiz_type, q.is_active, q.version, q.created_at, q.updated_at
		FROM quizzes q
		WHERE q.id = $1 AND `+cond, args...).Scan(
		&out.QuizID,
		&courseID,
		&out.Title,
		&out.Description,
		&out.QuizType,
		&out.IsActive,
		&out.Version,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if courseID.Valid {
		v := courseID.Int64
		out.CourseID = &v
	}
	return &out, nil
}

func loadDetail(ctx context.Context, q rowQueryer, scope Scope, quizID int64) (*QuizDetail, error) {
	quiz, err := loadQuiz(ctx, q, scope, quizID)
	if err != nil {
		return nil, err
	}

	groups, err := loadGroups(ctx, q, quizID)
	if err != nil {
		return nil, err
	}
	groupIDs := make([]int64, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.GroupID)
	}

	questions, err := loadQuestions(ctx, q, quizID, groupIDs)
	if err != nil {
		return nil, err
	}
	questionIDs := make([]int64, 0, len(questions))
	for _, qq := range questions {
		questionIDs = append(questionIDs, qq.QuestionID)
	}

	options, err := loadOptions(ctx, q, questionIDs)
	if err != nil {
		return nil, err
	}
	assets, err := loadAssets(ctx, q, groupIDs, questionIDs)
	if err != nil {
		return nil, err
	}

	content := splitContent(groups, questions)
	return assembleDetail(*quiz, content, options, assets), nil
}

func loadGroups(ctx context.Context, q queryer, quizID int64) ([]Group, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, quiz_id, instruction, group_type, group_order
		FROM quiz_groups
		WHERE quiz_id = $1
		ORDER BY group_order ASC, id ASC
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	items := make([]Group, 0)
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.GroupID, &g.QuizID, &g.Instruction, &g.GroupType, &g.GroupOrder); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		items = append(items, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return items, nil
}

// loadQuestions returns questions of the quiz or of any listed group. A zero
// quizID restricts the result to the listed groups.
func loadQuestions(ctx context.Context, q queryer, quizID int64, groupIDs []int64) ([]Question, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+questionColumns+`
		FROM quiz_questions
		WHERE quiz_id = $1 OR group_id = ANY($2)
		ORDER BY question_order ASC, id ASC
	`, quizID, nonNilIDs(groupIDs))
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	items := make([]Question, 0)
	for rows.Next() {
		out, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return items, nil
}

func loadOptions(ctx context.Context, q queryer, questionIDs []int64) ([]Option, error) {
	if len(questionIDs) == 0 {
		return []Option{}, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, question_id, content, is_correct
		FROM quiz_options
		WHERE question_id = ANY($1)
		ORDER BY id ASC
	`, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	items := make([]Option, 0)
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.OptionID, &o.QuestionID, &o.Content, &o.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return items, nil
}

// loadAssets fetches group and question assets in one query, filtering each
// owner type by its own id list.
func loadAssets(ctx context.Context, q queryer, groupIDs, questionIDs []int64) ([]Asset, error) {
	if len(groupIDs) == 0 && len(questionIDs) == 0 {
		return []Asset{}, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, owner_type, owner_id, asset_type, url, content_text, caption, mime_type
		FROM quiz_assets
		WHERE (owner_type = $1 AND owner_id = ANY($2))
			OR (owner_type = $3 AND owner_id = ANY($4))
		ORDER BY id ASC
	`, int(OwnerGroup), nonNilIDs(groupIDs), int(OwnerQuestion), nonNilIDs(questionIDs))
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	items := make([]Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

const questionColumns = `id, quiz_id, group_id, content, question_type, question_order, score_weight, COALESCE(meta_json, '')`

func scanQuestion(row scanner) (Question, error) {
	var out Question
	var groupID sql.NullInt64
	if err := row.Scan(
		&out.QuestionID,
		&out.QuizID,
		&groupID,
		&out.Content,
		&out.QuestionType,
		&out.QuestionOrder,
		&out.ScoreWeight,
		&out.MetaJSON,
	); err != nil {
		return out, fmt.Errorf("scan question: %w", err)
	}
	if groupID.Valid {
		v := groupID.Int64
		out.GroupID = &v
	}
	return out, nil
}

func scanAsset(row scanner) (Asset, error) {
	var a Asset
	var ownerType, assetType int
	if err := row.Scan(
		&a.AssetID,
		&ownerType,
		&a.Owner.ID,
		&assetType,
		&a.URL,
		&a.ContentText,
		&a.Caption,
		&a.MimeType,
	); err != nil {
		return a, fmt.Errorf("scan asset: %w", err)
	}
	a.Owner.Kind = OwnerKind(ownerType)
	a.AssetType = AssetType(assetType)
	return a, nil
}

// splitContent separates questions that belong to one of the loaded groups
// from the rest.
func splitContent(groups []Group, questions []Question) quizContent {
	known := make(map[int64]struct{}, len(groups))
	for _, g := range groups {
		known[g.GroupID] = struct{}{}
	}
	content := quizContent{groups: groups, ungrouped: make([]Question, 0)}
	byGroup := make(map[int64][]Question, len(groups))
	for _, q := range questions {
		if q.GroupID != nil {
			if _, ok := known[*q.GroupID]; ok {
				byGroup[*q.GroupID] = append(byGroup[*q.GroupID], q)
				continue
			}
		}
		content.ungrouped = append(content.ungrouped, q)
	}
	for i := range content.groups {
		content.groups[i].Questions = byGroup[content.groups[i].GroupID]
	}
	return content
}

// assembleDetail attaches options and assets in memory and always yields a
// group-shaped view. Ungrouped questions are wrapped in a virtual group with
// GroupID 0 placed after the real groups.
func assembleDetail(quiz Quiz, content quizContent, options []Option, assets []Asset) *QuizDetail {
	optionsByQuestion := make(map[int64][]Option)
	for _, o := range options {
		optionsByQuestion[o.QuestionID] = append(optionsByQuestion[o.QuestionID], o)
	}
	assetsByOwner := make(map[Owner][]Asset)
	for _, a := range assets {
		assetsByOwner[a.Owner] = append(assetsByOwner[a.Owner], a)
	}

	attach := func(questions []Question) []Question {
		out := make([]Question, 0, len(questions))
		for _, q := range questions {
			q.Options = nonNilOptions(optionsByQuestion[q.QuestionID])
			q.Assets = nonNilAssets(assetsByOwner[QuestionOwner(q.QuestionID)])
			out = append(out, q)
		}
		return out
	}

	detail := &QuizDetail{Quiz: quiz, Groups: make([]Group, 0, len(content.groups)+1)}
	for _, g := range content.groups {
		g.Assets = nonNilAssets(assetsByOwner[GroupOwner(g.GroupID)])
		g.Questions = attach(g.Questions)
		detail.Groups = append(detail.Groups, g)
	}
	if len(content.ungrouped) > 0 {
		detail.Groups = append(detail.Groups, Group{
			GroupID:     0,
			QuizID:      quiz.QuizID,
			Instruction: virtualGroupInstruction,
			GroupOrder:  len(content.groups) + 1,
			Assets:      []Asset{},
			Questions:   attach(content.ungrouped),
		})
	}
	return detail
}

func nonNilOptions(in []Option) []Option {
	if in == nil {
		return []Option{}
	}
	return in
}

func nonNilAssets(in []Asset) []Asset {
	if in == nil {
		return []Asset{}
	}
	return in
}
