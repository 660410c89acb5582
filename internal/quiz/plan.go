package quiz

import (
	"context"
	"database/sql"
	"fmt"
)

// existingContent is the set of rows a replace has to remove.
type existingContent struct {
	groupIDs    []int64
	questionIDs []int64
}

// deletionSet removes children before parents: options, then assets,
// then questions, then groups.
type deletionSet struct {
	quizID      int64
	groupIDs    []int64
	questionIDs []int64
}

type assetInsert struct {
	assetType   AssetType
	url         string
	contentText string
	caption     string
	mimeType    string
}

type optionInsert struct {
	content   string
	isCorrect bool
}

type questionInsert struct {
	content       string
	questionType  int
	questionOrder int
	scoreWeight   float64
	metaJSON      string
	options       []optionInsert
	assets        []assetInsert
}

// groupInsert is written parent first: the group row, its assets, then each
// question with its options and assets.
type groupInsert struct {
	instruction string
	groupType   int
	groupOrder  int
	assets      []assetInsert
	questions   []questionInsert
}

type replacePlan struct {
	quizID  int64
	deletes deletionSet
	inserts []groupInsert
}

func planReplace(quizID int64, existing existingContent, payload ImportPayload) replacePlan {
	plan := replacePlan{
		quizID: quizID,
		deletes: deletionSet{
			quizID:      quizID,
			groupIDs:    existing.groupIDs,
			questionIDs: existing.questionIDs,
		},
		inserts: make([]groupInsert, 0, len(payload.Groups)),
	}
	for _, g := range payload.Groups {
		plan.inserts = append(plan.inserts, planGroup(g))
	}
	return plan
}

func planGroup(g ImportGroup) groupInsert {
	gi := groupInsert{
		instruction: g.Instruction,
		groupType:   g.GroupType,
		groupOrder:  g.GroupOrder,
		assets:      planAssets(g.Assets),
		questions:   make([]questionInsert, 0, len(g.Questions)),
	}
	for _, q := range g.Questions {
		gi.questions = append(gi.questions, planQuestion(q))
	}
	return gi
}

func planQuestion(q ImportQuestion) questionInsert {
	qi := questionInsert{
		content:       q.Content,
		questionType:  q.QuestionType,
		questionOrder: q.QuestionOrder,
		scoreWeight:   parseScoreWeight(q.ScoreWeight),
		metaJSON:      parseMetaJSON(q.MetaJSON),
		options:       make([]optionInsert, 0, len(q.Options)),
		assets:        planAssets(q.Assets),
	}
	for _, o := range q.Options {
		qi.options = append(qi.options, optionInsert{content: o.Content, isCorrect: o.IsCorrect})
	}
	return qi
}

func planAssets(in []ImportAsset) []assetInsert {
	out := make([]assetInsert, 0, len(in))
	for _, a := range in {
		a = normalizeAsset(a)
		out = append(out, assetInsert{
			assetType:   a.AssetType,
			url:         a.URL,
			contentText: a.ContentText,
			caption:     a.Caption,
			mimeType:    a.MimeType,
		})
	}
	return out
}

func (p replacePlan) counts() (groups, questions, options, assets int) {
	for _, g := range p.inserts {
		groups++
		assets += len(g.assets)
		for _, q := range g.questions {
			questions++
			options += len(q.options)
			assets += len(q.assets)
		}
	}
	return
}

func (p replacePlan) apply(ctx context.Context, tx *sql.Tx) error {
	if err := p.deletes.apply(ctx, tx); err != nil {
		return err
	}
	for i, g := range p.inserts {
		if _, err := g.insert(ctx, tx, p.quizID); err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
	}
	return nil
}

func (d deletionSet) apply(ctx context.Context, tx *sql.Tx) error {
	if len(d.questionIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM quiz_options WHERE question_id = ANY($1)
		`, d.questionIDs); err != nil {
			return fmt.Errorf("delete options: %w", err)
		}
	}
	if len(d.groupIDs) > 0 || len(d.questionIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM quiz_assets
			WHERE (owner_type = $1 AND owner_id = ANY($2))
				OR (owner_type = $3 AND owner_id = ANY($4))
		`, int(OwnerGroup), nonNilIDs(d.groupIDs), int(OwnerQuestion), nonNilIDs(d.questionIDs)); err != nil {
			return fmt.Errorf("delete assets: %w", err)
		}
	}
	if len(d.questionIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM quiz_questions WHERE id = ANY($1)
		`, d.questionIDs); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
	}
	if len(d.groupIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM quiz_groups WHERE id = ANY($1) AND quiz_id = $2
		`, d.groupIDs, d.quizID); err != nil {
			return fmt.Errorf("delete groups: %w", err)
		}
	}
	return nil
}

func (g groupInsert) insert(ctx context.Context, tx *sql.Tx, quizID int64) (int64, error) {
	var groupID int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO quiz_groups (quiz_id, instruction, group_type, group_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, quizID, g.instruction, g.groupType, g.groupOrder).Scan(&groupID); err != nil {
		return 0, fmt.Errorf("insert group: %w", err)
	}
	for _, a := range g.assets {
		if _, err := a.insert(ctx, tx, GroupOwner(groupID)); err != nil {
			return 0, err
		}
	}
	for i, q := range g.questions {
		if _, err := q.insert(ctx, tx, quizID, &groupID); err != nil {
			return 0, fmt.Errorf("question %d: %w", i, err)
		}
	}
	return groupID, nil
}

func (q questionInsert) insert(ctx context.Context, tx *sql.Tx, quizID int64, groupID *int64) (int64, error) {
	var questionID int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO quiz_questions (quiz_id, group_id, content, question_type, question_order, score_weight, meta_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, quizID, groupID, q.content, q.questionType, q.questionOrder, q.scoreWeight, nullableText(q.metaJSON)).Scan(&questionID); err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	for _, o := range q.options {
		if _, err := o.insert(ctx, tx, questionID); err != nil {
			return 0, err
		}
	}
	for _, a := range q.assets {
		if _, err := a.insert(ctx, tx, QuestionOwner(questionID)); err != nil {
			return 0, err
		}
	}
	return questionID, nil
}

func (o optionInsert) insert(ctx context.Context, tx *sql.Tx, questionID int64) (int64, error) {
	var id int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO quiz_options (question_id, content, is_correct)
		VALUES ($1, $2, $3)
		RETURNING id
	`, questionID, o.content, o.isCorrect).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert option: %w", err)
	}
	return id, nil
}

func (a assetInsert) insert(ctx context.Context, tx *sql.Tx, owner Owner) (int64, error) {
	var id int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO quiz_assets (owner_type, owner_id, asset_type, url, content_text, caption, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, int(owner.Kind), owner.ID, int(a.assetType), a.url, a.contentText, a.caption, a.mimeType).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert asset: %w", err)
	}
	return id, nil
}

// loadExisting resolves the groups of the quiz and every question owned by
// the quiz directly or through one of those groups.
func loadExisting(ctx context.Context, tx *sql.Tx, quizID int64) (existingContent, error) {
	var out existingContent
	groupIDs, err := queryIDs(ctx, tx, `SELECT id FROM quiz_groups WHERE quiz_id = $1 ORDER BY id`, quizID)
	if err != nil {
		return out, fmt.Errorf("load groups: %w", err)
	}
	questionIDs, err := queryIDs(ctx, tx, `
		SELECT id FROM quiz_questions
		WHERE quiz_id = $1 OR group_id = ANY($2)
		ORDER BY id
	`, quizID, nonNilIDs(groupIDs))
	if err != nil {
		return out, fmt.Errorf("load questions: %w", err)
	}
	out.groupIDs = groupIDs
	out.questionIDs = questionIDs
	return out, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryIDs(ctx context.Context, q queryer, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// nonNilIDs keeps ANY($n) from receiving a NULL array.
func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
