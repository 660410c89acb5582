package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"englearn/internal/db"
)

type AssetInput struct {
	Owner Owner
	ImportAsset
}

// mutate runs fn under the lock of the quiz that resolve points at and bumps
// the quiz version on success. A quiz outside scope reports notFound.
// resolve runs again once the lock is held: a replace that committed in
// between may have removed the target.
func (s *Service) mutate(ctx context.Context, scope Scope, notFound error, resolve func(tx *sql.Tx) (int64, error), fn func(tx *sql.Tx, quizID int64) error) (int64, error) {
	var quizID, previous int64
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		id, err := resolve(tx)
		if err != nil {
			return err
		}
		version, err := lockQuiz(ctx, tx, scope, id)
		if err != nil {
			if errors.Is(err, ErrQuizNotFound) && notFound != nil {
				return notFound
			}
			return err
		}
		locked, err := resolve(tx)
		if err != nil {
			return err
		}
		if locked != id {
			if notFound != nil {
				return notFound
			}
			return ErrQuizNotFound
		}
		if err := fn(tx, id); err != nil {
			return err
		}
		if _, err := bumpVersion(ctx, tx, id); err != nil {
			return err
		}
		quizID, previous = id, version
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, quizID, previous)
	return quizID, nil
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput,
		ErrQuizNotFound,
		ErrGroupNotFound,
		ErrQuestionNotFound,
		ErrOptionNotFound,
		ErrAssetNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func deleteFailure(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
}

func fixedQuiz(quizID int64) func(tx *sql.Tx) (int64, error) {
	return func(tx *sql.Tx) (int64, error) { return quizID, nil }
}

// AddGroup appends a group, optionally with its assets and questions. A zero
// groupOrder places it after the current last group.
func (s *Service) AddGroup(ctx context.Context, scope Scope, quizID int64, in ImportGroup) (*Group, error) {
	if quizID <= 0 || in.GroupOrder < 0 {
		return nil, ErrInvalidInput
	}
	var out *Group
	_, err := s.mutate(ctx, scope, nil, fixedQuiz(quizID), func(tx *sql.Tx, quizID int64) error {
		if in.GroupOrder == 0 {
			if err := tx.QueryRowContext(ctx, `
				SELECT COALESCE(MAX(group_order), 0) + 1 FROM quiz_groups WHERE quiz_id = $1
			`, quizID).Scan(&in.GroupOrder); err != nil {
				return fmt.Errorf("next group order: %w", err)
			}
		}
		groupID, err := planGroup(in).insert(ctx, tx, quizID)
		if err != nil {
			return err
		}
		out, err = loadGroupTree(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateGroup(ctx context.Context, scope Scope, groupID int64, patch GroupPatch) (*Group, error) {
	if groupID <= 0 {
		return nil, ErrInvalidInput
	}
	set, err := groupSet(patch)
	if err != nil {
		return nil, err
	}
	var out *Group
	_, err = s.mutate(ctx, scope, ErrGroupNotFound, quizOfGroup(ctx, groupID), func(tx *sql.Tx, quizID int64) error {
		if !set.empty() {
			query, args := set.statement("quiz_groups", "id = $w1", groupID)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update group: %w", err)
			}
		}
		var err error
		out, err = loadGroupTree(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteGroup removes the group with its questions, their options and every
// asset owned by the group or its questions, then renumbers the remaining
// groups from 1.
func (s *Service) DeleteGroup(ctx context.Context, scope Scope, groupID int64) error {
	if groupID <= 0 {
		return ErrInvalidInput
	}
	_, err := s.mutate(ctx, scope, ErrGroupNotFound, quizOfGroup(ctx, groupID), func(tx *sql.Tx, quizID int64) error {
		questionIDs, err := queryIDs(ctx, tx, `SELECT id FROM quiz_questions WHERE group_id = $1`, groupID)
		if err != nil {
			return fmt.Errorf("load group questions: %w", err)
		}
		del := deletionSet{quizID: quizID, groupIDs: []int64{groupID}, questionIDs: questionIDs}
		if err := del.apply(ctx, tx); err != nil {
			return err
		}
		return renumberGroups(ctx, tx, quizID)
	})
	return deleteFailure(err)
}

// AddQuestion inserts a question into a group with its options and assets. A
// zero questionOrder places it after the group's last question.
func (s *Service) AddQuestion(ctx context.Context, scope Scope, groupID int64, in ImportQuestion) (*Question, error) {
	if groupID <= 0 || in.QuestionOrder < 0 {
		return nil, ErrInvalidInput
	}
	var out *Question
	_, err := s.mutate(ctx, scope, ErrGroupNotFound, quizOfGroup(ctx, groupID), func(tx *sql.Tx, quizID int64) error {
		if in.QuestionOrder == 0 {
			if err := tx.QueryRowContext(ctx, `
				SELECT COALESCE(MAX(question_order), 0) + 1 FROM quiz_questions WHERE group_id = $1
			`, groupID).Scan(&in.QuestionOrder); err != nil {
				return fmt.Errorf("next question order: %w", err)
			}
		}
		questionID, err := planQuestion(in).insert(ctx, tx, quizID, &groupID)
		if err != nil {
			return err
		}
		out, err = loadQuestionTree(ctx, tx, questionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, scope Scope, questionID int64, patch QuestionPatch) (*Question, error) {
	if questionID <= 0 {
		return nil, ErrInvalidInput
	}
	set, err := questionSet(patch)
	if err != nil {
		return nil, err
	}
	var out *Question
	_, err = s.mutate(ctx, scope, ErrQuestionNotFound, quizOfQuestion(ctx, questionID), func(tx *sql.Tx, quizID int64) error {
		if !set.empty() {
			query, args := set.statement("quiz_questions", "id = $w1", questionID)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update question: %w", err)
			}
		}
		var err error
		out, err = loadQuestionTree(ctx, tx, questionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteQuestion removes the question, its options and its assets, then
// renumbers its siblings from 1.
func (s *Service) DeleteQuestion(ctx context.Context, scope Scope, questionID int64) error {
	if questionID <= 0 {
		return ErrInvalidInput
	}
	_, err := s.mutate(ctx, scope, ErrQuestionNotFound, quizOfQuestion(ctx, questionID), func(tx *sql.Tx, quizID int64) error {
		var groupID sql.NullInt64
		if err := tx.QueryRowContext(ctx, `
			SELECT group_id FROM quiz_questions WHERE id = $1
		`, questionID).Scan(&groupID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("load question: %w", err)
		}
		del := deletionSet{quizID: quizID, questionIDs: []int64{questionID}}
		if err := del.apply(ctx, tx); err != nil {
			return err
		}
		if groupID.Valid {
			return renumberGroupQuestions(ctx, tx, groupID.Int64)
		}
		return renumberUngroupedQuestions(ctx, tx, quizID)
	})
	return deleteFailure(err)
}

func (s *Service) AddOption(ctx context.Context, scope Scope, questionID int64, in ImportOption) (*Option, error) {
	if questionID <= 0 {
		return nil, ErrInvalidInput
	}
	var out Option
	_, err := s.mutate(ctx, scope, ErrQuestionNotFound, quizOfQuestion(ctx, questionID), func(tx *sql.Tx, quizID int64) error {
		id, err := optionInsert{content: in.Content, isCorrect: in.IsCorrect}.insert(ctx, tx, questionID)
		if err != nil {
			return err
		}
		out = Option{OptionID: id, QuestionID: questionID, Content: in.Content, IsCorrect: in.IsCorrect}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UpdateOption(ctx context.Context, scope Scope, optionID int64, patch OptionPatch) (*Option, error) {
	if optionID <= 0 {
		return nil, ErrInvalidInput
	}
	set := optionSet(patch)
	var out *Option
	_, err := s.mutate(ctx, scope, ErrOptionNotFound, quizOfOption(ctx, optionID), func(tx *sql.Tx, quizID int64) error {
		if !set.empty() {
			query, args := set.statement("quiz_options", "id = $w1", optionID)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update option: %w", err)
			}
		}
		var err error
		out, err = loadOption(ctx, tx, optionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) DeleteOption(ctx context.Context, scope Scope, optionID int64) error {
	if optionID <= 0 {
		return ErrInvalidInput
	}
	_, err := s.mutate(ctx, scope, ErrOptionNotFound, quizOfOption(ctx, optionID), func(tx *sql.Tx, quizID int64) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_options WHERE id = $1`, optionID); err != nil {
			return fmt.Errorf("delete option: %w", err)
		}
		return nil
	})
	return deleteFailure(err)
}

// AddAsset attaches an asset to a group or a question. Text assets keep only
// contentText; other types keep url and mimeType.
func (s *Service) AddAsset(ctx context.Context, scope Scope, in AssetInput) (*Asset, error) {
	if !in.Owner.Kind.Valid() || in.Owner.ID <= 0 {
		return nil, fmt.Errorf("%w: unknown owner", ErrInvalidInput)
	}
	if !in.AssetType.Valid() {
		return nil, fmt.Errorf("%w: unknown assetType %d", ErrInvalidInput, in.AssetType)
	}
	notFound := ErrGroupNotFound
	if in.Owner.Kind == OwnerQuestion {
		notFound = ErrQuestionNotFound
	}

	var out *Asset
	_, err := s.mutate(ctx, scope, notFound, quizOfOwner(ctx, in.Owner), func(tx *sql.Tx, quizID int64) error {
		planned := planAssets([]ImportAsset{in.ImportAsset})[0]
		id, err := planned.insert(ctx, tx, in.Owner)
		if err != nil {
			return err
		}
		out, err = loadAsset(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateAsset(ctx context.Context, scope Scope, assetID int64, patch AssetPatch) (*Asset, error) {
	if assetID <= 0 {
		return nil, ErrInvalidInput
	}
	set, err := assetSet(patch)
	if err != nil {
		return nil, err
	}
	var out *Asset
	_, err = s.mutate(ctx, scope, ErrAssetNotFound, quizOfAsset(ctx, assetID), func(tx *sql.Tx, quizID int64) error {
		if !set.empty() {
			query, args := set.statement("quiz_assets", "id = $w1", assetID)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update asset: %w", err)
			}
		}
		var err error
		out, err = loadAsset(ctx, tx, assetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) DeleteAsset(ctx context.Context, scope Scope, assetID int64) error {
	if assetID <= 0 {
		return ErrInvalidInput
	}
	_, err := s.mutate(ctx, scope, ErrAssetNotFound, quizOfAsset(ctx, assetID), func(tx *sql.Tx, quizID int64) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_assets WHERE id = $1`, assetID); err != nil {
			return fmt.Errorf("delete asset: %w", err)
		}
		return nil
	})
	return deleteFailure(err)
}

func quizOfGroup(ctx context.Context, groupID int64) func(tx *sql.Tx) (int64, error) {
	return func(tx *sql.Tx) (int64, error) {
		var quizID int64
		err := tx.QueryRowContext(ctx, `SELECT quiz_id FROM quiz_groups WHERE id = $1`, groupID).Scan(&quizID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, ErrGroupNotFound
			}
			return 0, fmt.Errorf("resolve group: %w", err)
		}
		return quizID, nil
	}
}

func quizOfQuestion(ctx context.Context, questionID int64) func(tx *sql.Tx) (int64, error) {
	return func(tx *sql.Tx) (int64, error) {
		var quizID int64
		err := tx.QueryRowContext(ctx, `SELECT quiz_id FROM quiz_questions WHERE id = $1`, questionID).Scan(&quizID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, ErrQuestionNotFound
			}
			return 0, fmt.Errorf("resolve question: %w", err)
		}
		return quizID, nil
	}
}

func quizOfOption(ctx context.Context, optionID int64) func(tx *sql.Tx) (int64, error) {
	return func(tx *sql.Tx) (int64, error) {
		var quizID int64
		err := tx.QueryRowContext(ctx, `
			SELECT q.quiz_id
			FROM quiz_options o
			JOIN quiz_questions q ON q.id = o.question_id
			WHERE o.id = $1
		`, optionID).Scan(&quizID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, ErrOptionNotFound
			}
			return 0, fmt.Errorf("resolve option: %w", err)
		}
		return quizID, nil
	}
}

func quizOfOwner(ctx context.Context, owner Owner) func(tx *sql.Tx) (int64, error) {
	if owner.Kind == OwnerQuestion {
		return quizOfQuestion(ctx, owner.ID)
	}
	return quizOfGroup(ctx, owner.ID)
}

func quizOfAsset(ctx context.Context, assetID int64) func(tx *sql.Tx) (int64, error) {
	return func(tx *sql.Tx) (int64, error) {
		var ownerType int
		var ownerID int64
		err := tx.QueryRowContext(ctx, `
			SELECT owner_type, owner_id FROM quiz_assets WHERE id = $1
		`, assetID).Scan(&ownerType, &ownerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, ErrAssetNotFound
			}
			return 0, fmt.Errorf("resolve asset: %w", err)
		}
		quizID, err := quizOfOwner(ctx, Owner{Kind: OwnerKind(ownerType), ID: ownerID})(tx)
		if errors.Is(err, ErrGroupNotFound) || errors.Is(err, ErrQuestionNotFound) {
			return 0, ErrAssetNotFound
		}
		return quizID, err
	}
}

func renumberGroups(ctx context.Context, tx *sql.Tx, quizID int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE quiz_groups g
		SET group_order = r.rn
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY group_order, id) AS rn
			FROM quiz_groups
			WHERE quiz_id = $1
		) r
		WHERE g.id = r.id AND g.group_order <> r.rn
	`, quizID); err != nil {
		return fmt.Errorf("renumber groups: %w", err)
	}
	return nil
}

func renumberGroupQuestions(ctx context.Context, tx *sql.Tx, groupID int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE quiz_questions q
		SET question_order = r.rn
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY question_order, id) AS rn
			FROM quiz_questions
			WHERE group_id = $1
		) r
		WHERE q.id = r.id AND q.question_order <> r.rn
	`, groupID); err != nil {
		return fmt.Errorf("renumber questions: %w", err)
	}
	return nil
}

func renumberUngroupedQuestions(ctx context.Context, tx *sql.Tx, quizID int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE quiz_questions q
		SET question_order = r.rn
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY question_order, id) AS rn
			FROM quiz_questions
			WHERE quiz_id = $1 AND group_id IS NULL
		) r
		WHERE q.id = r.id AND q.question_order <> r.rn
	`, quizID); err != nil {
		return fmt.Errorf("renumber ungrouped questions: %w", err)
	}
	return nil
}

func loadGroupTree(ctx context.Context, q rowQueryer, groupID int64) (*Group, error) {
	var g Group
	if err := q.QueryRowContext(ctx, `
		SELECT id, quiz_id, instruction, group_type, group_order
		FROM quiz_groups
		WHERE id = $1
	`, groupID).Scan(&g.GroupID, &g.QuizID, &g.Instruction, &g.GroupType, &g.GroupOrder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("load group: %w", err)
	}

	questions, err := loadQuestions(ctx, q, 0, []int64{groupID})
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
	assets, err := loadAssets(ctx, q, []int64{groupID}, questionIDs)
	if err != nil {
		return nil, err
	}

	detail := assembleDetail(Quiz{QuizID: g.QuizID}, splitContent([]Group{g}, questions), options, assets)
	return &detail.Groups[0], nil
}

func loadQuestionTree(ctx context.Context, q rowQueryer, questionID int64) (*Question, error) {
	out, err := scanQuestion(q.QueryRowContext(ctx, `
		SELECT `+questionColumns+` FROM quiz_questions WHERE id = $1
	`, questionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	options, err := loadOptions(ctx, q, []int64{questionID})
	if err != nil {
		return nil, err
	}
	assets, err := loadAssets(ctx, q, nil, []int64{questionID})
	if err != nil {
		return nil, err
	}
	out.Options = nonNilOptions(options)
	out.Assets = nonNilAssets(assets)
	return &out, nil
}

func loadOption(ctx context.Context, q rowQueryer, optionID int64) (*Option, error) {
	var o Option
	if err := q.QueryRowContext(ctx, `
		SELECT id, question_id, content, is_correct FROM quiz_options WHERE id = $1
	`, optionID).Scan(&o.OptionID, &o.QuestionID, &o.Content, &o.IsCorrect); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOptionNotFound
		}
		return nil, fmt.Errorf("load option: %w", err)
	}
	return &o, nil
}

func loadAsset(ctx context.Context, q rowQueryer, assetID int64) (*Asset, error) {
	a, err := scanAsset(q.QueryRowContext(ctx, `
		SELECT id, owner_type, owner_id, asset_type, url, content_text, caption, mime_type
		FROM quiz_assets
		WHERE id = $1
	`, assetID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return &a, nil
}
