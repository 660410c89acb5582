package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"englearn/internal/db"
	"englearn/internal/logger"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrOptionNotFound   = errors.New("option not found")
	ErrAssetNotFound    = errors.New("asset not found")
	ErrVersionConflict  = errors.New("quiz was modified by another request")
	ErrImportFailed     = errors.New("import failed")
	ErrUpdateFailed     = errors.New("update failed")
	ErrDeleteFailed     = errors.New("delete failed")
)

// DetailCache stores serialized quiz details. *cache.RedisStore satisfies it.
type DetailCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

type Service struct {
	db    *sql.DB
	cache DetailCache
	log   *logger.Logger
}

func NewService(conn *sql.DB, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{db: conn, log: log}
}

// WithCache enables cache-aside reads of quiz details.
func (s *Service) WithCache(c DetailCache) *Service {
	s.cache = c
	return s
}

func detailCacheKey(quizID, version int64) string {
	return "quiz:detail:" + strconv.FormatInt(quizID, 10) + ":v" + strconv.FormatInt(version, 10)
}

func (s *Service) ListQuizzes(ctx context.Context, scope Scope) ([]QuizSummary, error) {
	cond, args := scope.condition("q", 1)
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.course_id, q.title, q.description, q.quiz_type, q.is_active, q.version,
			q.created_at, q.updated_at,
			(SELECT COUNT(*) FROM quiz_groups g WHERE g.quiz_id = q.id),
			(SELECT COUNT(*) FROM quiz_questions qq WHERE qq.quiz_id = q.id)
		FROM quizzes q
		WHERE `+cond+`
		ORDER BY q.created_at DESC, q.id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	items := make([]QuizSummary, 0)
	for rows.Next() {
		var out QuizSummary
		var courseID sql.NullInt64
		if err := rows.Scan(
			&out.QuizID,
			&courseID,
			&out.Title,
			&out.Description,
			&out.QuizType,
			&out.IsActive,
			&out.Version,
			&out.CreatedAt,
			&out.UpdatedAt,
			&out.GroupCount,
			&out.QuestionCount,
		); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		if courseID.Valid {
			v := courseID.Int64
			out.CourseID = &v
		}
		items = append(items, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}
	return items, nil
}

func (s *Service) CreateQuiz(ctx context.Context, scope Scope, in CreateQuizInput) (*Quiz, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.QuizType == 0 {
		in.QuizType = 1
	}
	if in.QuizType < 1 {
		return nil, fmt.Errorf("%w: quizType must be positive", ErrInvalidInput)
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	if !scope.IsGlobal() {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)
		`, scope.CourseID()).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check course: %w", err)
		}
		if !exists {
			return nil, ErrCourseNotFound
		}
	}

	var out Quiz
	var courseID sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `
		INSERT INTO quizzes (course_id, title, description, quiz_type, is_active, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, now(), now())
		RETURNING id, course_id, title, description, quiz_type, is_active, version, created_at, updated_at
	`, scope.courseValue(), in.Title, in.Description, in.QuizType, isActive).Scan(
		&out.QuizID,
		&courseID,
		&out.Title,
		&out.Description,
		&out.QuizType,
		&out.IsActive,
		&out.Version,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert quiz: %w", err)
	}
	if courseID.Valid {
		v := courseID.Int64
		out.CourseID = &v
	}
	return &out, nil
}

func (s *Service) GetDetail(ctx context.Context, scope Scope, quizID int64) (*QuizDetail, error) {
	if quizID <= 0 {
		return nil, ErrInvalidInput
	}
	load := func() (*QuizDetail, error) {
		return loadDetail(ctx, s.db, scope, quizID)
	}
	if s.cache == nil {
		return load()
	}
	version, err := currentVersion(ctx, s.db, scope, quizID)
	if err != nil {
		return nil, err
	}
	return s.cachedDetail(ctx, scope, quizID, version, load)
}

// cachedDetail serves a detail from cache when present. Entries are keyed by
// quiz version, so a write that bumps the version makes older entries
// unreachable even if a slow reader stores one after the invalidation.
// Cached entries carry the course id so the scope is still enforced on a
// hit. Cache failures only degrade to a database read.
func (s *Service) cachedDetail(ctx context.Context, scope Scope, quizID, version int64, load func() (*QuizDetail, error)) (*QuizDetail, error) {
	if s.cache == nil {
		return load()
	}

	key := detailCacheKey(quizID, version)
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("quiz detail cache get failed", "quiz_id", quizID, "error", err)
	}
	if ok {
		var cached QuizDetail
		if err := json.Unmarshal(raw, &cached); err == nil {
			if !scope.allows(cached.CourseID) {
				return nil, ErrQuizNotFound
			}
			return &cached, nil
		}
		s.log.Warn("quiz detail cache entry unreadable", "quiz_id", quizID)
	}

	detail, err := load()
	if err != nil {
		return nil, err
	}
	// The tree may be newer than version if a write landed mid-load. Only
	// store it when the quiz row still matches the key.
	if detail.Version != version {
		return detail, nil
	}
	if b, err := json.Marshal(detail); err == nil {
		if err := s.cache.Set(ctx, key, b); err != nil {
			s.log.Warn("quiz detail cache set failed", "quiz_id", quizID, "error", err)
		}
	}
	return detail, nil
}

// invalidate drops the entry for the version a write started from. Newer
// versions have no entry yet.
func (s *Service) invalidate(ctx context.Context, quizID, staleVersion int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, detailCacheKey(quizID, staleVersion)); err != nil {
		s.log.Warn("quiz detail cache invalidate failed", "quiz_id", quizID, "error", err)
	}
}

// currentVersion reads the version of a quiz in scope without locking it.
func currentVersion(ctx context.Context, q rowQueryer, scope Scope, quizID int64) (int64, error) {
	cond, condArgs := scope.condition("q", 2)
	args := append([]any{quizID}, condArgs...)
	var version int64
	err := q.QueryRowContext(ctx, `
		SELECT q.version FROM quizzes q
		WHERE q.id = $1 AND `+cond+`
	`, args...).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrQuizNotFound
		}
		return 0, fmt.Errorf("read quiz version: %w", err)
	}
	return version, nil
}

// ReplaceContent discards the quiz's whole content tree and writes payload in
// its place within one transaction.
func (s *Service) ReplaceContent(ctx context.Context, scope Scope, quizID int64, payload ImportPayload) (*ReplaceResult, error) {
	if quizID <= 0 {
		return nil, ErrInvalidInput
	}

	var (
		result   ReplaceResult
		previous int64
		existing existingContent
		plan     replacePlan
	)
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		version, err := lockQuiz(ctx, tx, scope, quizID)
		if err != nil {
			return err
		}
		previous = version
		if payload.Version != nil && *payload.Version != version {
			return ErrVersionConflict
		}

		existing, err = loadExisting(ctx, tx, quizID)
		if err != nil {
			return err
		}
		plan = planReplace(quizID, existing, payload)
		if err := plan.apply(ctx, tx); err != nil {
			return err
		}

		next, err := bumpVersion(ctx, tx, quizID)
		if err != nil {
			return err
		}
		result = ReplaceResult{QuizID: quizID, Version: next}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrQuizNotFound) || errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrImportFailed, err)
	}
	s.invalidate(ctx, quizID, previous)

	groups, questions, options, assets := plan.counts()
	s.log.Info("quiz content replaced",
		"quiz_id", quizID,
		"version", result.Version,
		"deleted_groups", len(existing.groupIDs),
		"deleted_questions", len(existing.questionIDs),
		"groups", groups,
		"questions", questions,
		"options", options,
		"assets", assets,
	)
	return &result, nil
}

// UpdateQuiz applies a patch to the quiz and to groups, questions and options
// it already owns. Referenced rows that do not exist are skipped.
func (s *Service) UpdateQuiz(ctx context.Context, scope Scope, quizID int64, patch QuizPatch) (*UpdateResult, error) {
	if quizID <= 0 {
		return nil, ErrInvalidInput
	}
	quizFields, err := quizSet(patch)
	if err != nil {
		return nil, err
	}

	result := UpdateResult{QuizID: quizID}
	var previous int64
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		version, err := lockQuiz(ctx, tx, scope, quizID)
		if err != nil {
			return err
		}
		previous = version
		if patch.Version != nil && *patch.Version != version {
			return ErrVersionConflict
		}

		changed := false
		if !quizFields.empty() {
			query, args := quizFields.statement("quizzes", "id = $w1", quizID)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update quiz: %w", err)
			}
			changed = true
		}

		for _, gp := range patch.Groups {
			if err := patchGroupTree(ctx, tx, quizID, gp, &result); err != nil {
				return err
			}
		}
		if result.GroupsUpdated+result.QuestionsUpdated+result.OptionsUpdated > 0 {
			changed = true
		}

		result.Version = version
		if changed {
			next, err := bumpVersion(ctx, tx, quizID)
			if err != nil {
				return err
			}
			result.Version = next
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrQuizNotFound) || errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	if result.Version != previous {
		s.invalidate(ctx, quizID, previous)
	}
	return &result, nil
}

func patchGroupTree(ctx context.Context, tx *sql.Tx, quizID int64, gp GroupPatch, result *UpdateResult) error {
	if gp.GroupID < 0 {
		return nil
	}
	if gp.GroupID > 0 {
		set, err := groupSet(gp)
		if err != nil {
			return err
		}
		if set.empty() {
			var exists bool
			if err := tx.QueryRowContext(ctx, `
				SELECT EXISTS(SELECT 1 FROM quiz_groups WHERE id = $1 AND quiz_id = $2)
			`, gp.GroupID, quizID).Scan(&exists); err != nil {
				return fmt.Errorf("check group: %w", err)
			}
			if !exists {
				return nil
			}
		} else {
			query, args := set.statement("quiz_groups", "id = $w1 AND quiz_id = $w2", gp.GroupID, quizID)
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("update group: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("update group affected rows: %w", err)
			}
			if affected == 0 {
				return nil
			}
			result.GroupsUpdated++
		}
	}

	for _, qp := range gp.Questions {
		member, err := questionInGroup(ctx, tx, quizID, gp.GroupID, qp.QuestionID)
		if err != nil {
			return err
		}
		if !member {
			continue
		}
		set, err := questionSet(qp)
		if err != nil {
			return err
		}
		if !set.empty() {
			query, args := set.statement("quiz_questions", "id = $w1", qp.QuestionID)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update question: %w", err)
			}
			result.QuestionsUpdated++
		}
		for _, op := range qp.Options {
			set := optionSet(op)
			if set.empty() {
				continue
			}
			query, args := set.statement("quiz_options", "id = $w1 AND question_id = $w2", op.OptionID, qp.QuestionID)
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("update option: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("update option affected rows: %w", err)
			}
			result.OptionsUpdated += int(affected)
		}
	}
	return nil
}

// questionInGroup checks membership. groupID 0 means the quiz's
// ungrouped questions.
func questionInGroup(ctx context.Context, tx *sql.Tx, quizID, groupID, questionID int64) (bool, error) {
	if questionID <= 0 {
		return false, nil
	}
	var exists bool
	var err error
	if groupID == 0 {
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM quiz_questions WHERE id = $1 AND quiz_id = $2 AND group_id IS NULL)
		`, questionID, quizID).Scan(&exists)
	} else {
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM quiz_questions WHERE id = $1 AND quiz_id = $2 AND group_id = $3)
		`, questionID, quizID, groupID).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("check question: %w", err)
	}
	return exists, nil
}

// DeleteQuiz removes the quiz and its whole content tree.
func (s *Service) DeleteQuiz(ctx context.Context, scope Scope, quizID int64) error {
	if quizID <= 0 {
		return ErrInvalidInput
	}
	var previous int64
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		version, err := lockQuiz(ctx, tx, scope, quizID)
		if err != nil {
			return err
		}
		previous = version
		existing, err := loadExisting(ctx, tx, quizID)
		if err != nil {
			return err
		}
		del := deletionSet{quizID: quizID, groupIDs: existing.groupIDs, questionIDs: existing.questionIDs}
		if err := del.apply(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID); err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrQuizNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	s.invalidate(ctx, quizID, previous)
	s.log.Info("quiz deleted", "quiz_id", quizID)
	return nil
}

// lockQuiz takes a row lock on a quiz in scope and returns its version.
func lockQuiz(ctx context.Context, tx *sql.Tx, scope Scope, quizID int64) (int64, error) {
	cond, condArgs := scope.condition("q", 2)
	args := append([]any{quizID}, condArgs...)
	var version int64
	err := tx.QueryRowContext(ctx, `
		SELECT q.version FROM quizzes q
		WHERE q.id = $1 AND `+cond+`
		FOR UPDATE
	`, args...).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrQuizNotFound
		}
		return 0, fmt.Errorf("lock quiz: %w", err)
	}
	return version, nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx, quizID int64) (int64, error) {
	var version int64
	if err := tx.QueryRowContext(ctx, `
		UPDATE quizzes SET version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING version
	`, quizID).Scan(&version); err != nil {
		return 0, fmt.Errorf("bump quiz version: %w", err)
	}
	return version, nil
}
