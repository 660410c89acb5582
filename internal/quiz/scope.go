package quiz

import "fmt"

// Scope restricts quiz lookups to global quizzes or to one course.
type Scope struct {
	courseID int64
}

func GlobalScope() Scope {
	return Scope{}
}

func CourseScope(courseID int64) Scope {
	return Scope{courseID: courseID}
}

func (s Scope) IsGlobal() bool {
	return s.courseID == 0
}

func (s Scope) CourseID() int64 {
	return s.courseID
}

// condition returns the SQL predicate on alias.course_id. next is the first
// free placeholder number.
func (s Scope) condition(alias string, next int) (string, []any) {
	if s.IsGlobal() {
		return alias + ".course_id IS NULL", nil
	}
	return fmt.Sprintf("%s.course_id = $%d", alias, next), []any{s.courseID}
}

func (s Scope) allows(courseID *int64) bool {
	if s.IsGlobal() {
		return courseID == nil
	}
	return courseID != nil && *courseID == s.courseID
}

func (s Scope) courseValue() any {
	if s.IsGlobal() {
		return nil
	}
	return s.courseID
}
