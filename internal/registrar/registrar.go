// Package registrar exposes the reg_pkg procedures the front-ends use.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/regshell/internal/sqlplus"
)

// Procedure names in reg_pkg. Names and argument order are fixed by the schema.
const (
	ProcShowStudents        = "show_students"
	ProcShowCourses         = "show_courses"
	ProcShowClasses         = "show_classes"
	ProcEnrollGradStudent   = "enroll_grad_student"
	ProcDropGradStudent     = "drop_grad_student"
	ProcListStudentsInClass = "list_students_in_class"
	ProcDeleteStudent       = "delete_student"
)

// studentNotFoundCode is raised by the existence check block.
const studentNotFoundCode = "ORA-20001"

const studentExistsBlock = `DECLARE
  v_count NUMBER;
BEGIN
  SELECT COUNT(*) INTO v_count FROM students WHERE b# = :bnum;
  IF v_count = 0 THEN
    RAISE_APPLICATION_ERROR(-20001, 'Student not found');
  END IF;
END;`

// Executor runs procedures and scripts against the database.
type Executor interface {
	Call(ctx context.Context, procedure string, args ...string) (*sqlplus.Result, error)
	Run(ctx context.Context, name string, script *sqlplus.Script) (*sqlplus.Result, error)
}

// Recorder stores a record of each invocation.
type Recorder interface {
	RecordInvocation(ctx context.Context, inv Invocation) error
}

// Invocation describes one finished call, for auditing.
type Invocation struct {
	Procedure string
	Args      []string
	Source    string
	Output    string
	Duration  time.Duration
	Err       error
}

// Service calls reg_pkg procedures on behalf of a front-end.
type Service struct {
	exec     Executor
	recorder Recorder
	source   string
}

// New creates a service. source labels audit records ("cli", "web", ...).
func New(exec Executor, source string) *Service {
	return &Service{exec: exec, source: source}
}

// SetRecorder enables invocation auditing.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// ShowStudents lists all students.
func (s *Service) ShowStudents(ctx context.Context) (*sqlplus.Result, error) {
	return s.call(ctx, ProcShowStudents)
}

// ShowCourses lists all courses.
func (s *Service) ShowCourses(ctx context.Context) (*sqlplus.Result, error) {
	return s.call(ctx, ProcShowCourses)
}

// ShowClasses lists all classes.
func (s *Service) ShowClasses(ctx context.Context) (*sqlplus.Result, error) {
	return s.call(ctx, ProcShowClasses)
}

// Enroll enrolls a graduate student in a class.
func (s *Service) Enroll(ctx context.Context, bnum, classID string) (*sqlplus.Result, error) {
	args, err := required(field{"student B#", bnum}, field{"class ID", classID})
	if err != nil {
		return nil, err
	}
	return s.call(ctx, ProcEnrollGradStudent, args...)
}

// Drop drops a graduate student from a class.
func (s *Service) Drop(ctx context.Context, bnum, classID string) (*sqlplus.Result, error) {
	args, err := required(field{"student B#", bnum}, field{"class ID", classID})
	if err != nil {
		return nil, err
	}
	return s.call(ctx, ProcDropGradStudent, args...)
}

// ClassRoster lists the students enrolled in a class.
func (s *Service) ClassRoster(ctx context.Context, classID string) (*sqlplus.Result, error) {
	args, err := required(field{"class ID", classID})
	if err != nil {
		return nil, err
	}
	return s.call(ctx, ProcListStudentsInClass, args...)
}

// DeleteStudent deletes a student. It does not check existence first; callers
// that want the not-found page call StudentExists before.
func (s *Service) DeleteStudent(ctx context.Context, bnum string) (*sqlplus.Result, error) {
	args, err := required(field{"student B#", bnum})
	if err != nil {
		return nil, err
	}
	return s.call(ctx, ProcDeleteStudent, args...)
}

// CheckStudent reports why a student is or is not visible: nil when the
// student exists, ErrNotFound when the check found no row, and the
// underlying error for anything else.
func (s *Service) CheckStudent(ctx context.Context, bnum string) error {
	args, err := required(field{"student B#", bnum})
	if err != nil {
		return err
	}

	script := sqlplus.NewScript()
	if err := script.Bind("bnum", args[0]); err != nil {
		return err
	}
	script.Block(studentExistsBlock)

	res, err := s.exec.Run(ctx, "check_student_exists", script)
	s.record(ctx, "check_student_exists", args, res, err)

	if sqlplus.Code(err) == studentNotFoundCode {
		return fmt.Errorf("student %s: %w", args[0], sqlplus.ErrNotFound)
	}
	return err
}

// StudentExists reports whether a student exists. Any failure of the check,
// including connection problems, counts as "does not exist".
func (s *Service) StudentExists(ctx context.Context, bnum string) bool {
	err := s.CheckStudent(ctx, bnum)
	if err == nil {
		return true
	}
	if !errors.Is(err, sqlplus.ErrNotFound) {
		log.Warn().Err(err).Str("bnum", bnum).Msg("Student existence check failed; treating student as missing")
	}
	return false
}

func (s *Service) call(ctx context.Context, procedure string, args ...string) (*sqlplus.Result, error) {
	res, err := s.exec.Call(ctx, procedure, args...)
	s.record(ctx, procedure, args, res, err)
	return res, err
}

func (s *Service) record(ctx context.Context, procedure string, args []string, res *sqlplus.Result, err error) {
	if s.recorder == nil {
		return
	}
	inv := Invocation{
		Procedure: procedure,
		Args:      args,
		Source:    s.source,
		Err:       err,
	}
	if res != nil {
		inv.Output = res.Output
		inv.Duration = res.Duration
	}
	// The audit write must not be cut short by a request that already timed out.
	if rerr := s.recorder.RecordInvocation(context.WithoutCancel(ctx), inv); rerr != nil {
		log.Error().Err(rerr).Str("procedure", procedure).Msg("Failed to record invocation")
	}
}

type field struct {
	label string
	value string
}

// required trims each value and fails on the first empty one.
func required(fields ...field) ([]string, error) {
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			return nil, fmt.Errorf("%w: %s is required", sqlplus.ErrInvalidInput, f.label)
		}
		values = append(values, v)
	}
	return values, nil
}
