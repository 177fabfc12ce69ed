package menu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/saltyorg/regshell/internal/sqlplus"
)

type fakeRegistrar struct {
	calls   []string
	results map[string]*sqlplus.Result
	errs    map[string]error
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{
		results: make(map[string]*sqlplus.Result),
		errs:    make(map[string]error),
	}
}

func (f *fakeRegistrar) respond(op string, output string, err error) {
	f.results[op] = &sqlplus.Result{Name: op, Output: output, Lines: strings.Split(output, "\n"), Err: err}
	f.errs[op] = err
}

func (f *fakeRegistrar) fail(op string, err error) {
	f.results[op] = nil
	f.errs[op] = err
}

func (f *fakeRegistrar) call(op string, args ...string) (*sqlplus.Result, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s(%s)", op, strings.Join(args, ",")))
	if err, ok := f.errs[op]; ok {
		return f.results[op], err
	}
	if res, ok := f.results[op]; ok {
		return res, nil
	}
	return &sqlplus.Result{Name: op}, nil
}

func (f *fakeRegistrar) ShowStudents(ctx context.Context) (*sqlplus.Result, error) {
	return f.call("show_students")
}

func (f *fakeRegistrar) ShowCourses(ctx context.Context) (*sqlplus.Result, error) {
	return f.call("show_courses")
}

func (f *fakeRegistrar) ShowClasses(ctx context.Context) (*sqlplus.Result, error) {
	return f.call("show_classes")
}

func (f *fakeRegistrar) Enroll(ctx context.Context, bnum, classID string) (*sqlplus.Result, error) {
	return f.call("enroll_grad_student", bnum, classID)
}

func (f *fakeRegistrar) Drop(ctx context.Context, bnum, classID string) (*sqlplus.Result, error) {
	return f.call("drop_grad_student", bnum, classID)
}

func (f *fakeRegistrar) ClassRoster(ctx context.Context, classID string) (*sqlplus.Result, error) {
	return f.call("list_students_in_class", classID)
}

func (f *fakeRegistrar) DeleteStudent(ctx context.Context, bnum string) (*sqlplus.Result, error) {
	return f.call("delete_student", bnum)
}

func runMenu(t *testing.T, reg Registrar, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := New(reg, strings.NewReader(input), &out).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return out.String()
}

func TestRun_ShowsMenuAndExits(t *testing.T) {
	reg := newFakeRegistrar()

	out := runMenu(t, reg, "0\n")

	for _, want := range append([]string{"===== Main Menu =====", promptOption, "Exiting."}, menuItems...) {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if len(reg.calls) != 0 {
		t.Errorf("expected no calls, got %v", reg.calls)
	}
}

func TestRun_EndOfInputExits(t *testing.T) {
	reg := newFakeRegistrar()

	out := runMenu(t, reg, "")

	if !strings.HasSuffix(strings.TrimSpace(out), "Exiting.") {
		t.Errorf("expected output to end with Exiting., got:\n%s", out)
	}
}

func TestRun_EndOfInputMidPrompt(t *testing.T) {
	reg := newFakeRegistrar()

	out := runMenu(t, reg, "2\nB001\n")

	if len(reg.calls) != 0 {
		t.Errorf("expected no calls when input ends mid-operation, got %v", reg.calls)
	}
	if !strings.Contains(out, promptClass) || !strings.Contains(out, "Exiting.") {
		t.Errorf("expected class prompt and exit, got:\n%s", out)
	}
}

func TestRun_ListingsPrintRawOutput(t *testing.T) {
	reg := newFakeRegistrar()
	reg.respond("show_students", "B001, John, Smith\nB002, Jane, Doe", nil)
	reg.respond("show_courses", "CS101, Intro", nil)
	reg.respond("show_classes", "c0001, CS101", nil)
	reg.respond("list_students_in_class", "B001, John", nil)

	out := runMenu(t, reg, "1\n5\n6\n4\nc0001\n0\n")

	for _, want := range []string{"B001, John, Smith\nB002, Jane, Doe", "CS101, Intro", "c0001, CS101", "B001, John"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	expected := []string{"show_students()", "show_courses()", "show_classes()", "list_students_in_class(c0001)"}
	if strings.Join(reg.calls, " ") != strings.Join(expected, " ") {
		t.Errorf("expected calls %v, got %v", expected, reg.calls)
	}
}

func TestRun_Mutations(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		op     string
		output string
		err    error
		call   string
		want   []string
	}{
		{
			name:  "enroll success",
			input: "2\nB00123456\nCS101\n0\n",
			op:    "enroll_grad_student",
			call:  "enroll_grad_student(B00123456,CS101)",
			want:  []string{promptBnum, promptClass, "Enrollment succeeded."},
		},
		{
			name:   "drop failure",
			input:  "3\nB001\nCS101\n0\n",
			op:     "drop_grad_student",
			output: "ORA-20005: Student is not enrolled",
			err:    &sqlplus.ProcedureError{Name: "drop_grad_student", Code: "ORA-20005"},
			call:   "drop_grad_student(B001,CS101)",
			want:   []string{"Drop failed:", "ORA-20005: Student is not enrolled"},
		},
		{
			name:  "delete success",
			input: "7\nB001\n0\n",
			op:    "delete_student",
			call:  "delete_student(B001)",
			want:  []string{promptDelete, "Deletion succeeded."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newFakeRegistrar()
			reg.respond(tt.op, tt.output, tt.err)

			out := runMenu(t, reg, tt.input)

			if len(reg.calls) != 1 || reg.calls[0] != tt.call {
				t.Fatalf("expected call %s, got %v", tt.call, reg.calls)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, out)
				}
			}
		})
	}
}

func TestRun_FailureWithoutOutputPrintsError(t *testing.T) {
	reg := newFakeRegistrar()
	reg.fail("enroll_grad_student", fmt.Errorf("%w: student B# is required", sqlplus.ErrInvalidInput))
	reg.fail("show_students", fmt.Errorf("%w: failed to run sqlplus", sqlplus.ErrConnection))

	out := runMenu(t, reg, "2\n\nCS101\n1\n0\n")

	for _, want := range []string{"Enrollment failed:", "student B# is required", "Error: database connection failed: failed to run sqlplus"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRun_InvalidSelection(t *testing.T) {
	reg := newFakeRegistrar()

	out := runMenu(t, reg, "9\nabc\n0\n")

	if n := strings.Count(out, "Invalid selection, please try again."); n != 2 {
		t.Errorf("expected 2 invalid selection messages, got %d:\n%s", n, out)
	}
	if n := strings.Count(out, "===== Main Menu ====="); n != 3 {
		t.Errorf("expected menu to be shown 3 times, got %d", n)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := New(newFakeRegistrar(), strings.NewReader("1\n"), &out).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
