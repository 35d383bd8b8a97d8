package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Field is one entry of a partial update. Set reports whether the field was supplied at all;
// a supplied field with Null set clears the stored value.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a supplied field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a field supplied as an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// Ptr returns the supplied value, or nil when the field is absent or null.
func (f Field[T]) Ptr() *T {
	if !f.Set || f.Null {
		return nil
	}
	v := f.Value
	return &v
}

// UnmarshalJSON is only invoked for keys present in the document, which is what marks the field as set.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// TaskUpdate is a patch over a task: only supplied fields are written.
type TaskUpdate struct {
	Title       Field[string]    `json:"title"`
	Status      Field[Status]    `json:"status"`
	Description Field[string]    `json:"description"`
	Date        Field[Date]      `json:"date"`
	StartTime   Field[TimeOfDay] `json:"start_time"`
	EndTime     Field[TimeOfDay] `json:"end_time"`
	Goal        Field[string]    `json:"goal"`
}

// IsEmpty reports whether the patch supplies no field at all.
func (u TaskUpdate) IsEmpty() bool {
	return !u.Title.Set && !u.Status.Set && !u.Description.Set && !u.Date.Set &&
		!u.StartTime.Set && !u.EndTime.Set && !u.Goal.Set
}

// Validate rejects patches that would null out a required column.
func (u TaskUpdate) Validate() error {
	if u.Title.Set && (u.Title.Null || strings.TrimSpace(u.Title.Value) == "") {
		return ErrTitleRequired
	}
	if u.Title.Set {
		if err := checkLength("title", u.Title.Value); err != nil {
			return err
		}
	}
	if u.Goal.Set && !u.Goal.Null {
		if err := checkLength("goal", u.Goal.Value); err != nil {
			return err
		}
	}
	if u.Date.Set && !u.Date.Null {
		if err := u.Date.Value.Validate(); err != nil {
			return err
		}
	}
	if u.Status.Set {
		if u.Status.Null {
			return ErrInvalidStatus
		}
		if _, err := ParseStatus(string(u.Status.Value)); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch into t.
func (u TaskUpdate) Apply(t *Task) {
	if t == nil {
		return
	}
	if u.Title.Set && !u.Title.Null {
		t.Title = u.Title.Value
	}
	if u.Status.Set && !u.Status.Null {
		t.Status = u.Status.Value
	}
	if u.Description.Set {
		t.Description = u.Description.Ptr()
	}
	if u.Date.Set {
		t.Date = u.Date.Ptr()
	}
	if u.StartTime.Set {
		t.StartTime = u.StartTime.Ptr()
	}
	if u.EndTime.Set {
		t.EndTime = u.EndTime.Ptr()
	}
	if u.Goal.Set {
		t.Goal = u.Goal.Ptr()
	}
}
