package postgres

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lucagalbu/task-manager/domain"
)

// FieldCodec converts tasks between their domain shape and table rows.
type FieldCodec struct{}

// EncodeStatus returns the stored label for a status.
func (FieldCodec) EncodeStatus(s domain.Status) (string, error) {
	switch s {
	case domain.StatusOpen:
		return "OPEN", nil
	case domain.StatusProgress:
		return "PROGRESS", nil
	case domain.StatusDone:
		return "DONE", nil
	default:
		return "", domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidStatus.Message, fmt.Errorf("%q", string(s)))
	}
}

// DecodeStatus maps a stored label back to a status. Anything else is a data integrity error.
func (FieldCodec) DecodeStatus(v any) (domain.Status, error) {
	var label string
	switch val := v.(type) {
	case string:
		label = val
	case []byte:
		label = string(val)
	default:
		return "", domain.WrapError(domain.ErrCodeDataIntegrity, domain.ErrUnknownStatus.Message, fmt.Errorf("unexpected %T", v))
	}
	switch label {
	case "OPEN":
		return domain.StatusOpen, nil
	case "PROGRESS":
		return domain.StatusProgress, nil
	case "DONE":
		return domain.StatusDone, nil
	default:
		return "", domain.WrapError(domain.ErrCodeDataIntegrity, domain.ErrUnknownStatus.Message, fmt.Errorf("%q", label))
	}
}

func (FieldCodec) EncodeTime(t domain.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.SinceMidnight().Microseconds(), Valid: true}
}

// DecodeTime normalizes a stored time-of-day. Drivers hand these back either as
// pgtype.Time or as a duration since midnight.
func (FieldCodec) DecodeTime(v any) (*domain.TimeOfDay, error) {
	var (
		tod domain.TimeOfDay
		err error
	)
	switch val := v.(type) {
	case nil:
		return nil, nil
	case pgtype.Time:
		if !val.Valid {
			return nil, nil
		}
		tod, err = domain.TimeOfDayFromDuration(time.Duration(val.Microseconds) * time.Microsecond)
	case time.Duration:
		tod, err = domain.TimeOfDayFromDuration(val)
	case time.Time:
		tod = domain.TimeOfDay{Time: civil.TimeOf(val)}
	case string:
		tod, err = domain.ParseTimeOfDay(val)
	default:
		err = fmt.Errorf("unsupported time value %T", v)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeDataIntegrity, "invalid stored time", err)
	}
	return &tod, nil
}

func (FieldCodec) EncodeDate(d domain.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func (FieldCodec) DecodeDate(v any) (*domain.Date, error) {
	var d domain.Date
	switch val := v.(type) {
	case nil:
		return nil, nil
	case pgtype.Date:
		if !val.Valid {
			return nil, nil
		}
		if val.InfinityModifier != pgtype.Finite {
			return nil, domain.NewError(domain.ErrCodeDataIntegrity, "infinite stored date")
		}
		d = domain.Date{Date: civil.DateOf(val.Time)}
	case time.Time:
		d = domain.Date{Date: civil.DateOf(val)}
	case string:
		parsed, err := domain.ParseDate(val)
		if err != nil {
			return nil, domain.WrapError(domain.ErrCodeDataIntegrity, "invalid stored date", err)
		}
		d = parsed
	default:
		return nil, domain.NewError(domain.ErrCodeDataIntegrity, fmt.Sprintf("unsupported date value %T", v))
	}
	return &d, nil
}

// DecodeRow builds a task from a row keyed by column name.
func (c FieldCodec) DecodeRow(row map[string]any) (*domain.Task, error) {
	var task domain.Task
	var err error

	switch id := row["id"].(type) {
	case int64:
		task.ID = id
	case int32:
		task.ID = int64(id)
	case int:
		task.ID = int64(id)
	default:
		return nil, domain.NewError(domain.ErrCodeDataIntegrity, fmt.Sprintf("unexpected id value %T", row["id"]))
	}

	title, ok := row["title"].(string)
	if !ok {
		return nil, domain.NewError(domain.ErrCodeDataIntegrity, fmt.Sprintf("task %d has no title", task.ID))
	}
	task.Title = title

	if task.Status, err = c.DecodeStatus(row["status"]); err != nil {
		return nil, err
	}
	if task.Description, err = optionalString(row["description"]); err != nil {
		return nil, err
	}
	if task.Goal, err = optionalString(row["goal"]); err != nil {
		return nil, err
	}
	if task.Date, err = c.DecodeDate(row["date"]); err != nil {
		return nil, err
	}
	if task.StartTime, err = c.DecodeTime(row["start_time"]); err != nil {
		return nil, err
	}
	if task.EndTime, err = c.DecodeTime(row["end_time"]); err != nil {
		return nil, err
	}
	return &task, nil
}

// InsertColumns lists title, status and every optional field present in the input.
func (c FieldCodec) InsertColumns(in domain.TaskInput) ([]string, []any, error) {
	status, err := c.EncodeStatus(in.Status)
	if err != nil {
		return nil, nil, err
	}
	cols := []string{"title", "status"}
	args := []any{in.Title, status}

	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Date != nil {
		add("date", c.EncodeDate(*in.Date))
	}
	if in.StartTime != nil {
		add("start_time", c.EncodeTime(*in.StartTime))
	}
	if in.EndTime != nil {
		add("end_time", c.EncodeTime(*in.EndTime))
	}
	if in.Goal != nil {
		add("goal", *in.Goal)
	}
	return cols, args, nil
}

// Assignments lists the columns supplied in the patch. A supplied null becomes SQL NULL.
func (c FieldCodec) Assignments(patch domain.TaskUpdate) ([]string, []any, error) {
	var cols []string
	var args []any

	add := func(col string, set, null bool, encode func() any) {
		if !set {
			return
		}
		cols = append(cols, col)
		if null {
			args = append(args, nil)
			return
		}
		args = append(args, encode())
	}

	add("title", patch.Title.Set, patch.Title.Null, func() any { return patch.Title.Value })
	if patch.Status.Set {
		status, err := c.EncodeStatus(patch.Status.Value)
		if err != nil {
			return nil, nil, err
		}
		add("status", true, false, func() any { return status })
	}
	add("description", patch.Description.Set, patch.Description.Null, func() any { return patch.Description.Value })
	add("date", patch.Date.Set, patch.Date.Null, func() any { return c.EncodeDate(patch.Date.Value) })
	add("start_time", patch.StartTime.Set, patch.StartTime.Null, func() any { return c.EncodeTime(patch.StartTime.Value) })
	add("end_time", patch.EndTime.Set, patch.EndTime.Null, func() any { return c.EncodeTime(patch.EndTime.Value) })
	add("goal", patch.Goal.Set, patch.Goal.Null, func() any { return patch.Goal.Value })

	return cols, args, nil
}

func optionalString(v any) (*string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &val, nil
	case []byte:
		s := string(val)
		return &s, nil
	default:
		return nil, domain.NewError(domain.ErrCodeDataIntegrity, fmt.Sprintf("unexpected text value %T", v))
	}
}
