package sqlrepo

import (
	"fmt"
	"strings"
	"time"

	"github.com/freelanceops/billing/internal/db"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
)

// where collects AND-ed clauses and their named arguments
type where struct {
	clauses []string
	args    map[string]interface{}
}

func newWhere() *where {
	return &where{args: make(map[string]interface{})}
}

// add appends a clause using :name placeholders bound from kv pairs
func (w *where) add(clause string, kv ...interface{}) *where {
	w.clauses = append(w.clauses, clause)
	for i := 0; i+1 < len(kv); i += 2 {
		w.args[kv[i].(string)] = kv[i+1]
	}
	return w
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// paginate renders ORDER BY and LIMIT/OFFSET for a query filter
func paginate(f *types.QueryFilter, column string) string {
	order := "DESC"
	if f.GetOrder() == "asc" {
		order = "ASC"
	}
	clause := fmt.Sprintf(" ORDER BY %s %s, id %s", column, order, order)
	if limit := f.GetLimit(); limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, f.GetOffset())
	}
	return clause
}

func formatTime(t time.Time) string {
	return types.FormatTime(t)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := types.FormatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, _ := types.ParseTime(s)
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := types.ParseTime(*s)
	if err != nil {
		return nil
	}
	return &t
}

func formatDate(t time.Time) string {
	return types.FormatDate(t)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := types.FormatDate(*t)
	return &s
}

func parseDate(s string) time.Time {
	t, _ := types.ParseDate(s)
	return t
}

func parseDatePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := types.ParseDate(*s)
	if err != nil {
		return nil
	}
	return &t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// wrapErr converts driver errors into marked errors with a hint naming the entity
func wrapErr(err error, entity, op string, details map[string]any) error {
	switch {
	case db.IsNoRows(err):
		return ierr.WithError(err).
			WithHintf("%s not found", strings.ToUpper(entity[:1])+entity[1:]).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	case db.IsUniqueViolation(err):
		return ierr.WithError(err).
			WithHintf("%s already exists", strings.ToUpper(entity[:1])+entity[1:]).
			WithReportableDetails(details).
			Mark(ierr.ErrAlreadyExists)
	case db.IsRetryable(err):
		return ierr.WithError(err).
			WithHint("The store is busy, please retry").
			WithReportableDetails(details).
			Mark(ierr.ErrTransient)
	default:
		return ierr.WithError(err).
			WithHintf("Failed to %s %s", op, entity).
			WithReportableDetails(details).
			Mark(ierr.ErrDatabase)
	}
}

// expectAffected turns zero affected rows into a not found error
func expectAffected(n int64, entity string, details map[string]any) error {
	if n == 0 {
		return ierr.NewErrorf("%s not found", entity).
			WithHintf("%s not found", strings.ToUpper(entity[:1])+entity[1:]).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
