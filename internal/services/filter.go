package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/dscc-qa/backup-harness/internal/models"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

const filterTimeLayout = "2006-01-02T15:04:05Z"

// ParseTaskFilter parses the task list filter grammar:
//
//	clause { " and " clause }
//	clause = field op value
//
// Values are bare words or single-quoted strings where '' is an escaped quote.
func ParseTaskFilter(expr string) (models.TaskFilter, error) {
	var f models.TaskFilter
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return f, nil
	}

	clauses, err := splitClauses(expr)
	if err != nil {
		return f, err
	}

	for _, c := range clauses {
		field, op, value, err := parseClause(c)
		if err != nil {
			return f, err
		}
		if err := applyClause(&f, field, op, value); err != nil {
			return f, err
		}
	}
	return f, nil
}

func applyClause(f *models.TaskFilter, field, op, value string) error {
	if field == "createdAt" {
		if op != "gt" {
			return filterError("createdAt supports only gt, got %q", op)
		}
		t, err := time.Parse(filterTimeLayout, value)
		if err != nil {
			return filterError("invalid createdAt %q", value)
		}
		f.CreatedAfter = &t
		return nil
	}

	if op != "eq" {
		return filterError("%s supports only eq, got %q", field, op)
	}

	switch field {
	case "userId":
		f.UserID = value
	case "customerId":
		f.CustomerID = value
	case "name":
		f.Name = value
	case "displayName":
		f.DisplayName = value
	case "parent/id":
		f.ParentID = value
	case "rootTask.id":
		f.RootID = value
	case "sourceResource.resourceUri":
		f.SourceURI = value
	default:
		return filterError("unsupported filter field %q", field)
	}
	return nil
}

// splitClauses splits on " and " outside of quotes.
func splitClauses(expr string) ([]string, error) {
	var (
		clauses []string
		cur     strings.Builder
		quoted  bool
	)
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		if ch == '\'' {
			quoted = !quoted
		}
		if !quoted && strings.HasPrefix(expr[i:], " and ") {
			clauses = append(clauses, cur.String())
			cur.Reset()
			i += len(" and ") - 1
			continue
		}
		cur.WriteByte(ch)
	}
	if quoted {
		return nil, filterError("unterminated quote in %q", expr)
	}
	return append(clauses, cur.String()), nil
}

func parseClause(c string) (string, string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(c), " ", 3)
	if len(parts) != 3 {
		return "", "", "", filterError("malformed clause %q", c)
	}
	value := strings.TrimSpace(parts[2])
	if strings.HasPrefix(value, "'") {
		if len(value) < 2 || !strings.HasSuffix(value, "'") {
			return "", "", "", filterError("malformed value in %q", c)
		}
		value = strings.ReplaceAll(value[1:len(value)-1], "''", "'")
	}
	return parts[0], parts[1], value, nil
}

func filterError(format string, args ...any) error {
	return srvErrors.NewInvalidConfigurationError("filter", fmt.Sprintf(format, args...))
}
