package synthesis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chartquery/chartquery/internal/errors"
)

var dangerousPatterns = []string{
	"drop ", "delete ", "truncate ", "alter ", "create ", "insert ",
	"update ", "grant ", "revoke ", "exec ", "execute ", "xp_",
	"information_schema.user", "mysql.user", "load_file", "into outfile",
	"into dumpfile", "sleep(", "benchmark(",
}

var sqlCommentPattern = regexp.MustCompile(`(--|#|/\*)`)

// ValidateSQL checks that a generated statement is a single read-only SELECT
// against the expected table. It runs before every execution, including on
// verifier-improved SQL.
func ValidateSQL(query, table string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return errors.New(errors.ErrTypeValidation, "empty SQL query")
	}

	lower := strings.ToLower(trimmed)

	if !strings.HasPrefix(lower, "select ") && !strings.HasPrefix(lower, "select\n") {
		return errors.New(errors.ErrTypeValidation, "only SELECT statements are allowed")
	}

	// Reject multi-statement payloads. A single trailing semicolon is fine.
	if strings.Contains(strings.TrimSuffix(trimmed, ";"), ";") {
		return errors.New(errors.ErrTypeValidation, "multiple SQL statements are not allowed")
	}

	if sqlCommentPattern.MatchString(trimmed) {
		return errors.New(errors.ErrTypeValidation, "SQL comments are not allowed")
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return errors.Newf(errors.ErrTypeValidation,
				"query contains disallowed pattern %q", strings.TrimSpace(pattern))
		}
	}

	if table != "" && !strings.Contains(lower, strings.ToLower(table)) {
		return errors.New(errors.ErrTypeValidation,
			fmt.Sprintf("query does not reference table %s", table)).
			WithSuggestion("regenerate the query against the selected table")
	}

	return nil
}
