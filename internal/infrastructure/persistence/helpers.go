package persistence

import (
	"fmt"
	"sort"
	"strings"
)

// buildSetClause turns an update map into a deterministic "col = ?" list and
// its args. Keys are sorted so generated SQL is stable for tests. The
// modified_date audit column is always appended.
func buildSetClause(updates map[string]interface{}) (string, []interface{}) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	setClauses := make([]string, 0, len(keys)+1)
	args := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", k))
		args = append(args, updates[k])
	}
	setClauses = append(setClauses, "modified_date = NOW()")

	return strings.Join(setClauses, ", "), args
}
