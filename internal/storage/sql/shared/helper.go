package shared

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
)

func ValidateFilter(filter []string, allowedColumns []string) error {
	for _, key := range filter {
		if !slices.Contains(allowedColumns, key) {
			return serviceerrors.NewServiceError(messages.QueryBadParameter, "ParameterName", key, "AllowedParameters", strings.Join(allowedColumns, ", "))
		}
	}
	return nil
}

func getParams(params *abstractions.QueryFilter) map[string]any {
	filter := maps.Clone(params.Params)
	maps.DeleteFunc(filter, func(k string, v any) bool {
		return v == "" // delete empty values
	})
	return filter
}

// Returns the limit, offset, and filtered params
func ExtractQueryParams(filter *abstractions.QueryFilter) *abstractions.QueryFilter {
	return &abstractions.QueryFilter{
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Params: getParams(filter),
	}
}

// CreateWhereClause returns " WHERE a = ? AND b = ?" for the filter columns in
// name order, together with the matching arguments. The column names must
// have been checked with ValidateFilter.
func CreateWhereClause(filter map[string]any, prefix ...string) (string, []any) {
	var conditions []string
	var args []any
	for _, condition := range prefix {
		conditions = append(conditions, condition)
	}
	for _, key := range slices.Sorted(maps.Keys(filter)) {
		conditions = append(conditions, fmt.Sprintf("%s = ?", key))
		args = append(args, filter[key])
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// CreatePageClause returns the LIMIT and OFFSET clause and its arguments.
func CreatePageClause(limit int, offset int) (string, []any) {
	var sb strings.Builder
	var args []any
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
		if offset > 0 {
			sb.WriteString(" OFFSET ?")
			args = append(args, offset)
		}
	}
	return sb.String(), args
}
