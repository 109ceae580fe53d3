package handlers

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/ai-judge/ai-judge/internal/http_wrappers"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/pkg/api"
)

const (
	DEFAULT_PAGE_LIMIT = 50
	MAX_PAGE_LIMIT     = 500
)

func CreatePage(total int, offset int, limit int, ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper) (*api.Page, error) {
	hasNext := offset+limit < total
	var nextHref *api.HRef
	if hasNext {
		href, err := url.Parse(r.URI())
		if err != nil {
			ctx.Logger.Error("Failed to parse request URI", "uri", r.URI(), "error", err)
			return nil, serviceerrors.NewServiceError(messages.InternalServerError, "Error", err.Error())
		}
		q := href.Query()
		q.Set(constants.QUERY_PARAMETER_OFFSET, strconv.Itoa(offset+limit))
		href.RawQuery = q.Encode()
		nextHref = &api.HRef{Href: href.String()}
	}

	return &api.Page{
		First:      &api.HRef{Href: r.URI()},
		Next:       nextHref,
		Limit:      limit,
		TotalCount: total,
	}, nil
}

func GetParam[T string | int | bool](r http_wrappers.RequestWrapper, name string, optional bool, defaultValue T) (T, error) {
	values := r.Query(name)
	if (len(values) == 0) || (values[0] == "") {
		if !optional {
			return defaultValue, serviceerrors.NewServiceError(messages.QueryParameterRequired, "ParameterName", name)
		}
		return defaultValue, nil
	}
	switch any(defaultValue).(type) {
	case string:
		return any(values[0]).(T), nil
	case int:
		v, err := strconv.Atoi(values[0])
		if err != nil {
			return defaultValue, serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", name, "Type", "integer", "Value", values[0])
		}
		return any(v).(T), nil
	case bool:
		v, err := strconv.ParseBool(values[0])
		if err != nil {
			return defaultValue, serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", name, "Type", "boolean", "Value", values[0])
		}
		return any(v).(T), nil
	default:
		// should never get here
		return any(fmt.Sprintf("%v", values[0])).(T), nil
	}
}

// CommonListFilters reads the paging parameters and the string query
// parameters named in columns, keyed by the storage column they filter on.
func CommonListFilters(r http_wrappers.RequestWrapper, columns map[string]string) (*abstractions.QueryFilter, error) {
	limit, err := GetParam(r, constants.QUERY_PARAMETER_LIMIT, true, DEFAULT_PAGE_LIMIT)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > MAX_PAGE_LIMIT {
		return nil, serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", constants.QUERY_PARAMETER_LIMIT, "Type", fmt.Sprintf("integer between 1 and %d", MAX_PAGE_LIMIT), "Value", strconv.Itoa(limit))
	}
	offset, err := GetParam(r, constants.QUERY_PARAMETER_OFFSET, true, 0)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", constants.QUERY_PARAMETER_OFFSET, "Type", "integer", "Value", strconv.Itoa(offset))
	}

	params := map[string]any{}
	for _, name := range slices.Sorted(maps.Keys(columns)) {
		value, err := GetParam(r, name, true, "")
		if err != nil {
			return nil, err
		}
		params[columns[name]] = value
	}

	return &abstractions.QueryFilter{
		Limit:  limit,
		Offset: offset,
		Params: params,
	}, nil
}

func pathParameter(r http_wrappers.RequestWrapper, name string) (string, error) {
	value := r.PathValue(name)
	if value == "" {
		return "", serviceerrors.NewServiceError(messages.MissingPathParameter, "ParameterName", name)
	}
	return value, nil
}
