package messages

import (
	"fmt"
	"net/http"
	"strings"
)

// MessageCode identifies a user facing message. The message template uses
// {{.Name}} placeholders that are filled from the name/value pairs passed to
// GetErrorMessage.
type MessageCode struct {
	code       string
	statusCode int
	template   string
}

func (m *MessageCode) GetCode() string {
	return m.code
}

func (m *MessageCode) GetStatusCode() int {
	return m.statusCode
}

func (m *MessageCode) GetTemplate() string {
	return m.template
}

func createMessageCode(statusCode int, code string, template string) *MessageCode {
	return &MessageCode{
		code:       code,
		statusCode: statusCode,
		template:   template,
	}
}

// GetErrorMessage renders the message template with the given name/value pairs.
func GetErrorMessage(messageCode *MessageCode, messageParams ...any) string {
	msg := messageCode.template
	for i := 0; i < len(messageParams); i += 2 {
		name := fmt.Sprintf("%v", messageParams[i])
		value := ""
		if i+1 < len(messageParams) {
			value = fmt.Sprintf("%v", messageParams[i+1])
		}
		msg = strings.ReplaceAll(msg, fmt.Sprintf("{{.%s}}", name), value)
	}
	return msg
}

var (
	// request errors

	InvalidJSONRequest      = createMessageCode(http.StatusBadRequest, "invalid_json_request", "The request JSON is invalid: '{{.Error}}'. Please correct the request and try again.")
	RequestValidationFailed = createMessageCode(http.StatusBadRequest, "request_validation_failed", "The request validation failed: '{{.Error}}'. Please correct the request and try again.")
	MissingPathParameter    = createMessageCode(http.StatusBadRequest, "missing_path_parameter", "The path parameter '{{.ParameterName}}' is required.")
	QueryParameterRequired  = createMessageCode(http.StatusBadRequest, "query_parameter_required", "The query parameter '{{.ParameterName}}' is required.")
	QueryParameterInvalid   = createMessageCode(http.StatusBadRequest, "query_parameter_invalid", "The query parameter '{{.ParameterName}}' must be of type {{.Type}}, got '{{.Value}}'.")
	QueryBadParameter       = createMessageCode(http.StatusBadRequest, "query_bad_parameter", "The query parameter '{{.ParameterName}}' is not allowed. Allowed parameters are: {{.AllowedParameters}}.")

	// resource errors

	ResourceNotFound      = createMessageCode(http.StatusNotFound, "resource_not_found", "The {{.Type}} resource '{{.ResourceId}}' was not found.")
	ResourceAlreadyExists = createMessageCode(http.StatusConflict, "resource_already_exists", "The {{.Type}} resource '{{.ResourceId}}' already exists.")
	RunNotActive          = createMessageCode(http.StatusNotFound, "run_not_active", "The run '{{.RunId}}' is not active and can not be cancelled.")
	JudgeInactive         = createMessageCode(http.StatusConflict, "judge_inactive", "The judge '{{.JudgeId}}' is not active.")

	// service errors

	ConfigurationFailed     = createMessageCode(http.StatusInternalServerError, "configuration_failed", "The service configuration is invalid: {{.Error}}.")
	DatabaseOperationFailed = createMessageCode(http.StatusInternalServerError, "database_operation_failed", "The database operation '{{.Type}}' failed for resource '{{.ResourceId}}': {{.Error}}.")
	ExportFailed            = createMessageCode(http.StatusInternalServerError, "export_failed", "The export of run '{{.RunId}}' failed: {{.Error}}.")
	InternalServerError     = createMessageCode(http.StatusInternalServerError, "internal_server_error", "An internal server error occurred: {{.Error}}.")
)
