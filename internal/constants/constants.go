package constants

const (
	// path parameters

	PATH_PARAMETER_RUN_ID   = "id"
	PATH_PARAMETER_JUDGE_ID = "id"

	// query parameters

	QUERY_PARAMETER_QUEUE_ID = "queueId"
	QUERY_PARAMETER_STATUS   = "status"
	QUERY_PARAMETER_LIMIT    = "limit"
	QUERY_PARAMETER_OFFSET   = "offset"

	// headers

	HEADER_REQUEST_ID = "X-Request-Id"

	// environment variables

	ENV_CONFIG_DIR           = "AI_JUDGE_CONFIG_DIR"
	ENV_CONFIG_PATH          = "CONFIG_PATH"
	ENV_DATABASE_URL         = "DATABASE_URL"
	ENV_DATABASE_SERVICE_KEY = "DATABASE_SERVICE_KEY"
	ENV_OPENAI_API_KEY       = "OPENAI_API_KEY"
	ENV_ANTHROPIC_API_KEY    = "ANTHROPIC_API_KEY"
	ENV_GEMINI_API_KEY       = "GEMINI_API_KEY"

	// LLM providers

	PROVIDER_OPENAI    = "openai"
	PROVIDER_ANTHROPIC = "anthropic"
	PROVIDER_GEMINI    = "gemini"

	// orchestrator defaults

	DEFAULT_CONCURRENCY       = 3
	MAX_CONCURRENCY           = 10
	DEFAULT_PARSE_ATTEMPTS    = 2
	DEFAULT_REASONING_MAX_LEN = 400
	DEFAULT_MAX_ERROR_COUNT   = 10
	DEFAULT_MAX_TOKENS        = 1024

	NO_ANSWER_PROVIDED    = "No answer provided"
	NO_REASONING_PROVIDED = "No reasoning provided"
)
