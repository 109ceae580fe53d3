package http_wrappers

// RequestWrapper hides the transport from the handlers.
type RequestWrapper interface {
	Method() string
	URI() string
	Path() string
	Header(key string) string
	SetHeader(key string, value string)
	Query(key string) []string
	PathValue(name string) string
	BodyAsBytes() ([]byte, error)
}

type ResponseWrapper interface {
	SetHeader(key string, value string)
	SetStatusCode(code int)
	Write(buf []byte) (int, error)
	WriteJSON(v any, code int)
	Error(err error, requestID string)
}
