package api

type HRef struct {
	Href string `json:"href"`
}

type Page struct {
	First      *HRef `json:"first,omitempty"`
	Next       *HRef `json:"next,omitempty"`
	Limit      int   `json:"limit"`
	TotalCount int   `json:"totalCount"`
}

// Error is the body of every failed request.
type Error struct {
	Success     bool   `json:"success"`
	Message     string `json:"error"`
	MessageCode string `json:"message_code"`
	Trace       string `json:"trace"`
}

type PatchOp string

const (
	PatchOpReplace PatchOp = "replace"
	PatchOpAdd     PatchOp = "add"
	PatchOpRemove  PatchOp = "remove"
	PatchOpTest    PatchOp = "test"
)

// PatchOperation is a single RFC 6902 operation.
type PatchOperation struct {
	Op    PatchOp `json:"op" validate:"required,oneof=replace add remove test"`
	Path  string  `json:"path" validate:"required"`
	Value any     `json:"value,omitempty"`
}

type Patch []PatchOperation
