package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Page wraps a cursor-paginated listing. An empty cursor means last page.
type Page struct {
	Items  any    `json:"items"`
	Cursor string `json:"cursor,omitempty"`
}
