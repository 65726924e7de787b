package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"codeberg.org/galaxy/console/assets/views"
	"codeberg.org/galaxy/console/core/authenticated"
	"codeberg.org/galaxy/console/core/confstore"
	"codeberg.org/galaxy/console/core/galaxy"
	"codeberg.org/galaxy/console/core/requests"
	"codeberg.org/galaxy/console/server/request_context"
	"codeberg.org/galaxy/console/server/utils"
)

var (
	ErrPageNotFound     = NewStatusError(http.StatusNotFound, errors.New("page not found"))
	ErrMethodNotAllowed = NewStatusError(http.StatusMethodNotAllowed, errors.New("method not allowed"))
)

// StatusError pins the status code an error is answered with.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string {
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError wraps err so that it is answered with status.
func NewStatusError(status int, err error) error {
	return &StatusError{Status: status, Err: err}
}

// StatusOf maps a handler error to the HTTP status it is answered with.
func StatusOf(err error) int {
	var (
		statusErr *StatusError
		apiErr    *requests.APIError
		verr      *galaxy.ValidationError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &statusErr):
		return statusErr.Status
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, confstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, confstore.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, authenticated.ErrInvalidToken):
		return http.StatusForbidden
	case requests.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, requests.ErrMasterUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON form of an error page.
type errorBody struct {
	Error    string              `json:"error"`
	Status   int                 `json:"status"`
	Problems []galaxy.FieldError `json:"problems,omitempty"`
}

// ErrorPage renders the error stored in the request context with its status code.
func ErrorPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	ctx := request_context.FromRequest(r)

	pageData := views.ErrorData{
		Title:      http.StatusText(ctx.StatusCode),
		Error:      ctx.RequestError,
		StatusCode: ctx.StatusCode,
		RequestID:  ctx.RequestID,
	}

	var verr *galaxy.ValidationError
	if errors.As(ctx.RequestError, &verr) {
		pageData.Problems = verr.Problems
	}

	if utils.WantsJSON(r) {
		body := errorBody{Status: ctx.StatusCode, Problems: pageData.Problems}
		if ctx.RequestError != nil {
			body.Error = ctx.RequestError.Error()
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(ctx.StatusCode)
		_ = json.NewEncoder(w).Encode(body)

		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(ctx.StatusCode)
	_ = views.Error(pageData).Render(r.Context(), w)
}

// NotFound answers every path the URL table does not know.
func NotFound(_ http.ResponseWriter, _ *http.Request) error {
	return ErrPageNotFound
}
