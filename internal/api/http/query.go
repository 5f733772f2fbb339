package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	qerrors "github.com/quarrydb/quarry/internal/errors"
	"github.com/quarrydb/quarry/internal/executor"
	"github.com/quarrydb/quarry/pkg/types"
)

// QueryHandler handles POST /v1/query requests.
type QueryHandler struct {
	executor *executor.Executor
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(exec *executor.Executor) *QueryHandler {
	return &QueryHandler{executor: exec}
}

// QueryErrorResponse is the failure envelope for query requests. Unlike
// the generic ErrorResponse it carries the execution time the executor
// measures on every outcome.
type QueryErrorResponse struct {
	Success         bool   `json:"success"`
	Error           string `json:"error"`
	Code            string `json:"code,omitempty"`
	Retryable       bool   `json:"retryable,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

// ServeHTTP handles the query HTTP request.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req types.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error:     fmt.Sprintf("invalid request body: %v", err),
			RequestID: requestID,
		})
		return
	}

	// The request ID doubles as the audit actor: the API has no user
	// accounts, but every query still gets a traceable identity.
	result, err := h.executor.Execute(r.Context(), requestID, req)
	if err != nil {
		resp := QueryErrorResponse{
			Error:     qerrors.UserMessage(err),
			Code:      qerrors.GetCode(err),
			Retryable: qerrors.IsRetryable(err),
			RequestID: requestID,
		}
		if result != nil {
			resp.ExecutionTimeMs = result.ExecutionTimeMs
		}
		writeJSON(w, statusForError(err), resp)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
