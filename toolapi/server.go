package toolapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

const (
	jsonRPCVersion = "2.0"

	methodToolsList = "tools/list"
	methodToolsCall = "tools/call"

	// CodeParseError is the JSON-RPC standard code for unparseable frames.
	CodeParseError = -32700

	// CodeMethodNotFound covers unknown methods and unknown tool names.
	CodeMethodNotFound = -32601

	// CodeInvalidParams covers malformed params and all validation failures:
	// fix your input, a retry without changes will fail again.
	CodeInvalidParams = -32602

	// CodeInternalError covers unexpected engine failures.
	CodeInternalError = -32000

	// CodeConcurrencyConflict signals the log advanced past the caller's
	// lastKnownPosition: re-read the position and retry.
	CodeConcurrencyConflict = -32010

	maxFrameSize = 1 << 20
)

type requestFrame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type responseFrame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *errorObject    `json:"error,omitempty"`
}

type errorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Server frames the tool registry as JSON-RPC 2.0 over line-delimited JSON.
// One request per line in, one response per line out; requests without an id
// are treated as notifications and produce no response.
type Server struct {
	registry *Registry
	logger   eventlog.Logger
}

// ServerOption defines a functional option for configuring Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for the Server.
func WithServerLogger(logger eventlog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server for the given registry with optional configuration.
func NewServer(registry *Registry, options ...ServerOption) *Server {
	s := &Server{registry: registry}

	for _, option := range options {
		option(s)
	}

	return s
}

// Serve reads requests line by line from r and writes responses to w until r
// is exhausted, the context is canceled, or writing fails. Read errors on a
// single frame produce an error response; they do not terminate the loop.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	writer := bufio.NewWriter(w)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		response, hasResponse := s.HandleRequest(ctx, line)
		if !hasResponse {
			continue
		}

		if _, writeErr := writer.Write(response); writeErr != nil {
			return writeErr
		}

		if writeErr := writer.WriteByte('\n'); writeErr != nil {
			return writeErr
		}

		if flushErr := writer.Flush(); flushErr != nil {
			return flushErr
		}
	}

	return scanner.Err()
}

// HandleRequest processes one raw JSON-RPC frame and returns the serialized
// response. The second return value is false for notifications (no id), which
// must not be answered.
func (s *Server) HandleRequest(ctx context.Context, raw []byte) ([]byte, bool) {
	var request requestFrame
	if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(raw, &request); unmarshalErr != nil {
		return s.marshalResponse(responseFrame{
			JSONRPC: jsonRPCVersion,
			Error:   &errorObject{Code: CodeParseError, Message: "parse error: " + unmarshalErr.Error()},
		}), true
	}

	response, hasResponse := s.dispatch(ctx, request)
	if !hasResponse {
		return nil, false
	}

	return s.marshalResponse(response), true
}

func (s *Server) dispatch(ctx context.Context, request requestFrame) (responseFrame, bool) {
	isNotification := len(request.ID) == 0

	var result any
	var err error

	switch request.Method {
	case methodToolsList:
		result = toolsListResult{Tools: s.registry.List()}

	case methodToolsCall:
		result, err = s.callTool(ctx, request.Params)

	default:
		err = ErrUnknownTool
	}

	if isNotification {
		return responseFrame{}, false
	}

	if err != nil {
		s.logDispatchError(request.Method, err)

		return responseFrame{
			JSONRPC: jsonRPCVersion,
			ID:      request.ID,
			Error:   &errorObject{Code: errorCode(err), Message: err.Error()},
		}, true
	}

	return responseFrame{
		JSONRPC: jsonRPCVersion,
		ID:      request.ID,
		Result:  result,
	}, true
}

func (s *Server) callTool(ctx context.Context, rawParams json.RawMessage) (any, error) {
	var params toolsCallParams
	if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(rawParams, &params); unmarshalErr != nil {
		return nil, errors.Join(ErrMalformedToolInput, unmarshalErr)
	}

	arguments := params.Arguments
	if arguments == nil {
		arguments = json.RawMessage("{}")
	}

	return s.registry.Call(ctx, params.Name, arguments)
}

func (s *Server) marshalResponse(response responseFrame) []byte {
	serialized, marshalErr := jsoniter.ConfigFastest.Marshal(response)
	if marshalErr != nil {
		// A response of ours failed to serialize; all fields of the fallback
		// frame are static, so this one cannot.
		fallback := responseFrame{
			JSONRPC: jsonRPCVersion,
			Error:   &errorObject{Code: CodeInternalError, Message: "failed to serialize response"},
		}
		serialized, _ = jsoniter.ConfigFastest.Marshal(fallback)
	}

	return serialized
}

func (s *Server) logDispatchError(method string, err error) {
	if s.logger == nil {
		return
	}

	if errors.Is(err, eventlog.ErrConcurrencyConflict) {
		s.logger.Info("tool call rejected with concurrency conflict", "method", method)
		return
	}

	s.logger.Error("tool call failed", "method", method, "error", err.Error())
}

// errorCode maps engine and registry errors onto the stable JSON-RPC codes.
func errorCode(err error) int {
	switch {
	case errors.Is(err, eventlog.ErrConcurrencyConflict):
		return CodeConcurrencyConflict

	case errors.Is(err, ErrUnknownTool):
		return CodeMethodNotFound

	case errors.Is(err, ErrMalformedToolInput), isValidationError(err):
		return CodeInvalidParams

	default:
		return CodeInternalError
	}
}

// isValidationError reports whether the error is one of the construction-time
// validation failures: the caller must fix its input before retrying.
func isValidationError(err error) bool {
	validationErrors := []error{
		eventlog.ErrEmptyTagEntity,
		eventlog.ErrEmptyTagID,
		eventlog.ErrEmptyEventID,
		eventlog.ErrEmptyEventType,
		eventlog.ErrNilTags,
		eventlog.ErrNilPayload,
		eventlog.ErrInvalidPayloadJSON,
		eventlog.ErrNegativePosition,
		eventlog.ErrEmptySpecificationEventType,
		eventlog.ErrNoSpecificationTags,
		eventlog.ErrZeroValueTag,
		eventlog.ErrNonPositivePageSize,
		eventlog.ErrNegativeFromPosition,
	}

	for _, validationError := range validationErrors {
		if errors.Is(err, validationError) {
			return true
		}
	}

	return false
}
