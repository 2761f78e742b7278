package toolapi

import (
	"context"
	"encoding/json"
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

const (
	// ToolAppendEvent appends one event under the optimistic concurrency guard.
	ToolAppendEvent = "append_event"

	// ToolQueryEvents evaluates a query against the log.
	ToolQueryEvents = "query_events"

	// ToolGetCurrentPosition returns the log's current position.
	ToolGetCurrentPosition = "get_current_position"
)

var ErrUnknownTool = errors.New("unknown tool")
var ErrMalformedToolInput = errors.New("malformed tool input")

// ToolHandler executes one tool call with already-framed JSON arguments.
type ToolHandler func(ctx context.Context, arguments json.RawMessage) (any, error)

// Tool describes one operation of the registry: its name, a human-readable
// description and a JSON schema descriptor for its input.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	handler     ToolHandler
}

// Registry maps tool names to their schema descriptors and handler functions.
// It is built at startup from a fixed table; there is no runtime type
// scanning involved in discovery or dispatch.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry builds the tool registry for the given event log engine.
func NewRegistry(log eventlog.EventLog) *Registry {
	tools := []Tool{
		{
			Name:        ToolAppendEvent,
			Description: "Append an event to the log; fails with a concurrency conflict when the log advanced past lastKnownPosition.",
			InputSchema: json.RawMessage(appendEventSchema),
			handler:     appendEventHandler(log),
		},
		{
			Name:        ToolQueryEvents,
			Description: "Query the log with type/tag specifications, position lower bound and page size.",
			InputSchema: json.RawMessage(queryEventsSchema),
			handler:     queryEventsHandler(log),
		},
		{
			Name:        ToolGetCurrentPosition,
			Description: "Return the log's current position, i.e. the position the next event will receive.",
			InputSchema: json.RawMessage(currentPositionSchema),
			handler:     currentPositionHandler(log),
		},
	}

	index := make(map[string]int, len(tools))
	for i, tool := range tools {
		index[tool.Name] = i
	}

	return &Registry{tools: tools, index: index}
}

// List returns all registered tools in declaration order.
func (r *Registry) List() []Tool {
	return r.tools
}

// Call dispatches one tool invocation by name.
func (r *Registry) Call(ctx context.Context, name string, arguments json.RawMessage) (any, error) {
	i, found := r.index[name]
	if !found {
		return nil, ErrUnknownTool
	}

	return r.tools[i].handler(ctx, arguments)
}

func appendEventHandler(log eventlog.EventLog) ToolHandler {
	return func(ctx context.Context, arguments json.RawMessage) (any, error) {
		var params AppendParamsJSON
		if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(arguments, &params); unmarshalErr != nil {
			return nil, errors.Join(ErrMalformedToolInput, unmarshalErr)
		}

		event, eventErr := eventFromNewEventJSON(params.Event)
		if eventErr != nil {
			return nil, eventErr
		}

		boundary, queryErr := queryFromJSON(params.Query)
		if queryErr != nil {
			return nil, queryErr
		}

		stored, appendErr := log.Append(ctx, event, boundary, params.LastKnownPosition)
		if appendErr != nil {
			return nil, appendErr
		}

		return eventToJSON(stored), nil
	}
}

func queryEventsHandler(log eventlog.EventLog) ToolHandler {
	return func(ctx context.Context, arguments json.RawMessage) (any, error) {
		var params QueryJSON
		if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(arguments, &params); unmarshalErr != nil {
			return nil, errors.Join(ErrMalformedToolInput, unmarshalErr)
		}

		query, queryErr := queryFromJSON(params)
		if queryErr != nil {
			return nil, queryErr
		}

		events, queryEventsErr := log.Query(ctx, query)
		if queryEventsErr != nil {
			return nil, queryEventsErr
		}

		result := QueryResultJSON{Events: make([]EventJSON, 0, len(events))}
		for _, event := range events {
			result.Events = append(result.Events, eventToJSON(event))
		}

		return result, nil
	}
}

func currentPositionHandler(log eventlog.EventLog) ToolHandler {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		position, positionErr := log.CurrentPosition(ctx)
		if positionErr != nil {
			return nil, positionErr
		}

		return PositionResultJSON{Position: position}, nil
	}
}

const appendEventSchema = `{"type": "object", "properties": {"event": {"type": "object", "properties": {"eventType": {"type": "string"}, "tags": {"type": "array", "items": {"type": "object", "properties": {"entity": {"type": "string"}, "id": {"type": "string"}}, "required": ["entity", "id"]}}, "data": {"type": "string", "description": "pre-serialized JSON payload"}}, "required": ["eventType", "tags", "data"]}, "query": {"$ref": "#/definitions/query"}, "lastKnownPosition": {"type": "integer"}}, "required": ["event", "lastKnownPosition"], "definitions": {"query": {"type": "object", "properties": {"specifications": {"type": "array"}, "fromPosition": {"type": "integer"}, "pageSize": {"type": "integer"}}}}}`

const queryEventsSchema = `{"type": "object", "properties": {"specifications": {"type": "array", "items": {"type": "object", "properties": {"type": {"type": "string"}, "tags": {"type": "array", "items": {"type": "object", "properties": {"entity": {"type": "string"}, "id": {"type": "string"}}, "required": ["entity", "id"]}}, "matchAnyTag": {"type": "boolean"}}}}, "fromPosition": {"type": "integer", "minimum": 0}, "pageSize": {"type": "integer", "minimum": 1}}}`

const currentPositionSchema = `{"type": "object", "properties": {}}`
