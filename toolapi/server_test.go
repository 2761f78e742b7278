package toolapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcbkit/tagged-eventlog-go/eventlog/memoryengine"
	"github.com/dcbkit/tagged-eventlog-go/toolapi"
)

type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *toolapi.Server {
	t.Helper()

	log, err := memoryengine.NewEventLog()
	require.NoError(t, err)

	return toolapi.NewServer(toolapi.NewRegistry(log))
}

func handle(t *testing.T, server *toolapi.Server, request string) testResponse {
	t.Helper()

	raw, hasResponse := server.HandleRequest(context.Background(), []byte(request))
	require.True(t, hasResponse)

	var response testResponse
	require.NoError(t, json.Unmarshal(raw, &response))
	assert.Equal(t, "2.0", response.JSONRPC)

	return response
}

func Test_Server_ToolsList(t *testing.T) {
	server := newTestServer(t)

	response := handle(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	require.Nil(t, response.Error)

	var result struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(response.Result, &result))

	require.Len(t, result.Tools, 3)
	assert.Equal(t, "append_event", result.Tools[0].Name)
	assert.Equal(t, "query_events", result.Tools[1].Name)
	assert.Equal(t, "get_current_position", result.Tools[2].Name)

	for _, tool := range result.Tools {
		assert.NotEmpty(t, tool.Description)
		assert.NotEmpty(t, tool.InputSchema)
	}
}

func Test_Server_AppendQueryRoundTrip(t *testing.T) {
	server := newTestServer(t)

	appendResponse := handle(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{
		"name":"append_event",
		"arguments":{
			"event":{
				"eventType":"CourseDefined",
				"tags":[{"entity":"course","id":"c1"}],
				"data":"{\"capacity\": 30}"
			},
			"lastKnownPosition":0
		}}}`)

	require.Nil(t, appendResponse.Error)

	var storedEvent struct {
		ID        string `json:"id"`
		Position  int64  `json:"position"`
		EventType string `json:"eventType"`
		Timestamp string `json:"timestamp"`
		Tags      []struct {
			Entity string `json:"entity"`
			ID     string `json:"id"`
		} `json:"tags"`
		Data string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(appendResponse.Result, &storedEvent))

	assert.NotEmpty(t, storedEvent.ID)
	assert.Equal(t, int64(0), storedEvent.Position)
	assert.Equal(t, "CourseDefined", storedEvent.EventType)
	assert.NotEmpty(t, storedEvent.Timestamp)
	require.Len(t, storedEvent.Tags, 1)
	assert.Equal(t, "course", storedEvent.Tags[0].Entity)
	// payload comes back byte-stable
	assert.Equal(t, `{"capacity": 30}`, storedEvent.Data)

	queryResponse := handle(t, server, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{
		"name":"query_events",
		"arguments":{"specifications":[{"tags":[{"entity":"course","id":"c1"}]}]}}}`)

	require.Nil(t, queryResponse.Error)

	var queryResult struct {
		Events []json.RawMessage `json:"events"`
	}
	require.NoError(t, json.Unmarshal(queryResponse.Result, &queryResult))
	assert.Len(t, queryResult.Events, 1)

	positionResponse := handle(t, server, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{
		"name":"get_current_position","arguments":{}}}`)

	require.Nil(t, positionResponse.Error)

	var positionResult struct {
		Position int64 `json:"position"`
	}
	require.NoError(t, json.Unmarshal(positionResponse.Result, &positionResult))
	assert.Equal(t, int64(1), positionResult.Position)
}

func Test_Server_ErrorCodes(t *testing.T) {
	server := newTestServer(t)

	// seed one event so position 0 is stale afterwards
	seed := handle(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{
		"name":"append_event",
		"arguments":{
			"event":{"eventType":"CourseDefined","tags":[],"data":"{}"},
			"lastKnownPosition":0
		}}}`)
	require.Nil(t, seed.Error)

	tests := []struct {
		name         string
		request      string
		expectedCode int
	}{
		{
			name: "stale_position_yields_conflict_code",
			request: `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{
				"name":"append_event",
				"arguments":{
					"event":{"eventType":"CourseDefined","tags":[],"data":"{}"},
					"lastKnownPosition":0
				}}}`,
			expectedCode: toolapi.CodeConcurrencyConflict,
		},
		{
			name: "invalid_payload_json_yields_invalid_params",
			request: `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{
				"name":"append_event",
				"arguments":{
					"event":{"eventType":"CourseDefined","tags":[],"data":"{broken"},
					"lastKnownPosition":1
				}}}`,
			expectedCode: toolapi.CodeInvalidParams,
		},
		{
			name: "empty_event_type_yields_invalid_params",
			request: `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{
				"name":"append_event",
				"arguments":{
					"event":{"eventType":"","tags":[],"data":"{}"},
					"lastKnownPosition":1
				}}}`,
			expectedCode: toolapi.CodeInvalidParams,
		},
		{
			name: "negative_last_known_position_yields_invalid_params",
			request: `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{
				"name":"append_event",
				"arguments":{
					"event":{"eventType":"CourseDefined","tags":[],"data":"{}"},
					"lastKnownPosition":-1
				}}}`,
			expectedCode: toolapi.CodeInvalidParams,
		},
		{
			name: "negative_from_position_yields_invalid_params",
			request: `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{
				"name":"query_events",
				"arguments":{"fromPosition":-1}}}`,
			expectedCode: toolapi.CodeInvalidParams,
		},
		{
			name:         "unknown_tool_yields_method_not_found",
			request:      `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"no_such_tool","arguments":{}}}`,
			expectedCode: toolapi.CodeMethodNotFound,
		},
		{
			name:         "unknown_method_yields_method_not_found",
			request:      `{"jsonrpc":"2.0","id":7,"method":"no/such/method"}`,
			expectedCode: toolapi.CodeMethodNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := handle(t, server, tt.request)

			require.NotNil(t, response.Error)
			assert.Equal(t, tt.expectedCode, response.Error.Code)
			assert.NotEmpty(t, response.Error.Message)
		})
	}
}

func Test_Server_ParseError(t *testing.T) {
	server := newTestServer(t)

	response := handle(t, server, `{not json`)

	require.NotNil(t, response.Error)
	assert.Equal(t, toolapi.CodeParseError, response.Error.Code)
}

func Test_Server_NotificationsProduceNoResponse(t *testing.T) {
	server := newTestServer(t)

	_, hasResponse := server.HandleRequest(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"tools/list"}`))

	assert.False(t, hasResponse)
}

func Test_Server_ServeLineDelimited(t *testing.T) {
	server := newTestServer(t)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_current_position","arguments":{}}}`,
	}, "\n") + "\n"

	var output bytes.Buffer
	err := server.Serve(context.Background(), strings.NewReader(input), &output)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 2)

	for _, line := range lines {
		var response testResponse
		require.NoError(t, json.Unmarshal([]byte(line), &response))
		assert.Nil(t, response.Error)
	}
}
