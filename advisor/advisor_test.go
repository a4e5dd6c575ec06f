package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"dtree/evaluator"
	"dtree/tree"
)

func TestStrip(t *testing.T) {
	root := evaluator.Evaluate(tree.Example())
	root = tree.Update(root, "launch", tree.Patch{Collapsed: tree.Bool(true), Notes: tree.String("pilot first")})

	b := Strip(root)

	require.Equal(t, root.ID, b.ID, "Root should keep its id")
	require.Len(t, b.Children, 2)
	launch := b.Children[0]
	require.Empty(t, launch.ID)
	require.Equal(t, "pilot first", launch.Notes)
	require.Equal(t, 48000.0, *launch.CalculatedValue)

	data, err := json.Marshal(b)
	require.NoError(t, err)
	require.NotContains(t, string(data), "isOptimal")
	require.NotContains(t, string(data), "collapsed")
	require.NotContains(t, string(data), "launch-strong")
}

func TestNewRequest(t *testing.T) {
	require.Nil(t, NewRequest(tree.Example()).EMV, "Unsolved tree has no EMV")

	request := NewRequest(evaluator.Evaluate(tree.Example()))
	require.Equal(t, 48000.0, *request.EMV)
}

func fakeEndpoint(t *testing.T, status int, answer string) (*httptest.Server, *atomic.Int32) {
	calls := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		require.Contains(t, req.Messages[1].Content, "Investment")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"upstream broke","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: answer}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func TestOpenAI(t *testing.T) {
	t.Run("returning the analysis", func(t *testing.T) {
		server, calls := fakeEndpoint(t, http.StatusOK, "Launch the product.")
		a, err := NewOpenAI(Options{APIKey: "test", BaseURL: server.URL + "/v1"})
		require.NoError(t, err)

		text, err := a.Analyze(context.Background(), NewRequest(tree.Example()))

		require.NoError(t, err)
		require.Equal(t, "Launch the product.", text)
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("reporting upstream failures", func(t *testing.T) {
		server, _ := fakeEndpoint(t, http.StatusInternalServerError, "")
		a, err := NewOpenAI(Options{APIKey: "test", BaseURL: server.URL + "/v1"})
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), NewRequest(tree.Example()))

		require.ErrorIs(t, err, ErrServiceFailure)
	})

	t.Run("rate limiting", func(t *testing.T) {
		server, calls := fakeEndpoint(t, http.StatusOK, "ok")
		a, err := NewOpenAI(Options{APIKey: "test", BaseURL: server.URL + "/v1", RatePerMinute: 1, Timeout: 50 * time.Millisecond})
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), NewRequest(tree.Example()))
		require.NoError(t, err)
		_, err = a.Analyze(context.Background(), NewRequest(tree.Example()))

		require.ErrorIs(t, err, ErrServiceFailure)
		require.Equal(t, int32(1), calls.Load(), "Second call should not reach the endpoint")
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewOpenAI(Options{})

		require.ErrorIs(t, err, ErrMissingKey)
	})
}
