package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/config"
)

// fakeChatModel 记录收到的消息并返回固定回复
type fakeChatModel struct {
	reply    string
	err      error
	received [][]*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.received = append(m.received, input)
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type verdict struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

func (v *verdict) Validate() error {
	if v.Label == "" {
		return errors.New("label is required")
	}
	return nil
}

func testPrompt() Prompt {
	return Prompt{
		Name:   "test",
		System: "You grade {thing}.",
		User:   "Grade {name}. Shape: {schema}",
		Vars: map[string]any{
			"thing":  "pitches",
			"name":   "Acme",
			"schema": `{"score": 0, "label": "..."}`,
		},
	}
}

func TestChatEvaluator_Evaluate(t *testing.T) {
	cm := &fakeChatModel{reply: "```json\n{\"score\": 81, \"label\": \"good\"}\n```"}
	e := NewChatEvaluatorWithModel(cm, nil, time.Second)

	var out verdict
	require.NoError(t, e.Evaluate(context.Background(), testPrompt(), &out))
	assert.Equal(t, verdict{Score: 81, Label: "good"}, out)

	require.Len(t, cm.received, 1)
	msgs := cm.received[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "You grade pitches.", msgs[0].Content)
	assert.Equal(t, `Grade Acme. Shape: {"score": 0, "label": "..."}`, msgs[1].Content)
}

func TestChatEvaluator_Errors(t *testing.T) {
	t.Run("model error", func(t *testing.T) {
		e := NewChatEvaluatorWithModel(&fakeChatModel{err: errors.New("503")}, nil, 0)
		var out verdict
		err := e.Evaluate(context.Background(), testPrompt(), &out)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("malformed content", func(t *testing.T) {
		e := NewChatEvaluatorWithModel(&fakeChatModel{reply: "Sure! The score is 80."}, nil, 0)
		var out verdict
		assert.ErrorIs(t, e.Evaluate(context.Background(), testPrompt(), &out), ErrMalformedResponse)
	})

	t.Run("validation failure", func(t *testing.T) {
		e := NewChatEvaluatorWithModel(&fakeChatModel{reply: `{"score": 80}`}, nil, 0)
		var out verdict
		assert.ErrorIs(t, e.Evaluate(context.Background(), testPrompt(), &out), ErrMalformedResponse)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cm := &fakeChatModel{reply: `{"score": 1, "label": "x"}`}
		limiter := NewLimiter(config.ConcurrencyConfig{RPM: 1, QPS: 1})
		require.True(t, limiter.Allow())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var out verdict
		assert.Error(t, NewChatEvaluatorWithModel(cm, limiter, 0).Evaluate(ctx, testPrompt(), &out))
		assert.Empty(t, cm.received)
	})
}

func TestRender_MissingVariable(t *testing.T) {
	p := testPrompt()
	delete(p.Vars, "name")
	_, err := Render(context.Background(), p)
	assert.Error(t, err)
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSON("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, CleanJSON("  {\"a\":1}  "))
	assert.Equal(t, "", CleanJSON("```json\n```"))
}

func TestDecode_Empty(t *testing.T) {
	var out map[string]any
	assert.ErrorIs(t, Decode("   ", &out), ErrMalformedResponse)
}

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(config.ConcurrencyConfig{})
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())

	l = NewLimiter(config.ConcurrencyConfig{RPM: 60, QPS: 2})
	assert.InDelta(t, 1.0, float64(l.Limit()), 1e-9)
	assert.Equal(t, 2, l.Burst())
}
