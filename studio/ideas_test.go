package studio

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/artspark/internal/ctxkeys"
	"github.com/BaSui01/artspark/internal/database"
	"github.com/BaSui01/artspark/internal/metrics"
	"github.com/BaSui01/artspark/types"
)

const threeIdeas = "好的，以下是创意：\n```json\n" + `{"ideas":[
 {"name":"彩虹毛毛虫","description":"一只彩色的毛毛虫","elements":["彩虹","毛毛虫"]},
 {"name":"月亮船","description":"坐着月亮去旅行","elements":"月亮, 小船"},
 {"name":"云朵城堡","description":"天上的城堡","elements":["云朵","城堡"]}
]}` + "\n```"

func TestGenerateIdeas_AllIllustrated(t *testing.T) {
	fb := newFakeBackend(types.PlatformModelScope)
	fb.generate = func(string) (string, error) { return threeIdeas, nil }
	s := New([]Backend{fb})

	ideas, err := s.GenerateIdeas(context.Background(), msConfig(), "春天")
	require.NoError(t, err)
	require.Len(t, ideas, 3)

	assert.Equal(t, "彩虹毛毛虫", ideas[0].Name)
	assert.Equal(t, types.Keywords{"月亮", "小船"}, ideas[1].Elements)
	for _, idea := range ideas {
		require.NotNil(t, idea.ExampleImage, idea.Name)
		assert.Equal(t, "https://cdn.example/"+idea.Name+".png", *idea.ExampleImage)
	}
	assert.Contains(t, fb.prompts[0], "春天")
	assert.Len(t, fb.exampleCalls(), 3)
}

func TestGenerateIdeas_FailedItemIsNullInPlace(t *testing.T) {
	fb := newFakeBackend(types.PlatformModelScope)
	fb.generate = func(string) (string, error) { return threeIdeas, nil }
	fb.example = func(idea types.StyledIdea) (string, error) {
		if idea.Name == "月亮船" {
			return "", types.NewUpstreamError("modelscope", "task failed", nil)
		}
		return "https://cdn.example/" + idea.Name + ".png", nil
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewCollector("test", reg, zap.NewNop())
	s := New([]Backend{fb}, WithMetrics(m), WithBatchLimit(2))

	ideas, err := s.GenerateIdeas(context.Background(), msConfig(), "春天")
	require.NoError(t, err)
	require.Len(t, ideas, 3)

	assert.Equal(t, []string{"彩虹毛毛虫", "月亮船", "云朵城堡"},
		[]string{ideas[0].Name, ideas[1].Name, ideas[2].Name})
	assert.NotNil(t, ideas[0].ExampleImage)
	assert.Nil(t, ideas[1].ExampleImage)
	assert.NotNil(t, ideas[2].ExampleImage)

	assert.Equal(t, 2.0, counterValue(t, reg, "test_batch_items_total", "ok"))
	assert.Equal(t, 1.0, counterValue(t, reg, "test_batch_items_total", "failed"))
}

func TestGenerateIdeas_AuthErrorAbortsBatch(t *testing.T) {
	fb := newFakeBackend(types.PlatformModelScope)
	fb.generate = func(string) (string, error) { return threeIdeas, nil }
	fb.example = func(types.StyledIdea) (string, error) {
		return "", types.NewError(types.ErrAuthentication, "invalid api key").WithHTTPStatus(401)
	}
	s := New([]Backend{fb}, WithBatchLimit(1))

	ideas, err := s.GenerateIdeas(context.Background(), msConfig(), "春天")
	require.Error(t, err)
	assert.Nil(t, ideas)
	assert.True(t, types.IsAuthError(err))
	assert.Len(t, fb.exampleCalls(), 1, "remaining items never start")
}

func TestGenerateIdeas_MalformedOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "抱歉，我无法生成创意。"},
		{"empty list", `{"ideas":[]}`},
		{"idea without elements", `{"ideas":[{"name":"月亮船","description":"d","elements":[]}]}`},
		{"idea without name", `{"ideas":[{"name":" ","description":"d","elements":["月亮"]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(types.PlatformModelScope)
			fb.generate = func(string) (string, error) { return tt.raw, nil }
			s := New([]Backend{fb})

			_, err := s.GenerateIdeas(context.Background(), msConfig(), "春天")
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrMalformedOutput))
			assert.Empty(t, fb.exampleCalls())
		})
	}
}

func TestGenerateIdeas_ElementsTrimmedToThree(t *testing.T) {
	fb := newFakeBackend(types.PlatformModelScope)
	fb.generate = func(string) (string, error) {
		return `{"ideas":[{"name":"海底派对","description":"d","elements":"章鱼, 珊瑚, 气泡, 灯笼鱼"}]}`, nil
	}
	s := New([]Backend{fb})

	ideas, err := s.GenerateIdeas(context.Background(), msConfig(), "海洋")
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, types.Keywords{"章鱼", "珊瑚", "气泡"}, ideas[0].Elements)
}

func TestGenerateIdeas_Validation(t *testing.T) {
	fb := newFakeBackend(types.PlatformModelScope)
	usage := &fakeUsage{}
	s := New([]Backend{fb}, WithUsageRecorder(usage))

	_, err := s.GenerateIdeas(context.Background(), msConfig(), "   ")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	cfg := msConfig()
	cfg.ModelScopeKey = ""
	_, err = s.GenerateIdeas(context.Background(), cfg, "春天")
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized))

	assert.Empty(t, fb.prompts, "no upstream call before validation passes")

	rows := usage.records()
	require.Len(t, rows, 2)
	assert.Equal(t, database.OutcomeError, rows[0].Outcome)
	assert.Equal(t, string(types.ErrInvalidRequest), rows[0].ErrorCode)
	assert.Equal(t, string(types.ErrUnauthorized), rows[1].ErrorCode)
}

func TestMoodPainting(t *testing.T) {
	fb := newFakeBackend(types.PlatformModelScope)
	fb.generate = func(string) (string, error) {
		return `{"name":"晴天的风筝","description":"阳光下放风筝","elements":["风筝","太阳"]}`, nil
	}
	usage := &fakeUsage{}
	s := New([]Backend{fb}, WithUsageRecorder(usage))

	ctx := ctxkeys.WithRequestID(context.Background(), "req-1")
	idea, err := s.MoodPainting(ctx, msConfig(), "开心", "户外")
	require.NoError(t, err)
	assert.Equal(t, "晴天的风筝", idea.Name)
	require.NotNil(t, idea.ExampleImage)
	assert.Contains(t, fb.prompts[0], "开心")

	rows := usage.records()
	require.Len(t, rows, 1)
	assert.Equal(t, "req-1", rows[0].RequestID)
	assert.Equal(t, string(types.FeatureMoodPainting), rows[0].Feature)
	assert.Equal(t, database.OutcomeSuccess, rows[0].Outcome)
}

func TestMoodPainting_ImageFailures(t *testing.T) {
	mood := `{"name":"雨天","description":"下雨","elements":"雨伞"}`

	t.Run("upstream error gives null image", func(t *testing.T) {
		fb := newFakeBackend(types.PlatformModelScope)
		fb.generate = func(string) (string, error) { return mood, nil }
		fb.example = func(types.StyledIdea) (string, error) { return "", errors.New("boom") }

		idea, err := New([]Backend{fb}).MoodPainting(context.Background(), msConfig(), "难过", "天气")
		require.NoError(t, err)
		assert.Nil(t, idea.ExampleImage)
	})

	t.Run("auth error propagates", func(t *testing.T) {
		fb := newFakeBackend(types.PlatformModelScope)
		fb.generate = func(string) (string, error) { return mood, nil }
		fb.example = func(types.StyledIdea) (string, error) {
			return "", types.NewError(types.ErrAuthentication, "invalid api key")
		}

		_, err := New([]Backend{fb}).MoodPainting(context.Background(), msConfig(), "难过", "天气")
		assert.True(t, types.IsAuthError(err))
	})
}
