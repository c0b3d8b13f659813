package like

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ffcommunity/likebot/internal/config"
	"github.com/ffcommunity/likebot/internal/freefire"
	"github.com/ffcommunity/likebot/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLikeAPI struct {
	mock.Mock
}

func (m *MockLikeAPI) SendLike(ctx context.Context, uid, server string) freefire.Result {
	ret := m.Called(ctx, uid, server)
	return ret.Get(0).(freefire.Result)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.Load(filepath.Join(t.TempDir(), "config.json"), testLogger())
	require.NoError(t, err)
	return store
}

func baseRequest() Request {
	return Request{
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		UserID:    "user-1",
		UID:       "123456",
		Server:    "NA",
	}
}

func TestSchedulerSuccess(t *testing.T) {
	client := new(MockLikeAPI)
	limiter := ratelimit.NewDefault()
	s := NewScheduler(testLogger(), testStore(t), limiter, client)

	client.On("SendLike", mock.Anything, "123456", "NA").Return(freefire.Result{
		Status:      freefire.StatusSuccess,
		PlayerName:  "TestPlayer",
		LikesBefore: 10,
		LikesAfter:  11,
		LikesAdded:  1,
	})

	outcome := s.Request(context.Background(), baseRequest())
	require.Equal(t, Completed, outcome.Kind)
	assert.Equal(t, freefire.StatusSuccess, outcome.Like.Status)
	assert.Equal(t, "TestPlayer", outcome.Like.PlayerName)
	assert.Equal(t, ratelimit.DefaultMaxRequests-1, outcome.Remaining)

	client.AssertExpectations(t)
}

func TestSchedulerDenyInput(t *testing.T) {
	client := new(MockLikeAPI)
	s := NewScheduler(testLogger(), testStore(t), ratelimit.NewDefault(), client)

	req := baseRequest()
	req.UID = ""

	outcome := s.Request(context.Background(), req)
	assert.Equal(t, DenyInput, outcome.Kind)
	client.AssertNotCalled(t, "SendLike", mock.Anything, mock.Anything, mock.Anything)
}

func TestSchedulerDenyFormat(t *testing.T) {
	client := new(MockLikeAPI)
	limiter := ratelimit.NewDefault()
	s := NewScheduler(testLogger(), testStore(t), limiter, client)

	req := baseRequest()
	req.UID = "abc123"

	outcome := s.Request(context.Background(), req)
	assert.Equal(t, DenyFormat, outcome.Kind)
	client.AssertNotCalled(t, "SendLike", mock.Anything, mock.Anything, mock.Anything)

	used, _, _ := limiter.Stats("user-1", time.Now())
	assert.Equal(t, 0, used, "a rejected uid must not consume quota")
}

func TestSchedulerDenyChannel(t *testing.T) {
	client := new(MockLikeAPI)
	store := testStore(t)
	_, err := store.ToggleLikeChannel("guild-1", "allowed-chan")
	require.NoError(t, err)

	limiter := ratelimit.NewDefault()
	s := NewScheduler(testLogger(), store, limiter, client)

	outcome := s.Request(context.Background(), baseRequest())
	assert.Equal(t, DenyChannel, outcome.Kind)
	client.AssertNotCalled(t, "SendLike", mock.Anything, mock.Anything, mock.Anything)

	used, _, _ := limiter.Stats("user-1", time.Now())
	assert.Equal(t, 0, used)

	req := baseRequest()
	req.ChannelID = "allowed-chan"
	client.On("SendLike", mock.Anything, "123456", "NA").Return(freefire.Result{Status: freefire.StatusSuccess})
	outcome = s.Request(context.Background(), req)
	assert.Equal(t, Completed, outcome.Kind)
}

func TestSchedulerDenyCooldown(t *testing.T) {
	client := new(MockLikeAPI)
	s := NewScheduler(testLogger(), testStore(t), ratelimit.NewDefault(), client)

	client.On("SendLike", mock.Anything, "123456", "NA").Return(freefire.Result{Status: freefire.StatusSuccess}).Once()

	require.Equal(t, Completed, s.Request(context.Background(), baseRequest()).Kind)

	outcome := s.Request(context.Background(), baseRequest())
	assert.Equal(t, DenyCooldown, outcome.Kind)
	assert.Positive(t, outcome.RetryAfter)

	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "SendLike", 1)
}

func TestSchedulerDenyQuota(t *testing.T) {
	client := new(MockLikeAPI)
	limiter := ratelimit.New(1, 24*time.Hour, 0)
	s := NewScheduler(testLogger(), testStore(t), limiter, client)

	client.On("SendLike", mock.Anything, "123456", "NA").Return(freefire.Result{Status: freefire.StatusSuccess}).Once()

	require.Equal(t, Completed, s.Request(context.Background(), baseRequest()).Kind)

	outcome := s.Request(context.Background(), baseRequest())
	assert.Equal(t, DenyQuota, outcome.Kind)
	assert.Positive(t, outcome.RetryAfter)
	client.AssertNumberOfCalls(t, "SendLike", 1)
}

func TestSchedulerNoRefundOnUpstreamFailure(t *testing.T) {
	client := new(MockLikeAPI)
	limiter := ratelimit.NewDefault()
	s := NewScheduler(testLogger(), testStore(t), limiter, client)

	client.On("SendLike", mock.Anything, "999999", "NA").Return(freefire.Result{Status: freefire.StatusNotFound})

	req := baseRequest()
	req.UID = "999999"

	outcome := s.Request(context.Background(), req)
	require.Equal(t, Completed, outcome.Kind)
	assert.Equal(t, freefire.StatusNotFound, outcome.Like.Status)

	used, _, _ := limiter.Stats("user-1", time.Now())
	assert.Equal(t, 1, used, "failed upstream calls still count against quota")
}

func TestValidUID(t *testing.T) {
	assert.True(t, ValidUID("123456"))
	assert.True(t, ValidUID("1234567890"))
	assert.False(t, ValidUID("12345"), "too short")
	assert.False(t, ValidUID("abc123"), "non-digit")
	assert.False(t, ValidUID("123456a"))
	assert.False(t, ValidUID(""))
}
