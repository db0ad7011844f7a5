package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"ai_course_backend/internal/config"
	"ai_course_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYouTubeStub(t *testing.T, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/search"))
		q := r.URL.Query()
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "true", q.Get("videoEmbeddable"))

		if q.Get("q") == "broken" {
			writeJSON(w, http.StatusForbidden, `{"error":{"code":403,"message":"quotaExceeded"}}`)
			return
		}
		id := strings.ReplaceAll(q.Get("q"), " ", "-")
		writeJSON(w, http.StatusOK, `{"items":[{"id":{"kind":"youtube#video","videoId":"`+id+`"},`+
			`"snippet":{"title":"About `+q.Get("q")+`","channelTitle":"Chan","publishedAt":"2024-01-01T00:00:00Z",`+
			`"thumbnails":{"high":{"url":"https://img/`+id+`.jpg"}}}}]}`)
	}))
}

func TestVideoServiceDisabledWithoutKey(t *testing.T) {
	svc, err := NewVideoService(context.Background(), config.VideoConfig{}, nil)
	require.NoError(t, err)
	assert.False(t, svc.Enabled())
	assert.Empty(t, svc.SearchVideos(context.Background(), "goroutines"))
}

func TestVideoServiceSearch(t *testing.T) {
	var hits int32
	srv := newYouTubeStub(t, &hits)
	defer srv.Close()

	svc, err := NewVideoService(context.Background(), config.VideoConfig{APIKey: "yt-key", BaseURL: srv.URL + "/", MaxResults: 2}, nil)
	require.NoError(t, err)

	videos := svc.SearchVideos(context.Background(), "channels")
	require.Len(t, videos, 1)
	assert.Equal(t, "channels", videos[0].VideoID)
	assert.Equal(t, "https://www.youtube.com/embed/channels", videos[0].EmbedURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=channels", videos[0].WatchURL)
	assert.Equal(t, "https://img/channels.jpg", videos[0].Thumbnail)
	assert.Equal(t, "Chan", videos[0].Channel)

	assert.Empty(t, svc.SearchVideos(context.Background(), "broken"))
}

func TestEnrichTopicsKeepsOrder(t *testing.T) {
	var hits int32
	srv := newYouTubeStub(t, &hits)
	defer srv.Close()

	svc, err := NewVideoService(context.Background(), config.VideoConfig{APIKey: "yt-key", BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)

	topics := []model.TopicContent{{Topic: "alpha"}, {Topic: "broken"}, {Topic: "gamma ray"}}
	total := svc.EnrichTopics(context.Background(), topics)

	assert.Equal(t, 2, total)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
	assert.Equal(t, "alpha", topics[0].Videos[0].VideoID)
	assert.Empty(t, topics[1].Videos)
	assert.Equal(t, "gamma-ray", topics[2].Videos[0].VideoID)
}
