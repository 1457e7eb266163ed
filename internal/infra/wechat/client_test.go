package wechat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wechat-gpt-bridge/internal/biz/repo"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cli := NewClient("app-id", "app-secret")
	cli.SetBaseURL(srv.URL)
	return cli
}

func TestFetchToken(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "client_credential", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "app-id", r.URL.Query().Get("appid"))
		assert.Equal(t, "app-secret", r.URL.Query().Get("secret"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123"})
	})

	token, err := cli.FetchToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestFetchTokenPlatformError(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"errcode": 40001, "errmsg": "invalid credential"})
	})

	_, err := cli.FetchToken(context.Background())
	var upstream *repo.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 40001, upstream.Code)
}

func TestSendTextSuccess(t *testing.T) {
	var got map[string]any
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message/custom/send", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"errcode": 0})
	})

	err := cli.SendText(context.Background(), "tok", "user-1", "你好")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got["touser"])
	assert.Equal(t, "text", got["msgtype"])
	assert.Equal(t, map[string]any{"content": "你好"}, got["text"])
}

func TestSendTextOversizeSignal(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"errcode": 45002, "errmsg": "content too large"})
	})

	err := cli.SendText(context.Background(), "tok", "user-1", "long")
	assert.True(t, errors.Is(err, ErrContentTooLarge))
}

func TestSendTextUpstreamError(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"errcode": 40003, "errmsg": "invalid openid"})
	})

	err := cli.SendText(context.Background(), "tok", "user-1", "hi")
	var upstream *repo.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 40003, upstream.Code)
}

func TestSendTyping(t *testing.T) {
	var got map[string]any
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message/custom/typing", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"errcode": 0})
	})

	err := cli.SendTyping(context.Background(), "tok", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Typing", got["command"])
}

func TestSendImage(t *testing.T) {
	var got map[string]any
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"errcode": 0})
	})

	err := cli.SendImage(context.Background(), "tok", "user-1", "media-1")
	require.NoError(t, err)
	assert.Equal(t, "image", got["msgtype"])
	assert.Equal(t, map[string]any{"media_id": "media-1"}, got["image"])
}

func TestUploadImage(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47} // PNG magic
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(imageBytes)
	}))
	t.Cleanup(imgSrv.Close)

	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/media/upload", r.URL.Path)
		assert.Equal(t, "image", r.URL.Query().Get("type"))

		file, _, err := r.FormFile("media")
		require.NoError(t, err)
		defer file.Close()
		uploaded, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, imageBytes, uploaded)

		json.NewEncoder(w).Encode(map[string]any{"media_id": "media-42"})
	})

	mediaID, err := cli.UploadImage(context.Background(), "tok", imgSrv.URL)
	require.NoError(t, err)
	assert.Equal(t, "media-42", mediaID)
}

func TestUploadImageDownloadFailure(t *testing.T) {
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(imgSrv.Close)

	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upload endpoint must not be reached when download fails")
	})

	_, err := cli.UploadImage(context.Background(), "tok", imgSrv.URL)
	assert.Error(t, err)
}
