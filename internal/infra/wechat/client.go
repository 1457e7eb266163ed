package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"wechat-gpt-bridge/internal/biz/repo"
)

const defaultBaseURL = "https://api.weixin.qq.com/cgi-bin"

// Platform error codes we react to.
const errcodeContentTooLarge = 45002

// ErrContentTooLarge is the platform signal (errcode 45002) that a text
// body exceeded the undocumented message size ceiling. It is recoverable
// by chunked resend, not a failure.
var ErrContentTooLarge = errors.New("wechat: content too large")

// Client is the WeChat official-account API client.
type Client struct {
	appID     string
	appSecret string
	baseURL   string
	httpCli   *http.Client
}

// NewClient creates a new WeChat client.
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		baseURL:   defaultBaseURL,
		httpCli:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL overrides the API base URL (tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// apiResult is the common errcode envelope of send-style endpoints.
type apiResult struct {
	Errcode int    `json:"errcode"`
	Errmsg  string `json:"errmsg"`
}

// FetchToken fetches a fresh access token from the platform token endpoint.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	u := fmt.Sprintf("%s/token?grant_type=client_credential&appid=%s&secret=%s",
		c.baseURL, url.QueryEscape(c.appID), url.QueryEscape(c.appSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	resp, err := c.httpCli.Do(req)
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		Errcode     int    `json:"errcode"`
		Errmsg      string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if result.AccessToken == "" {
		return "", &repo.UpstreamError{Service: "wechat", Code: result.Errcode, Message: result.Errmsg}
	}
	return result.AccessToken, nil
}

// SendText posts a text message to the user via the custom-send endpoint.
// Returns ErrContentTooLarge when the platform rejects the body size.
func (c *Client) SendText(ctx context.Context, token, userID, content string) error {
	body := map[string]any{
		"touser":  userID,
		"msgtype": "text",
		"text":    map[string]string{"content": content},
	}
	return c.customSend(ctx, token, body)
}

// SendImage posts a pre-uploaded image by media ID.
func (c *Client) SendImage(ctx context.Context, token, userID, mediaID string) error {
	body := map[string]any{
		"touser":  userID,
		"msgtype": "image",
		"image":   map[string]string{"media_id": mediaID},
	}
	return c.customSend(ctx, token, body)
}

func (c *Client) customSend(ctx context.Context, token string, body map[string]any) error {
	u := fmt.Sprintf("%s/message/custom/send?access_token=%s", c.baseURL, url.QueryEscape(token))
	result, err := c.postJSON(ctx, u, body)
	if err != nil {
		return err
	}
	switch result.Errcode {
	case 0:
		return nil
	case errcodeContentTooLarge:
		return ErrContentTooLarge
	default:
		return &repo.UpstreamError{Service: "wechat", Code: result.Errcode, Message: result.Errmsg}
	}
}

// SendTyping sends one typing indicator. The platform requires the
// indicator to be refreshed periodically during a long-running call;
// scheduling is the caller's concern.
func (c *Client) SendTyping(ctx context.Context, token, userID string) error {
	u := fmt.Sprintf("%s/message/custom/typing?access_token=%s", c.baseURL, url.QueryEscape(token))
	result, err := c.postJSON(ctx, u, map[string]any{
		"touser":  userID,
		"command": "Typing",
	})
	if err != nil {
		return err
	}
	if result.Errcode != 0 {
		return &repo.UpstreamError{Service: "wechat", Code: result.Errcode, Message: result.Errmsg}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, u string, body map[string]any) (*apiResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	var result apiResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// UploadImage downloads the image at imageURL and uploads it to the
// platform as multipart form data, returning the assigned media ID.
func (c *Client) UploadImage(ctx context.Context, token, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	imgResp, err := c.httpCli.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		return "", &repo.UpstreamError{Service: "wechat", Message: fmt.Sprintf("image download status %d", imgResp.StatusCode)}
	}
	imgBytes, err := io.ReadAll(imgResp.Body)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("media", "image.png")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(imgBytes); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	u := fmt.Sprintf("%s/media/upload?access_token=%s&type=image", c.baseURL, url.QueryEscape(token))
	upReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &form)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	upReq.Header.Set("Content-Type", writer.FormDataContentType())

	upResp, err := c.httpCli.Do(upReq)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer upResp.Body.Close()

	var result struct {
		MediaID string `json:"media_id"`
		Errcode int    `json:"errcode"`
		Errmsg  string `json:"errmsg"`
	}
	if err := json.NewDecoder(upResp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.MediaID == "" {
		return "", &repo.UpstreamError{Service: "wechat", Code: result.Errcode, Message: result.Errmsg}
	}
	return result.MediaID, nil
}
