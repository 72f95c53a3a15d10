package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "whitelist-bot/internal/common/errors"
)

const (
	DefaultBaseURL = "https://api.telegram.org"

	requestTimeout = 10 * time.Second
	// Extra time on top of the long-poll timeout before the request is abandoned.
	pollGrace = 10 * time.Second
)

// APIError is a non-ok Bot API response.
type APIError struct {
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram API error %d: %s (retry after %s)", e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram API error %d: %s", e.Code, e.Description)
}

// Client is a small Bot API client covering what the bot needs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	log        zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		// Per-call deadlines come from contexts; long polls outlive any fixed timeout.
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		token:      token,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// GetMe returns the bot's own account and doubles as a token check.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var result tgResponse[User]
	if err := c.call(ctx, "getMe", nil, requestTimeout, &result); err != nil {
		return nil, err
	}
	return &result.Result, nil
}

// GetUpdates long-polls for message updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := url.Values{
		"offset":          {strconv.FormatInt(offset, 10)},
		"timeout":         {strconv.Itoa(int(timeout / time.Second))},
		"allowed_updates": {`["message"]`},
	}
	var result tgResponse[[]Update]
	if err := c.call(ctx, "getUpdates", params, timeout+pollGrace, &result); err != nil {
		return nil, err
	}
	return result.Result, nil
}

// SendMessage sends plain text to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}
	var result tgResponse[Message]
	if err := c.call(ctx, "sendMessage", params, requestTimeout, &result); err != nil {
		return nil, err
	}
	return &result.Result, nil
}

// SendDocument uploads content as a file named filename.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) (*Message, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return nil, err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return nil, err
		}
	}
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendDocument"), &body)
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("sendDocument", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result tgResponse[Message]
	if err := c.do(req, "sendDocument", &result); err != nil {
		return nil, err
	}
	return &result.Result, nil
}

// SetMyCommands publishes the command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	raw, err := json.Marshal(commands)
	if err != nil {
		return err
	}
	var result tgResponse[bool]
	return c.call(ctx, "setMyCommands", url.Values{"commands": {string(raw)}}, requestTimeout, &result)
}

func (c *Client) call(ctx context.Context, method string, params url.Values, timeout time.Duration, out envelope) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), strings.NewReader(params.Encode()))
	if err != nil {
		return apperrors.NewTelegramAPIError(method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, method, out)
}

// envelope is implemented by every tgResponse instantiation.
type envelope interface {
	apiError() *APIError
}

func (r *tgResponse[T]) apiError() *APIError {
	if r.Ok {
		return nil
	}
	apiErr := &APIError{Code: r.ErrorCode, Description: r.Description}
	if r.Parameters != nil && r.Parameters.RetryAfter > 0 {
		apiErr.RetryAfter = time.Duration(r.Parameters.RetryAfter) * time.Second
	}
	return apiErr
}

func (c *Client) do(req *http.Request, method string, out envelope) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTelegramAPIError(method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewTelegramAPIError(method, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewTelegramAPIError(method,
			fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}
	if apiErr := out.apiError(); apiErr != nil {
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		c.log.Debug().Str("method", method).Int("code", apiErr.Code).Str("description", apiErr.Description).Msg("Telegram API call failed")
		return apperrors.NewTelegramAPIError(method, apiErr)
	}
	return nil
}
