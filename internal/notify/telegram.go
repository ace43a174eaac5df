package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ms-storefront/internal/config"
)

var ErrNotConfigured = errors.New("telegram channel not configured")

// TelegramError is a rejected or failed Bot API call.
type TelegramError struct {
	StatusCode  int
	Description string
}

func (e *TelegramError) Error() string {
	return fmt.Sprintf("telegram sendMessage failed: status %d: %s", e.StatusCode, e.Description)
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Telegram posts HTML messages to the merchant chat through the Bot API.
type Telegram struct {
	BaseURL string
	Token   string
	ChatID  string
	Client  *http.Client
}

func NewTelegram(cfg config.TelegramConfig, client *http.Client) *Telegram {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Telegram{
		BaseURL: strings.TrimRight(cfg.APIURL, "/"),
		Token:   cfg.BotToken,
		ChatID:  cfg.ChatID,
		Client:  client,
	}
}

func (t *Telegram) Configured() bool {
	return t != nil && t.Token != "" && t.ChatID != ""
}

// Send succeeds only on HTTP 200 with ok=true.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.ChatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		// the URL carries the token; keep it out of the error text
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram request error: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var result apiResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode != http.StatusOK || decodeErr != nil || !result.OK {
		desc := result.Description
		if desc == "" {
			desc = strings.TrimSpace(string(raw))
		}
		return &TelegramError{StatusCode: resp.StatusCode, Description: desc}
	}
	return nil
}
