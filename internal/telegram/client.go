// Package telegram wraps the bot API client so the rest of the code deals in
// plain sends and our own error sentinels.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrConflict means another process is consuming this token's updates. The
// polling loops treat it as fatal: running two consumers corrupts both.
var ErrConflict = errors.New("telegram: another getUpdates consumer is active")

type Client struct {
	API *tgbotapi.BotAPI
}

func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api client: %w", err)
	}
	return &Client{API: api}, nil
}

// Updates opens the long-polling update channel.
func (c *Client) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	return c.API.GetUpdatesChan(u)
}

func (c *Client) StopPolling() {
	c.API.StopReceivingUpdates()
}

func (c *Client) Username() string {
	return c.API.Self.UserName
}

func (c *Client) SendMessage(chatID int64, text string) error {
	return c.send(tgbotapi.NewMessage(chatID, text))
}

// SendWithKeyboard sends text under a one-time reply keyboard built from the
// given options, one button per row.
func (c *Client) SendWithKeyboard(chatID int64, text string, options []string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(options) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(options))
		for _, option := range options {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(option)))
		}
		keyboard := tgbotapi.NewReplyKeyboard(rows...)
		keyboard.OneTimeKeyboard = true
		msg.ReplyMarkup = keyboard
	} else {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	return c.send(msg)
}

// SendInline sends text under an inline keyboard of callback buttons.
func (c *Client) SendInline(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return c.send(msg)
}

func (c *Client) SendPhotoFile(chatID int64, path, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	_, err := c.API.Send(photo)
	return wrapSendError(err)
}

func (c *Client) SendPhotoID(chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	_, err := c.API.Send(photo)
	return wrapSendError(err)
}

func (c *Client) AnswerCallback(callbackID string) error {
	_, err := c.API.Request(tgbotapi.NewCallback(callbackID, ""))
	return wrapSendError(err)
}

func (c *Client) ApproveJoinRequest(chatID, userID int64) error {
	_, err := c.API.Request(tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	})
	return wrapSendError(err)
}

func (c *Client) DeclineJoinRequest(chatID, userID int64) error {
	_, err := c.API.Request(tgbotapi.DeclineChatJoinRequest{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	})
	return wrapSendError(err)
}

// FetchFile downloads a telegram file by its file id.
func (c *Client) FetchFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := c.API.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build file request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file %s: status %d", fileID, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	return data, nil
}

func (c *Client) send(msg tgbotapi.MessageConfig) error {
	_, err := c.API.Send(msg)
	return wrapSendError(err)
}

func wrapSendError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
	}
	return err
}
