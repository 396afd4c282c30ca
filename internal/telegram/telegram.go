package telegram

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"golang.org/x/time/rate"
)

// MaxSendDurr configures the limiter to send at most 1 message per MaxSendDurr
var MaxSendDurr = 500 * time.Millisecond

const maxMessageSize = 4096 // https://github.com/yagop/node-telegram-bot-api/issues/165

type Bot struct {
	ctx       context.Context
	channelID int64
	api       *tgbotapi.BotAPI
	limiter   *rate.Limiter
}

func New(ctx context.Context, token string, channelID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Bot{
		ctx:       ctx,
		channelID: channelID,
		api:       api,
		// limit message spam to once every MaxSendDurr
		limiter: rate.NewLimiter(rate.Every(MaxSendDurr), 1),
	}, nil
}

// Send sends a message to the channel, optionally sending notifications depending on disableNotification
// internally ratelimited to once every MaxSendDurr
func (t *Bot) Send(txt string, disableNotification bool) (err error) {
	for _, part := range split(txt) {
		if err = t.limiter.Wait(t.ctx); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(t.channelID, part)
		msg.DisableNotification = disableNotification
		if _, err = t.api.Send(msg); err != nil {
			return err
		}
	}

	return nil
}

// SendPhoto uploads the image at path with caption, without notification.
func (t *Bot) SendPhoto(path, caption string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := t.limiter.Wait(t.ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewPhotoUpload(t.channelID, tgbotapi.FileBytes{
		Name:  filepath.Base(path),
		Bytes: b,
	})
	msg.Caption = caption
	msg.DisableNotification = true
	_, err = t.api.Send(msg)
	return err
}

// HandleUpdates receives bot events, and calls callback with received messages
// old bot events are replayed on calling the method, except when onlyNewUpdates is true
func (t *Bot) HandleUpdates(callback func(msg string), onlyNewUpdates bool) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return err
	}
	if onlyNewUpdates {
		updates.Clear()
	}

	for {
		select {
		case <-t.ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}

			if u.Message != nil {
				callback(u.Message.Text)
			}
			if u.ChannelPost != nil {
				callback(u.ChannelPost.Text)
			}
		}
	}
}

// split cuts txt into messages telegram accepts, numbering the parts
// when more than one is needed.
func split(txt string) []string {
	if len(txt) <= maxMessageSize {
		return []string{txt}
	}

	// room for the " (n)" postfix
	const chunk = maxMessageSize - 8
	var parts []string
	for i := 1; len(txt) > 0; i++ {
		end := chunk
		if len(txt) < end {
			end = len(txt)
		} else {
			// don't cut a rune in half
			for end > 0 && !utf8.RuneStart(txt[end]) {
				end--
			}
		}
		parts = append(parts, txt[:end]+" ("+strconv.Itoa(i)+")")
		txt = txt[end:]
	}

	return parts
}

// IsCommand reports whether txt is the bot command cmd, with or without the bot's name.
func (t *Bot) IsCommand(txt, cmd string) bool {
	txt = strings.TrimSpace(txt)
	return txt == "/"+cmd || txt == "/"+cmd+"@"+t.api.Self.UserName
}
