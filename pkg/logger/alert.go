package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// KeySendAlert marks a log entry for forwarding to the telegram alert channel.
const KeySendAlert = "send_alert"

// AlertConfig is the subset of the telegram config the alert core needs.
type AlertConfig struct {
	BotToken string
	ChatID   int64
	MinLevel zapcore.Level
}

// AlertCore is a zapcore.Core wrapper that forwards tagged entries at or
// above MinLevel to a Telegram chat. The send is asynchronous so logging
// never blocks on the network.
type AlertCore struct {
	cfg  AlertConfig
	core zapcore.Core
}

func NewAlertCore(core zapcore.Core, cfg AlertConfig) *AlertCore {
	return &AlertCore{cfg: cfg, core: core}
}

// WithAlertCore returns a child logger whose core forwards tagged entries
// to Telegram.
func (l *Logger) WithAlertCore(cfg AlertConfig) *Logger {
	wrapped := l.Logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return NewAlertCore(c, cfg)
	}))
	return &Logger{wrapped}
}

func (a *AlertCore) Enabled(lvl zapcore.Level) bool {
	return a.core.Enabled(lvl)
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	return &AlertCore{
		cfg:  a.cfg,
		core: a.core.With(fields),
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return a.core.Check(entry, checkedEntry).AddCore(entry, a)
	}
	return checkedEntry
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	shouldSend := false
	for _, f := range fields {
		if f.Key == KeySendAlert && f.Type == zapcore.BoolType && f.Integer == 1 {
			shouldSend = true
			break
		}
	}
	if entry.Level >= a.cfg.MinLevel && shouldSend && a.cfg.BotToken != "" {
		go a.sendTelegramAlert(entry, fields)
	}
	return a.core.Write(entry, fields)
}

func (a *AlertCore) Sync() error {
	return a.core.Sync()
}

func (a *AlertCore) sendTelegramAlert(entry zapcore.Entry, fields []zapcore.Field) {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == KeySendAlert {
			continue
		}
		f.AddTo(enc)
	}

	fieldStr := ""
	for k, v := range enc.Fields {
		fieldStr += fmt.Sprintf("• %s: %v\n", k, v)
	}

	message := fmt.Sprintf(
		"🚨 *%s Alert*\n\n*Message:* %s\n\n*Fields:*\n%s\n*Time:* %s",
		entry.Level.CapitalString(),
		entry.Message,
		fieldStr,
		entry.Time.Format("2006-01-02 15:04:05"),
	)

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", a.cfg.BotToken)
	payload := map[string]interface{}{
		"chat_id":    a.cfg.ChatID,
		"text":       message,
		"parse_mode": "Markdown",
	}

	jsonBody, _ := json.Marshal(payload)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}
