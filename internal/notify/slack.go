package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SlackSink posts events to a Slack incoming webhook. An empty webhook
// URL disables the sink without an error, so deployments without Slack
// configured just run silent.
type SlackSink struct {
	webhookURL string
	client     *http.Client
}

// NewSlackSink creates a sink for the given webhook URL.
func NewSlackSink(webhookURL string) *SlackSink {
	return &SlackSink{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

// Deliver formats and posts the event.
func (s *SlackSink) Deliver(ctx context.Context, ev Event) error {
	if s.webhookURL == "" {
		return nil
	}
	text := formatSlackText(ev)
	if text == "" {
		return nil
	}

	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("notify: marshal slack payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post to slack: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: slack returned status %d", resp.StatusCode)
	}
	return nil
}

func formatSlackText(ev Event) string {
	switch e := ev.(type) {
	case InquiryEvent:
		var b strings.Builder
		b.WriteString("📩 新しいお問い合わせが届きました\n")
		fmt.Fprintf(&b, "お問い合わせID: %s\n", e.InquiryID)
		fmt.Fprintf(&b, "お名前: %s\n", e.Name)
		fmt.Fprintf(&b, "会社名: %s\n", e.Company)
		fmt.Fprintf(&b, "メール: %s\n", e.Email)
		fmt.Fprintf(&b, "内容: %s", e.Message)
		return b.String()
	case FeedbackEvent:
		if e.Rating != "negative" {
			return ""
		}
		return fmt.Sprintf("👎 回答に低評価が付きました\n質問: %s\nコメント: %s", e.Query, e.Comment)
	case SearchMissEvent:
		return fmt.Sprintf("🔍 回答できなかった質問があります\n質問: %s\nカテゴリ: %s", e.Query, e.Category)
	case DatasetEvent:
		if e.Err != nil {
			return fmt.Sprintf("⚠️ データセットの再読み込みに失敗しました\nファイル: %s\nエラー: %v", e.Path, e.Err)
		}
		return fmt.Sprintf("✅ データセットを再読み込みしました（%d件）", e.Entries)
	default:
		return ""
	}
}
