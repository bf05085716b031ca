// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	readability "github.com/go-shiori/go-readability"

	"github.com/pdiddy/daily-digest/internal/httputil"
	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/pkg/types"
)

const (
	// briefMaxRunes caps the source excerpt passed to the model.
	briefMaxRunes = 3000

	draftMaxTokens = 4000
	titleMaxTokens = 80
)

const draftSystemPrompt = `Ты опытный технический автор. Пиши статью на русском языке в формате HTML
без <html>, <head> и <body>. Используй <h2> для разделов, <p> для текста, списки <ul>/<ol>.
Примеры кода оформляй как <pre><code class="language-python">...</code></pre>; код должен
быть самодостаточным, запускаться без сети и файлов и печатать результат. Не выдумывай факты,
версии и ссылки.`

const titleSystemPrompt = `Ты редактор технического блога. Сформулируй короткий цепляющий заголовок
на русском языке для статьи по исходной теме. Верни только заголовок без кавычек.`

var fencePattern = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\n?(.*?)\\s*```\\s*$")

// Drafter writes article bodies. Without a chat capability, or when the
// model fails, it produces a deterministic article from the outline.
type Drafter struct {
	chat   Chatter
	http   *http.Client
	logger *log.Logger
}

// NewDrafter returns a drafter. chat may be nil.
func NewDrafter(chat Chatter, client *http.Client, logger *log.Logger) *Drafter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Drafter{chat: chat, http: client, logger: logging.Component(logger, "drafter")}
}

// Draft returns the article HTML and its tags. Only context cancellation
// is reported as an error.
func (d *Drafter) Draft(ctx context.Context, topic types.Topic) (string, []string, error) {
	if d.chat == nil {
		return TemplateArticle(topic), topic.Tags, nil
	}

	brief := d.Brief(ctx, topic.Link)
	body, err := d.chat.Chat(ctx, []Message{
		System(draftSystemPrompt),
		User(draftPrompt(topic, brief)),
	}, ChatOptions{Temperature: 0.7, MaxTokens: draftMaxTokens})
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		d.logger.Warn("model draft failed, using template", "err", err)
		return TemplateArticle(topic), topic.Tags, nil
	}

	body = StripFences(body)
	if strings.TrimSpace(body) == "" {
		d.logger.Warn("model returned an empty draft, using template")
		return TemplateArticle(topic), topic.Tags, nil
	}
	return body, topic.Tags, nil
}

func draftPrompt(topic types.Topic, brief string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Тема: %s\n", topic.Title)
	if len(topic.Tags) > 0 {
		fmt.Fprintf(&b, "Теги: %s\n", strings.Join(topic.Tags, ", "))
	}
	b.WriteString("План:\n")
	for i, s := range topic.Outline {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	if brief != "" {
		fmt.Fprintf(&b, "\nВыдержка из исходного материала:\n%s\n", brief)
	}
	return b.String()
}

// LocalizeTitle turns a raw candidate title into a Russian headline. The raw
// title is returned when the model is absent or fails.
func (d *Drafter) LocalizeTitle(ctx context.Context, raw string) string {
	raw = strings.TrimSpace(raw)
	if d.chat == nil || raw == "" {
		return raw
	}
	out, err := d.chat.Chat(ctx, []Message{
		System(titleSystemPrompt),
		User(raw),
	}, ChatOptions{Temperature: 0.3, MaxTokens: titleMaxTokens})
	if err != nil {
		d.logger.Warn("title localization failed", "err", err)
		return raw
	}
	out, _, _ = strings.Cut(strings.TrimSpace(out), "\n")
	out = strings.Trim(strings.TrimSpace(out), "\"'«»")
	if out == "" {
		return raw
	}
	return out
}

// Brief downloads link and extracts its readable text, truncated. Any
// failure yields an empty brief.
func (d *Drafter) Brief(ctx context.Context, link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", httputil.DefaultUserAgent)
	resp, err := d.http.Do(req)
	if err != nil {
		d.logger.Debug("brief fetch failed", "url", link, "err", err)
		return ""
	}
	defer resp.Body.Close()
	if httputil.CheckStatus(resp) != nil {
		return ""
	}

	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		d.logger.Debug("brief extraction failed", "url", link, "err", err)
		return ""
	}
	text := strings.Join(strings.Fields(article.TextContent), " ")
	if utf8.RuneCountInString(text) > briefMaxRunes {
		text = string([]rune(text)[:briefMaxRunes])
	}
	return text
}

// StripFences removes a markdown code fence wrapped around the whole answer.
func StripFences(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.TrimSpace(s)
}

// TemplateArticle renders a plain article from the topic outline.
func TemplateArticle(topic types.Topic) string {
	var b strings.Builder
	title := html.EscapeString(topic.Title)
	fmt.Fprintf(&b, "<p>%s: краткий обзор темы и практические шаги.</p>\n", title)
	for _, section := range topic.Outline {
		s := html.EscapeString(section)
		fmt.Fprintf(&b, "<h2>%s</h2>\n<p>%s.</p>\n", s, s)
	}
	if topic.Link != "" {
		fmt.Fprintf(&b, "<p>Источник: <a href=\"%s\">%s</a></p>\n", html.EscapeString(topic.Link), html.EscapeString(topic.Link))
	}
	return b.String()
}
