package otp

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tempmail/relay/internal/domain"
)

// codePattern 匹配被非数字包围的 4-8 位连续数字。
// 这是启发式的便利功能，不是安全机制：不校验任何期望值。
var codePattern = regexp.MustCompile(`(^|\D)(\d{4,8})(\D|$)`)

var whitespacePattern = regexp.MustCompile(`[^\S\n]+`)

// Extract 扫描文本中第一个 4-8 位数字串并返回。
// 更长的数字串（订单号、时间戳）不会被截断误报。
func Extract(text string) (string, bool) {
	match := codePattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[2], true
}

// StripHTML 把 HTML 正文转为纯文本：去掉 script/style 等
// 非内容节点，块级元素换行，空白归一。
func StripHTML(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("script, style, head, meta, link, iframe").Remove()
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})

	text := whitespacePattern.ReplaceAllString(doc.Text(), " ")

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// ExtractFromMessage 在完整邮件的文本与 HTML 正文中寻找验证码。
// 与原行为一致：纯文本优先，HTML 剥离后拼接在后。
func ExtractFromMessage(msg *domain.MessageFull) (string, bool) {
	blob := msg.Text
	if msg.HTML != "" {
		blob += " " + StripHTML(msg.HTML)
	}
	return Extract(blob)
}
