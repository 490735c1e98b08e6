package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// PartKind tags a message body part.
type PartKind string

const (
	PartText        PartKind = "text"
	PartLink        PartKind = "link"
	PartLabeledLink PartKind = "labeled_link"
	PartMention     PartKind = "mention"
)

// Part is one piece of a message body. Which fields are set depends on Kind:
// text uses Text, link uses URL, labeled_link uses Text and URL, mention
// uses Username.
type Part struct {
	Kind     PartKind `json:"type"`
	Text     string   `json:"text,omitempty"`
	URL      string   `json:"url,omitempty"`
	Username string   `json:"username,omitempty"`
}

// UnmarshalJSON rejects unknown part kinds and parts missing their payload.
func (p *Part) UnmarshalJSON(data []byte) error {
	type rawPart Part
	var raw rawPart
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case PartText:
	case PartLink:
		if raw.URL == "" {
			return fmt.Errorf("link part without url")
		}
	case PartLabeledLink:
		if raw.URL == "" || raw.Text == "" {
			return fmt.Errorf("labeled link part without url or label")
		}
	case PartMention:
		if raw.Username == "" {
			return fmt.Errorf("mention part without username")
		}
	default:
		return fmt.Errorf("unknown part kind %q", raw.Kind)
	}
	*p = Part(raw)
	return nil
}

// Body is the ordered list of parts making up a message.
type Body []Part

// PlainText renders the body back into the text a user would have typed.
func (b Body) PlainText() string {
	var sb strings.Builder
	for _, p := range b {
		switch p.Kind {
		case PartText:
			sb.WriteString(p.Text)
		case PartLink:
			sb.WriteString(p.URL)
		case PartLabeledLink:
			sb.WriteString("[" + p.Text + "](" + p.URL + ")")
		case PartMention:
			sb.WriteString("@" + p.Username)
		}
	}
	return sb.String()
}

// Mentions returns the usernames mentioned in the body in order of appearance.
func (b Body) Mentions() []string {
	var out []string
	for _, p := range b {
		if p.Kind == PartMention {
			out = append(out, p.Username)
		}
	}
	return out
}

var bodyTokenPattern = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)|https?://[^\s]+|@[A-Za-z0-9_\-]+(?:\.[A-Za-z0-9_\-]+)*`)

// ParseBody splits plain text into labeled links, bare links, mentions and
// the text between them.
func ParseBody(text string) Body {
	body := Body{}
	last := 0
	for _, loc := range bodyTokenPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > last {
			body = append(body, Part{Kind: PartText, Text: text[last:start]})
		}
		token := text[start:end]
		switch {
		case loc[2] >= 0:
			body = append(body, Part{Kind: PartLabeledLink, Text: text[loc[2]:loc[3]], URL: text[loc[4]:loc[5]]})
		case strings.HasPrefix(token, "@"):
			body = append(body, Part{Kind: PartMention, Username: token[1:]})
		default:
			body = append(body, Part{Kind: PartLink, URL: token})
		}
		last = end
	}
	if last < len(text) {
		body = append(body, Part{Kind: PartText, Text: text[last:]})
	}
	return body
}
