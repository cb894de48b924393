package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
)

// Telegram Desktop "Export chat history" in machine-readable JSON.
type exportFile struct {
	ID       int64           `json:"id"`
	Type     string          `json:"type"`
	Messages []exportMessage `json:"messages"`
}

type exportMessage struct {
	ID       int        `json:"id"`
	Type     string     `json:"type"`
	File     string     `json:"file"`
	FileName string     `json:"file_name"`
	Text     exportText `json:"text"`
}

// exportText is either a plain string or a list of strings and entity
// objects with a "text" field.
type exportText string

func (t *exportText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = exportText(s)
		return nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("export text: %w", err)
	}
	var sb strings.Builder
	for _, raw := range parts {
		var plain string
		if err := json.Unmarshal(raw, &plain); err == nil {
			sb.WriteString(plain)
			continue
		}
		var ent struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &ent); err == nil {
			sb.WriteString(ent.Text)
		}
	}
	*t = exportText(sb.String())
	return nil
}

// ReadExport decodes a channel export into posts attributed to chatID.
// Private channel ids in exports lack the -100 prefix the Bot API uses, so
// the caller passes the id it wants records checked against.
func ReadExport(r io.Reader, chatID int64) ([]Post, error) {
	var f exportFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	posts := make([]Post, 0, len(f.Messages))
	for _, m := range f.Messages {
		if m.Type != "" && m.Type != "message" {
			continue
		}
		hasMedia := m.File != "" || m.FileName != ""
		posts = append(posts, Post{
			ChatID:    chatID,
			MessageID: m.ID,
			FileName:  exportFileName(m),
			Caption:   string(m.Text),
			HasMedia:  hasMedia,
		})
	}
	return posts, nil
}

func exportFileName(m exportMessage) string {
	if name := strings.TrimSpace(m.FileName); name != "" {
		return name
	}
	file := strings.TrimSpace(m.File)
	// "(File not included. Change data exporting settings to download.)"
	if file == "" || strings.HasPrefix(file, "(") {
		return ""
	}
	return path.Base(file)
}
