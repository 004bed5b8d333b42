package item

import (
	"path/filepath"
	"strings"
)

// DefaultCaptionTemplate posts the file name on its own.
const DefaultCaptionTemplate = "{filename}"

// CaptionFields returns the placeholder values available to caption templates.
func CaptionFields(it Item) map[string]string {
	ext := filepath.Ext(it.Name)
	return map[string]string{
		"filename": it.Name,
		"name":     it.Name,
		"stem":     strings.TrimSuffix(it.Name, ext),
		"ext":      strings.TrimPrefix(ext, "."),
		"file_id":  it.ID,
		"id":       it.ID,
	}
}

// RenderCaption substitutes {placeholder} fields of the item into template.
// Unknown or unterminated placeholders are kept verbatim. "{{" and "}}" produce
// literal braces.
func RenderCaption(template string, it Item) string {
	fields := CaptionFields(it)

	var b strings.Builder
	b.Grow(len(template))
	for i := 0; i < len(template); {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexAny(template[i+1:], "{}")
			if end < 0 {
				b.WriteString(template[i:])
				return b.String()
			}
			if template[i+1+end] == '{' {
				// Unterminated before the next placeholder opens.
				b.WriteString(template[i : i+1+end])
				i += end + 1
				continue
			}
			key := template[i+1 : i+1+end]
			if value, ok := fields[key]; ok {
				b.WriteString(value)
			} else {
				b.WriteString(template[i : i+end+2])
			}
			i += end + 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}
