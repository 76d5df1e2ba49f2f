package discord

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const maxMessageLen = 2000

var reMention = regexp.MustCompile(`<@!?(\d+)>`)

// cutToken saca el primer argumento de s. Un argumento entre comillas dobles
// puede tener espacios; \" adentro es una comilla literal. Devuelve el resto sin
// los espacios iniciales.
func cutToken(s string) (tok, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return "", ""
	}

	if s[0] != '"' {
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 {
			return s, ""
		}
		return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '"':
			b.WriteByte('"')
			i++
		case s[i] == '"':
			return b.String(), strings.TrimLeftFunc(s[i+1:], unicode.IsSpace)
		default:
			b.WriteByte(s[i])
		}
	}
	// comilla sin cerrar: tomamos todo
	return b.String(), ""
}

func splitArgs(s string) []string {
	var out []string
	for {
		var tok string
		trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
		if trimmed == "" {
			return out
		}
		tok, s = cutToken(trimmed)
		out = append(out, tok)
	}
}

// parseCommand separa "!name args..." en nombre (en minúsculas) y resto crudo.
func parseCommand(content, prefix string) (name, rest string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	body := content[len(prefix):]
	if body == "" || unicode.IsSpace(rune(body[0])) {
		return "", "", false
	}
	name, rest = cutToken(body)
	return strings.ToLower(name), rest, name != ""
}

func mentionsUser(m *discordgo.Message, userID string) bool {
	if userID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

// stripMention saca <@id> y <@!id> del bot. El resto queda tal cual salvo
// los espacios de los bordes.
func stripMention(content, botID string) string {
	out := reMention.ReplaceAllStringFunc(content, func(tok string) string {
		if m := reMention.FindStringSubmatch(tok); len(m) == 2 && m[1] == botID {
			return ""
		}
		return tok
	})
	return strings.TrimSpace(out)
}

// chunkText parte s en pedazos de a lo sumo max runas, cortando en un salto
// de línea cuando hay uno cerca del final.
func chunkText(s string, max int) []string {
	if s == "" {
		return nil
	}
	var out []string
	for utf8.RuneCountInString(s) > max {
		cut := byteOffset(s, max)
		if nl := strings.LastIndexByte(s[:cut], '\n'); nl > cut/2 {
			cut = nl + 1
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

func byteOffset(s string, runes int) int {
	i := 0
	for n := 0; n < runes && i < len(s); n++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

func helpText(prefix string) string {
	var b strings.Builder
	b.WriteString("**Commands**\n")
	for _, c := range Commands {
		line := "`" + prefix + c.Name
		if c.Usage != "" {
			line += " " + c.Usage
		}
		line += "`"
		fmt.Fprintf(&b, "%s: %s\n", line, c.Description)
	}
	b.WriteString("Mention me with a question to ask the AI.")
	return b.String()
}
