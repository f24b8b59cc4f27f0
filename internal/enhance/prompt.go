package enhance

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/baobao-lyrics/baobao/internal/subtitle"
)

var (
	jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*")
	thinkRegex     = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// BuildPrompt creates the annotation prompt for one phrase
func BuildPrompt(format subtitle.OutputFormat, phrase string) string {
	var sb strings.Builder

	switch format {
	case subtitle.OutputLearn:
		sb.WriteString("You are a Chinese teacher creating sing-along lyrics for children.\n\n")
		sb.WriteString(fmt.Sprintf("Chinese: %s\n\n", phrase))
		sb.WriteString("Help a child sing the pinyin, understand each word, and remember the line.\n\n")
		sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
		sb.WriteString("1. pinyin_spaced: one space between syllables, always with tone marks (nǐ hǎo, not nǐhǎo).\n")
		sb.WriteString("2. literal_gloss: word-by-word English in pinyin order (nǐ hǎo -> you good).\n")
		sb.WriteString("3. natural_english: a natural English translation.\n")
		sb.WriteString("4. sing_along_tip: one short line, a rhyme or emoji memory hook.\n")
		sb.WriteString("5. word_details: one entry per Chinese character with char, pinyin and english.\n")
		sb.WriteString("6. Return ONLY a JSON object with the fields pinyin_spaced, literal_gloss, natural_english, sing_along_tip and word_details.\n")
	case subtitle.OutputFull, subtitle.OutputEmoji:
		sb.WriteString("Analyze this Chinese phrase for a children's learning song.\n\n")
		sb.WriteString(fmt.Sprintf("Chinese: %s\n\n", phrase))
		if format == subtitle.OutputEmoji {
			sb.WriteString("For english fields use 1-2 emojis plus an optional 1-2 word hint, e.g. \"☀️ sunshine\", \"❤️ love\".\n\n")
		} else {
			sb.WriteString("For english fields use simple 2-5 word translations a child would know.\n\n")
		}
		sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
		sb.WriteString("1. Use standard pinyin with tone marks (ā á ǎ à, ē é ě è, ī í ǐ ì).\n")
		sb.WriteString("2. word_details must have one entry per Chinese character with char, pinyin and english.\n")
		sb.WriteString("3. Return ONLY a JSON object with the fields pinyin, english and word_details.\n")
	default:
		panic(fmt.Sprintf("enhance: no prompt for output format %q", format.String()))
	}

	sb.WriteString("Do not add any explanation or markdown formatting.\n\n/no_think")
	return sb.String()
}

func buildPrompt(opts Options, phrase string) string {
	prompt := BuildPrompt(opts.Format, phrase)
	if opts.Prompt != "" {
		prompt += fmt.Sprintf("\n\nAdditional instructions: %s", opts.Prompt)
	}
	return prompt
}

// ParseAnnotation locates the first JSON object in a model response that
// carries the fields required by format. Field names are matched loosely so
// that models answering with "translation" instead of "english" still pass.
func ParseAnnotation(text string, format subtitle.OutputFormat) (*Annotation, error) {
	text = cleanJSONResponse(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	text = fixInvalidEscapes(text)

	var lastErr error
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		annotation, err := annotationFromJSON(gjson.ParseBytes(raw), format)
		if err == nil {
			return annotation, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON object found")
	}
	return nil, fmt.Errorf(
		"%w: %v (response: %s)",
		ErrInvalidResponse,
		lastErr,
		truncateString(text, 200),
	)
}

func annotationFromJSON(obj gjson.Result, format subtitle.OutputFormat) (*Annotation, error) {
	if !obj.IsObject() {
		return nil, fmt.Errorf("not an object")
	}

	a := &Annotation{}
	switch format {
	case subtitle.OutputLearn:
		a.Pinyin = firstString(obj, "pinyin_spaced", "pinyin")
		a.Translation = firstString(obj, "natural_english", "english", "translation")
		a.Gloss = firstString(obj, "literal_gloss", "gloss")
		a.Tip = firstString(obj, "sing_along_tip", "tip")
	default:
		a.Pinyin = firstString(obj, "pinyin", "pinyin_spaced")
		a.Translation = firstString(obj, "english", "translation", "natural_english")
	}

	if a.Pinyin == "" {
		return nil, fmt.Errorf("missing pinyin")
	}
	if a.Translation == "" {
		return nil, fmt.Errorf("missing translation")
	}

	details := obj.Get("word_details")
	if !details.Exists() {
		details = obj.Get("words")
	}
	details.ForEach(func(_, w gjson.Result) bool {
		char := strings.TrimSpace(w.Get("char").String())
		if char == "" {
			return true
		}
		a.Words = append(a.Words, WordDetail{
			Char:    char,
			Pinyin:  strings.TrimSpace(w.Get("pinyin").String()),
			English: strings.TrimSpace(w.Get("english").String()),
		})
		return true
	})

	return a, nil
}

func firstString(obj gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := obj.Get(key); v.Type == gjson.String {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

func cleanJSONResponse(s string) string {
	s = thinkRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	return strings.TrimSpace(s)
}

// fixes invalid JSON escape sequences like \N so the payload still decodes
func fixInvalidEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if i < len(s)-1 && s[i] == '\\' {
			next := s[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				result.WriteByte(s[i])
				result.WriteByte(next)
			default:
				result.WriteString("\\\\")
				result.WriteByte(next)
			}
			i += 2
		} else {
			result.WriteByte(s[i])
			i++
		}
	}

	return result.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
