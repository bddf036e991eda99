package speech

import (
	"strings"
	"unicode/utf8"
)

// SplitText режет текст на куски не длиннее limit рун по границам слов.
// Слово длиннее limit режется принудительно.
func SplitText(text string, limit int) []string {
	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		wl := utf8.RuneCountInString(word)

		for wl > limit {
			flush()
			r := []rune(word)
			chunks = append(chunks, string(r[:limit]))
			word = string(r[limit:])
			wl -= limit
		}
		if wl == 0 {
			continue
		}

		need := wl
		if curLen > 0 {
			need++
		}
		if curLen+need > limit {
			flush()
			need = wl
		}
		if curLen > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
		curLen += need

		// предложение закончилось и кусок уже длинный: начинаем новый
		if endsSentence(word) && curLen >= limit/2 {
			flush()
		}
	}
	flush()

	return chunks
}

func endsSentence(word string) bool {
	r, _ := utf8.DecodeLastRuneInString(word)
	switch r {
	case '.', '!', '?', ';', ':':
		return true
	}
	return false
}
