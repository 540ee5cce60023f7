package registration

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLen — предел длины имени в символах.
const MaxNameLen = 32

func isLetter(r rune) bool {
	return unicode.IsLetter(r) && (unicode.Is(unicode.Latin, r) || unicode.Is(unicode.Cyrillic, r))
}

// Комбинирующие знаки пропускаем: после NFC они сливаются с буквой (й, ё).
func isMark(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// PlayerNameRune — буквы латиницы и кириллицы, цифры, пробел и -_"'.
func PlayerNameRune(r rune) bool {
	switch {
	case isLetter(r), isMark(r), r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune(" -_\"'", r)
}

// ManagerNameRune — буквы латиницы и кириллицы, пробел и дефис.
func ManagerNameRune(r rune) bool {
	return isLetter(r) || isMark(r) || r == ' ' || r == '-'
}

// NormalizeName приводит имя к NFC и обрезает пробелы. false — имя пустое,
// длиннее MaxNameLen или после нормализации содержит запрещённые символы.
func NormalizeName(raw string, allowed func(rune) bool) (string, bool) {
	name := strings.TrimSpace(norm.NFC.String(raw))
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxNameLen {
		return "", false
	}
	for _, r := range name {
		if isMark(r) || !allowed(r) {
			return "", false
		}
	}
	return name, true
}
