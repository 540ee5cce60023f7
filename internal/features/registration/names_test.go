package registration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		allowed func(rune) bool
		want    string
		ok      bool
	}{
		{"cyrillic", "Вася", PlayerNameRune, "Вася", true},
		{"trimmed", "  Bob  ", PlayerNameRune, "Bob", true},
		{"player digits and quotes", `Агент "007"`, PlayerNameRune, `Агент "007"`, true},
		{"decomposed letter composes", "Серге\u0438\u0306", PlayerNameRune, "Сергей", true},
		{"lone mark", "\u0306", PlayerNameRune, "", false},
		{"empty", "   ", PlayerNameRune, "", false},
		{"greek", "Ωmega", PlayerNameRune, "", false},
		{"emoji", "Вася🙂", PlayerNameRune, "", false},
		{"max length", strings.Repeat("a", MaxNameLen), PlayerNameRune, strings.Repeat("a", MaxNameLen), true},
		{"too long", strings.Repeat("a", MaxNameLen+1), PlayerNameRune, "", false},
		{"manager hyphen", "Анна-Мария", ManagerNameRune, "Анна-Мария", true},
		{"manager digits", "Анна2", ManagerNameRune, "", false},
		{"manager underscore", "Анна_М", ManagerNameRune, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeName(tt.raw, tt.allowed)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
