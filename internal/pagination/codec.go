// Package pagination кодирует callback-токены постраничных списков.
//
// Форматы токенов:
//
//	{collection}#{id}        — выбор элемента
//	{collection}_page#{idx}  — переход на страницу
//	{collection}_cancel      — отмена
//
// Токен не длиннее MaxTokenLen байт (ограничение callback_data в Telegram).
// Encode отказывает, а не обрезает.
package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxTokenLen — предел длины callback_data.
const MaxTokenLen = 64

const (
	pageSuffix   = "_page"
	cancelSuffix = "_cancel"
	separator    = "#"
)

// Kind — вид токена.
type Kind int

const (
	Entry Kind = iota + 1
	Page
	Cancel
)

func (k Kind) String() string {
	switch k {
	case Entry:
		return "entry"
	case Page:
		return "page"
	case Cancel:
		return "cancel"
	}
	return "unknown"
}

var (
	ErrTooLong        = errors.New("токен длиннее 64 байт")
	ErrBadCollection  = errors.New("некорректное имя коллекции")
	ErrBadKind        = errors.New("неизвестный вид токена")
	ErrNegativeValue  = errors.New("значение токена отрицательное")
	ErrMalformedToken = errors.New("токен не разобран")
)

// Token — разобранный callback-токен.
type Token struct {
	Collection string
	Kind       Kind
	Value      int64 // id элемента или номер страницы; для Cancel всегда 0
}

// Encode собирает токен.
func Encode(collection string, kind Kind, value int64) (string, error) {
	if err := ValidateCollection(collection); err != nil {
		return "", err
	}
	if value < 0 {
		return "", ErrNegativeValue
	}

	var token string
	switch kind {
	case Entry:
		token = collection + separator + strconv.FormatInt(value, 10)
	case Page:
		token = collection + pageSuffix + separator + strconv.FormatInt(value, 10)
	case Cancel:
		if value != 0 {
			return "", fmt.Errorf("%w: у отмены нет значения", ErrMalformedToken)
		}
		token = collection + cancelSuffix
	default:
		return "", ErrBadKind
	}

	if len(token) > MaxTokenLen {
		return "", fmt.Errorf("%w: %q (%d байт)", ErrTooLong, token, len(token))
	}
	return token, nil
}

// MustEncode — для токенов, корректность которых известна заранее.
func MustEncode(collection string, kind Kind, value int64) string {
	token, err := Encode(collection, kind, value)
	if err != nil {
		panic(err)
	}
	return token
}

// Decode разбирает токен. Decode(Encode(x)) == x для любого корректного x.
func Decode(token string) (Token, error) {
	if token == "" || len(token) > MaxTokenLen {
		return Token{}, ErrMalformedToken
	}

	head, value, hasValue := strings.Cut(token, separator)
	if !hasValue {
		name, ok := strings.CutSuffix(head, cancelSuffix)
		if !ok || ValidateCollection(name) != nil {
			return Token{}, ErrMalformedToken
		}
		return Token{Collection: name, Kind: Cancel}, nil
	}

	// Без знака и ведущих нулей — иначе нарушится взаимная однозначность
	if value == "" || (len(value) > 1 && value[0] == '0') || strings.ContainsAny(value, "+-") {
		return Token{}, ErrMalformedToken
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return Token{}, ErrMalformedToken
	}

	kind := Entry
	if name, ok := strings.CutSuffix(head, pageSuffix); ok {
		head, kind = name, Page
	}
	if ValidateCollection(head) != nil {
		return Token{}, ErrMalformedToken
	}
	return Token{Collection: head, Kind: kind, Value: v}, nil
}

// ValidateCollection проверяет имя коллекции: [a-z][a-z0-9_]*, без
// суффиксов _page и _cancel (иначе разбор стал бы неоднозначным).
func ValidateCollection(name string) error {
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		return fmt.Errorf("%w: %q", ErrBadCollection, name)
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return fmt.Errorf("%w: %q", ErrBadCollection, name)
		}
	}
	if strings.HasSuffix(name, pageSuffix) || strings.HasSuffix(name, cancelSuffix) {
		return fmt.Errorf("%w: %q оканчивается служебным суффиксом", ErrBadCollection, name)
	}
	return nil
}

// PageCount — число страниц: ceil(total/size), но не меньше одной,
// чтобы у пустого списка оставалась кнопка отмены.
func PageCount(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}

// ClampPage держит номер страницы в [0, count-1].
func ClampPage(page, count int) int {
	if page < 0 {
		return 0
	}
	if count > 0 && page > count-1 {
		return count - 1
	}
	return page
}

// Controls — показывать ли кнопки «назад» и «вперёд» на странице page.
func Controls(page, count int) (prev, next bool) {
	return page > 0, page < count-1
}

// Offset — смещение первой записи страницы.
func Offset(page, size int) int {
	return page * size
}
