// Package search реализует движок булевых поисковых запросов по заметкам:
// лексер, парсер в дерево выражений, вычислитель и ранжирование результатов.
package search

import (
	"strings"
	"time"
)

// TokenType определяет тип лексемы поискового запроса.
type TokenType int

// Типы лексем.
const (
	TokenWord TokenType = iota
	TokenPhrase
	TokenAnd
	TokenOr
	TokenNot
	TokenLParen
	TokenRParen
	TokenTag
	TokenDate
	TokenEOF
)

// DateField определяет вид датового фильтра.
type DateField int

// Виды датовых фильтров.
const (
	DateOn DateField = iota
	DateFrom
	DateTo
)

// Token - одна лексема запроса с позицией в исходной строке.
type Token struct {
	Type  TokenType
	Text  string
	Value string
	Field DateField
	Date  time.Time
	Pos   int
}

// Форматы дат, принимаемые датовыми фильтрами.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// tokenize разбивает строку запроса на лексемы.
func tokenize(query string) ([]Token, error) {
	var tokens []Token
	runes := []rune(query)
	i := 0

	for i < len(runes) {
		switch {
		case runes[i] == ' ' || runes[i] == '\t' || runes[i] == '\n':
			i++
		case runes[i] == '(':
			tokens = append(tokens, Token{Type: TokenLParen, Text: "(", Pos: i})
			i++
		case runes[i] == ')':
			tokens = append(tokens, Token{Type: TokenRParen, Text: ")", Pos: i})
			i++
		case runes[i] == '"':
			start := i
			i++
			phraseStart := i
			for i < len(runes) && runes[i] != '"' {
				i++
			}
			if i >= len(runes) {
				return nil, syntaxErr(start, string(runes[start:]), "unterminated phrase")
			}
			tokens = append(tokens, Token{
				Type:  TokenPhrase,
				Text:  string(runes[start : i+1]),
				Value: string(runes[phraseStart:i]),
				Pos:   start,
			})
			i++
		default:
			start := i
			for i < len(runes) && !isBoundary(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			token, err := classifyWord(word, start)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token)
		}
	}

	tokens = append(tokens, Token{Type: TokenEOF, Pos: len(runes)})
	return tokens, nil
}

func isBoundary(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '(' || r == ')' || r == '"'
}

// classifyWord распознает ключевые слова, теги и датовые фильтры.
func classifyWord(word string, pos int) (Token, error) {
	switch strings.ToUpper(word) {
	case "AND":
		return Token{Type: TokenAnd, Text: word, Pos: pos}, nil
	case "OR":
		return Token{Type: TokenOr, Text: word, Pos: pos}, nil
	case "NOT":
		return Token{Type: TokenNot, Text: word, Pos: pos}, nil
	}

	lowered := strings.ToLower(word)
	switch {
	case strings.HasPrefix(lowered, "tag:"):
		name := strings.TrimSpace(word[len("tag:"):])
		if name == "" {
			return Token{}, syntaxErr(pos, word, "empty tag filter")
		}
		return Token{Type: TokenTag, Text: word, Value: name, Pos: pos}, nil
	case strings.HasPrefix(lowered, "date:"):
		return dateToken(word, word[len("date:"):], DateOn, pos)
	case strings.HasPrefix(lowered, "from:"):
		return dateToken(word, word[len("from:"):], DateFrom, pos)
	case strings.HasPrefix(lowered, "to:"):
		return dateToken(word, word[len("to:"):], DateTo, pos)
	}

	return Token{Type: TokenWord, Text: word, Value: word, Pos: pos}, nil
}

// dateToken разбирает значение датового фильтра.
func dateToken(raw, value string, field DateField, pos int) (Token, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return Token{Type: TokenDate, Text: raw, Field: field, Date: parsed, Pos: pos}, nil
		}
	}
	return Token{}, syntaxErr(pos, raw, "invalid date, expected ISO-8601")
}
