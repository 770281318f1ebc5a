package search

import "fmt"

// SyntaxError описывает синтаксическую ошибку в поисковом запросе.
// Содержит позицию и проблемный токен, чтобы вызывающая сторона могла
// показать точное место ошибки.
type SyntaxError struct {
	Pos    int
	Token  string
	Reason string
}

// Error возвращает текст ошибки.
func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("query syntax error at position %d: %s", e.Pos, e.Reason)
	}
	return fmt.Sprintf("query syntax error at position %d near %q: %s", e.Pos, e.Token, e.Reason)
}

// syntaxErr создает новую синтаксическую ошибку.
func syntaxErr(pos int, token, reason string) *SyntaxError {
	return &SyntaxError{Pos: pos, Token: token, Reason: reason}
}
