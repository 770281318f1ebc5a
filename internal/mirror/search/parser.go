package search

import "time"

// parser - рекурсивный спуск по лексемам запроса.
// Приоритет операторов: NOT > AND (в том числе неявный) > OR,
// левоассоциативно, скобки переопределяют приоритет.
type parser struct {
	tokens []Token
	pos    int
}

// Parse разбирает строку запроса в дерево выражений.
// Пустой запрос дает nil-дерево, совпадающее со всеми заметками.
func Parse(query string) (Node, error) {
	tokens, err := tokenize(query)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	if p.peek().Type == TokenEOF {
		return nil, nil
	}

	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if extra := p.peek(); extra.Type != TokenEOF {
		return nil, syntaxErr(extra.Pos, extra.Text, "unexpected token")
	}
	return node, nil
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	token := p.tokens[p.pos]
	if token.Type != TokenEOF {
		p.pos++
	}
	return token
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.peek().Type == TokenOr {
		operator := p.next()
		if ended(p.peek()) {
			return nil, syntaxErr(operator.Pos, operator.Text, "dangling operator")
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrNode{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		token := p.peek()
		switch token.Type {
		case TokenAnd:
			operator := p.next()
			if ended(p.peek()) {
				return nil, syntaxErr(operator.Pos, operator.Text, "dangling operator")
			}
		case TokenEOF, TokenRParen, TokenOr:
			return left, nil
		}

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &AndNode{Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	token := p.peek()
	if token.Type == TokenNot {
		operator := p.next()
		if ended(p.peek()) {
			return nil, syntaxErr(operator.Pos, operator.Text, "dangling operator")
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &NotNode{Child: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	token := p.next()
	switch token.Type {
	case TokenLParen:
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.Type != TokenRParen {
			return nil, syntaxErr(token.Pos, token.Text, "unbalanced parentheses")
		}
		return node, nil
	case TokenRParen:
		return nil, syntaxErr(token.Pos, token.Text, "unbalanced parentheses")
	case TokenWord:
		return &TermNode{Text: token.Value}, nil
	case TokenPhrase:
		return &PhraseNode{Text: token.Value}, nil
	case TokenTag:
		return &TagNode{Name: token.Value}, nil
	case TokenDate:
		return dateRangeNode(token), nil
	case TokenAnd, TokenOr:
		return nil, syntaxErr(token.Pos, token.Text, "dangling operator")
	default:
		return nil, syntaxErr(token.Pos, token.Text, "unexpected token")
	}
}

// ended проверяет, что после оператора не осталось операнда.
func ended(token Token) bool {
	return token.Type == TokenEOF || token.Type == TokenRParen
}

// dateRangeNode преобразует датовую лексему в узел диапазона.
func dateRangeNode(token Token) *DateRangeNode {
	switch token.Field {
	case DateFrom:
		return &DateRangeNode{From: token.Date}
	case DateTo:
		return &DateRangeNode{To: endOfDay(token.Date)}
	default:
		return &DateRangeNode{From: startOfDay(token.Date), To: endOfDay(token.Date)}
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// endOfDay расширяет дату без времени до конца суток; момент с временем
// остается точной верхней границей.
func endOfDay(t time.Time) time.Time {
	if t.Equal(startOfDay(t)) {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}
