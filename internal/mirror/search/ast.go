package search

import (
	"strings"
	"time"

	"notemirror/internal/mirror/domain/entities"
)

// document - подготовленное для сопоставления представление заметки.
// Содержимое приводится к нижнему регистру один раз на вызов поиска.
type document struct {
	note         *entities.Note
	loweredAll   string
	loweredTitle string
	tags         map[string]struct{}
}

// newDocument подготавливает заметку к вычислению запроса.
func newDocument(n *entities.Note) *document {
	tags := make(map[string]struct{}, len(n.Tags))
	for _, tag := range n.Tags {
		tags[entities.NormalizeTag(tag)] = struct{}{}
	}
	return &document{
		note:         n,
		loweredAll:   strings.ToLower(n.Content),
		loweredTitle: strings.ToLower(n.Title()),
		tags:         tags,
	}
}

// Node - узел дерева булевого выражения.
type Node interface {
	match(d *document) bool
}

// TermNode - свободный текстовый терм: подстрочное совпадение без учета
// регистра в заголовке или теле.
type TermNode struct {
	Text string
}

func (t *TermNode) match(d *document) bool {
	return strings.Contains(d.loweredAll, strings.ToLower(t.Text))
}

// PhraseNode - фраза в кавычках, сопоставляется как непрерывная подстрока.
type PhraseNode struct {
	Text string
}

func (p *PhraseNode) match(d *document) bool {
	return strings.Contains(d.loweredAll, strings.ToLower(p.Text))
}

// UntaggedTag - специальное имя тега, совпадающее с заметками без тегов.
const UntaggedTag = "untagged"

// TagNode - фильтр tag:<имя> по нормализованному множеству тегов.
type TagNode struct {
	Name string
}

func (t *TagNode) match(d *document) bool {
	normalized := entities.NormalizeTag(t.Name)
	if normalized == UntaggedTag {
		return len(d.tags) == 0
	}
	_, ok := d.tags[normalized]
	return ok
}

// DateRangeNode - фильтр по времени модификации с включающими границами.
// Нулевое значение границы означает ее отсутствие.
type DateRangeNode struct {
	From time.Time
	To   time.Time
}

func (r *DateRangeNode) match(d *document) bool {
	modified := d.note.ModifiedAt
	if !r.From.IsZero() && modified.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && modified.After(r.To) {
		return false
	}
	return true
}

// AndNode - конъюнкция.
type AndNode struct {
	Left  Node
	Right Node
}

func (a *AndNode) match(d *document) bool {
	return a.Left.match(d) && a.Right.match(d)
}

// OrNode - дизъюнкция.
type OrNode struct {
	Left  Node
	Right Node
}

func (o *OrNode) match(d *document) bool {
	return o.Left.match(d) || o.Right.match(d)
}

// NotNode - отрицание непосредственно следующего терма или группы.
type NotNode struct {
	Child Node
}

func (n *NotNode) match(d *document) bool {
	return !n.Child.match(d)
}

// positiveTerms собирает текстовые термы и фразы вне отрицаний.
// Они участвуют в ранжировании результатов.
func positiveTerms(node Node) []string {
	var terms []string
	collectPositive(node, &terms)
	return terms
}

func collectPositive(node Node, terms *[]string) {
	switch typed := node.(type) {
	case *TermNode:
		*terms = append(*terms, strings.ToLower(typed.Text))
	case *PhraseNode:
		*terms = append(*terms, strings.ToLower(typed.Text))
	case *AndNode:
		collectPositive(typed.Left, terms)
		collectPositive(typed.Right, terms)
	case *OrNode:
		collectPositive(typed.Left, terms)
		collectPositive(typed.Right, terms)
	case *NotNode:
		// Отрицаемые термы не вносят вклад в релевантность.
	}
}
