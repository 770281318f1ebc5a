package search

import (
	"sort"
	"time"

	"notemirror/internal/mirror/domain/entities"
)

// Filters - дополнительные ограничения поиска, передаваемые вне строки
// запроса (параметры API). Комбинируются с запросом через AND.
type Filters struct {
	Tag  string
	From time.Time
	To   time.Time
}

// Result - одна найденная заметка с оценкой релевантности.
type Result struct {
	Note  *entities.Note
	Score float64
}

// Engine вычисляет поисковые запросы над снимком хранилища заметок.
type Engine struct {
	weights Weights
}

// NewEngine создает движок с весами ранжирования по умолчанию.
func NewEngine() *Engine {
	return &Engine{weights: DefaultWeights()}
}

// Search разбирает запрос и возвращает ранжированные совпадения.
// Запрос только с фильтрами (или пустой) возвращает все подходящие заметки,
// упорядоченные по времени модификации.
func (e *Engine) Search(notes []*entities.Note, query string, filters Filters) ([]Result, error) {
	root, err := Parse(query)
	if err != nil {
		return nil, err
	}

	root = applyFilters(root, filters)

	var matched []*document
	for _, note := range notes {
		doc := newDocument(note)
		if root == nil || root.match(doc) {
			matched = append(matched, doc)
		}
	}

	var terms []string
	if root != nil {
		terms = positiveTerms(root)
	}

	results := e.weights.rank(matched, terms)
	return results, nil
}

// applyFilters оборачивает дерево запроса фильтрами API через AND.
func applyFilters(root Node, filters Filters) Node {
	var extra []Node
	if filters.Tag != "" {
		extra = append(extra, &TagNode{Name: filters.Tag})
	}
	if !filters.From.IsZero() || !filters.To.IsZero() {
		rangeNode := &DateRangeNode{From: filters.From}
		if !filters.To.IsZero() {
			rangeNode.To = endOfDay(filters.To)
		}
		extra = append(extra, rangeNode)
	}

	for _, node := range extra {
		if root == nil {
			root = node
		} else {
			root = &AndNode{Left: root, Right: node}
		}
	}
	return root
}

// sortResults упорядочивает результаты по убыванию оценки, при
// равенстве - по убыванию времени модификации, затем по идентификатору,
// чтобы пагинация была воспроизводимой.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Note.ModifiedAt.Equal(results[j].Note.ModifiedAt) {
			return results[i].Note.ModifiedAt.After(results[j].Note.ModifiedAt)
		}
		return results[i].Note.ID < results[j].Note.ID
	})
}
