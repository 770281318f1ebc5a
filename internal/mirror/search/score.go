package search

import "strings"

// Weights - настраиваемые веса ранжирования. Точные значения подобраны
// эмпирически и не являются частью контракта поиска.
type Weights struct {
	// TitleHit - вес совпадения терма в заголовке.
	TitleHit float64
	// BodyHit - вес одного вхождения терма в тело.
	BodyHit float64
	// BodyHitCap - максимум учитываемых вхождений в тело на один терм.
	BodyHitCap int
	// Recency - максимальный вклад свежести заметки.
	Recency float64
}

// DefaultWeights возвращает веса ранжирования по умолчанию.
func DefaultWeights() Weights {
	return Weights{
		TitleHit:   5.0,
		BodyHit:    1.0,
		BodyHitCap: 5,
		Recency:    2.0,
	}
}

// rank считает оценку каждого совпадения и возвращает отсортированный список.
// Оценка складывается из трех независимых вкладов: совпадения в заголовке,
// совпадения в теле и свежесть, нормированная на разброс возрастов
// результирующего множества. Без текстовых термов все заметки получают
// нулевую оценку и сортируются по свежести.
func (w Weights) rank(matched []*document, terms []string) []Result {
	if len(matched) == 0 {
		return nil
	}

	oldest := matched[0].note.ModifiedAt
	newest := oldest
	for _, doc := range matched[1:] {
		modified := doc.note.ModifiedAt
		if modified.Before(oldest) {
			oldest = modified
		}
		if modified.After(newest) {
			newest = modified
		}
	}
	ageRange := newest.Sub(oldest)

	results := make([]Result, 0, len(matched))
	for _, doc := range matched {
		score := 0.0
		if len(terms) > 0 {
			score = w.textScore(doc, terms)
			if ageRange > 0 {
				score += w.Recency * float64(doc.note.ModifiedAt.Sub(oldest)) / float64(ageRange)
			}
		}
		results = append(results, Result{Note: doc.note, Score: score})
	}

	sortResults(results)
	return results
}

// textScore считает вклад совпадений термов в заголовке и теле.
func (w Weights) textScore(doc *document, terms []string) float64 {
	score := 0.0
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(doc.loweredTitle, term) {
			score += w.TitleHit
		}
		hits := strings.Count(doc.loweredAll, term)
		if hits > w.BodyHitCap {
			hits = w.BodyHitCap
		}
		score += w.BodyHit * float64(hits)
	}
	return score
}
