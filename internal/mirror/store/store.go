// Package store реализует хранилище заметок в памяти с индексом тегов.
package store

import (
	"sort"
	"sync"
	"time"

	"notemirror/internal/mirror/domain/entities"
)

// Store хранит текущий снимок всех заметок с O(1) доступом по идентификатору
// и индексом по нормализованным тегам. Карта заметок, индекс тегов и курсор
// синхронизации защищены одним мьютексом и меняются только вместе, поэтому
// читатель никогда не наблюдает их рассогласованными.
type Store struct {
	mu sync.RWMutex

	notes map[string]*entities.Note
	// tagIndex - нормализованный тег -> множество идентификаторов живых заметок.
	tagIndex map[string]map[string]struct{}
	// displayTags - нормализованный тег -> исходное написание для отображения.
	displayTags map[string]string

	cursor    string
	retention time.Duration
}

// New создает пустое хранилище с заданным окном удержания tombstone-записей.
func New(tombstoneRetention time.Duration) *Store {
	return &Store{
		notes:       make(map[string]*entities.Note),
		tagIndex:    make(map[string]map[string]struct{}),
		displayTags: make(map[string]string),
		retention:   tombstoneRetention,
	}
}

// Upsert вставляет или заменяет заметку. Возвращает false, если сохраненная
// версия не старее входящей: порядок записей разрешается по номеру версии,
// а не по времени, чтобы переживать рассинхронизацию часов и перестановку
// дельт.
func (s *Store) Upsert(n *entities.Note) bool {
	if n == nil || n.ID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notes[n.ID]
	if ok && existing.Version >= n.Version {
		return false
	}

	incoming := n.Clone()
	if ok {
		s.removeFromTagIndex(existing)
		// Время модификации не убывает даже при кривых часах источника.
		if incoming.ModifiedAt.Before(existing.ModifiedAt) {
			incoming.ModifiedAt = existing.ModifiedAt
		}
	}

	incoming.Deleted = false
	incoming.DeletedAt = time.Time{}
	s.notes[incoming.ID] = incoming
	s.addToTagIndex(incoming)
	return true
}

// Tombstone помечает заметку удаленной. Запись сохраняется до истечения окна
// удержания, чтобы отбрасывать опоздавшие дельты со старыми версиями.
// Возвращает false, если сохраненная версия не старее входящей.
func (s *Store) Tombstone(id string, version int64, when time.Time) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notes[id]
	if ok && existing.Version >= version {
		return false
	}

	if ok {
		s.removeFromTagIndex(existing)
		existing.Deleted = true
		existing.DeletedAt = when
		existing.Version = version
		existing.Tags = nil
		return true
	}

	// Неизвестная заметка: создаем tombstone, чтобы не воскресить ее
	// из опоздавшего upsert с меньшей версией.
	s.notes[id] = &entities.Note{
		ID:        id,
		Version:   version,
		Deleted:   true,
		DeletedAt: when,
	}
	return true
}

// Get возвращает копию живой заметки. Tombstone-записи считаются отсутствующими.
func (s *Store) Get(id string) (*entities.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok || n.Deleted {
		return nil, false
	}
	return n.Clone(), true
}

// Snapshot возвращает копии всех живых заметок для безопасной итерации
// без удержания блокировки хранилища.
func (s *Store) Snapshot() []*entities.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entities.Note, 0, len(s.notes))
	for _, n := range s.notes {
		if n.Deleted {
			continue
		}
		result = append(result, n.Clone())
	}
	return result
}

// IDsByTag возвращает идентификаторы живых заметок с указанным тегом.
func (s *Store) IDsByTag(tag string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.tagIndex[entities.NormalizeTag(tag)]
	result := make([]string, 0, len(ids))
	for id := range ids {
		result = append(result, id)
	}
	return result
}

// PurgeExpiredTombstones физически удаляет tombstone-записи старше окна
// удержания. Возвращает количество удаленных записей.
func (s *Store) PurgeExpiredTombstones(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, n := range s.notes {
		if n.Deleted && now.Sub(n.DeletedAt) > s.retention {
			delete(s.notes, id)
			purged++
		}
	}
	return purged
}

// DropMissing физически удаляет живые заметки, которых нет в keep.
// Используется при полной перезагрузке: заметка, пропавшая из выгрузки,
// пропала и из удаленного хранилища. Tombstone-записи не трогаются.
func (s *Store) DropMissing(keep map[string]struct{}) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, n := range s.notes {
		if n.Deleted {
			continue
		}
		if _, ok := keep[id]; ok {
			continue
		}
		s.removeFromTagIndex(n)
		delete(s.notes, id)
		dropped++
	}
	return dropped
}

// Cursor возвращает текущий маркер синхронизации.
func (s *Store) Cursor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// SetCursor обновляет маркер синхронизации. Вызывается только после полного
// применения пакета дельт.
func (s *Store) SetCursor(cursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
}

// Len возвращает количество живых заметок.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notes {
		if !n.Deleted {
			count++
		}
	}
	return count
}

// AllTags возвращает отсортированный список уникальных тегов живых заметок
// в исходном написании.
func (s *Store) AllTags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make([]string, 0, len(s.tagIndex))
	for normalized := range s.tagIndex {
		if display, ok := s.displayTags[normalized]; ok {
			tags = append(tags, display)
		} else {
			tags = append(tags, normalized)
		}
	}
	sort.Strings(tags)
	return tags
}

// addToTagIndex вызывается под блокировкой записи.
func (s *Store) addToTagIndex(n *entities.Note) {
	for _, tag := range n.Tags {
		normalized := entities.NormalizeTag(tag)
		if normalized == "" {
			continue
		}
		ids, ok := s.tagIndex[normalized]
		if !ok {
			ids = make(map[string]struct{})
			s.tagIndex[normalized] = ids
			s.displayTags[normalized] = tag
		}
		ids[n.ID] = struct{}{}
	}
}

// removeFromTagIndex вызывается под блокировкой записи.
func (s *Store) removeFromTagIndex(n *entities.Note) {
	for _, tag := range n.Tags {
		normalized := entities.NormalizeTag(tag)
		ids, ok := s.tagIndex[normalized]
		if !ok {
			continue
		}
		delete(ids, n.ID)
		if len(ids) == 0 {
			delete(s.tagIndex, normalized)
			delete(s.displayTags, normalized)
		}
	}
}
