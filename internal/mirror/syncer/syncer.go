// Package syncer реализует фоновую синхронизацию кэша с удаленным
// хранилищем заметок: начальную полную загрузку и периодические
// инкрементальные тики.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"notemirror/internal/mirror/config"
	"notemirror/internal/mirror/domain/entities"
	"notemirror/internal/mirror/ports/remote"
	"notemirror/pkg/logger"
)

// Константы для логирования.
const (
	LogBulkLoadStarted   = "initial bulk load started"
	LogBulkLoadFinished  = "initial bulk load finished"
	LogSyncTickOK        = "sync tick applied"
	LogSyncTickNoChanges = "sync tick: no changes"
	LogSyncStopped       = "synchronizer stopped"
	LogCursorRejected    = "cursor rejected by remote, forcing full resync"
	LogSyncDegraded      = "synchronizer degraded after consecutive failures"

	ErrMsgBulkLoad  = "initial bulk load failed"
	ErrMsgFetchTick = "sync tick failed"
)

// Ошибки синхронизатора.
var (
	// ErrAlreadyRunning возвращается при повторном запуске синхронизатора.
	ErrAlreadyRunning = errors.New("synchronizer already running")
)

// Cache - часть фасада кэша, нужная синхронизатору.
type Cache interface {
	BulkLoad(ctx context.Context, notes []*entities.Note, cursor string)
	ApplyDeltas(ctx context.Context, deltas []entities.Delta, cursor string) error
	ReportSync(state entities.SyncState, failures int, degraded bool, lastSync time.Time)
	Cursor() string
}

// Syncer ведет кэш через состояния Uninitialized -> BulkLoading ->
// Steady -> Stopped. Сбойный тик не продвигает маркер; подряд идущие
// сбои растягивают паузу экспоненциально до настроенного потолка.
type Syncer struct {
	client remote.Client
	cache  Cache
	cfg    config.SyncConfig

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	failures int
	loaded   bool

	nowFn func() time.Time
}

// New создает синхронизатор поверх клиента удаленного хранилища и фасада кэша.
func New(client remote.Client, cache Cache, cfg config.SyncConfig) *Syncer {
	return &Syncer{
		client: client,
		cache:  cache,
		cfg:    cfg,
		nowFn:  time.Now,
	}
}

// Start запускает фоновый цикл синхронизации и возвращает управление.
// Недоступность удаленного хранилища на старте не валит процесс: кэш
// остается пустым, состояние становится Steady с признаком деградации,
// а полная загрузка повторяется на последующих тиках.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.failures = 0
	s.loaded = false

	go s.run(runCtx)

	return nil
}

// Stop останавливает цикл и дожидается его завершения либо истечения ctx.
func (s *Syncer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.cache.ReportSync(entities.SyncStopped, s.failureCount(), false, time.Time{})
	logger.Log(ctx).Info(ctx, LogSyncStopped)

	return nil
}

// SyncOnce выполняет один инкрементальный тик вне фонового цикла.
func (s *Syncer) SyncOnce(ctx context.Context) {
	s.tick(ctx)
}

func (s *Syncer) run(ctx context.Context) {
	defer close(s.done)

	s.bulkLoad(ctx)
	s.tickLoop(ctx)
}

// bulkLoad выполняет одну попытку полной загрузки. Неудача не
// блокирует цикл: кэш остается пустым, состояние переходит в Steady с
// признаком деградации, следующая попытка - на очередном тике.
func (s *Syncer) bulkLoad(ctx context.Context) {
	log := logger.Log(ctx).With(zap.String("method", "bulkLoad"))

	s.cache.ReportSync(entities.SyncBulkLoading, s.failureCount(), s.degraded(), time.Time{})
	log.Info(ctx, LogBulkLoadStarted)

	loadCtx, cancel := context.WithTimeout(ctx, s.cfg.InitialLoadTimeout)
	notes, cursor, err := s.client.FetchAll(loadCtx)
	cancel()

	if err != nil {
		failures := s.recordFailure()
		log.Error(ctx, ErrMsgBulkLoad,
			zap.Error(err),
			zap.Int("consecutive_failures", failures))
		s.cache.ReportSync(entities.SyncSteady, failures, true, time.Time{})
		return
	}

	s.cache.BulkLoad(ctx, notes, cursor)
	s.setLoaded(true)
	s.resetFailures()
	s.cache.ReportSync(entities.SyncSteady, 0, false, s.nowFn())
	log.Info(ctx, LogBulkLoadFinished,
		zap.Int("notes", len(notes)),
		zap.String("cursor", cursor))
}

// tickLoop выполняет инкрементальные тики, пока контекст не отменен.
// Пока полная загрузка не удалась, тик повторяет ее вместо выборки
// изменений.
func (s *Syncer) tickLoop(ctx context.Context) {
	for {
		if !s.sleep(ctx, s.nextDelay()) {
			return
		}
		if !s.isLoaded() {
			s.bulkLoad(ctx)
			continue
		}
		s.tick(ctx)
	}
}

// tick забирает изменения после текущего маркера и применяет их целиком.
func (s *Syncer) tick(ctx context.Context) {
	log := logger.Log(ctx).With(zap.String("method", "tick"))
	cursor := s.cache.Cursor()

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	deltas, next, err := s.client.FetchChangesSince(fetchCtx, cursor)
	cancel()

	if err != nil {
		if errors.Is(err, entities.ErrCursorInvalid) {
			log.Warn(ctx, LogCursorRejected, zap.String("cursor", cursor))
			s.setLoaded(false)
			s.bulkLoad(ctx)
			return
		}
		s.failTick(ctx, log, err)
		return
	}

	if err := s.cache.ApplyDeltas(ctx, deltas, next); err != nil {
		s.failTick(ctx, log, err)
		return
	}

	s.resetFailures()
	s.cache.ReportSync(entities.SyncSteady, 0, false, s.nowFn())

	if len(deltas) == 0 {
		log.Debug(ctx, LogSyncTickNoChanges, zap.String("cursor", next))
		return
	}
	log.Info(ctx, LogSyncTickOK,
		zap.Int("deltas", len(deltas)),
		zap.String("cursor", next))
}

// failTick фиксирует сбойный тик: маркер остается прежним, счетчик
// сбоев растет, при достижении порога кэш помечается деградировавшим.
func (s *Syncer) failTick(ctx context.Context, log *logger.Logger, err error) {
	failures := s.recordFailure()
	degraded := s.degraded()

	log.Error(ctx, ErrMsgFetchTick,
		zap.Error(err),
		zap.Int("consecutive_failures", failures),
		zap.Bool("transient", entities.IsTransient(err)))
	if degraded && failures == s.cfg.MaxConsecutiveFailures {
		log.Warn(ctx, LogSyncDegraded, zap.Int("threshold", s.cfg.MaxConsecutiveFailures))
	}

	s.cache.ReportSync(entities.SyncSteady, failures, degraded, time.Time{})
}

// nextDelay возвращает паузу до следующего тика: базовый интервал
// либо экспоненциальную задержку после сбоев.
func (s *Syncer) nextDelay() time.Duration {
	failures := s.failureCount()
	if failures == 0 {
		return s.cfg.Interval
	}
	return s.backoff(failures)
}

// backoff - базовый интервал, удвоенный за каждый подряд идущий сбой,
// ограниченный сверху MaxBackoff.
func (s *Syncer) backoff(failures int) time.Duration {
	delay := s.cfg.Interval
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= s.cfg.MaxBackoff {
			return s.cfg.MaxBackoff
		}
	}
	if delay > s.cfg.MaxBackoff {
		return s.cfg.MaxBackoff
	}
	return delay
}

// sleep ждет d либо отмены контекста. Возвращает false при отмене.
func (s *Syncer) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Syncer) recordFailure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	return s.failures
}

func (s *Syncer) resetFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = 0
}

func (s *Syncer) failureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

func (s *Syncer) setLoaded(loaded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = loaded
}

func (s *Syncer) isLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Syncer) degraded() bool {
	return s.failureCount() >= s.cfg.MaxConsecutiveFailures
}
