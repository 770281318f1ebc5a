package entities

import "errors"

// Ошибки доменного уровня.
var (
	// ErrNotFound возвращается, когда заметка отсутствует или удалена.
	ErrNotFound = errors.New("note not found")
	// ErrRemoteConflict возвращается при несовпадении версии во время записи.
	ErrRemoteConflict = errors.New("remote version conflict")
	// ErrCursorInvalid возвращается, когда удаленное хранилище больше
	// не принимает сохраненный курсор синхронизации.
	ErrCursorInvalid = errors.New("sync cursor no longer valid")
)

// TransientError помечает временную ошибку удаленного хранилища,
// которая будет повторена синхронизатором и никогда не является фатальной.
type TransientError struct {
	Err error
}

// Error возвращает текст ошибки.
func (e *TransientError) Error() string {
	return "transient remote error: " + e.Err.Error()
}

// Unwrap возвращает обернутую ошибку.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient оборачивает ошибку как временную.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient проверяет, является ли ошибка временной.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
