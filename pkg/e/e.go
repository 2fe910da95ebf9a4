package e

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Внутренние ошибки с векторами
	ErrDegenerateVector = fmt.Errorf("degenerate vector: zero magnitude")
	ErrEmptyText        = fmt.Errorf("embedding input text is empty")
	ErrNegativeDelay    = fmt.Errorf("inter-request delay must not be negative")

	// Ошибки хранилища
	ErrConditionNotFound    = fmt.Errorf("condition not found")
	ErrConditionNotEmbedded = fmt.Errorf("condition has no embedding")
	ErrNoEmbeddedConditions = fmt.Errorf("no conditions with embeddings found")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// 400 Bad Request
	ErrStatusBadRequest = fmt.Errorf("bad request")
	ErrInvalidThreshold = fmt.Errorf("threshold must be between -1 and 1")
	ErrInvalidLimit     = fmt.Errorf("limit must be between 1 and 100")
	ErrMissingQuery     = fmt.Errorf("query parameter q is required")

	// 5xx
	ErrInternalServerError = fmt.Errorf("internal server error")
	ErrBadGateway          = fmt.Errorf("embedding service unavailable")
	ErrServiceUnavailable  = fmt.Errorf("search temporarily unavailable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// ConfigurationError сообщает об отсутствующих обязательных параметрах конфигурации.
type ConfigurationError struct {
	Keys []string
}

func NewConfigurationError(keys ...string) *ConfigurationError {
	return &ConfigurationError{Keys: keys}
}

func (c *ConfigurationError) Error() string {
	return "missing required configuration: " + strings.Join(c.Keys, ", ")
}

// EmbeddingServiceError - ошибка одного запроса к сервису эмбеддингов.
type EmbeddingServiceError struct {
	Op  string
	Err error
}

func NewEmbeddingServiceError(op string, err error) *EmbeddingServiceError {
	return &EmbeddingServiceError{Op: op, Err: err}
}

func (s *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service: %s: %v", s.Op, s.Err)
}

func (s *EmbeddingServiceError) Unwrap() error {
	return s.Err
}

// DimensionMismatchError возвращается при сравнении векторов разной длины.
type DimensionMismatchError struct {
	Left  int
	Right int
}

func (d *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: %d != %d", d.Left, d.Right)
}

// PersistenceError - ошибка обновления одной записи в хранилище.
type PersistenceError struct {
	ID  string
	Err error
}

func (p *PersistenceError) Error() string {
	return fmt.Sprintf("update condition %s: %v", p.ID, p.Err)
}

func (p *PersistenceError) Unwrap() error {
	return p.Err
}

// SearchUnavailableError - сбой самого вызова поиска ближайших соседей.
// Пустой результат ошибкой не является.
type SearchUnavailableError struct {
	Err error
}

func (s *SearchUnavailableError) Error() string {
	return fmt.Sprintf("similarity search unavailable: %v", s.Err)
}

func (s *SearchUnavailableError) Unwrap() error {
	return s.Err
}

// IsConfigurationError сообщает, является ли err (или её причина) ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
