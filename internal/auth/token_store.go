package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// TokenStore — процессное хранилище bearer-токена для запросов к backend.
// Токен читается на каждый запрос; обновление выполняет внешняя auth-подсистема
// через Set. Подпись здесь не проверяется — это ответственность backend,
// мы лишь отсекаем заведомо просроченные токены до сетевого вызова.
type TokenStore struct {
	mu  sync.RWMutex
	raw string

	now func() time.Time
}

// NewTokenStore создаёт пустое хранилище токена.
func NewTokenStore() *TokenStore {
	return &TokenStore{now: time.Now}
}

// Set сохраняет токен. Префикс "Bearer " срезается, чтобы принимать значение
// как из конфигурации, так и из Authorization-заголовка.
func (s *TokenStore) Set(raw string) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
}

// Token возвращает текущий токен или ошибку, если его нет либо он просрочен.
func (s *TokenStore) Token() (string, error) {
	s.mu.RLock()
	raw := s.raw
	s.mu.RUnlock()

	if raw == "" {
		return "", domain.ErrTokenMissing
	}

	// Непрозрачные (не-JWT) токены пропускаем как есть: их срок жизни знает
	// только backend.
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return raw, nil
	}

	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now()) {
		return "", domain.ErrTokenExpired
	}

	return raw, nil
}

var _ domain.TokenSource = (*TokenStore)(nil)
