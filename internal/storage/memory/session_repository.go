package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// sessionRepositoryInMemory — простая in-memory реализация SessionRepository.
type sessionRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.CheckoutSession
}

// NewSessionRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewSessionRepository() domain.SessionRepository {
	return &sessionRepositoryInMemory{
		items: make(map[string]domain.CheckoutSession),
	}
}

// Create сохраняет новую сессию, если merchant uid ещё не занят.
// Create-once семантика защищает от переиспользования merchant uid между отправками.
func (r *sessionRepositoryInMemory) Create(session domain.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[session.MerchantUID]; exists {
		return domain.ErrSessionExists
	}
	r.items[session.MerchantUID] = cloneSession(session)
	return nil
}

// Get возвращает сессию или ErrSessionNotFound, если её нет.
func (r *sessionRepositoryInMemory) Get(merchantUID string) (domain.CheckoutSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.items[merchantUID]
	if !ok {
		return domain.CheckoutSession{}, domain.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// Save перезаписывает сессию, проверяя версию (optimistic locking).
// Конфликт версий — это и есть защита от одновременной обработки двух
// callback'ов по одному merchant uid.
func (r *sessionRepositoryInMemory) Save(session domain.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[session.MerchantUID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if current.Version != session.Version {
		return domain.ErrSessionVersionConflict
	}
	session.Version++
	r.items[session.MerchantUID] = cloneSession(session)
	return nil
}

// cloneSession копирует сессию вместе со слайсом позиций, чтобы избежать
// непредсказуемых мутаций извне.
func cloneSession(src domain.CheckoutSession) domain.CheckoutSession {
	dst := src
	dst.Draft.Items = append([]domain.CartItem(nil), src.Draft.Items...)
	return dst
}

var _ domain.SessionRepository = (*sessionRepositoryInMemory)(nil)
