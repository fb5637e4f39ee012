package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MerchantUIDGenerator выдаёт уникальные merchant uid для каждой попытки отправки.
// Формат mid_<unix millis>_<суффикс>: миллисекундная метка сохраняет сортируемость,
// случайный суффикс исключает коллизии при отправках в одну миллисекунду.
type MerchantUIDGenerator struct {
	now func() time.Time
}

// NewMerchantUIDGenerator создаёт генератор с системными часами.
func NewMerchantUIDGenerator() *MerchantUIDGenerator {
	return &MerchantUIDGenerator{now: time.Now}
}

// NewMerchantUIDGeneratorWithClock создаёт генератор с подменяемыми часами (для тестов).
func NewMerchantUIDGeneratorWithClock(now func() time.Time) *MerchantUIDGenerator {
	return &MerchantUIDGenerator{now: now}
}

// Next возвращает следующий merchant uid.
func (g *MerchantUIDGenerator) Next() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("mid_%d_%s", g.now().UnixMilli(), suffix)
}
