package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

// Flow — оркестратор checkout-потока: валидация черновика, создание pending-заказа
// на backend, передача управления платёжному виджету и reconcile результата.
// Последовательность строгая, автоматических повторов нет: любой сбой шага
// останавливает поток, повторная попытка — это новая отправка с новым merchant uid.
type Flow struct {
	sessions domain.SessionRepository
	backend  domain.OrdersBackend
	provider domain.PaymentProvider
	uids     *MerchantUIDGenerator
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
	producer *kafka.Producer

	now func() time.Time
}

// NewFlow создаёт оркестратор с метриками по умолчанию, без Kafka.
func NewFlow(sessions domain.SessionRepository, backend domain.OrdersBackend, provider domain.PaymentProvider, logger *log.Entry) *Flow {
	flow := NewFlowWithoutMetrics(sessions, backend, provider, logger)
	flow.metrics = metrics.NewCheckoutMetrics()
	return flow
}

// NewFlowWithKafka создаёт оркестратор, публикующий события жизненного цикла в Kafka.
func NewFlowWithKafka(sessions domain.SessionRepository, backend domain.OrdersBackend, provider domain.PaymentProvider, producer *kafka.Producer, logger *log.Entry) *Flow {
	flow := NewFlow(sessions, backend, provider, logger)
	flow.producer = producer
	return flow
}

// NewFlowWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewFlowWithoutMetrics(sessions domain.SessionRepository, backend domain.OrdersBackend, provider domain.PaymentProvider, logger *log.Entry) *Flow {
	if logger == nil {
		logger = log.New().WithField("component", "checkout-flow")
	}
	return &Flow{
		sessions: sessions,
		backend:  backend,
		provider: provider,
		uids:     NewMerchantUIDGenerator(),
		logger:   logger,
		now:      time.Now,
	}
}

// Submit запускает checkout для черновика: валидация, создание pending-заказа,
// регистрация сессии и запрос к платёжному виджету. Возвращает merchant uid
// принятой отправки. Валидационная ошибка блокирует поток до любых сетевых
// вызовов; отказ backend останавливает поток до обращения к виджету.
func (f *Flow) Submit(ctx context.Context, draft domain.OrderDraft) (string, error) {
	start := f.now()

	if err := draft.Validate(); err != nil {
		f.logger.WithError(err).Warn("draft validation failed")
		return "", err
	}

	merchantUID := f.uids.Next()
	logger := f.logger.WithField("merchant_uid", merchantUID)

	orderID, err := f.backend.CreateDraft(ctx, draft, merchantUID)
	if err != nil {
		logger.WithError(err).Error("backend rejected draft")
		if f.metrics != nil {
			f.metrics.RecordDraftRejected()
		}
		return "", err
	}
	logger = logger.WithField("order_id", orderID)

	session := domain.CheckoutSession{
		MerchantUID: merchantUID,
		OrderID:     orderID,
		Draft:       draft,
		Status:      domain.CheckoutStatusAwaitingPayment,
		CreatedAt:   f.now(),
		UpdatedAt:   f.now(),
	}
	if err := f.sessions.Create(session); err != nil {
		logger.WithError(err).Error("failed to persist checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	// Отправка учитывается сразу после создания сессии: если виджет откажет,
	// RecordFailed снимет её с учёта, и gauge ожидающих остаётся сбалансированным.
	if f.metrics != nil {
		f.metrics.RecordSubmitted()
		f.metrics.RecordSubmitDuration(f.now().Sub(start))
	}

	request := paymentRequestFromDraft(draft, merchantUID)
	// Callback замыкает merchant uid: результат виджета применяется только
	// к своей сессии, разделяемого изменяемого состояния между отправками нет.
	onResult := func(result domain.PaymentResult) {
		if _, err := f.OnPaymentResult(context.Background(), merchantUID, result); err != nil {
			logger.WithError(err).Warn("payment result handling finished with error")
		}
	}
	if err := f.provider.RequestPayment(request, onResult); err != nil {
		logger.WithError(err).Error("payment widget request failed")
		f.markFailed(logger, merchantUID, domain.FailureCodeWidgetError, err.Error())
		return "", err
	}

	f.publishEvent(logger, kafka.EventTypeCheckoutStarted, merchantUID, orderID, map[string]interface{}{
		"amount": draft.TotalMinor,
	})
	logger.Info("checkout submitted, awaiting payment callback")

	return merchantUID, nil
}

// OnPaymentResult обрабатывает асинхронный результат платежа ровно один раз.
// Повторный результат по тому же merchant uid отклоняется с ErrDuplicateCallback.
// Отказ провайдера завершает сессию без ошибки и без reconcile; расхождение
// суммы и отказ backend завершают сессию с ошибкой.
func (f *Flow) OnPaymentResult(ctx context.Context, merchantUID string, result domain.PaymentResult) (domain.CheckoutSession, error) {
	start := f.now()
	logger := f.logger.WithField("merchant_uid", merchantUID)

	session, err := f.sessions.Get(merchantUID)
	if err != nil {
		logger.WithError(err).Warn("payment result for unknown session")
		return domain.CheckoutSession{}, err
	}
	logger = logger.WithField("order_id", session.OrderID)

	// Единственная точка входа в reconcile: перевод awaiting_payment -> reconciling
	// защищён версией сессии, поэтому из гонки двух callback'ов выигрывает один.
	if session.Status != domain.CheckoutStatusAwaitingPayment {
		logger.WithField("status", string(session.Status)).Warn("duplicate payment callback ignored")
		if f.metrics != nil {
			f.metrics.RecordDuplicateCallback()
		}
		return session, domain.ErrDuplicateCallback
	}

	session.Status = domain.CheckoutStatusReconciling
	session.ProviderTxID = result.ProviderTxID
	session.PaidAmountMinor = result.PaidAmountMinor
	session.UpdatedAt = f.now()
	if err := f.sessions.Save(session); err != nil {
		if domain.IsVersionConflict(err) {
			logger.Warn("concurrent payment callback lost the race, ignored")
			if f.metrics != nil {
				f.metrics.RecordDuplicateCallback()
			}
			return session, domain.ErrDuplicateCallback
		}
		return domain.CheckoutSession{}, fmt.Errorf("mark session reconciling: %w", err)
	}
	session.Version++

	if !result.Success {
		logger.WithField("reason", result.ErrorMsg).Info("payment declined by provider")
		session = f.finishSession(logger, session, domain.CheckoutStatusFailed, domain.FailureCodeDeclined, result.ErrorMsg)
		f.publishEvent(logger, kafka.EventTypeCheckoutFailed, merchantUID, session.OrderID, map[string]interface{}{
			"reason": result.ErrorMsg,
		})
		return session, nil
	}

	if result.PaidAmountMinor != session.Draft.TotalMinor {
		logger.WithFields(log.Fields{
			"paid_amount":  result.PaidAmountMinor,
			"draft_amount": session.Draft.TotalMinor,
		}).Error("paid amount does not match draft")
		if f.metrics != nil {
			f.metrics.RecordAmountMismatch()
		}
		session = f.finishSession(logger, session, domain.CheckoutStatusFailed, domain.FailureCodeAmountMismatch, domain.ErrAmountMismatch.Error())
		f.publishEvent(logger, kafka.EventTypeCheckoutFailed, merchantUID, session.OrderID, map[string]interface{}{
			"reason": "amount mismatch",
		})
		return session, domain.ErrAmountMismatch
	}

	confirmation := domain.PaymentConfirmation{
		OrderID:         session.OrderID,
		MerchantUID:     merchantUID,
		ProviderTxID:    result.ProviderTxID,
		PayMethod:       result.PayMethod,
		PaidAmountMinor: result.PaidAmountMinor,
		Status:          result.Status,
	}
	if err := f.backend.ConfirmPayment(ctx, confirmation); err != nil {
		logger.WithError(err).Error("backend rejected payment reconcile")
		session = f.finishSession(logger, session, domain.CheckoutStatusFailed, domain.FailureCodeReconcileRejected, reconcileFailureReason(err))
		f.publishEvent(logger, kafka.EventTypeCheckoutFailed, merchantUID, session.OrderID, map[string]interface{}{
			"reason": "reconcile rejected",
		})
		return session, err
	}

	session = f.finishSession(logger, session, domain.CheckoutStatusPaid, "", "")
	if f.metrics != nil {
		f.metrics.RecordReconcileDuration(f.now().Sub(start))
	}
	f.publishEvent(logger, kafka.EventTypeCheckoutPaid, merchantUID, session.OrderID, map[string]interface{}{
		"amount": session.PaidAmountMinor,
	})
	logger.Info("payment confirmed by backend")

	return session, nil
}

// Abandon завершает сессию, для которой пользователь явно прервал оплату.
// Применимо только к awaiting_payment: пришедший callback всегда приоритетнее.
func (f *Flow) Abandon(ctx context.Context, merchantUID, reason string) error {
	logger := f.logger.WithField("merchant_uid", merchantUID)

	session, err := f.sessions.Get(merchantUID)
	if err != nil {
		return err
	}
	if session.Status != domain.CheckoutStatusAwaitingPayment {
		return domain.ErrDuplicateCallback
	}

	session.Status = domain.CheckoutStatusAbandoned
	session.FailureReason = reason
	session.UpdatedAt = f.now()
	if err := f.sessions.Save(session); err != nil {
		if domain.IsVersionConflict(err) {
			// Callback успел раньше; его результат окончательный.
			return domain.ErrDuplicateCallback
		}
		return fmt.Errorf("mark session abandoned: %w", err)
	}

	if f.metrics != nil {
		f.metrics.RecordAbandoned()
	}
	f.publishEvent(logger, kafka.EventTypeCheckoutAbandoned, merchantUID, session.OrderID, map[string]interface{}{
		"reason": reason,
	})
	logger.Info("checkout abandoned by user")

	return nil
}

// ConfirmDelivery помечает заказ доставленным в истории заказов.
func (f *Flow) ConfirmDelivery(ctx context.Context, orderID string) error {
	logger := f.logger.WithField("order_id", orderID)

	if err := f.backend.ConfirmDelivery(ctx, orderID); err != nil {
		logger.WithError(err).Error("backend rejected delivery confirmation")
		return err
	}

	f.publishEvent(logger, kafka.EventTypeDeliveryConfirmed, "", orderID, nil)
	logger.Info("delivery confirmed")

	return nil
}

// Session возвращает текущее состояние checkout-сессии.
func (f *Flow) Session(merchantUID string) (domain.CheckoutSession, error) {
	return f.sessions.Get(merchantUID)
}

// finishSession переводит сессию в терминальный статус. Сбой сохранения
// логируется, но исход потока уже определён и не меняется.
func (f *Flow) finishSession(logger *log.Entry, session domain.CheckoutSession, status domain.CheckoutStatus, code domain.FailureCode, reason string) domain.CheckoutSession {
	session.Status = status
	session.FailureCode = code
	session.FailureReason = reason
	session.UpdatedAt = f.now()
	if err := f.sessions.Save(session); err != nil {
		logger.WithError(err).Error("failed to persist terminal session state")
		return session
	}
	session.Version++

	if f.metrics != nil {
		switch status {
		case domain.CheckoutStatusPaid:
			f.metrics.RecordPaid()
		case domain.CheckoutStatusFailed:
			f.metrics.RecordFailed()
		}
	}

	return session
}

func (f *Flow) markFailed(logger *log.Entry, merchantUID string, code domain.FailureCode, reason string) {
	session, err := f.sessions.Get(merchantUID)
	if err != nil {
		logger.WithError(err).Error("failed to load session for failure mark")
		return
	}
	f.finishSession(logger, session, domain.CheckoutStatusFailed, code, reason)
}

// publishEvent отправляет событие в Kafka, если producer сконфигурирован.
// Сбой публикации не влияет на исход checkout.
func (f *Flow) publishEvent(logger *log.Entry, eventType kafka.EventType, merchantUID, orderID string, metadata map[string]interface{}) {
	if f.producer == nil {
		return
	}

	key := merchantUID
	if key == "" {
		key = orderID
	}
	event := kafka.NewCheckoutEvent(eventType, merchantUID, orderID, metadata)
	if err := f.producer.PublishEvent(kafka.TopicCheckoutEvents, key, event); err != nil {
		logger.WithError(err).WithField("event_type", string(eventType)).Warn("failed to publish checkout event")
	}
}

func paymentRequestFromDraft(draft domain.OrderDraft, merchantUID string) domain.PaymentRequest {
	return domain.PaymentRequest{
		MerchantUID:       merchantUID,
		PayMethod:         "card",
		AmountMinor:       draft.TotalMinor,
		Name:              fmt.Sprintf("%s order payment", draft.Shipping.BuyerName),
		BuyerName:         draft.Shipping.BuyerName,
		BuyerEmail:        draft.Shipping.Email,
		BuyerTel:          draft.Shipping.Phone,
		Apartment:         draft.Shipping.Apartment,
		City:              draft.Shipping.City,
		StreetName:        draft.Shipping.Street,
		PostCode:          draft.Shipping.PostCode,
		Country:           draft.Shipping.Country,
		AdditionalMessage: draft.Shipping.Note,
		Items:             draft.Items,
	}
}

func reconcileFailureReason(err error) string {
	var backendErr *domain.BackendError
	if errors.As(err, &backendErr) && backendErr.Message != "" {
		return backendErr.Message
	}
	return err.Error()
}
