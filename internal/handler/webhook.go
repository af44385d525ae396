package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-booking-engine/internal/booking"
	"github.com/iliyamo/show-booking-engine/internal/payment"
)

// WebhookHandler receives payment processor notifications on an
// unauthenticated route.  Authenticity rests entirely on the HMAC
// signature header: a request that fails verification is rejected
// before any state is touched.  The processor delivers at least once,
// so every outcome here must stay safe under redelivery.
type WebhookHandler struct {
	Verifier payment.Verifier
	Engine   booking.UseCase
}

// NewWebhookHandler constructs a WebhookHandler.  Both dependencies
// must be non-nil.
func NewWebhookHandler(verifier payment.Verifier, engine booking.UseCase) *WebhookHandler {
	if verifier == nil || engine == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{Verifier: verifier, Engine: engine}
}

// HandleNotification handles POST /v1/payments/webhook.  The raw body
// is read before parsing because the signature covers the exact bytes
// on the wire.  Event types other than the payment success are
// acknowledged with 200 so the processor stops redelivering them; a
// success notification for an already swept booking returns 409 and
// the conflict is reported through the engine's event channel.
func (h *WebhookHandler) HandleNotification(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	sig := c.Request().Header.Get(payment.SignatureHeader)
	if err := h.Verifier.Verify(payload, sig); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	ev, err := payment.ParseEvent(payload)
	if err != nil {
		// Authenticated but malformed; acknowledge so the processor
		// does not redeliver a payload we can never parse.
		c.Logger().Warnf("webhook: malformed event payload: %v", err)
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}
	if ev.Type != payment.EventCheckoutCompleted {
		c.Logger().Infof("webhook: ignoring event type %q", ev.Type)
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	if err := h.Engine.Settle(c.Request().Context(), ev.Data.BookingID); err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidRequest):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, booking.ErrReconciliationConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reconciliation_conflict"})
		}
		c.Logger().Errorf("webhook: settle booking %s: %v", ev.Data.BookingID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
