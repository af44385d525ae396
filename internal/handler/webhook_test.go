package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/show-booking-engine/internal/booking"
	"github.com/iliyamo/show-booking-engine/internal/model"
	"github.com/iliyamo/show-booking-engine/internal/payment"
)

// mockUseCase is a testify mock over the booking engine surface.
type mockUseCase struct {
	mock.Mock
}

func (m *mockUseCase) Reserve(ctx context.Context, showID uint64, userID string, seatLabels []string) (*model.Booking, error) {
	args := m.Called(ctx, showID, userID, seatLabels)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockUseCase) Settle(ctx context.Context, bookingID string) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *mockUseCase) OccupiedSeats(ctx context.Context, showID uint64) ([]string, error) {
	args := m.Called(ctx, showID)
	labels, _ := args.Get(0).([]string)
	return labels, args.Error(1)
}

var _ booking.UseCase = (*mockUseCase)(nil)

const webhookSecret = "whsec_test"

// signBody builds a valid signature header for body at the current time.
func signBody(body string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(h *WebhookHandler, body, sig string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if sig != "" {
		req.Header.Set(payment.SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	_ = h.HandleNotification(e.NewContext(req, rec))
	return rec
}

func TestWebhookSettlesOnSuccessEvent(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("Settle", mock.Anything, "bk-1").Return(nil)
	h := NewWebhookHandler(payment.NewHMACVerifier(webhookSecret, 0), uc)

	body := `{"type":"checkout.session.completed","data":{"booking_id":"bk-1"}}`
	rec := postWebhook(h, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"received":true`)
	uc.AssertExpectations(t)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	uc := new(mockUseCase)
	h := NewWebhookHandler(payment.NewHMACVerifier(webhookSecret, 0), uc)

	body := `{"type":"checkout.session.completed","data":{"booking_id":"bk-1"}}`
	rec := postWebhook(h, body, "t=123,v1=deadbeef")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// No mutation may happen on an unauthenticated notification.
	uc.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	uc := new(mockUseCase)
	h := NewWebhookHandler(payment.NewHMACVerifier(webhookSecret, 0), uc)

	rec := postWebhook(h, `{}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	uc.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	uc := new(mockUseCase)
	h := NewWebhookHandler(payment.NewHMACVerifier(webhookSecret, 0), uc)

	body := `{"type":"checkout.session.expired","data":{"booking_id":"bk-1"}}`
	rec := postWebhook(h, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"received":true`)
	uc.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
}

func TestWebhookAcknowledgesMalformedPayload(t *testing.T) {
	uc := new(mockUseCase)
	h := NewWebhookHandler(payment.NewHMACVerifier(webhookSecret, 0), uc)

	body := `this is not json`
	rec := postWebhook(h, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	uc.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
}

func TestWebhookConflictOnSweptBooking(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("Settle", mock.Anything, "bk-gone").Return(booking.ErrReconciliationConflict)
	h := NewWebhookHandler(payment.NewHMACVerifier(webhookSecret, 0), uc)

	body := `{"type":"checkout.session.completed","data":{"booking_id":"bk-gone"}}`
	rec := postWebhook(h, body, signBody(body))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "reconciliation_conflict")
	uc.AssertExpectations(t)
}

func TestWebhookMissingBookingID(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("Settle", mock.Anything, "").Return(fmt.Errorf("%w: missing booking id", booking.ErrInvalidRequest))
	h := NewWebhookHandler(payment.NewHMACVerifier(webhookSecret, 0), uc)

	body := `{"type":"checkout.session.completed","data":{}}`
	rec := postWebhook(h, body, signBody(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
