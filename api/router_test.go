package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/service/webhook"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/Domenick1991/skybooking/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestRouter(orders *MockOrderUseCase, reconciler *MockReconciler, ref *MockReferenceUseCase) (*gin.Engine, *prometheus.Registry) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	metrics.NewMetrics("skybooking", reg)
	router := NewRouter(Handlers{
		Flights:   NewFlightHandler(&MockFlightUseCase{}),
		Reference: NewReferenceHandler(ref),
		Orders:    NewOrderHandler(orders, &MockCheckoutUseCase{}),
		Webhook:   NewWebhookHandler(reconciler),
	}, logger.NewNop(), reg)
	return router, reg
}

func TestRouter_OrdersRequireIdentity(t *testing.T) {
	orders := &MockOrderUseCase{}
	router, _ := newTestRouter(orders, &MockReconciler{}, &MockReferenceUseCase{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/orders", nil)
	req.Header.Set(HeaderUserID, "not-a-number")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	orders.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything)
}

func TestRouter_IdentityHeadersReachHandlers(t *testing.T) {
	orders := &MockOrderUseCase{}
	orders.On("ListOrders", mock.Anything, domain.Actor{UserID: 42, Admin: true}).Return([]domain.Order{}, nil).Once()
	router, _ := newTestRouter(orders, &MockReconciler{}, &MockReferenceUseCase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/orders", nil)
	req.Header.Set(HeaderUserID, "42")
	req.Header.Set(HeaderUserRole, "Admin")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	orders.AssertExpectations(t)
}

func TestRouter_WebhookNeedsNoIdentity(t *testing.T) {
	reconciler := &MockReconciler{}
	reconciler.On("HandleEvent", mock.Anything, []byte(`{"id":"evt_1"}`), "t=1,v1=x").
		Return(&webhook.Result{Outcome: webhook.OutcomeIgnored}, nil).Once()
	router, _ := newTestRouter(&MockOrderUseCase{}, reconciler, &MockReferenceUseCase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/payments/webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set(HeaderStripeSignature, "t=1,v1=x")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	reconciler.AssertExpectations(t)
}

func TestRouter_ReferenceAndMetrics(t *testing.T) {
	ref := &MockReferenceUseCase{}
	ref.On("Airlines", mock.Anything).Return([]domain.Airline{{ID: 1, Name: "Aeroflot"}}, nil).Once()
	router, _ := newTestRouter(&MockOrderUseCase{}, &MockReconciler{}, ref)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/airlines", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Aeroflot")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "skybooking_orders_created_total")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.KindValidation))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.KindIntegrity))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.KindNotFound))
	assert.Equal(t, http.StatusForbidden, statusFor(domain.KindForbidden))
	assert.Equal(t, http.StatusConflict, statusFor(domain.KindConflict))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.KindProvider))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.KindConfig))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.KindInternal))
}
