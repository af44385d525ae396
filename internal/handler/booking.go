package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-booking-engine/internal/booking"
	"github.com/iliyamo/show-booking-engine/internal/repository"
)

// BookingHandler exposes seat reservation and booking queries over
// HTTP.  Reservation itself goes through the booking engine, which
// owns the atomicity of the check-and-claim; the handler's job is only
// request parsing and error-to-status translation.  All methods assume
// JWT authentication has already been performed by middleware.
type BookingHandler struct {
	Engine   booking.UseCase
	Bookings *repository.BookingRepo
	Grace    time.Duration // how long an unpaid booking keeps its seats
}

// NewBookingHandler constructs a BookingHandler.  Engine and bookings
// must be non-nil; a non-positive grace falls back to the engine
// default.
func NewBookingHandler(engine booking.UseCase, bookings *repository.BookingRepo, grace time.Duration) *BookingHandler {
	if engine == nil || bookings == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	if grace <= 0 {
		grace = booking.DefaultGracePeriod
	}
	return &BookingHandler{Engine: engine, Bookings: bookings, Grace: grace}
}

// bookingResponse is the wire shape of a booking in list responses.
type bookingResponse struct {
	BookingID   string    `json:"booking_id"`
	ShowID      uint64    `json:"show_id"`
	SeatLabels  []string  `json:"seat_labels"`
	AmountCents uint32    `json:"amount_cents"`
	IsPaid      bool      `json:"is_paid"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateBooking handles POST /v1/bookings.  The body must contain a
// show id and a non-empty list of seat labels.  On success it returns
// 201 Created with the booking id, the total amount and the moment the
// unpaid booking expires.  Overlapping concurrent requests for the
// same seats are resolved by the engine: the loser receives 409 with
// no partial claim.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ShowID     uint64   `json:"show_id"`
		SeatLabels []string `json:"seat_labels"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ShowID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "show_id is required"})
	}

	b, err := h.Engine.Reserve(c.Request().Context(), body.ShowID, userID, body.SeatLabels)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidRequest):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrShowNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		case errors.Is(err, booking.ErrSeatsUnavailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seats unavailable"})
		}
		c.Logger().Errorf("create booking: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":   b.ID,
		"amount_cents": b.AmountCents,
		"expires_at":   b.CreatedAt.Add(h.Grace),
	})
}

// OccupiedSeats handles GET /v1/shows/:id/seats.  It returns the seat
// labels currently occupied for the show, either held by an unexpired
// unpaid booking or permanently sold.  The list is empty, not null,
// when every seat is free.
func (h *BookingHandler) OccupiedSeats(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	labels, err := h.Engine.OccupiedSeats(c.Request().Context(), showID)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		c.Logger().Errorf("occupied seats for show %d: %v", showID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if labels == nil {
		labels = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"seat_labels": labels})
}

// MyBookings handles GET /v1/my-bookings.  It lists the authenticated
// user's bookings, paid and unpaid alike, newest first.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("list bookings for user %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]bookingResponse, 0, len(list))
	for _, b := range list {
		out = append(out, bookingResponse{
			BookingID:   b.ID,
			ShowID:      b.ShowID,
			SeatLabels:  b.Seats,
			AmountCents: b.AmountCents,
			IsPaid:      b.IsPaid,
			CreatedAt:   b.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}
