package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-booking-engine/internal/model"
	"github.com/iliyamo/show-booking-engine/internal/repository"
)

// ShowHandler exposes the show catalog over HTTP: owner-only creation
// plus public listing and detail reads.  The public reads sit behind
// the Redis response cache when one is configured.
type ShowHandler struct {
	Shows *repository.ShowRepo
}

// NewShowHandler constructs a ShowHandler.  The repository must be
// non-nil.
func NewShowHandler(shows *repository.ShowRepo) *ShowHandler {
	if shows == nil {
		panic("nil repository passed to NewShowHandler")
	}
	return &ShowHandler{Shows: shows}
}

// showResponse is the wire shape of a show.
type showResponse struct {
	ID         uint64    `json:"id"`
	MovieRef   string    `json:"movie_ref"`
	StartsAt   time.Time `json:"starts_at"`
	PriceCents uint32    `json:"price_cents"`
}

func toShowResponse(s *model.Show) showResponse {
	return showResponse{
		ID:         s.ID,
		MovieRef:   s.MovieRef,
		StartsAt:   s.StartsAt,
		PriceCents: s.PriceCents,
	}
}

// CreateShow handles POST /v1/shows (OWNER only).  The body must carry
// a movie reference, an RFC 3339 start time and a positive per-seat
// price in cents.  Seats do not exist as rows; any label is sellable
// until claimed.
func (h *ShowHandler) CreateShow(c echo.Context) error {
	var body struct {
		MovieRef   string `json:"movie_ref"`
		StartsAt   string `json:"starts_at"`
		PriceCents uint32 `json:"price_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.MovieRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_ref is required"})
	}
	if body.PriceCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_cents must be positive"})
	}
	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC 3339"})
	}

	s := &model.Show{
		MovieRef:   body.MovieRef,
		StartsAt:   startsAt.UTC(),
		PriceCents: body.PriceCents,
	}
	if err := h.Shows.Create(c.Request().Context(), s); err != nil {
		c.Logger().Errorf("create show: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, toShowResponse(s))
}

// ListShows handles GET /v1/shows.  It returns every scheduled show,
// soonest first.
func (h *ShowHandler) ListShows(c echo.Context) error {
	shows, err := h.Shows.List(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list shows: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]showResponse, 0, len(shows))
	for i := range shows {
		out = append(out, toShowResponse(&shows[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": out})
}

// GetShow handles GET /v1/shows/:id.
func (h *ShowHandler) GetShow(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	s, err := h.Shows.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		c.Logger().Errorf("get show %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toShowResponse(s))
}
