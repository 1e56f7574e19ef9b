// Representative lookup HTTP handlers.
//
// This file exposes the REST endpoint that previews which congressional
// offices a sender's message would be delivered to:
//   - GET /representatives?address=…  (resolve offices, no delivery created)
//
// Handlers in this file are transport-thin: they validate input, delegate to
// application services, and translate resolution errors into HTTP results.
// Authenticated users may omit the address when offices are already on file;
// guests must always supply one.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// RepresentativesResponse lists the offices a sender resolves to.
type RepresentativesResponse struct {
	// Offices are ordered House first, then Senate.
	Offices []domain.Office `json:"offices"`
}

// ListRepresentatives godoc
// @ID          listRepresentatives
// @Summary     Preview resolved congressional offices
// @Description Resolves the House and Senate offices for the given sender and address
// @Description without sending anything. Authenticated users may omit the address when
// @Description their offices are already on file.
// @Tags        Representatives
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"              example(user123)
// @Param       address    query   string  false "Free-text location, e.g. a city, state, or zip"  example(Oakland, CA)
//
// @Success     200  {object} handlers.RepresentativesResponse
// @Failure     400  {object} handlers.ErrorResponse "Address required"
// @Failure     500  {object} handlers.ErrorResponse "Resolution failed"
// @Router      /representatives [get]
func (h *Handlers) ListRepresentatives(c *gin.Context) {
	address := strings.TrimSpace(c.Query("address"))
	uid := authUserID(c)

	// Guests have no offices on file, so resolution needs an address.
	if uid == "" && address == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "address required")
		return
	}

	offices, err := h.deliverySvc.Representatives(c.Request.Context(), uid, address)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeResolveFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, RepresentativesResponse{Offices: offices})
}
