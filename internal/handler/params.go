package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/studentride/rideshare/backend/internal/auth"
	"github.com/studentride/rideshare/backend/internal/domain"
)

// pathUUID binds a {name} path segment as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid format for parameter %s", errBadRequest, name)
	}
	return id, nil
}

// searchParams holds the optional query parameters of GET /requests.
type searchParams struct {
	From     *string
	To       *string
	Date     *openapi_types.Date
	CarType  *string
	MinSeats *int
	Status   *string
	Page     *int
	Limit    *int
}

func bindSearchParams(r *http.Request) (searchParams, error) {
	var p searchParams
	q := r.URL.Query()
	for name, dst := range map[string]any{
		"from":     &p.From,
		"to":       &p.To,
		"date":     &p.Date,
		"carType":  &p.CarType,
		"minSeats": &p.MinSeats,
		"status":   &p.Status,
		"page":     &p.Page,
		"limit":    &p.Limit,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dst); err != nil {
			return searchParams{}, fmt.Errorf("%w: invalid format for parameter %s", errBadRequest, name)
		}
	}
	return p, nil
}

func (p searchParams) filter() domain.RequestFilter {
	f := domain.RequestFilter{
		Status:      domain.RequestStatus(derefString(p.Status)),
		Origin:      derefString(p.From),
		Destination: derefString(p.To),
		CarType:     domain.CarType(derefString(p.CarType)),
	}
	if p.Date != nil {
		d := p.Date.Time
		f.TravelDate = &d
	}
	if p.MinSeats != nil {
		f.MinSeats = *p.MinSeats
	}
	return f
}

// callerID returns the authenticated user's id.
func callerID(r *http.Request) (uuid.UUID, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return id.UserID, nil
}
