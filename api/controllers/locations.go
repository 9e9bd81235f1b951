package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rahulmehra/shopkart-backend/api/responses"
	"github.com/rahulmehra/shopkart-backend/api/validators"
	"github.com/rahulmehra/shopkart-backend/internal/locations"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
)

// ResolvePincode tells the storefront which delivery zone serves a pincode.
// An unmapped pincode is a successful response with serviceable=false.
func ResolvePincode(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "locations service unavailable"))
			return
		}

		pincode := strings.TrimSpace(chi.URLParam(r, "pincode"))
		group, err := svc.ResolvePincode(r.Context(), pincode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if group == nil {
			responses.WriteSuccess(w, pincodeResponse{Pincode: pincode, Serviceable: false})
			return
		}

		resp := newGroupResponse(group)
		responses.WriteSuccess(w, pincodeResponse{
			Pincode:     pincode,
			Serviceable: true,
			Group:       &resp,
		})
	}
}

func LocationGroupList(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := svc.ListGroups(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]groupResponse, 0, len(groups))
		for i := range groups {
			out = append(out, newGroupResponse(&groups[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func LocationGroupGet(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := parseUUIDParam(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		group, err := svc.GetGroup(r.Context(), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newGroupResponse(group))
	}
}

func LocationGroupCreate(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload groupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		group, err := svc.CreateGroup(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newGroupResponse(group))
	}
}

func LocationGroupUpdate(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := parseUUIDParam(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload groupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateGroup(r.Context(), groupID, payload.toInput()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func LocationGroupDelete(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := parseUUIDParam(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteGroup(r.Context(), groupID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func LocationCreate(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload locationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		location, err := svc.AddLocation(r.Context(), locations.LocationInput{
			Pincode:         payload.Pincode,
			City:            payload.City,
			State:           payload.State,
			Country:         payload.Country,
			LocationGroupID: payload.LocationGroupID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newLocationResponse(location))
	}
}

// LocationMove reassigns a pincode to another group, or detaches it when
// group_id is null.
func LocationMove(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := parseUUIDParam(r, "locationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload locationMoveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MoveLocation(r.Context(), locationID, payload.GroupID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func LocationDelete(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := parseUUIDParam(r, "locationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveLocation(r.Context(), locationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed "+key)
	}
	return id, nil
}

type groupRequest struct {
	Name              string `json:"name" validate:"required,max=120"`
	IsCODAvailable    bool   `json:"is_cod_available"`
	DeliveryDays      int    `json:"delivery_days" validate:"gte=0"`
	IsExpressDelivery bool   `json:"is_express_delivery"`
}

func (req groupRequest) toInput() locations.GroupInput {
	return locations.GroupInput{
		Name:              req.Name,
		IsCODAvailable:    req.IsCODAvailable,
		DeliveryDays:      req.DeliveryDays,
		IsExpressDelivery: req.IsExpressDelivery,
	}
}

type locationRequest struct {
	Pincode         string     `json:"pincode" validate:"required,len=6,numeric"`
	City            string     `json:"city" validate:"required,max=80"`
	State           string     `json:"state" validate:"required,max=80"`
	Country         string     `json:"country" validate:"max=80"`
	LocationGroupID *uuid.UUID `json:"location_group_id"`
}

type locationMoveRequest struct {
	GroupID *uuid.UUID `json:"group_id"`
}

type pincodeResponse struct {
	Pincode     string         `json:"pincode"`
	Serviceable bool           `json:"serviceable"`
	Group       *groupResponse `json:"group,omitempty"`
}

type groupResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	IsCODAvailable    bool      `json:"is_cod_available"`
	DeliveryDays      int       `json:"delivery_days"`
	IsExpressDelivery bool      `json:"is_express_delivery"`
}

func newGroupResponse(group *models.LocationGroup) groupResponse {
	if group == nil {
		return groupResponse{}
	}
	return groupResponse{
		ID:                group.ID,
		Name:              group.Name,
		IsCODAvailable:    group.IsCODAvailable,
		DeliveryDays:      group.DeliveryDays,
		IsExpressDelivery: group.IsExpressDelivery,
	}
}

type locationResponse struct {
	ID              uuid.UUID  `json:"id"`
	Pincode         string     `json:"pincode"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	Country         string     `json:"country"`
	LocationGroupID *uuid.UUID `json:"location_group_id,omitempty"`
}

func newLocationResponse(location *models.Location) locationResponse {
	if location == nil {
		return locationResponse{}
	}
	return locationResponse{
		ID:              location.ID,
		Pincode:         location.Pincode,
		City:            location.City,
		State:           location.State,
		Country:         location.Country,
		LocationGroupID: location.LocationGroupID,
	}
}
