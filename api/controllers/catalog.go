package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rahulmehra/shopkart-backend/api/responses"
	"github.com/rahulmehra/shopkart-backend/api/validators"
	"github.com/rahulmehra/shopkart-backend/internal/catalog"
	"github.com/rahulmehra/shopkart-backend/pkg/db/models"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
)

// ProductGet serves a product by id or, when the path segment is not a
// uuid, by slug.
func ProductGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "productRef"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product reference required"))
			return
		}

		var (
			product *models.Product
			err     error
		)
		if id, parseErr := uuid.Parse(raw); parseErr == nil {
			product, err = svc.GetProduct(r.Context(), id)
		} else {
			product, err = svc.GetProductBySlug(r.Context(), raw)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

func ProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload catalog.ProductInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(product))
	}
}

func ProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload catalog.ProductInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateProduct(r.Context(), productID, payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func VariantCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload catalog.VariantInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variant, err := svc.CreateVariant(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newVariantResponse(variant))
	}
}

func VariantUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := parseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload catalog.VariantInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateVariant(r.Context(), variantID, payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func VariantDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := parseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteVariant(r.Context(), variantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func CategoryCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload catalog.CategoryInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCategoryResponse(category))
	}
}

// CategoryReparent moves a category under a new parent, or to the root when
// parent_id is null.
func CategoryReparent(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, err := parseUUIDParam(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload categoryReparentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ReparentCategory(r.Context(), categoryID, payload.ParentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func BrandCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload brandRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		brand, err := svc.CreateBrand(r.Context(), payload.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, brandResponse{
			ID:   brand.ID,
			Name: brand.Name,
			Slug: brand.Slug,
		})
	}
}

type categoryReparentRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

type brandRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type brandResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type categoryResponse struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

func newCategoryResponse(category *models.Category) categoryResponse {
	if category == nil {
		return categoryResponse{}
	}
	return categoryResponse{
		ID:       category.ID,
		Name:     category.Name,
		Slug:     category.Slug,
		ParentID: category.ParentID,
	}
}

type productResponse struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	Slug             string            `json:"slug"`
	Description      *string           `json:"description,omitempty"`
	BrandID          *uuid.UUID        `json:"brand_id,omitempty"`
	CategoryID       *uuid.UUID        `json:"category_id,omitempty"`
	Tags             []string          `json:"tags"`
	IsActive         bool              `json:"is_active"`
	PrimaryVariantID *uuid.UUID        `json:"primary_variant_id,omitempty"`
	Variants         []variantResponse `json:"variants"`
}

type variantResponse struct {
	ID    uuid.UUID `json:"id"`
	SKU   string    `json:"sku"`
	Size  *string   `json:"size,omitempty"`
	Color *string   `json:"color,omitempty"`
	Stock int       `json:"stock"`
}

func newProductResponse(product *models.Product) productResponse {
	if product == nil {
		return productResponse{}
	}
	variants := make([]variantResponse, 0, len(product.Variants))
	for i := range product.Variants {
		variants = append(variants, newVariantResponse(&product.Variants[i]))
	}
	resp := productResponse{
		ID:          product.ID,
		Title:       product.Title,
		Slug:        product.Slug,
		Description: product.Description,
		BrandID:     product.BrandID,
		CategoryID:  product.CategoryID,
		Tags:        []string(product.Tags),
		IsActive:    product.IsActive,
		Variants:    variants,
	}
	if primary := catalog.PrimaryVariant(product); primary != nil {
		resp.PrimaryVariantID = &primary.ID
	}
	return resp
}

func newVariantResponse(variant *models.Variant) variantResponse {
	if variant == nil {
		return variantResponse{}
	}
	return variantResponse{
		ID:    variant.ID,
		SKU:   variant.SKU,
		Size:  variant.Size,
		Color: variant.Color,
		Stock: variant.Stock,
	}
}
