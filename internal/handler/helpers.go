package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"retailpos/internal/apierror"
	"retailpos/internal/middleware"
	"retailpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Lets min=0, gt=0 and friends run on decimal.Decimal fields.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// bindAndValidate binds the JSON body and runs validator tags. It writes the
// error response and returns false on failure.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:]] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// pathID parses a uuid path parameter.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// identity returns the tenant and the acting user from the verified token.
func identity(c *gin.Context) (businessID, actorID uuid.UUID) {
	claims := middleware.GetClaims(c)
	return claims.Business(), claims.Actor()
}

// writeError maps core errors to HTTP statuses. Unknown errors become a
// generic 500 and are logged with the request id.
func writeError(c *gin.Context, err error) {
	var (
		verr  *service.ValidationError
		limit *service.CreditLimitError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{verr.Field: verr.Reason}))
	case errors.As(err, &limit):
		c.JSON(http.StatusConflict, apierror.CreditLimitError{
			Detail:              err.Error(),
			CreditLimitExceeded: true,
			CreditLimit:         limit.Limit.StringFixed(2),
			CurrentDebt:         limit.CurrentDebt.StringFixed(2),
			WouldBeDebt:         limit.WouldBeDebt.StringFixed(2),
			Excess:              limit.Excess.StringFixed(2),
		})
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrNoItemsSelected),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInsufficientLoyaltyPoints):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrIllegalStateTransition):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrCreditCustomerRequired),
		errors.Is(err, service.ErrPaymentExceedsDebt):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	default:
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}
