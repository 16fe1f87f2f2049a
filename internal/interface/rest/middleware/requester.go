package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
)

var tracer = otel.Tracer("middleware")

// IdentifyRequester lifts the caller identity the host ledger already verified
// from the request header into the request context. No signature checking happens here.
func IdentifyRequester(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Middleware.IdentifyRequester")
		defer span.End()

		requester := c.Request().Header.Get(domain.RequesterIdHeader)
		if requester != "" {
			ctx = context.WithValue(ctx, domain.RequesterIdCtxKey, adz.AccountID(requester))
			span.SetAttributes(attribute.String("RequesterId", requester))
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// Requester returns the caller stored by IdentifyRequester.
func Requester(ctx context.Context) (adz.AccountID, bool) {
	id, ok := ctx.Value(domain.RequesterIdCtxKey).(adz.AccountID)
	return id, ok && id != ""
}
