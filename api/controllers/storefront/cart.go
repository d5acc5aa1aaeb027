package storefront

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cartwatch-backend/api/responses"
	"github.com/angelmondragon/cartwatch-backend/api/validators"
	"github.com/angelmondragon/cartwatch-backend/internal/cart"
	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
)

// CartReader looks up the current cart of a shopper.
type CartReader interface {
	FindCurrent(ctx context.Context, identity cart.Identity) (*models.CartRecord, error)
}

// CurrentCart returns the active cart for ?customer_id= or ?session_key=.
func CurrentCart(reader CartReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		customerID, err := validators.ParseQueryID(r, "customer_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		identity := cart.Identity{
			SessionKey: validators.SanitizeString(r.URL.Query().Get("session_key"), 255),
			CustomerID: customerID,
		}
		if !identity.Usable() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id or session_key is required"))
			return
		}
		ctx = logg.WithCartIdentity(ctx, identity.CustomerID, identity.SessionKey)

		record, err := reader.FindCurrent(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if record == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart"))
			return
		}
		responses.WriteSuccess(w, record)
	}
}
