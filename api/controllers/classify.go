package controllers

import (
	"net/http"

	"github.com/vatavaran/vatavaran-backend/api/responses"
	"github.com/vatavaran/vatavaran-backend/api/validators"
	"github.com/vatavaran/vatavaran-backend/internal/classification"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
)

// classifyBodyLimit admits a base64 encoded photo of roughly 7.5 MB.
const classifyBodyLimit int64 = 10 << 20

type classifyBody struct {
	Image string `json:"image" validate:"required"`
}

// ClassifyImage suggests a waste category for a base64 image.
func ClassifyImage(svc classification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "classifier unavailable"))
			return
		}

		var body classifyBody
		if err := validators.DecodeJSONBodyLimited(r, &body, classifyBodyLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suggestion, err := svc.Classify(r.Context(), body.Image)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestion)
	}
}
