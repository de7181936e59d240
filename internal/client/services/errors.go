// Package services holds the client's use cases. They validate input,
// delegate to repositories and translate every failure into a
// *common.AppError carrying a stable code.
package services

import (
	"errors"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
	"github.com/dmitrijs2005/pocketlend/internal/client/transport"
	"github.com/dmitrijs2005/pocketlend/internal/common"
)

// toAppError classifies err. Nil stays nil and an existing AppError is
// passed through.
func toAppError(msg string, err error) error {
	if err == nil {
		return nil
	}

	var (
		app *common.AppError
		ve  *models.ValidationError
		ae  *transport.ApplicationError
	)
	switch {
	case errors.As(err, &app):
		return app
	case errors.As(err, &ve):
		return common.NewAppError(common.CodeValidation, ve.Error(), err)
	case errors.Is(err, common.ErrorValidation):
		return common.NewAppError(common.CodeValidation, msg, err)
	case errors.Is(err, common.ErrorNotFound):
		return common.NewAppError(common.CodeNotFound, msg, err)
	case errors.Is(err, common.ErrReplayInProgress),
		errors.Is(err, common.ErrNotFailed),
		errors.Is(err, common.ErrSyncRejected):
		return common.NewAppError(common.CodeReplay, msg, err)
	case transport.IsNetworkError(err):
		return common.NewAppError(common.CodeNetwork, msg, err)
	case errors.As(err, &ae):
		return common.NewAppError(common.CodeApplication, ae.Message(), err)
	default:
		return common.NewAppError(common.CodeInternal, msg, err)
	}
}
