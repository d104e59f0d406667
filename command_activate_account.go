package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	Code       string `json:"code" doc:"Activation code from the registration email."`
	OnResponse func(resp *ActivateAccountResponse)
}

func (e ActivateAccountMessage) Type() string { return "user.activate" }

type ActivateAccountResponse struct {
	Email string `json:"email"`
}

type ActivateAccountHandler struct {
	repo RepositoryManager
}

func NewActivateAccountHandler(repo RepositoryManager) *ActivateAccountHandler {
	return &ActivateAccountHandler{repo: repo}
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	resp := &ActivateAccountResponse{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		salt, err := h.repo.Salts().GetBySaltTx(ctx, tx, event.Code)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrActivationNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up activation code")
		}

		user, err := h.repo.Users().GetByID(ctx, salt.UserID.String())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account for activation")
		}

		if user.IsActivated {
			return ErrAlreadyActivated
		}

		if _, err := h.repo.Users().MarkActivatedTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark account activated")
		}

		// The activation salt is single use; it must not linger and double
		// as a session salt.
		if _, err := h.repo.Salts().DeleteBySaltTx(ctx, tx, event.Code); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume activation salt")
		}

		resp.Email = user.Email
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
