package auth

import (
	"context"
	"net/http"

	"github.com/avelhart/go-identity/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator bridges the session engine and the HTTP layer: it
// builds the protected-route middleware and owns the error to response
// mapping for JSON clients.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// sessionVerifier adapts the Authenticator to the middleware contract.
type sessionVerifier struct {
	auth Authenticator
}

func (v sessionVerifier) VerifyAccess(ctx context.Context, accessToken string) (jwtware.Session, error) {
	session, err := v.auth.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler: errorHandler,
		Verifier:     sessionVerifier{auth: a.auth},
		AuthScheme:   cfg.GetAuthScheme(),
		ContextKey:   cfg.GetContextKey(),
		TokenLookup:  cfg.GetTokenLookup(),
		ContextEnricher: func(c context.Context, session jwtware.Session) context.Context {
			if as, ok := session.(*AccessSession); ok {
				return WithSessionContext(c, as)
			}
			return c
		},
	})
}

// MakeAuthErrorHandler normalizes middleware failures into rich errors. With
// optional set, verification failures fall through to the handler chain and
// the route runs unauthenticated.
func (a *RouteAuthenticator) MakeAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return respondError(c, richErr)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return respondError(c, richErr)
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Message  string         `json:"message"`
	TextCode string         `json:"text_code,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// statusForError maps an error category to an HTTP status code. Unknown
// categories land on 500.
func statusForError(err *errors.Error) int {
	switch err.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryBadInput, errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryOperation:
		if err.TextCode == "SERVICE_UNAVAILABLE" {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the JSON envelope for a failed request. Internal
// errors keep their detail out of the response body.
func respondError(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := statusForError(richErr)

	body := ErrorBody{
		Message:  richErr.Message,
		TextCode: richErr.TextCode,
	}

	if status >= http.StatusInternalServerError {
		body.Message = "An unexpected server error occurred"
		body.Fields = nil
	}

	return c.JSON(status, ErrorResponse{Error: body})
}

// respondValidationError flattens ozzo validation errors into the fields map
// so clients can attach messages to inputs.
func respondValidationError(c router.Context, err error) error {
	fields := FormatValidationErrorToMap(err)

	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorBody{
			Message:  "Validation failed",
			TextCode: "VALIDATION",
			Fields:   fields,
		},
	})
}
