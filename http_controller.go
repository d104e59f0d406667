package auth

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// Mailer is the email collaborator the controller notifies after a
// registration or a recovery request. Delivery failures are logged, never
// surfaced to the client.
type Mailer interface {
	SendActivationEmail(ctx context.Context, email, code string) error
	SendResetEmail(ctx context.Context, email, token string) error
}

// BlobStorage stores avatar blobs and returns a public URL for them.
type BlobStorage interface {
	Store(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.Register).
		SetName("auth.register.post")

	app.Get(fmt.Sprintf("%s/:code", controller.Routes.Activate), controller.Activate).
		SetName("auth.activate.get")

	app.Post(controller.Routes.Login, controller.Login).
		SetName("auth.login.post")

	app.Post(controller.Routes.Refresh, controller.RefreshSession).
		SetName("auth.refresh.post")

	app.Post(controller.Routes.PasswordReset, controller.PasswordResetInit).
		SetName("auth.pwd-reset.post")

	app.Post(fmt.Sprintf("%s/:token", controller.Routes.PasswordReset), controller.PasswordResetFinalize).
		SetName("auth.pwd-reset-do.post")

	protected := controller.Auth.ProtectedRoute(
		controller.cfg,
		controller.Auth.MakeAuthErrorHandler(false),
	)

	app.Post(controller.Routes.Logout, protected(controller.LogOut)).
		SetName("auth.logout.post")

	app.Get(controller.Routes.Me, protected(controller.ProfileShow)).
		SetName("me.get")
	app.Patch(controller.Routes.Me, protected(controller.ProfileUpdate)).
		SetName("me.patch")
	app.Patch(controller.Routes.MePassword, protected(controller.PasswordUpdate)).
		SetName("me.password.patch")

	app.Post(controller.Routes.MeAvatar, protected(controller.AvatarUpload)).
		SetName("me.avatar.post")
	app.Delete(controller.Routes.MeAvatar, protected(controller.AvatarDelete)).
		SetName("me.avatar.delete")
}

type AuthControllerRoutes struct {
	Register      string
	Activate      string
	Login         string
	Refresh       string
	Logout        string
	PasswordReset string
	Me            string
	MePassword    string
	MeAvatar      string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       Authenticator
	Auth         *RouteAuthenticator
	Profiles     *ProfileService
	Mail         Mailer
	Files        BlobStorage
	cfg          Config
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: respondError,
		Routes: &AuthControllerRoutes{
			Register:      "/auth/register",
			Activate:      "/auth/activate",
			Login:         "/auth/login",
			Refresh:       "/auth/refresh",
			Logout:        "/auth/logout",
			PasswordReset: "/auth/password-reset",
			Me:            "/me",
			MePassword:    "/me/password",
			MeAvatar:      "/me/avatar",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.cfg == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Auth == nil {
		auth, err := NewHTTPAuthenticator(c.Auther, c.cfg)
		if err != nil {
			panic("Failed to build HTTP authenticator: " + err.Error())
		}
		c.Auth = auth
	}

	if c.Profiles == nil {
		c.Profiles = NewProfileService(c.Repo).WithLogger(c.Logger)
	}

	return c
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.cfg = cfg
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerMailer(mail Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mail = mail
		return c
	}
}

func WithControllerStorage(files BlobStorage) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Files = files
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// RegistrationCreatePayload is the register request body
type RegistrationCreatePayload struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: ", "error", err)
		return respondBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: ", "error", err)
		return respondValidationError(ctx, err)
	}

	var res *RegisterUserResponse

	req := RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(resp *RegisterUserResponse) {
			res = resp
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ===")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("=========================")
	}

	a.deliverMail("activation", res.User.Email, func(c context.Context) error {
		return a.Mail.SendActivationEmail(c, res.User.Email, res.Salt)
	})

	return ctx.JSON(http.StatusCreated, map[string]any{
		"message": "Registration received, check your email for the activation code",
		"email":   res.User.Email,
	})
}

func (a *AuthController) Activate(ctx router.Context) error {
	code := ctx.Param("code")
	if code == "" {
		return a.ErrorHandler(ctx, ErrActivationNotFound)
	}

	var res *ActivateAccountResponse

	req := ActivateAccountMessage{
		Code: code,
		OnResponse: func(resp *ActivateAccountResponse) {
			res = resp
		},
	}

	activate := NewActivateAccountHandler(a.Repo)
	if err := activate.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("activate account error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Account activated",
		"email":   res.Email,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return respondBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return respondValidationError(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload.Email))
		fmt.Println("=========================")
	}

	result, err := a.Auther.Authenticate(ctx.Context(), payload.Email, payload.Password, payload.RememberMe)
	if err != nil {
		a.Logger.Error("login error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, result)
}

// RefreshRequest carries the one-time refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *AuthController) RefreshSession(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		return respondBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return respondValidationError(ctx, err)
	}

	pair, err := a.Auther.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		a.Logger.Error("refresh error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, pair)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	session, ok := SessionFromRouterContext(ctx, a.cfg.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrSessionRevoked)
	}

	payload := new(RefreshRequest)
	if err := ctx.Bind(payload); err != nil {
		return respondBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return respondValidationError(ctx, err)
	}

	if err := a.Auther.Logout(ctx.Context(), session.Salt, payload.RefreshToken); err != nil {
		a.Logger.Error("logout error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) PasswordResetInit(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: ", "error", err)
		return respondBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return respondValidationError(ctx, err)
	}

	var res *InitializePasswordResetResponse

	req := InitializePasswordResetMessage{
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo)
	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset init error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	a.deliverMail("reset", res.Email, func(c context.Context) error {
		return a.Mail.SendResetEmail(c, res.Email, res.Token)
	})

	return ctx.JSON(http.StatusAccepted, map[string]any{
		"message": "Recovery email sent",
		"email":   res.Email,
	})
}

// PasswordResetExecutePayload holds the new password for the final reset
// stage; the token travels in the URL.
type PasswordResetExecutePayload struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordResetExecutePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) PasswordResetFinalize(ctx router.Context) error {
	token := ctx.Param("token")
	if token == "" {
		return a.ErrorHandler(ctx, ErrResetNotFound)
	}

	payload := new(PasswordResetExecutePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset finalize parse payload: ", "error", err)
		return respondBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return respondValidationError(ctx, err)
	}

	req := FinalizePasswordResetMessage{
		Token:    token,
		Password: payload.Password,
	}

	finalize := NewFinalizePasswordResetHandler(a.Repo)
	if err := finalize.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset finalize error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Password updated, existing sessions signed out",
	})
}

func (a *AuthController) ProfileShow(ctx router.Context) error {
	userID, err := a.sessionUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	profile, err := a.Profiles.GetUser(ctx.Context(), userID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, profile)
}

// ProfileUpdatePayload is the PATCH body; empty fields are left untouched.
type ProfileUpdatePayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate will validate the payload
func (r ProfileUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
	)
}

func (a *AuthController) ProfileUpdate(ctx router.Context) error {
	userID, err := a.sessionUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(ProfileUpdatePayload)
	if err := ctx.Bind(payload); err != nil {
		return respondBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return respondValidationError(ctx, err)
	}

	profile, err := a.Profiles.UpdateUser(ctx.Context(), userID, ProfilePatch{
		Name:  payload.Name,
		Email: payload.Email,
	})
	if err != nil {
		a.Logger.Error("profile update error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, profile)
}

// PasswordUpdatePayload is the self-service password change body.
type PasswordUpdatePayload struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) PasswordUpdate(ctx router.Context) error {
	userID, err := a.sessionUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(PasswordUpdatePayload)
	if err := ctx.Bind(payload); err != nil {
		return respondBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return respondValidationError(ctx, err)
	}

	if err := a.Profiles.UpdatePassword(ctx.Context(), userID, payload.Password); err != nil {
		a.Logger.Error("password update error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// AvatarUpload accepts the raw image bytes in the request body with the
// Content-Type header naming the format.
func (a *AuthController) AvatarUpload(ctx router.Context) error {
	userID, err := a.sessionUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if a.Files == nil {
		return a.ErrorHandler(ctx, ErrStoreUnavailable)
	}

	contentType := ctx.Header("Content-Type")
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorBody{
				Message:  "Unsupported avatar content type",
				TextCode: "UNSUPPORTED_MEDIA",
			},
		})
	}

	body := ctx.Body()
	if len(body) == 0 {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorBody{
				Message:  "Empty avatar upload",
				TextCode: "EMPTY_BODY",
			},
		})
	}

	name := fmt.Sprintf("avatars/%s%s", userID, ext)

	url, err := a.Files.Store(ctx.Context(), name, contentType, bytes.NewReader(body))
	if err != nil {
		a.Logger.Error("avatar store error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	profile, previous, err := a.Profiles.UpdateAvatar(ctx.Context(), userID, url)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.cleanupBlob(previous, url)

	return ctx.JSON(http.StatusOK, profile)
}

func (a *AuthController) AvatarDelete(ctx router.Context) error {
	userID, err := a.sessionUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	profile, previous, err := a.Profiles.UpdateAvatar(ctx.Context(), userID, "")
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.cleanupBlob(previous, "")

	return ctx.JSON(http.StatusOK, profile)
}

func (a *AuthController) sessionUserID(ctx router.Context) (uuid.UUID, error) {
	session, ok := SessionFromRouterContext(ctx, a.cfg.GetContextKey())
	if !ok {
		return uuid.Nil, ErrSessionRevoked
	}

	userID, err := uuid.Parse(session.UserID)
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}

	return userID, nil
}

// deliverMail sends in the background; the request never waits on SMTP.
func (a *AuthController) deliverMail(kind, email string, send func(context.Context) error) {
	if a.Mail == nil {
		a.Logger.Info("No mailer configured, skipping delivery", "kind", kind, "email", email)
		return
	}

	go func() {
		if err := send(context.Background()); err != nil {
			a.Logger.Error("Mail delivery failed", "kind", kind, "email", email, "error", err)
		}
	}()
}

// cleanupBlob deletes the replaced avatar blob, ignoring failures beyond a
// log line. A leaked blob is preferable to a failed profile update.
func (a *AuthController) cleanupBlob(previous, current string) {
	if a.Files == nil || previous == "" || previous == current {
		return
	}

	go func() {
		if err := a.Files.Delete(context.Background(), previous); err != nil {
			a.Logger.Error("Avatar cleanup failed", "url", previous, "error", err)
		}
	}()
}

func respondBindError(c router.Context, err error) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorBody{
			Message:  "Failed to parse request body",
			TextCode: "BAD_BODY",
		},
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens an ozzo validation error into a field
// to message map suitable for a JSON response.
func FormatValidationErrorToMap(err error) map[string]any {
	out := map[string]any{}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}
