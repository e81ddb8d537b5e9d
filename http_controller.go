package accounts

import (
	"bytes"
	"encoding/json"
	"net/url"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// ControllerRoutes are the redirect targets of the browser facing flows
type ControllerRoutes struct {
	LoginPage      string
	ResetSentPage  string
	ResetEntryPage string
}

// DefaultControllerRoutes returns the default redirect targets
func DefaultControllerRoutes() ControllerRoutes {
	return ControllerRoutes{
		LoginPage:      "/login",
		ResetSentPage:  "/password-reset/sent",
		ResetEntryPage: "/password-reset/new",
	}
}

type AccountsController struct {
	Debug     bool
	Logger    Logger
	Routes    ControllerRoutes
	UseHashid bool

	accounts *Coordinator
	cookie   CookieConfig
}

type ControllerOption func(*AccountsController)

func WithControllerRoutes(routes ControllerRoutes) ControllerOption {
	return func(a *AccountsController) {
		defaults := DefaultControllerRoutes()
		if routes.LoginPage == "" {
			routes.LoginPage = defaults.LoginPage
		}
		if routes.ResetSentPage == "" {
			routes.ResetSentPage = defaults.ResetSentPage
		}
		if routes.ResetEntryPage == "" {
			routes.ResetEntryPage = defaults.ResetEntryPage
		}
		a.Routes = routes
	}
}

func WithControllerLogger(logger Logger) ControllerOption {
	return func(a *AccountsController) {
		if logger != nil {
			a.Logger = logger
		}
	}
}

// WithDebug dumps request payloads (never passwords) to the logger
func WithDebug(debug bool) ControllerOption {
	return func(a *AccountsController) {
		a.Debug = debug
	}
}

func WithHashidSignup(enabled bool) ControllerOption {
	return func(a *AccountsController) {
		a.UseHashid = enabled
	}
}

func NewAccountsController(accounts *Coordinator, cfg Config, opts ...ControllerOption) *AccountsController {
	a := &AccountsController{
		Logger:   accounts.Logger(),
		Routes:   DefaultControllerRoutes(),
		accounts: accounts,
		cookie:   NewCookieConfig(cfg, accounts.Encoder().TTL()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Cookie returns the session cookie attributes
func (a *AccountsController) Cookie() CookieConfig {
	return a.cookie
}

// RegisterRoutes mounts every account route on r.
func (a *AccountsController) RegisterRoutes(r fiber.Router) {
	session := SessionMiddleware(a.accounts.Encoder(), a.cookie, a.Logger)

	r.Post("/signup", a.Signup)
	r.Post("/login", a.Login)
	r.Post("/logout", a.Logout)
	r.Get("/verify/:token", a.VerifyAccount)

	r.Post("/password-reset", a.PasswordResetRequest)
	r.Get("/password-reset/:token", a.PasswordResetVerify)
	r.Post("/password-reset/:token", a.PasswordResetFinalize)

	users := r.Group("/users", session)
	users.Get("/me", a.Me)
	users.Get("/", RequireAdmin(a.Logger), a.ListUsers)
	users.Patch("/:id", a.UpdateUser)
	users.Delete("/:id", a.DeleteUser)
}

func (a *AccountsController) Signup(c *fiber.Ctx) error {
	msg := RegisterUserMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return a.fail(c, badPayload(err))
	}
	msg.UseHashid = a.UseHashid

	if a.Debug {
		a.Logger.Debug("signup payload", "payload", print.MaybePrettyJSON(map[string]any{
			"username": msg.Username,
			"email":    msg.Email,
			"name":     msg.Name,
		}))
	}

	if _, err := a.accounts.Register.Execute(c.UserContext(), msg); err != nil {
		return a.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *AccountsController) Login(c *fiber.Ctx) error {
	msg := LoginMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return a.fail(c, badPayload(err))
	}

	res, err := a.accounts.Auth.Login(c.UserContext(), msg)
	if err != nil {
		return a.fail(c, err)
	}

	SetSessionCookie(c, a.cookie, res.Credential, a.accounts.Clock()())
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *AccountsController) Logout(c *fiber.Ctx) error {
	if claims, err := a.accounts.Encoder().Decode(c.Cookies(a.cookie.Name)); err == nil {
		a.accounts.Auth.Logout(c.UserContext(), claims)
	}
	ClearSessionCookie(c, a.cookie, a.accounts.Clock()())
	return c.SendStatus(fiber.StatusNoContent)
}

// VerifyAccount redirects to the login page whether or not the token
// existed.
func (a *AccountsController) VerifyAccount(c *fiber.Ctx) error {
	_, err := a.accounts.VerifyAccount.Execute(c.UserContext(), VerifyAccountMessage{
		Token: c.Params("token"),
	})
	if err != nil {
		return a.fail(c, err)
	}
	return c.Redirect(a.Routes.LoginPage, fiber.StatusFound)
}

// PasswordResetRequest answers known and unknown emails identically.
func (a *AccountsController) PasswordResetRequest(c *fiber.Ctx) error {
	msg := RequestPasswordResetMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return a.fail(c, badPayload(err))
	}

	if err := a.accounts.RequestPasswordReset.Execute(c.UserContext(), msg); err != nil {
		return a.fail(c, err)
	}
	return c.Redirect(a.Routes.ResetSentPage, fiber.StatusFound)
}

func (a *AccountsController) PasswordResetVerify(c *fiber.Ctx) error {
	token, err := a.accounts.VerifyPasswordReset.Execute(c.UserContext(), VerifyPasswordResetMessage{
		Token: c.Params("token"),
	})
	if err != nil {
		return a.fail(c, err)
	}

	target := a.Routes.ResetEntryPage + "?" + url.Values{"token": {token.Token}}.Encode()
	return c.Redirect(target, fiber.StatusFound)
}

func (a *AccountsController) PasswordResetFinalize(c *fiber.Ctx) error {
	msg := FinalizePasswordResetMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return a.fail(c, badPayload(err))
	}
	msg.Token = c.Params("token")

	res, err := a.accounts.FinalizePasswordReset.Execute(c.UserContext(), msg)
	if err != nil {
		return a.fail(c, err)
	}

	SetSessionCookie(c, a.cookie, res.Credential, a.accounts.Clock()())
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *AccountsController) Me(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c)
	if !ok {
		return a.fail(c, invalidCredential("missing"))
	}

	user, err := a.accounts.GetUser.Query(c.UserContext(), GetUserMessage{ID: claims.UserID()})
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(user)
}

func (a *AccountsController) ListUsers(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c)
	if !ok {
		return a.fail(c, invalidCredential("missing"))
	}

	users, err := a.accounts.ListUsers.Query(c.UserContext(), ListUsersMessage{Claims: claims})
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(users)
}

// UpdateUser rejects unknown fields. It answers 200 with the user and a
// new cookie when the caller's credential changed, 204 otherwise.
func (a *AccountsController) UpdateUser(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c)
	if !ok {
		return a.fail(c, invalidCredential("missing"))
	}

	target, err := parseUserID(c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}

	patch := UserPatch{}
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		return a.fail(c, badPayload(err))
	}

	res, err := a.accounts.UpdateUser.Execute(c.UserContext(), UpdateUserMessage{
		Claims:   claims,
		TargetID: target,
		Patch:    patch,
	})
	if err != nil {
		return a.fail(c, err)
	}

	if res.Credential == "" {
		return c.SendStatus(fiber.StatusNoContent)
	}

	SetSessionCookie(c, a.cookie, res.Credential, a.accounts.Clock()())
	return c.Status(fiber.StatusOK).JSON(res.User)
}

func (a *AccountsController) DeleteUser(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c)
	if !ok {
		return a.fail(c, invalidCredential("missing"))
	}

	target, err := parseUserID(c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}

	err = a.accounts.DeleteUser.Execute(c.UserContext(), DeleteUserMessage{
		Claims:   claims,
		TargetID: target,
	})
	if err != nil {
		return a.fail(c, err)
	}

	if target == claims.UserID() {
		ClearSessionCookie(c, a.cookie, a.accounts.Clock()())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *AccountsController) fail(c *fiber.Ctx, err error) error {
	return WriteError(c, a.Logger, err)
}

func badPayload(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed request body").
		WithCode(goerrors.CodeBadRequest)
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerrors.New("invalid user id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"id": raw})
	}
	return id, nil
}
