package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/api"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// sessionAPI is the server surface the CLI needs; *api.Client satisfies it.
type sessionAPI interface {
	Register(ctx context.Context, username, email, password string) (*api.User, error)
	Login(ctx context.Context, email, password string) (*api.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*api.Tokens, error)
	Logout(ctx context.Context, accessToken, refreshToken string, all bool) error
	Profile(ctx context.Context, accessToken string) (*api.User, error)
}

var errNotLoggedIn = errors.New("not logged in")

// getSimpleText and getPassword are indirections swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

type App struct {
	config *config.Config
	api    sessionAPI
	reader *bufio.Reader
	out    io.Writer
	email  string
	tokens *api.Tokens
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		api:    api.New(c.ServerURL, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

func (a *App) isLoggedIn() bool {
	return a.tokens != nil
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return "(guest)"
	}
	return fmt.Sprintf("(%s)", a.email)
}

func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to sessionkeeper CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}

func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.api.Register(ctx, username, email, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (id %d)\n", u.UserName, u.ID)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	tokens, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	a.email = email
	a.tokens = tokens
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	tokens, err := a.api.Refresh(ctx, a.tokens.RefreshToken)
	if err != nil {
		return err
	}

	a.tokens = tokens
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

// Profile prints the current user. An expired access token is refreshed once
// and the call retried.
func (a *App) Profile(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	u, err := a.api.Profile(ctx, a.tokens.AccessToken)
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message == common.ErrTokenExpired.Error() {
		if err := a.Refresh(ctx); err != nil {
			return err
		}
		u, err = a.api.Profile(ctx, a.tokens.AccessToken)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "id: %d\nusername: %s\nemail: %s\n", u.ID, u.UserName, u.Email)
	return nil
}

func (a *App) Logout(ctx context.Context, all bool) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	if err := a.api.Logout(ctx, a.tokens.AccessToken, a.tokens.RefreshToken, all); err != nil {
		return err
	}

	a.tokens = nil
	a.email = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
