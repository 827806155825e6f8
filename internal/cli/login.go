package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/vburojevic/rcw/internal/api"
	"github.com/vburojevic/rcw/internal/output"
)

// LoginCmd logs in and stores the console credential
type LoginCmd struct {
	Username string `short:"u" required:"" help:"Account name"`
	Password string `env:"RCW_PASSWORD" help:"Password (default: read one line from stdin)"`
}

// Run executes the login command
func (c *LoginCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	password := c.Password
	if password == "" {
		if isTerminal(globals.Stdin) {
			fmt.Fprint(globals.Stderr, "Password: ")
		}
		line, err := bufio.NewReader(globals.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return outputErrorCommon(globals, "LOGIN_FAILED", "no password given", "pass --password or set RCW_PASSWORD")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	res, err := api.NewClient(globals.Server, globals.Logger()).Login(ctx, c.Username, password)
	if errors.Is(err, api.ErrUnauthorized) {
		return outputErrorCommon(globals, "UNAUTHORIZED", err.Error(), "check the username and password")
	}
	if err != nil {
		return outputErrorCommon(globals, "LOGIN_FAILED", err.Error(), "check --server")
	}

	file, err := credentialFile(globals)
	if err != nil {
		return outputErrorCommon(globals, "CREDENTIAL_UNAVAILABLE", err.Error())
	}
	if err := file.Save(res.Token); err != nil {
		return outputErrorCommon(globals, "LOGIN_FAILED", fmt.Sprintf("credential not saved: %v", err))
	}

	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteInfo(fmt.Sprintf("logged in as %s", res.Username), file.Path())
	}
	fmt.Fprintf(globals.Stdout, "Logged in as %s (%s)\n", res.Username, res.Role)
	fmt.Fprintf(globals.Stdout, "Credential saved to %s\n", file.Path())
	return nil
}

// LogoutCmd removes the stored credential. An attached console watching the
// same file closes its session.
type LogoutCmd struct{}

// Run executes the logout command
func (c *LogoutCmd) Run(globals *Globals) error {
	file, err := credentialFile(globals)
	if err != nil {
		return outputErrorCommon(globals, "CREDENTIAL_UNAVAILABLE", err.Error())
	}
	if err := file.Clear(); err != nil {
		return outputErrorCommon(globals, "LOGOUT_FAILED", err.Error())
	}
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteInfo("credential removed", file.Path())
	}
	fmt.Fprintf(globals.Stdout, "Credential removed from %s\n", file.Path())
	return nil
}
