package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

// UserShowAction prints the operator identity used for submissions.
func UserShowAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	u := app.Binder.User()
	fmt.Fprintf(app.Out, "%s (%s)\n", u.Name, u.ID)
	return nil
}

// UserSetAction stores a new operator identity: jobdeck user set ID [NAME...].
func UserSetAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return errors.New("usage: jobdeck user set ID [NAME]")
	}
	args := cmd.Args().Slice()
	u := domain.User{ID: args[0], Name: strings.Join(args[1:], " ")}
	if u.Name == "" {
		u.Name = u.ID
	}

	app, err := NewAppContext(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.State.SaveUser(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	app.Binder.SetUser(u)
	fmt.Fprintf(app.Out, "Now acting as %s (%s)\n", u.Name, u.ID)
	return nil
}
