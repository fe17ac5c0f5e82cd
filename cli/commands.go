// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/abri/models"
)

// loginFlags holds the flags for the login command
type loginFlags struct {
	token  string
	userID string
	role   string
}

func newLoginCommand(a *app) *cobra.Command {
	flags := &loginFlags{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the authentication token",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.session.Login(cmd.Context(), flags.token, flags.userID, flags.role); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged in")
			return nil
		}),
	}

	cmd.Flags().StringVar(&flags.token, "token", "", "Bearer token issued by the backend")
	cmd.Flags().StringVar(&flags.userID, "user-id", "", "User identifier")
	cmd.Flags().StringVar(&flags.role, "role", "", "User role (beneficiaire, hebergeur, professionnel, admin)")
	cmd.MarkFlagRequired("token")

	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credentials",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		}),
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			user, err := a.session.User(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, user, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "User ID:  %s\n", orDash(user.ID))
				fmt.Fprintf(cmd.OutOrStdout(), "Role:     %s\n", orDash(user.Role))
			})
		}),
	}
}

func newSubmitCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "submit <kind>",
		Short: "Submit a request from a form file",
		Long: `Submit a request read from a JSON, JSONC or YAML form file.

When the server cannot be reached the form is stored locally; use
"abri retry <kind>" to send it again.

Examples:
  abri submit housing-addition --file demande.yaml
  abri submit donation --file don.jsonc --json`,
		Args:      kindArg,
		ValidArgs: kindNames(),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			payload, err := readForm(a.fs, file)
			if err != nil {
				return err
			}
			state, err := a.wf.Submit(cmd.Context(), args[0], payload, a.session.Token(cmd.Context()))
			return a.report(cmd, state, err)
		}),
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Form file (.json, .jsonc, .yaml)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "status <kind>",
		Short:     "Show the current state of a request",
		Args:      kindArg,
		ValidArgs: kindNames(),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			state, err := a.wf.Reconcile(cmd.Context(), args[0], a.session.Token(cmd.Context()))
			return a.report(cmd, state, err)
		}),
	}
}

func newRetryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "retry <kind>",
		Short:     "Send a locally stored request again",
		Args:      kindArg,
		ValidArgs: kindNames(),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			state, err := a.wf.Retry(cmd.Context(), args[0], a.session.Token(cmd.Context()))
			return a.report(cmd, state, err)
		}),
	}
}

func newCancelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "cancel <kind>",
		Short:     "Cancel a submitted request",
		Args:      kindArg,
		ValidArgs: kindNames(),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			state, err := a.wf.Cancel(cmd.Context(), args[0], a.session.Token(cmd.Context()))
			return a.report(cmd, state, err)
		}),
	}
}

func newCompleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "complete <kind>",
		Short:     "Forget a request once its outcome has been handled",
		Args:      kindArg,
		ValidArgs: kindNames(),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.wf.Complete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.report(cmd, models.State{Kind: args[0], Phase: models.PhaseIdle}, nil)
		}),
	}
}

func newDiscardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "discard <kind>",
		Short:     "Drop a locally stored request without sending it",
		Args:      kindArg,
		ValidArgs: kindNames(),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if _, ok := a.wf.Pending(cmd.Context(), args[0]); !ok {
				return errors.New("no locally stored request")
			}
			if err := a.wf.Discard(cmd.Context(), args[0]); err != nil {
				return err
			}
			state, err := a.wf.Reconcile(cmd.Context(), args[0], a.session.Token(cmd.Context()))
			return a.report(cmd, state, err)
		}),
	}
}

// createFlags holds the flags for logement and donation creation
type createFlags struct {
	file   string
	images []string
}

func newLogementCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logement",
		Short: "Manage logements",
	}

	flags := &createFlags{}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a logement with its pictures",
		Long: `Upload the pictures, then create the logement with their URLs.

Requires a stored token (abri login). When the server cannot be reached the
logement is stored locally; "abri retry logement" sends it again.

Examples:
  abri logement create --file logement.yaml --image salon.jpg --image chambre.jpg`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			payload, err := readForm(a.fs, flags.file)
			if err != nil {
				return err
			}
			state, err := a.svc.CreateLogement(cmd.Context(), payload, flags.images, a.session.Token(cmd.Context()))
			return a.report(cmd, state, err)
		}),
	}
	create.Flags().StringVarP(&flags.file, "file", "f", "", "Form file (.json, .jsonc, .yaml)")
	create.Flags().StringArrayVarP(&flags.images, "image", "i", nil, "Picture to upload (repeatable)")
	create.MarkFlagRequired("file")

	cmd.AddCommand(create)
	return cmd
}

func newDonCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "don",
		Short: "Manage donations",
	}

	var file, image string
	create := &cobra.Command{
		Use:   "create",
		Short: "Offer a donation, with an optional photo",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			payload, err := readForm(a.fs, file)
			if err != nil {
				return err
			}
			state, err := a.svc.CreateDonation(cmd.Context(), payload, image, a.session.Token(cmd.Context()))
			return a.report(cmd, state, err)
		}),
	}
	create.Flags().StringVarP(&file, "file", "f", "", "Form file (.json, .jsonc, .yaml)")
	create.Flags().StringVarP(&image, "image", "i", "", "Photo to upload")
	create.MarkFlagRequired("file")

	list := &cobra.Command{
		Use:   "list",
		Short: "List donations",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			dons, err := a.svc.ListDonations(cmd.Context(), a.session.Token(cmd.Context()))
			if err != nil {
				return err
			}
			return a.print(cmd, dons, func() { printDonations(cmd.OutOrStdout(), dons) })
		}),
	}

	cmd.AddCommand(create, list)
	return cmd
}

// report prints state and passes err through. The state is printed even on
// failure: a locally stored request is still worth showing.
func (a *app) report(cmd *cobra.Command, state models.State, err error) error {
	if err != nil && state.Phase == models.PhaseIdle && state.Message == "" {
		return err
	}
	if perr := a.print(cmd, state, func() { printState(cmd.OutOrStdout(), state) }); perr != nil {
		return errors.Join(err, perr)
	}
	return err
}
