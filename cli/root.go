// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/abri/apiclient"
	"github.com/danielhkuo/abri/auth"
	"github.com/danielhkuo/abri/cliparse"
	"github.com/danielhkuo/abri/kvstore"
	"github.com/danielhkuo/abri/logging"
	"github.com/danielhkuo/abri/middleware"
	"github.com/danielhkuo/abri/models"
	"github.com/danielhkuo/abri/uploads"
	"github.com/danielhkuo/abri/validate"
	"github.com/danielhkuo/abri/workflow"
)

// app holds what every command needs once configuration is resolved
type app struct {
	fs      afero.Fs
	cfg     cliparse.Config
	jsonOut bool

	store   kvstore.Store
	session *auth.Session
	wf      *workflow.Workflow
	svc     *uploads.Service
}

// NewRootCommand builds the abri command tree. Form and image files are
// read from fs.
func NewRootCommand(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}

	root := &cobra.Command{
		Use:   "abri",
		Short: "Submit and follow housing and donation requests",
		Long: `abri submits requests to the Abri backend and keeps a local copy of
any request the server could not take, so it can be retried later.

Examples:
  abri login --token "$TOKEN" --user-id 42 --role hebergeur
  abri submit housing-addition --file demande.yaml
  abri status housing-addition
  abri retry housing-addition
  abri logement create --file logement.json --image salon.jpg --image chambre.jpg`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	cliparse.BindFlags(root.PersistentFlags(), &a.cfg)
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output in JSON format")

	root.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newSubmitCommand(a),
		newStatusCommand(a),
		newRetryCommand(a),
		newCancelCommand(a),
		newCompleteCommand(a),
		newDiscardCommand(a),
		newLogementCommand(a),
		newDonCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := cliparse.Resolve(a.cfg)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if _, err := logging.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr()); err != nil {
		return err
	}

	client, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		Transport: middleware.NewLoggingTransport(nil),
	})
	if err != nil {
		return err
	}

	store, err := kvstore.Open(cmd.Context(), cfg.StoreType, cfg.StoreURL)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	a.store = store

	progress := cmd.ErrOrStderr()
	a.session = auth.NewSession(store)
	a.wf = workflow.New(store, client, workflow.WithObserver(workflow.ObserverFunc(func(kind string, phase models.Phase) {
		if phase == models.PhaseSubmitting {
			fmt.Fprintf(progress, "sending %s request...\n", kind)
		}
	})))
	a.svc = uploads.NewService(a.wf, uploads.NewUploader(a.fs, client))
	return nil
}

// run wraps a command body so the store is closed whatever the outcome
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if a.store != nil {
			if cerr := a.store.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close local store: %w", cerr)
			}
			a.store = nil
		}
		return err
	}
}

// kindArg checks the <kind> argument
func kindArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	for _, k := range workflow.DefaultKinds() {
		if k.Name == args[0] {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", workflow.ErrUnknownKind, args[0])
}

func kindNames() []string {
	var names []string
	for _, k := range workflow.DefaultKinds() {
		names = append(names, k.Name)
	}
	return names
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(afero.NewOsFs())
	if err := root.ExecuteContext(ctx); err != nil {
		PrintError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// PrintError writes err the way it is shown to the user: one line per
// invalid field, or the user-facing text of an API failure.
func PrintError(w io.Writer, err error) {
	var fieldErrs validate.Errors
	if errors.As(err, &fieldErrs) {
		fmt.Fprintln(w, "the form has errors:")
		for _, line := range sortedFieldErrors(fieldErrs) {
			fmt.Fprintln(w, "  "+line)
		}
		return
	}

	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		fmt.Fprintln(w, "error:", apiclient.UserMessage(err))
		return
	}
	fmt.Fprintln(w, "error:", err)
}
