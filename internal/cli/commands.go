package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/postboard/internal/app"
	"github.com/idilsaglam/postboard/internal/model"
	"github.com/idilsaglam/postboard/internal/store/jsonstore"
	"github.com/idilsaglam/postboard/internal/store/memstore"
	"github.com/idilsaglam/postboard/internal/tui"
	"github.com/idilsaglam/postboard/internal/ui"
)

func runTUI(s *session) error {
	return tui.Run(s.ctrl, tui.Options{Timeout: s.cfg.Timeout, Log: s.log})
}

func newTUICmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive board (default)",
		Args:  noArgs,
		RunE: func(*cobra.Command, []string) error {
			return runTUI(s)
		},
	}
}

func newListCmd(s *session) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List posts",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.ctrl.Refresh(cmd.Context()); err != nil {
				return err
			}
			st := s.ctrl.State()
			st.SetQuery(query)
			ui.Panel(listLines(st.Visible(), len(st.Posts()), query))
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "only show posts whose title contains this text")
	return cmd
}

// postFlags are the editable fields given on the command line.
type postFlags struct {
	title, image, body string
}

func (f *postFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "post title (required)")
	cmd.Flags().StringVar(&f.image, "image", "", "image URL (required)")
	cmd.Flags().StringVar(&f.body, "body", "", "post body (required)")
}

func (f postFlags) fields() model.Fields {
	return model.Fields{
		Title: strings.TrimSpace(f.title),
		Image: strings.TrimSpace(f.image),
		Body:  strings.TrimSpace(f.body),
	}
}

func newAddCmd(s *session) *cobra.Command {
	var pf postFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a post",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := s.ctrl.Create(cmd.Context(), pf.fields())
			if err := mutationError("add", err); err != nil {
				return err
			}
			ui.OK("created " + id)
			reportStale(err)
			return nil
		},
	}
	pf.bind(cmd)
	return cmd
}

func newEditCmd(s *session) *cobra.Command {
	var pf postFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Replace title, image and body of a post",
		Args:  exactArgs(1, "postboard edit ID --title T --image URL --body B"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			err := s.ctrl.Update(cmd.Context(), id, pf.fields())
			if err := mutationError("edit", err); err != nil {
				return err
			}
			ui.OK("updated " + id)
			reportStale(err)
			return nil
		},
	}
	pf.bind(cmd)
	return cmd
}

func newRemoveCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a post",
		Args:  exactArgs(1, "postboard rm ID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			err := s.ctrl.Delete(cmd.Context(), id)
			if err := mutationError("rm", err); err != nil {
				return err
			}
			ui.OK("deleted " + id)
			reportStale(err)
			return nil
		},
	}
}

func newExportCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write all posts to a JSON file (default " + jsonstore.DefaultFile + ")",
		Args:  maxArgs(1, "postboard export [FILE]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := jsonstore.DefaultFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := s.ctrl.Refresh(cmd.Context()); err != nil {
				return err
			}
			posts := s.ctrl.State().Posts()
			if err := jsonstore.Save(path, posts); err != nil {
				return errors.Wrap(err, "export")
			}
			ui.OK(fmt.Sprintf("exported %d posts to %s", len(posts), path))
			return nil
		},
	}
}

func newImportCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create every post of a JSON file in the store",
		Args:  exactArgs(1, "postboard import FILE"),
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := jsonstore.Load(args[0])
			if err != nil {
				return errors.Wrap(err, "import")
			}
			created, failed := 0, 0
			for i, p := range posts {
				f := p.Fields()
				if err := f.Validate(); err != nil {
					ui.Fail(fmt.Sprintf("entry %d: %v", i+1, err))
					failed++
					continue
				}
				if _, err := s.client.Create(cmd.Context(), f); err != nil {
					ui.Fail(fmt.Sprintf("entry %d (%s): %v", i+1, f.Title, err))
					failed++
					continue
				}
				created++
			}
			if created > 0 {
				if err := s.ctrl.Refresh(cmd.Context()); err != nil {
					reportStale(&app.RefreshError{Op: "import", Err: err})
				}
			}
			ui.OK(fmt.Sprintf("imported %d of %d posts", created, len(posts)))
			if failed > 0 {
				return errors.Errorf("import: %d posts failed", failed)
			}
			return nil
		},
	}
}

func newEmulateCmd(s *session) *cobra.Command {
	var addr, seed string
	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Serve an in-memory posts store for local use",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := memstore.New(s.cfg.Resource, s.log)
			if seed != "" {
				posts, err := jsonstore.Load(seed)
				if err != nil {
					return errors.Wrap(err, "seed")
				}
				seedStore(store, posts)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, store, s.log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9000", "listen address")
	cmd.Flags().StringVar(&seed, "seed", "", "JSON file with posts to start from")
	return cmd
}

// seedStore loads posts into the emulator, keeping their ids when present.
func seedStore(store *memstore.Store, posts []model.Post) {
	for _, p := range posts {
		doc, err := json.Marshal(p.Fields())
		if err != nil {
			continue
		}
		if p.ID != "" {
			store.Put(p.ID, doc)
		} else {
			store.Add(doc)
		}
	}
}

func serve(ctx context.Context, addr string, store *memstore.Store, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           store.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	ui.OK(fmt.Sprintf("emulating %d posts on %s (ctrl+c to stop)", store.Len(), addr))
	log.WithField("addr", addr).Info("emulator listening")

	select {
	case err := <-errc:
		return errors.Wrap(err, "emulate")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	ui.OK("emulator stopped")
	return nil
}

// mutationError turns a controller error into what the command returns. A
// failed refresh after an accepted change is not an error for the CLI.
func mutationError(op string, err error) error {
	var rerr *app.RefreshError
	switch {
	case err == nil, errors.As(err, &rerr):
		return nil
	case errors.Is(err, model.ErrMissingField):
		return usagef("%s: %v", op, err)
	}
	return err
}

func reportStale(err error) {
	var rerr *app.RefreshError
	if errors.As(err, &rerr) {
		ui.Hint("Hint: " + rerr.Error())
	}
}
