package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/studyd/internal/app"
	"github.com/sandeepkv93/studyd/internal/chat"
	"github.com/sandeepkv93/studyd/internal/commands"
	"github.com/sandeepkv93/studyd/internal/config"
	"github.com/sandeepkv93/studyd/internal/taskstore"
	"github.com/sandeepkv93/studyd/internal/update"
	"github.com/sandeepkv93/studyd/internal/views"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
	snapshotTimeout = 5 * time.Second
)

// Execute runs the CLI with the given arguments and IO writers and returns
// the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "studyd",
		Short:         "Study planner with time-based alerts and a Doubt Room",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runTUI(cmd.Context(), cfg)
		},
	}
	cmd.PersistentFlags().StringP("config", "c", "", "path to a YAML config file (default $STUDYD_CONFIG)")

	cmd.AddCommand(newServeCmd(stderr))
	cmd.AddCommand(newAskCmd(stdout, stderr))
	cmd.AddCommand(newTasksCmd(stdout, stderr))
	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func runTUI(ctx context.Context, cfg config.Config) error {
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}

	rt, err := app.Build(ctx, cfg, logOut)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Scheduler.Start()
	m := update.NewModel(ctx, rt.Store, rt.Chat, rt.Scheduler)
	defer m.Close()

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

func newServeCmd(stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the alert scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, stderr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides http.addr)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	rt, err := app.Build(ctx, cfg, logOut)
	if err != nil {
		return err
	}
	defer rt.Close()

	handler, err := rt.HTTPHandler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rt.Scheduler.Start()
	// Alerts are already shown and logged by the engine; keep the channel drained.
	go func() {
		for range rt.Scheduler.C() {
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		rt.Log.WithField("addr", cfg.HTTP.Addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	rt.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func newAskCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask the Doubt Room a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			rt, err := app.Build(cmd.Context(), cfg, stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			mode := chat.ModeChat
			if image, _ := cmd.Flags().GetBool("image"); image {
				mode = chat.ModeImage
			}
			reply, err := rt.Chat.Send(cmd.Context(), strings.Join(args, " "), mode)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdout, views.RenderMarkdown(reply.Text))
			if reply.Image != nil {
				_, _ = fmt.Fprintf(stdout, "image: %s\n", *reply.Image)
			}
			return nil
		},
	}
	cmd.Flags().Bool("image", false, "ask for a generated image")
	return cmd
}

func newTasksCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage planner tasks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tasks in start-time order",
		Args:  cobra.NoArgs,
		RunE: withStore(stderr, func(cmd *cobra.Command, _ []string, store taskstore.Store) error {
			tasks := store.List()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(tasks)
			}
			if len(tasks) == 0 {
				_, _ = fmt.Fprintln(stdout, "no tasks")
				return nil
			}
			for i, t := range tasks {
				check := " "
				if t.Completed {
					check = "x"
				}
				_, _ = fmt.Fprintf(stdout, "%2d. [%s] %s %s (%d min) %s\n", i+1, check, t.StartTime, t.Title, t.Duration, t.ID)
			}
			return nil
		}),
	})
	cmd.PersistentFlags().Bool("json", false, "print tasks as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <title...> <HH:MM> [minutes]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: withStore(stderr, func(cmd *cobra.Command, args []string, store taskstore.Store) error {
			parsed, err := commands.Parse("add " + strings.Join(args, " "))
			if err != nil {
				return err
			}
			ack, err := store.Create(cmd.Context(), parsed.Add.Draft)
			if err != nil {
				return err
			}
			return reportAck(stdout, "added", parsed.Add.Draft.Title, ack)
		}),
	})
	cmd.AddCommand(newTargetCmd(stdout, stderr, "toggle", "Toggle a task's completed flag",
		func(ctx context.Context, store taskstore.Store, id string) taskstore.Ack { return store.Toggle(ctx, id) }))
	cmd.AddCommand(newTargetCmd(stdout, stderr, "delete", "Delete a task",
		func(ctx context.Context, store taskstore.Store, id string) taskstore.Ack { return store.Delete(ctx, id) }))
	return cmd
}

func newTargetCmd(stdout, stderr io.Writer, name, short string, apply func(context.Context, taskstore.Store, string) taskstore.Ack) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id|number>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withStore(stderr, func(cmd *cobra.Command, args []string, store taskstore.Store) error {
			target := strings.TrimPrefix(args[0], "#")
			id, ok := commands.ResolveTarget(target, store.List())
			if !ok {
				return fmt.Errorf("no task matches %q", target)
			}
			return reportAck(stdout, name, id, apply(cmd.Context(), store, id))
		}),
	}
}

// withStore builds a runtime for one command. In remote mode it waits for
// the first snapshot so list and position targets see the shared state.
func withStore(logOut io.Writer, fn func(*cobra.Command, []string, taskstore.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		rt, err := app.Build(ctx, cfg, logOut)
		if err != nil {
			return err
		}
		defer rt.Close()

		if remote, ok := rt.Store.(*taskstore.RemoteStore); ok {
			if !waitForSnapshot(ctx, remote, snapshotTimeout) {
				rt.Log.Warn("no remote snapshot yet, using an empty list")
			}
		}
		return fn(cmd, args, rt.Store)
	}
}

func waitForSnapshot(ctx context.Context, store *taskstore.RemoteStore, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-store.Synced():
		return true
	case <-timer.C:
	case <-ctx.Done():
	}
	return false
}

func reportAck(out io.Writer, verb, subject string, ack taskstore.Ack) error {
	switch ack {
	case taskstore.AckApplied:
		_, _ = fmt.Fprintf(out, "%s: %s\n", verb, subject)
		return nil
	case taskstore.AckSubmitted:
		_, _ = fmt.Fprintf(out, "%s: %s (submitted to remote store)\n", verb, subject)
		return nil
	case taskstore.AckNoop:
		return fmt.Errorf("%s: no such task %s", verb, subject)
	default:
		return fmt.Errorf("%s %s: %s", verb, subject, ack)
	}
}
