package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/model"
)

// withHolder runs fn against a state holder over the configured database.
func (a *app) withHolder(ctx context.Context, fn func(*inventory.StateHolder) error) error {
	b, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	h, err := inventory.NewStateHolder(ctx, inventory.NewRepository(b.store), inventory.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer h.Close()

	return fn(h)
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withHolder(ctx, func(h *inventory.StateHolder) error {
				select {
				case <-h.Ready():
				case <-ctx.Done():
					return ctx.Err()
				}
				if err := h.Err(); err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), h.Items())
			})
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <quantity>",
		Short: "Add an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("%w: item name is required", model.ErrInvalidArgument)
			}
			quantity, err := model.ParseQuantity(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return a.withHolder(ctx, func(h *inventory.StateHolder) error {
				if err := h.AddItem(name, quantity).Wait(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d).\n", name, quantity)
				return nil
			})
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove an item by ID",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("%w: invalid item id %q", model.ErrInvalidArgument, args[0])
			}

			ctx := cmd.Context()
			return a.withHolder(ctx, func(h *inventory.StateHolder) error {
				if err := h.DeleteItem(model.Item{ID: id}).Wait(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d.\n", id)
				return nil
			})
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the item list every time it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.withHolder(ctx, func(h *inventory.StateHolder) error {
				<-h.Ready()
				sub := h.Observe()
				defer sub.Close()

				out := cmd.OutOrStdout()
				for {
					select {
					case items, ok := <-sub.C():
						if !ok {
							return h.Err()
						}
						if err := printItems(out, items); err != nil {
							return err
						}
						fmt.Fprintln(out)
					case <-ctx.Done():
						return nil
					}
				}
			})
		},
	}
}

func printItems(w io.Writer, items []model.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No items available.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQUANTITY")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", item.ID, item.Name, item.Quantity)
	}
	return tw.Flush()
}
