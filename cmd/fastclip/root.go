package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/fastclip/internal/adapter/driven/keyfile"
	"github.com/ericfisherdev/fastclip/internal/adapter/driving/rpc"
	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

const (
	defaultAddr    = "127.0.0.1:22766"
	previewLength  = 60
	connectTimeout = 5 * time.Second
)

// caller is the part of rpc.Client the commands use.
type caller interface {
	Call(ctx context.Context, method string, result any, params ...any) error
	Subscribe(ctx context.Context) ([]byte, error)
	Close() error
}

type dialFunc func(ctx context.Context, addr string) (caller, error)

func dialRPC(ctx context.Context, addr string) (caller, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := rpc.Dial(ctx, "ws://"+addr+"/rpc")
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newRootCmd wires the cobra root command.
func newRootCmd(dial dialFunc) *cobra.Command {
	var addr string

	root := &cobra.Command{
		Use:           "fastclip",
		Short:         "Query and watch the fastclip clipboard history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", envOr("FASTCLIP_LISTEN_ADDR", defaultAddr), "daemon address (host:port)")

	// withClient dials the daemon for the duration of one command.
	withClient := func(fn func(cmd *cobra.Command, args []string, c caller) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if _, _, err := net.SplitHostPort(addr); err != nil {
				return fmt.Errorf("invalid --addr %q: %w", addr, err)
			}
			c, err := dial(cmd.Context(), addr)
			if err != nil {
				return fmt.Errorf("connect to fastclipd: %w", err)
			}
			defer c.Close()
			return fn(cmd, args, c)
		}
	}

	root.AddCommand(
		newPingCommand(withClient),
		newListCommand(withClient),
		newGetCommand(withClient),
		newRemoveCommand(withClient),
		newAddCommand(withClient),
		newWatchCommand(withClient),
		newKeygenCommand(),
	)
	return root
}

type clientRunner func(fn func(cmd *cobra.Command, args []string, c caller) error) func(*cobra.Command, []string) error

func newPingCommand(withClient clientRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon is reachable",
		Args:  cobra.NoArgs,
		RunE: withClient(func(cmd *cobra.Command, _ []string, c caller) error {
			var reply string
			if err := c.Call(cmd.Context(), rpc.MethodPing, &reply); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		}),
	}
}

func newListCommand(withClient clientRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the history, most recent first",
		Args:  cobra.NoArgs,
		RunE: withClient(func(cmd *cobra.Command, _ []string, c caller) error {
			var raw string
			if err := c.Call(cmd.Context(), rpc.MethodGetEntries, &raw); err != nil {
				return err
			}
			var entries []model.Entry
			if err := json.Unmarshal([]byte(raw), &entries); err != nil {
				return fmt.Errorf("decode entries: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "History is empty.")
				return nil
			}
			for i, e := range entries {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", i, e.Kind, e.CapturedAt, preview(e))
			}
			return nil
		}),
	}
}

func newGetCommand(withClient clientRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "get <index>",
		Short: "Write the raw content of an entry to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(cmd *cobra.Command, args []string, c caller) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			var entry model.Entry
			if err := c.Call(cmd.Context(), rpc.MethodGetEntry, &entry, index); err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(entry.Content)
			return err
		}),
	}
}

func newRemoveCommand(withClient clientRunner) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <index>",
		Aliases: []string{"remove"},
		Short:   "Remove an entry from the history",
		Args:    cobra.ExactArgs(1),
		RunE: withClient(func(cmd *cobra.Command, args []string, c caller) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return c.Call(cmd.Context(), rpc.MethodRemoveEntry, nil, index)
		}),
	}
}

func newAddCommand(withClient clientRunner) *cobra.Command {
	var image bool

	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add an entry; reads stdin when no text is given",
		RunE: withClient(func(cmd *cobra.Command, args []string, c caller) error {
			var content []byte
			switch {
			case image && len(args) > 0:
				return errors.New("--image reads content from stdin only")
			case len(args) > 0:
				content = []byte(strings.Join(args, " "))
			default:
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				content = data
			}

			kind := model.EntryKindText
			if image {
				kind = model.EntryKindImage
			}
			return c.Call(cmd.Context(), rpc.MethodAddEntry, nil, rpc.AddEntryParams{Content: content, Kind: string(kind)})
		}),
	}
	cmd.Flags().BoolVar(&image, "image", false, "store stdin as an image entry")
	return cmd
}

func newWatchCommand(withClient clientRunner) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print each new clipboard change as it happens",
		Args:  cobra.NoArgs,
		RunE: withClient(func(cmd *cobra.Command, _ []string, c caller) error {
			out := cmd.OutOrStdout()
			// Subscriptions are one-shot, so re-subscribe after every message.
			for seen := 0; count <= 0 || seen < count; seen++ {
				content, err := c.Subscribe(cmd.Context())
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				if _, err := out.Write(content); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after n changes (0 watches forever)")
	return cmd
}

func newKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <path>",
		Short: "Create a new random history key file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := keyfile.Generate(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d-byte key to %s\n", model.KeySize, args[0])
			return nil
		},
	}
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return index, nil
}

// preview renders one line for list output. Images and binary text are
// summarised by size.
func preview(e model.Entry) string {
	if e.Kind == model.EntryKindImage || !utf8.Valid(e.Content) {
		return fmt.Sprintf("<%s, %d bytes>", strings.ToLower(string(e.Kind)), len(e.Content))
	}
	text := strings.Join(strings.Fields(string(e.Content)), " ")
	if utf8.RuneCountInString(text) > previewLength {
		runes := []rune(text)
		text = string(runes[:previewLength]) + "..."
	}
	return text
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
