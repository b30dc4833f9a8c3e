package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/fileshare-go/internal/dropbox"
)

// dropboxOptions are appended when building the Dropbox client. Tests use
// it to swap in an in-memory files client.
var dropboxOptions []dropbox.Option

func newDropboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dropbox",
		Short: "List, download, and upload Dropbox files (access token auth)",
	}

	cmd.AddCommand(newDropboxLsCmd())
	cmd.AddCommand(newDropboxGetCmd())
	cmd.AddCommand(newDropboxPutCmd())

	return cmd
}

func newDropboxLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [folder]",
		Short: "List a folder (root when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDropboxLs,
	}

	cmd.Flags().Bool("all", false, "follow continuation cursors and list every page")

	return cmd
}

func newDropboxGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <folder> <file> [local-path]",
		Short: "Download a file (to stdout when no local path is given)",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runDropboxGet,
	}
}

func newDropboxPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <folder> <file> [content]",
		Short: "Upload text content, or a local file with --from, replacing any existing file",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runDropboxPut,
	}

	cmd.Flags().String("from", "", "read content from this local file")

	return cmd
}

func dropboxClient(cc *CLIContext) (*dropbox.Client, error) {
	if err := cc.Cfg.RequireDropbox(); err != nil {
		return nil, err
	}

	opts := []dropbox.Option{
		dropbox.WithHTTPClient(defaultHTTPClient(cc.Cfg.Network)),
		dropbox.WithLimiter(cc.Limiter),
	}

	return dropbox.New(cc.Cfg.Dropbox.AccessToken, cc.Logger, append(opts, dropboxOptions...)...)
}

type dropboxJSONEntry struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	IsFolder   bool   `json:"is_folder"`
	Size       uint64 `json:"size"`
	ModifiedAt string `json:"modified_at,omitempty"`
	ID         string `json:"id"`
}

func runDropboxLs(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	folder := ""
	if len(args) > 0 {
		folder = args[0]
	}

	client, err := dropboxClient(cc)
	if err != nil {
		return err
	}

	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}

	var entries []dropbox.Entry

	if all {
		entries, err = listAllPages(cmd, client, folder)
	} else {
		entries, err = client.ListFolder(ctx, folder)
	}

	if err != nil {
		return fmt.Errorf("listing %q: %w", folder, err)
	}

	cc.Logger.Debug("dropbox ls", slog.String("folder", folder), slog.Int("entries", len(entries)))

	if cc.Flags.JSON {
		out := make([]dropboxJSONEntry, 0, len(entries))
		for i := range entries {
			e := &entries[i]

			je := dropboxJSONEntry{Name: e.Name, Path: e.PathDisplay, IsFolder: e.IsFolder, Size: e.Size, ID: e.ID}
			if !e.ServerModified.IsZero() {
				je.ModifiedAt = e.ServerModified.UTC().Format(time.RFC3339)
			}

			out = append(out, je)
		}

		return writeJSON(cc.Out, out)
	}

	printDropboxTable(cc, entries)

	return nil
}

func listAllPages(cmd *cobra.Command, client *dropbox.Client, folder string) ([]dropbox.Entry, error) {
	ctx := cmd.Context()

	page, err := client.ListFolderPage(ctx, folder)
	if err != nil {
		return nil, err
	}

	entries := page.Entries

	for page.HasMore {
		page, err = client.ListFolderContinue(ctx, page.Cursor)
		if err != nil {
			return nil, err
		}

		entries = append(entries, page.Entries...)
	}

	return entries, nil
}

func printDropboxTable(cc *CLIContext, entries []dropbox.Entry) {
	// Folders first, then alphabetical.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsFolder != entries[j].IsFolder {
			return entries[i].IsFolder
		}

		return entries[i].Name < entries[j].Name
	})

	rows := make([][]string, 0, len(entries))

	for i := range entries {
		e := &entries[i]
		if e.IsDeleted {
			continue
		}

		name, size, modified := e.Name, formatSize(int64(e.Size)), formatTime(e.ServerModified)
		if e.IsFolder {
			name += "/"
			size, modified = "-", "-"
		}

		rows = append(rows, []string{name, size, modified})
	}

	printTable(cc.Out, []string{"NAME", "SIZE", "MODIFIED"}, rows)
}

func runDropboxGet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	client, err := dropboxClient(cc)
	if err != nil {
		return err
	}

	data, err := client.Download(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	if len(args) < 3 {
		_, err = cc.Out.Write(data)
		return err
	}

	if err := os.WriteFile(args[2], data, 0o644); err != nil { //nolint:gosec // downloaded user file
		return fmt.Errorf("writing %s: %w", args[2], err)
	}

	cc.Statusf("Downloaded %s/%s to %s (%s)\n", args[0], args[1], args[2], formatSize(int64(len(data))))

	return nil
}

func runDropboxPut(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	from, err := cmd.Flags().GetString("from")
	if err != nil {
		return err
	}

	var content []byte

	switch {
	case from != "" && len(args) == 3:
		return errors.New("give either content or --from, not both")
	case from != "":
		content, err = os.ReadFile(from)
		if err != nil {
			return fmt.Errorf("reading %s: %w", from, err)
		}
	case len(args) == 3:
		content = []byte(args[2])
	default:
		return errors.New("missing content: pass it as an argument or use --from")
	}

	client, err := dropboxClient(cc)
	if err != nil {
		return err
	}

	entry, err := client.Upload(cmd.Context(), args[0], args[1], content)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return writeJSON(cc.Out, dropboxJSONEntry{
			Name: entry.Name, Path: entry.PathDisplay, Size: entry.Size, ID: entry.ID,
		})
	}

	cc.Statusf("Uploaded %s (%s)\n", entry.PathDisplay, formatSize(int64(entry.Size)))

	return nil
}
