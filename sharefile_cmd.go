package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/fileshare-go/internal/sharefile"
)

// shareFileAuthOptions are appended when building the Authenticator. Tests
// use it to point the password grant at a local server.
var shareFileAuthOptions []sharefile.AuthOption

const defaultExpirationDays = 10

func newShareFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sharefile",
		Aliases: []string{"sf"},
		Short:   "Browse, transfer, and share ShareFile items (password grant auth)",
	}

	cmd.AddCommand(newShareFileRootCmd())
	cmd.AddCommand(newShareFileStatCmd())
	cmd.AddCommand(newShareFileMkdirCmd())
	cmd.AddCommand(newShareFilePutCmd())
	cmd.AddCommand(newShareFileGetCmd())
	cmd.AddCommand(newShareFileLinkCmd())
	cmd.AddCommand(newShareFileSendCmd())
	cmd.AddCommand(newShareFileDemoCmd())

	return cmd
}

func newShareFileRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Show the account's root folder and its children",
		Args:  cobra.NoArgs,
		RunE:  runShareFileRoot,
	}
}

func newShareFileStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <item-id>",
		Short: "Show an item's metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runShareFileStat,
	}
}

func newShareFileMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <parent-id> <name>",
		Short: "Create a folder, replacing a same-named folder",
		Args:  cobra.ExactArgs(2),
		RunE:  runShareFileMkdir,
	}

	cmd.Flags().String("description", "", "folder description")

	return cmd
}

func newShareFilePutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-path> <folder-id>",
		Short: "Upload a local file into a folder",
		Args:  cobra.ExactArgs(2),
		RunE:  runShareFilePut,
	}
}

func newShareFileGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <item-id> [dest-dir]",
		Short: "Download a file into a local directory (created if missing)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runShareFileGet,
	}
}

func newShareFileLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <item-id>",
		Short: "Create a share link for an item",
		Args:  cobra.ExactArgs(1),
		RunE:  runShareFileLink,
	}
}

func newShareFileSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <item-id> <email>",
		Short: "Email a share of an item with unlimited downloads",
		Args:  cobra.ExactArgs(2),
		RunE:  runShareFileSend,
	}

	cmd.Flags().String("subject", "", "email subject")
	cmd.Flags().Int("expiration-days", defaultExpirationDays, "days until the share expires")

	return cmd
}

// shareFileSession logs in with the configured credentials. The logger is
// passed explicitly so callers can attach per-run attributes.
func shareFileSession(ctx context.Context, cc *CLIContext, logger *slog.Logger) (*sharefile.Session, error) {
	if err := cc.Cfg.RequireShareFile(); err != nil {
		return nil, err
	}

	opts := []sharefile.AuthOption{
		sharefile.WithHTTPClient(defaultHTTPClient(cc.Cfg.Network)),
		sharefile.WithLimiter(cc.Limiter),
	}

	auth := sharefile.NewAuthenticator(cc.Cfg.ShareFile, cc.Cfg.Network, logger, append(opts, shareFileAuthOptions...)...)

	session, err := auth.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("signing in to ShareFile: %w", err)
	}

	return session, nil
}

// itemJSON is the JSON form of a ShareFile item.
type itemJSON struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	IsFolder    bool       `json:"is_folder"`
	Size        int64      `json:"size"`
	Description string     `json:"description,omitempty"`
	CreatedAt   string     `json:"created_at,omitempty"`
	ParentID    string     `json:"parent_id,omitempty"`
	Children    []itemJSON `json:"children,omitempty"`
}

func toItemJSON(item *sharefile.Item) itemJSON {
	out := itemJSON{
		ID:          item.ID,
		Name:        item.Name,
		IsFolder:    item.IsFolder,
		Size:        item.Size,
		Description: item.Description,
		ParentID:    item.ParentID,
	}

	if !item.CreationDate.IsZero() {
		out.CreatedAt = item.CreationDate.UTC().Format(time.RFC3339)
	}

	for i := range item.Children {
		out.Children = append(out.Children, toItemJSON(&item.Children[i]))
	}

	return out
}

func runShareFileRoot(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	session, err := shareFileSession(ctx, cc, cc.Logger)
	if err != nil {
		return err
	}

	root, err := session.LoadRootFolderAndChildren(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return writeJSON(cc.Out, toItemJSON(root))
	}

	fmt.Fprintf(cc.Out, "%s (%s)\n", root.Name, root.ID)
	printChildren(cc, root.Children)

	return nil
}

func printChildren(cc *CLIContext, children []sharefile.Item) {
	sorted := make([]sharefile.Item, len(children))
	copy(sorted, children)

	// Folders first, then alphabetical.
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].IsFolder != sorted[j].IsFolder {
			return sorted[i].IsFolder
		}

		return sorted[i].Name < sorted[j].Name
	})

	rows := make([][]string, 0, len(sorted))

	for i := range sorted {
		c := &sorted[i]

		name, size := c.Name, formatSize(c.Size)
		if c.IsFolder {
			name += "/"
			size = "-"
		}

		created := "-"
		if !c.CreationDate.IsZero() {
			created = formatTime(c.CreationDate)
		}

		rows = append(rows, []string{name, size, created, c.ID})
	}

	printTable(cc.Out, []string{"NAME", "SIZE", "CREATED", "ID"}, rows)
}

func runShareFileStat(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	session, err := shareFileSession(ctx, cc, cc.Logger)
	if err != nil {
		return err
	}

	item, err := session.GetItem(ctx, args[0])
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return writeJSON(cc.Out, toItemJSON(item))
	}

	kind := "file"
	if item.IsFolder {
		kind = "folder"
	}

	fmt.Fprintf(cc.Out, "Name:     %s\n", item.Name)
	fmt.Fprintf(cc.Out, "ID:       %s\n", item.ID)
	fmt.Fprintf(cc.Out, "Type:     %s\n", kind)

	if !item.IsFolder {
		fmt.Fprintf(cc.Out, "Size:     %s\n", formatSize(item.Size))
	}

	if !item.CreationDate.IsZero() {
		fmt.Fprintf(cc.Out, "Created:  %s\n", item.CreationDate.Format(time.RFC3339))
	}

	if item.ParentID != "" {
		fmt.Fprintf(cc.Out, "Parent:   %s\n", item.ParentID)
	}

	return nil
}

func runShareFileMkdir(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	description, err := cmd.Flags().GetString("description")
	if err != nil {
		return err
	}

	session, err := shareFileSession(ctx, cc, cc.Logger)
	if err != nil {
		return err
	}

	parent, err := session.GetItem(ctx, args[0])
	if err != nil {
		return err
	}

	folder, err := session.CreateFolder(ctx, parent, args[1], description)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return writeJSON(cc.Out, toItemJSON(folder))
	}

	cc.Statusf("Created folder %s (%s)\n", folder.Name, folder.ID)

	return nil
}

func runShareFilePut(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	session, err := shareFileSession(ctx, cc, cc.Logger)
	if err != nil {
		return err
	}

	dest, err := session.GetItem(ctx, args[1])
	if err != nil {
		return err
	}

	id, err := session.UploadFile(ctx, args[0], dest)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return writeJSON(cc.Out, map[string]string{"id": id})
	}

	cc.Statusf("Uploaded %s to %s (%s)\n", args[0], dest.Name, id)

	return nil
}

func runShareFileGet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	destDir := cc.Cfg.Transfers.DownloadDir
	if len(args) > 1 {
		destDir = args[1]
	}

	session, err := shareFileSession(ctx, cc, cc.Logger)
	if err != nil {
		return err
	}

	item, err := session.GetItem(ctx, args[0])
	if err != nil {
		return err
	}

	path, err := session.DownloadFile(ctx, item, destDir)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return writeJSON(cc.Out, map[string]string{"id": item.ID, "path": path})
	}

	cc.Statusf("Downloaded %s to %s\n", item.Name, path)

	return nil
}

func runShareFileLink(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	session, err := shareFileSession(ctx, cc, cc.Logger)
	if err != nil {
		return err
	}

	item, err := session.GetItem(ctx, args[0])
	if err != nil {
		return err
	}

	share, err := session.CreateShareLink(ctx, item)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return writeJSON(cc.Out, map[string]string{"id": share.ID, "uri": share.URI})
	}

	fmt.Fprintln(cc.Out, share.URI)

	return nil
}

func runShareFileSend(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	subject, err := cmd.Flags().GetString("subject")
	if err != nil {
		return err
	}

	days, err := cmd.Flags().GetInt("expiration-days")
	if err != nil {
		return err
	}

	session, err := shareFileSession(ctx, cc, cc.Logger)
	if err != nil {
		return err
	}

	item, err := session.GetItem(ctx, args[0])
	if err != nil {
		return err
	}

	if err := session.SendShareByEmail(ctx, item, args[1], subject, days); err != nil {
		return err
	}

	cc.Statusf("Sent %s to %s (expires in %d days)\n", item.Name, args[1], days)

	return nil
}
