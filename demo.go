package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/fileshare-go/internal/sharefile"
)

const (
	demoFolderName    = "Sample Folder"
	demoFileName      = "SampleFileUpload.txt"
	demoSampleContent = "hello"
	demoSubject       = "Test Share File Email"
)

type demoOptions struct {
	File           string
	Recipient      string
	Subject        string
	ExpirationDays int
	DownloadDir    string
}

// demoResult records what each demo step produced.
type demoResult struct {
	RootID       string `json:"root_id"`
	FolderID     string `json:"folder_id"`
	FileID       string `json:"file_id"`
	DownloadPath string `json:"download_path"`
	ShareURI     string `json:"share_uri"`
	Recipient    string `json:"recipient"`
}

func newShareFileDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the end-to-end ShareFile walkthrough",
		Long: `Sign in, create "Sample Folder" under the root folder, upload a file into it,
download it back, create a share link, and email a share to a recipient.

The sample file is created with placeholder content if it does not exist.`,
		Args: cobra.NoArgs,
		RunE: runShareFileDemo,
	}

	cmd.Flags().String("file", demoFileName, "local file to upload")
	cmd.Flags().String("recipient", "", "email address that receives the share")
	cmd.Flags().String("subject", demoSubject, "share email subject")
	cmd.Flags().Int("expiration-days", defaultExpirationDays, "days until the emailed share expires")

	if err := cmd.MarkFlagRequired("recipient"); err != nil {
		panic(err)
	}

	return cmd
}

func runShareFileDemo(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	opts := demoOptions{DownloadDir: cc.Cfg.Transfers.DownloadDir}

	var err error
	if opts.File, err = cmd.Flags().GetString("file"); err != nil {
		return err
	}

	if opts.Recipient, err = cmd.Flags().GetString("recipient"); err != nil {
		return err
	}

	if opts.Subject, err = cmd.Flags().GetString("subject"); err != nil {
		return err
	}

	if opts.ExpirationDays, err = cmd.Flags().GetInt("expiration-days"); err != nil {
		return err
	}

	logger := cc.Logger.With(slog.String("run_id", uuid.NewString()))

	if err := ensureSampleFile(opts.File, logger); err != nil {
		return err
	}

	out := cc.Out
	if cc.Flags.JSON {
		out = io.Discard
	}

	fmt.Fprintln(out, "Signing in to ShareFile...")

	session, err := shareFileSession(ctx, cc, logger)
	if err != nil {
		return err
	}

	res, err := runDemo(ctx, session, opts, out, logger)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return writeJSON(cc.Out, res)
	}

	return nil
}

// ensureSampleFile creates path with placeholder content when it is missing.
func ensureSampleFile(path string, logger *slog.Logger) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	logger.Info("creating sample file", slog.String("path", path))

	if err := os.WriteFile(path, []byte(demoSampleContent), 0o644); err != nil { //nolint:gosec // sample data
		return fmt.Errorf("creating sample file: %w", err)
	}

	return nil
}

// runDemo drives the walkthrough on an open session, printing one status
// line per step to out. It stops at the first failing step.
func runDemo(
	ctx context.Context, session *sharefile.Session, opts demoOptions, out io.Writer, logger *slog.Logger,
) (*demoResult, error) {
	res := &demoResult{Recipient: opts.Recipient}

	if p := session.Principal(); p != nil {
		fmt.Fprintf(out, "Signed in as %s\n", p.Email)
	}

	root, err := session.LoadRootFolderAndChildren(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading root folder: %w", err)
	}

	res.RootID = root.ID
	fmt.Fprintf(out, "Root folder: %s (%d items)\n", root.Name, len(root.Children))

	folder, err := session.CreateFolder(ctx, root, demoFolderName, demoFolderName)
	if err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	res.FolderID = folder.ID
	fmt.Fprintf(out, "Created folder: %s\n", folder.Name)

	fileID, err := session.UploadFile(ctx, opts.File, folder)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", opts.File, err)
	}

	res.FileID = fileID
	fmt.Fprintf(out, "Uploaded file: %s\n", fileID)

	file, err := session.GetItem(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("fetching uploaded file: %w", err)
	}

	path, err := session.DownloadFile(ctx, file, opts.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", file.Name, err)
	}

	res.DownloadPath = path
	fmt.Fprintf(out, "Downloaded file to: %s\n", path)

	share, err := session.CreateShareLink(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("creating share link: %w", err)
	}

	res.ShareURI = share.URI
	fmt.Fprintf(out, "Share link: %s\n", share.URI)

	if err := session.SendShareByEmail(ctx, file, opts.Recipient, opts.Subject, opts.ExpirationDays); err != nil {
		return nil, fmt.Errorf("sending share: %w", err)
	}

	fmt.Fprintf(out, "Sent share to %s\n", opts.Recipient)

	logger.Info("demo complete",
		slog.String("file_id", res.FileID),
		slog.String("folder_id", res.FolderID),
	)

	return res, nil
}
