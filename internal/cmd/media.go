package cmd

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/ux"
	"github.com/felixgeelhaar/twcadmin/internal/validate"
)

var mediaCmd = requireCatalog(&cobra.Command{
	Use:   "media",
	Short: "Upload images and videos to the media library",
})

var mediaUploadVideo bool

var mediaUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file and print its media id",
	Long: `Upload a file to the WordPress media library.

JPEG, PNG and WebP images up to 5 MiB are accepted; with --video, MP4 files up
to 100 MiB as well. The type is detected from the file contents, so a renamed
file is still rejected. The printed id can be passed to --image-id or --image.

Examples:
  twcadmin media upload ./acme-logo.png
  twcadmin brands update 42 --image-id "$(twcadmin media upload -o json ./logo.webp | jq .id)"`,
	Args: cobra.ExactArgs(1),
	RunE: runMediaUpload,
}

func init() {
	mediaUploadCmd.Flags().BoolVar(&mediaUploadVideo, "video", false, "also accept MP4 video")

	mediaCmd.AddCommand(mediaUploadCmd)
	rootCmd.AddCommand(mediaCmd)
}

func readUpload(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return nil, errors.NewFileNotFoundError(path)
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "read "+path, err)
	}
	return content, nil
}

func runMediaUpload(cmd *cobra.Command, args []string) error {
	app := mustApp(cmd)
	path := args[0]

	content, err := readUpload(path)
	if err != nil {
		return err
	}
	kind := validate.Image
	if mediaUploadVideo {
		kind = validate.ImageOrVideo
	}
	name := filepath.Base(path)
	contentType, err := validate.Upload(name, content, kind)
	if err != nil {
		return err
	}

	app.Logger.DebugContext(cmd.Context(), "uploading media", "file", name, "type", contentType, "bytes", len(content))
	m, err := app.API.UploadMedia(cmd.Context(), name, contentType, content)
	if err != nil {
		return err
	}

	table := ux.Table{
		Head: []string{"ID", "TYPE", "SIZE", "URL"},
		Body: [][]string{{itoa(m.ID), orDash(m.MimeType), humanize.IBytes(uint64(len(content))), m.SourceURL}},
	}
	if app.textOutput() {
		fmt.Fprintf(app.Out, "Uploaded %s.\n", name)
	}
	return app.print(m, table)
}
