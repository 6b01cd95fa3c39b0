package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"sitecontent/internal/content/adapter/upload"
	"sitecontent/internal/content/domain/model"
)

var (
	signFolder       string
	signPublicID     string
	signResourceType string
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Print signed upload parameters for the asset host",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		return printSigned(cmd.OutOrStdout(), upload.NewSigner(cfg.Cloudinary), model.UploadOptions{
			Folder:       signFolder,
			PublicID:     signPublicID,
			ResourceType: signResourceType,
		})
	},
}

func init() {
	signCmd.Flags().StringVar(&signFolder, "folder", "", "Upload folder (default: CLOUDINARY_FOLDER)")
	signCmd.Flags().StringVar(&signPublicID, "public-id", "", "Public ID to sign")
	signCmd.Flags().StringVar(&signResourceType, "resource-type", "", "Resource type to sign")
}

func printSigned(out io.Writer, signer *upload.Signer, opts model.UploadOptions) error {
	params, err := signer.Sign(opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(params)
}
