package repository

import (
	"context"

	"sitecontent/internal/content/domain/model"
)

// AssetUploader stores files on the external asset host.
type AssetUploader interface {
	Upload(ctx context.Context, file model.StagedFile, opts model.UploadOptions) (*model.UploadResult, error)
}

// UploadSigner signs upload parameters for clients that upload directly.
type UploadSigner interface {
	Sign(opts model.UploadOptions) (*model.SignedParams, error)
}

// Mailer delivers product enquiries to the sales inbox.
type Mailer interface {
	SendEnquiry(ctx context.Context, enquiry model.Enquiry) (messageID string, err error)
}
