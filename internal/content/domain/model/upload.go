package model

// UploadOptions are passed to the asset host with each upload.
type UploadOptions struct {
	Folder       string `json:"folder"`
	PublicID     string `json:"publicId,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
}

// UploadResult is returned by the asset host for a stored file.
type UploadResult struct {
	URL          string `json:"url"`
	PublicID     string `json:"publicId"`
	ResourceType string `json:"resourceType"`
	Format       string `json:"format"`
}

// SignedParams is the payload returned to privileged clients that upload directly.
type SignedParams struct {
	CloudName    string `json:"cloudName"`
	APIKey       string `json:"apiKey"`
	Timestamp    int64  `json:"timestamp"`
	Folder       string `json:"folder"`
	PublicID     string `json:"publicId,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
	Signature    string `json:"signature"`
}
