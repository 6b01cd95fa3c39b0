package usecase

import (
	"encoding/hex"
	"path"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"

	"sitecontent/internal/content/domain/model"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9_]+`)

// AssetPublicID names an uploaded file "<base>-<hash>" where hash is a short
// blake2b digest of the content. Identical files map to the same ID, and the
// shape matches the hashed variants the asset registry recognizes.
func AssetPublicID(file model.StagedFile) string {
	name := path.Base(strings.ReplaceAll(file.Name, "\\", "/"))
	base := strings.ToLower(strings.TrimSuffix(name, path.Ext(name)))
	base = strings.Trim(nonSlug.ReplaceAllString(base, "_"), "_")
	if base == "" || base == "." {
		base = "asset"
	}
	sum := blake2b.Sum256(file.Data)
	return base + "-" + hex.EncodeToString(sum[:6])
}
