package docpath

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sitecontent/internal/shared/errors"
)

func TestParseDocumentPath_Valid(t *testing.T) {
	loc, err := ParseDocumentPath("/content/site/")
	require.NoError(t, err)
	assert.Equal(t, "content/site", loc.Path)
	assert.Equal(t, "content", loc.Collection)
	assert.Equal(t, "site", loc.DocumentID)
	assert.Equal(t, "", loc.ParentPath)
	assert.Equal(t, []string{"content", "site"}, loc.Segments)

	nested, err := ParseDocumentPath("tenants/acme/content/site")
	require.NoError(t, err)
	assert.Equal(t, "tenants/acme", nested.ParentPath)
	assert.Equal(t, "content", nested.Collection)
}

func TestParseDocumentPath_Invalid(t *testing.T) {
	for _, p := range []string{"", "content", "content/site/pages", "content/si te"} {
		_, err := ParseDocumentPath(p)
		require.Error(t, err, p)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidPath), p)
		assert.True(t, apperrors.IsValidation(err), p)
	}
}

func TestIsValidID(t *testing.T) {
	assert.True(t, IsValidID("abc-123_X"))
	assert.False(t, IsValidID(""))
	assert.False(t, IsValidID("a@b"))
}

func TestIsDocumentPath(t *testing.T) {
	assert.True(t, IsDocumentPath("content/site"))
	assert.False(t, IsDocumentPath("content"))
	assert.False(t, IsDocumentPath(""))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "content:site", Key("/content/site", ":"))
	assert.Equal(t, "content_site", Key("content/site", "_"))
}

func TestParseFieldPath(t *testing.T) {
	p, err := ParseFieldPath("productCategories.0.products.12.images.3")
	require.NoError(t, err)
	require.Len(t, p, 6)
	assert.Equal(t, "productCategories", p[0].Key)
	assert.True(t, p[1].IsIndex())
	assert.Equal(t, 12, p[3].Index)
	assert.Equal(t, 3, p.Last().Index)
	assert.Equal(t, "productCategories.0.products.12.images", p.Parent().String())
	assert.Equal(t, "productCategories.0.products.12.images.3", p.String())
}

func TestParseFieldPath_Invalid(t *testing.T) {
	for _, p := range []string{"", "  ", "a..b", "0.a", "a.", "a.1000"} {
		_, err := ParseFieldPath(p)
		require.Error(t, err, p)
		assert.ErrorIs(t, err, apperrors.ErrInvalidPath, p)
	}
}
