package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitecontent/internal/content/defaults"
	"sitecontent/internal/content/document"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
)

const gingerPath = "productCategories.0.products.0"

type fakeUploader struct {
	mu        sync.Mutex
	fail      map[string]error
	gate      chan struct{}
	started   chan string
	calls     []model.UploadOptions
	active    int
	maxActive int
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{fail: map[string]error{}, started: make(chan string, 64)}
}

func (f *fakeUploader) Upload(ctx context.Context, file model.StagedFile, opts model.UploadOptions) (*model.UploadResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	gate, err := f.gate, f.fail[file.Name]
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	f.started <- file.Name
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &model.UploadResult{
		URL:          "https://res.cloudinary.com/demo/image/upload/" + opts.PublicID + ".jpg",
		PublicID:     opts.PublicID,
		ResourceType: "image",
		Format:       "jpg",
	}, nil
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func catalogDoc() model.Document {
	return model.Document{
		"companyInfo": map[string]interface{}{"name": "Global XT"},
		"productCategories": []interface{}{
			map[string]interface{}{
				"slug": "spices-and-herbs",
				"name": "Spices & Herbs",
				"products": []interface{}{
					map[string]interface{}{
						"slug":           "ginger",
						"name":           "Ginger",
						"summary":        "Split ginger",
						"image":          "ginger.jpg",
						"images":         []interface{}{"ginger.jpg"},
						"origins":        []interface{}{"Nigeria", " "},
						"specifications": []interface{}{"Moisture: <= 10%"},
						"packaging":      []interface{}{"25kg bags"},
					},
				},
			},
		},
	}
}

type editorFixture struct {
	store    *faultyStore
	client   *StoreClient
	uploader *fakeUploader
	editor   *Editor
}

func newEditorFixture(t *testing.T, rules *PublishRules) *editorFixture {
	t.Helper()
	store := newFaultyStore()
	require.NoError(t, store.Store.Set(context.Background(), testPath, catalogDoc()))

	client := NewStoreClient(store, testNormalizer(), nil, logger.NewNop(), StoreClientConfig{DocumentPath: testPath})
	require.NoError(t, client.Start(context.Background()))
	t.Cleanup(client.Close)
	waitVersion(t, client, 1)

	up := newFakeUploader()
	ed := NewEditor(store, up, client, rules, nil, logger.NewNop(), EditorConfig{
		DocumentPath: testPath,
		Concurrency:  3,
		GallerySlots: 10,
		UploadFolder: "global-xt-uploads",
	}, defaults.Document)
	return &editorFixture{store: store, client: client, uploader: up, editor: ed}
}

func file(name string) model.StagedFile {
	return model.StagedFile{Name: name, ContentType: "image/jpeg", Data: []byte("bytes of " + name)}
}

func stored(t *testing.T, f *editorFixture) model.Document {
	t.Helper()
	doc, err := f.store.Get(context.Background(), testPath)
	require.NoError(t, err)
	return doc
}

func TestEditor_CommitReplacesPreviewsWithUploadedURLs(t *testing.T) {
	f := newEditorFixture(t, nil)
	s := f.editor.Open()
	assert.Equal(t, model.EditIdle, s.View().Status)

	mainRef, err := s.StageUpload(gingerPath+".image", file("main.jpg"))
	require.NoError(t, err)
	g1, err := s.StageUpload(gingerPath+".images.1", file("gallery one.jpg"))
	require.NoError(t, err)
	g2, err := s.StageUpload(gingerPath+".images.2", file("gallery-two.JPG"))
	require.NoError(t, err)

	for _, ref := range []string{mainRef, g1, g2} {
		assert.True(t, strings.HasPrefix(ref, PreviewScheme))
	}
	assert.Equal(t, mainRef, document.GetString(s.Draft(), gingerPath+".image"))
	assert.Equal(t, model.EditDraft, s.View().Status)
	assert.ElementsMatch(t, []string{mainRef, g1, g2}, s.previewRefs())

	require.NoError(t, s.Commit(context.Background()))

	doc := stored(t, f)
	image := document.GetString(doc, gingerPath+".image")
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/"+AssetPublicID(file("main.jpg"))+".jpg", image)
	assert.True(t, strings.HasPrefix(document.GetString(doc, gingerPath+".images.1"), "https://res.cloudinary.com/demo/image/upload/gallery_one-"))
	assert.True(t, strings.HasPrefix(document.GetString(doc, gingerPath+".images.2"), "https://res.cloudinary.com/demo/image/upload/gallery_two-"))
	assert.Equal(t, "ginger.jpg", document.GetString(doc, gingerPath+".images.0"))
	assert.Empty(t, findPreviewRef(map[string]interface{}(doc)))

	view := s.View()
	assert.Equal(t, model.EditSuccess, view.Status)
	assert.Empty(t, view.Staged)
	assert.Empty(t, s.previewRefs())
	assert.Equal(t, model.UploadProgress{Completed: 3, Total: 3}, view.Progress)

	f.uploader.mu.Lock()
	for _, c := range f.uploader.calls {
		assert.Equal(t, "global-xt-uploads", c.Folder)
	}
	f.uploader.mu.Unlock()

	// optimistic local adoption
	assert.Equal(t, doc, f.client.Source())
	assert.Equal(t, image, f.client.Snapshot().Content.ProductCategories[0].Products[0].Image)
}

func TestEditor_WholeDocumentOverwrite(t *testing.T) {
	f := newEditorFixture(t, nil)
	require.NoError(t, f.store.Store.Set(context.Background(), testPath, func() model.Document {
		d := catalogDoc()
		d["legacy"] = map[string]interface{}{"banner": "old"}
		return d
	}()))
	waitVersion(t, f.client, 2)

	s := f.editor.Open()
	require.NoError(t, s.StageEdit("legacy", nil))
	require.NoError(t, s.StageEdit(gingerPath+".summary", "Fresh ginger"))
	require.NoError(t, s.Commit(context.Background()))

	doc := stored(t, f)
	assert.NotContains(t, doc, "legacy")
	if diff := cmp.Diff(s.Draft(), doc); diff != "" {
		t.Fatalf("stored document differs from committed draft (-draft +stored):\n%s", diff)
	}
	// blank list entries were cleaned
	assert.Equal(t, []interface{}{"Nigeria"}, doc["productCategories"].([]interface{})[0].(map[string]interface{})["products"].([]interface{})[0].(map[string]interface{})["origins"])
}

func TestEditor_UploadFailureKeepsDraft(t *testing.T) {
	f := newEditorFixture(t, nil)
	before := stored(t, f)
	s := f.editor.Open()

	require.NoError(t, s.StageEdit(gingerPath+".summary", "Edited summary"))
	_, err := s.StageUpload(gingerPath+".image", file("ok.jpg"))
	require.NoError(t, err)
	badRef, err := s.StageUpload(gingerPath+".images.1", file("bad.jpg"))
	require.NoError(t, err)
	f.uploader.fail["bad.jpg"] = fmt.Errorf("cloudinary: 500")

	err = s.Commit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsUpload(err))

	view := s.View()
	assert.Equal(t, model.EditError, view.Status)
	assert.Equal(t, gingerPath+".images.1", view.FailedSlot)
	assert.Contains(t, view.Detail, "upload for "+gingerPath+".images.1 failed")
	assert.Len(t, view.Staged, 2)
	assert.Equal(t, "Edited summary", document.GetString(view.Draft, gingerPath+".summary"))
	assert.Equal(t, badRef, document.GetString(view.Draft, gingerPath+".images.1"))
	assert.Equal(t, 0, f.store.calls())
	assert.Equal(t, before, stored(t, f))

	// the next edit returns the session to Draft and a retry succeeds
	require.NoError(t, s.StageEdit(gingerPath+".name", "Ginger root"))
	assert.Equal(t, model.EditDraft, s.View().Status)
	delete(f.uploader.fail, "bad.jpg")
	require.NoError(t, s.Commit(context.Background()))
	assert.Equal(t, "Edited summary", document.GetString(stored(t, f), gingerPath+".summary"))
}

func TestEditor_WriteWaitsForUploads(t *testing.T) {
	f := newEditorFixture(t, nil)
	f.uploader.gate = make(chan struct{})
	s := f.editor.Open()
	_, err := s.StageUpload(gingerPath+".image", file("slow.jpg"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Commit(context.Background()) }()

	select {
	case <-f.uploader.started:
	case <-time.After(2 * time.Second):
		t.Fatal("upload never started")
	}
	assert.Equal(t, 0, f.store.calls())
	assert.Equal(t, model.EditSaving, s.View().Status)

	err = s.Commit(context.Background())
	assert.ErrorIs(t, err, errors.ErrCommitInProgress)
	assert.ErrorIs(t, s.StageEdit(gingerPath+".name", "x"), errors.ErrCommitInProgress)

	close(f.uploader.gate)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("commit did not finish")
	}
	assert.Equal(t, 1, f.store.calls())
}

func TestEditor_BoundedUploadConcurrency(t *testing.T) {
	f := newEditorFixture(t, nil)
	f.uploader.gate = make(chan struct{})
	s := f.editor.Open()
	for i := 0; i < 7; i++ {
		_, err := s.StageUpload(fmt.Sprintf("%s.images.%d", gingerPath, i), file(fmt.Sprintf("g%d.jpg", i)))
		require.NoError(t, err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Commit(context.Background()) }()

	for i := 0; i < 3; i++ {
		select {
		case <-f.uploader.started:
		case <-time.After(2 * time.Second):
			t.Fatal("uploads did not start")
		}
	}
	select {
	case <-f.uploader.started:
		t.Fatal("more than three uploads in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.uploader.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 7, f.uploader.callCount())
	assert.LessOrEqual(t, f.uploader.maxActive, 3)

	images := stored(t, f)["productCategories"].([]interface{})[0].(map[string]interface{})["products"].([]interface{})[0].(map[string]interface{})["images"].([]interface{})
	assert.Len(t, images, 7)
}

func TestEditor_WriteFailureKeepsDraft(t *testing.T) {
	f := newEditorFixture(t, nil)
	f.store.setErr = errWriteRejected
	s := f.editor.Open()
	require.NoError(t, s.StageEdit(gingerPath+".summary", "Edited"))

	err := s.Commit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errWriteRejected)
	app, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeCommit, app.Type)

	status, detail := s.Status()
	assert.Equal(t, model.EditError, status)
	assert.Contains(t, detail, "write rejected")
	assert.Equal(t, "Edited", document.GetString(s.Draft(), gingerPath+".summary"))
	assert.Equal(t, "Split ginger", f.client.Snapshot().Content.ProductCategories[0].Products[0].Summary)

	f.store.mu.Lock()
	f.store.setErr = nil
	f.store.mu.Unlock()
	require.NoError(t, s.Commit(context.Background()))
}

func TestEditor_PublishRulesBlockWrite(t *testing.T) {
	rules, err := CompilePublishRules([]string{"size(doc.productCategories) > 0"})
	require.NoError(t, err)
	f := newEditorFixture(t, rules)
	s := f.editor.Open()

	require.NoError(t, s.StageEdit("productCategories", []interface{}{}))
	err = s.Commit(context.Background())
	assert.ErrorIs(t, err, errors.ErrPublishRuleViolation)
	assert.Equal(t, 0, f.store.calls())
	assert.Equal(t, model.EditError, s.View().Status)
}

func TestEditor_NothingToCommit(t *testing.T) {
	f := newEditorFixture(t, nil)
	s := f.editor.Open()
	assert.ErrorIs(t, s.Commit(context.Background()), errors.ErrNothingStaged)

	require.NoError(t, s.StageEdit("companyInfo.name", "X"))
	require.NoError(t, s.Commit(context.Background()))
	assert.ErrorIs(t, s.Commit(context.Background()), errors.ErrNothingStaged)
}

func TestEditor_StagingRules(t *testing.T) {
	f := newEditorFixture(t, nil)
	s := f.editor.Open()

	_, err := s.StageUpload(gingerPath+".images.10", file("x.jpg"))
	assert.ErrorIs(t, err, errors.ErrInvalidPath)
	_, err = s.StageUpload(gingerPath+".image", model.StagedFile{Name: "empty.jpg"})
	assert.True(t, errors.IsValidation(err))
	assert.ErrorIs(t, s.StageEdit("", "x"), errors.ErrInvalidPath)

	slot, err := s.NextFreeGallerySlot(gingerPath)
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	first, err := s.StageUpload(gingerPath+".images.1", file("a.jpg"))
	require.NoError(t, err)
	slot, err = s.NextFreeGallerySlot(gingerPath)
	require.NoError(t, err)
	assert.Equal(t, 2, slot)

	// restaging the same slot replaces the file
	second, err := s.StageUpload(gingerPath+".images.1", file("b.jpg"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Len(t, s.View().Staged, 1)
	assert.Equal(t, "b.jpg", s.View().Staged[0].File.Name)

	// a direct edit of a staged slot drops the staged file
	require.NoError(t, s.StageEdit(gingerPath+".images.1", "https://cdn.example.com/manual.jpg"))
	assert.Empty(t, s.View().Staged)

	_, err = s.NextFreeGallerySlot("productCategories.9.products.0")
	assert.True(t, errors.IsNotFound(err))
}

func TestEditor_StageEditsAllOrNothing(t *testing.T) {
	f := newEditorFixture(t, nil)
	s := f.editor.Open()
	_, err := s.StageUpload(gingerPath+".image", file("main.jpg"))
	require.NoError(t, err)
	before := s.View()

	err = s.StageEdits([]FieldEdit{
		{Path: "companyInfo.name", Value: "Half applied"},
		{Path: gingerPath + ".image", Value: "https://cdn.example.com/manual.jpg"},
		{Path: "companyInfo.name.first", Value: "x"},
	})
	assert.ErrorIs(t, err, errors.ErrInvalidPath)

	after := s.View()
	assert.Equal(t, "Global XT", document.GetString(after.Draft, "companyInfo.name"))
	assert.Len(t, after.Staged, 1)
	assert.Equal(t, before.Status, after.Status)

	assert.ErrorIs(t, s.StageEdits([]FieldEdit{{Path: "companyInfo.name", Value: "ok"}, {Path: "", Value: 1}}), errors.ErrInvalidPath)
	assert.Equal(t, "Global XT", document.GetString(s.Draft(), "companyInfo.name"))
	assert.True(t, errors.IsValidation(s.StageEdits(nil)))

	require.NoError(t, s.StageEdits([]FieldEdit{
		{Path: "companyInfo.name", Value: "Batch Co"},
		{Path: gingerPath + ".image", Value: "https://cdn.example.com/manual.jpg"},
	}))
	assert.Equal(t, "Batch Co", document.GetString(s.Draft(), "companyInfo.name"))
	assert.Empty(t, s.View().Staged)
	assert.Equal(t, model.EditDraft, s.View().Status)
}

func TestEditor_GalleryFull(t *testing.T) {
	f := newEditorFixture(t, nil)
	s := f.editor.Open()
	full := make([]interface{}, 10)
	for i := range full {
		full[i] = fmt.Sprintf("img%d.jpg", i)
	}
	require.NoError(t, s.StageEdit(gingerPath+".images", full))

	_, err := s.NextFreeGallerySlot(gingerPath)
	require.Error(t, err)
	app, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeConflict, app.Type)
}

func TestEditor_UnstageRestoresOriginal(t *testing.T) {
	f := newEditorFixture(t, nil)
	s := f.editor.Open()

	_, err := s.StageUpload(gingerPath+".image", file("new.jpg"))
	require.NoError(t, err)
	require.NoError(t, s.Unstage(gingerPath+".image"))
	assert.Equal(t, "ginger.jpg", document.GetString(s.Draft(), gingerPath+".image"))
	assert.Empty(t, s.View().Staged)

	assert.ErrorIs(t, s.Unstage(gingerPath+".image"), errors.ErrNothingStaged)
}

func TestEditor_DraftDoesNotAliasSnapshot(t *testing.T) {
	f := newEditorFixture(t, nil)
	s := f.editor.Open()
	require.NoError(t, s.StageEdit("companyInfo.name", "Draft name"))

	assert.Equal(t, "Global XT", f.client.Snapshot().Content.CompanyInfo.Name)
	assert.Equal(t, "Global XT", document.GetString(f.client.Source(), "companyInfo.name"))

	view := s.View()
	view.Draft["companyInfo"].(map[string]interface{})["name"] = "mutated view"
	assert.Equal(t, "Draft name", document.GetString(s.Draft(), "companyInfo.name"))
}

func TestEditor_ResetAndSessions(t *testing.T) {
	f := newEditorFixture(t, nil)
	s := f.editor.Open()
	require.NoError(t, s.StageEdit("companyInfo.name", "Draft"))
	_, err := s.StageUpload(gingerPath+".image", file("x.jpg"))
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	view := s.View()
	assert.Equal(t, model.EditIdle, view.Status)
	assert.Empty(t, view.Staged)
	assert.Equal(t, "Global XT", document.GetString(view.Draft, "companyInfo.name"))

	got, err := f.editor.Session(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, f.editor.SessionCount())

	require.NoError(t, f.editor.CloseSession(s.ID()))
	_, err = f.editor.Session(s.ID())
	assert.True(t, errors.IsNotFound(err))
	assert.ErrorIs(t, f.editor.CloseSession(s.ID()), errors.ErrSessionNotFound)
}

func TestEditor_OpenWithoutContentUsesFallback(t *testing.T) {
	client := NewStoreClient(nil, testNormalizer(), nil, logger.NewNop(), StoreClientConfig{DocumentPath: testPath})
	_ = client.Start(context.Background())
	defer client.Close()
	ed := NewEditor(nil, nil, client, nil, nil, logger.NewNop(), EditorConfig{DocumentPath: testPath}, defaults.Document)

	s := ed.Open()
	assert.Equal(t, "Global XT Limited", document.GetString(s.Draft(), "companyInfo.name"))

	require.NoError(t, s.StageEdit("companyInfo.name", "X"))
	err := s.Commit(context.Background())
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, model.EditError, s.View().Status)
}

func TestAssetPublicID(t *testing.T) {
	a := AssetPublicID(model.StagedFile{Name: "C:\\photos\\Ginger Root.JPG", Data: []byte("x")})
	b := AssetPublicID(model.StagedFile{Name: "ginger-root.png", Data: []byte("x")})
	c := AssetPublicID(model.StagedFile{Name: "ginger root.jpg", Data: []byte("y")})

	assert.True(t, strings.HasPrefix(a, "ginger_root-"))
	assert.Len(t, a, len("ginger_root-")+12)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(AssetPublicID(model.StagedFile{Name: ".jpg"}), "asset-"))
}
