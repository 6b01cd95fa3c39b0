package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sitecontent/internal/content/document"
	"sitecontent/internal/content/domain/model"
	"sitecontent/internal/shared/docpath"
	"sitecontent/internal/shared/errors"
)

// EditSession is one admin's draft of the content document. The draft is an
// owned copy; nothing reaches the store until Commit.
type EditSession struct {
	id     string
	editor *Editor

	mu         sync.Mutex
	status     model.EditStatus
	detail     string
	base       model.Document
	draft      model.Document
	staged     []*model.StagedUpload
	progress   model.UploadProgress
	failedSlot string
	saving     bool
}

func (s *EditSession) ID() string { return s.id }

func (s *EditSession) rebase(doc model.Document) {
	s.base = document.Clone(doc)
	s.draft = document.Clone(doc)
	s.staged = nil
	s.progress = model.UploadProgress{}
	s.failedSlot = ""
}

// beginEditLocked moves the session into Draft, rejecting edits while a
// commit is running.
func (s *EditSession) beginEditLocked() error {
	if s.saving {
		return errors.NewConflictError("commit already in progress").WithCause(errors.ErrCommitInProgress)
	}
	s.status = model.EditDraft
	s.detail = ""
	return nil
}

// FieldEdit is one value to set at a dotted content path.
type FieldEdit struct {
	Path  string
	Value interface{}
}

// StageEdit sets the value at a dotted content path in the draft. Editing a
// slot that has a staged file drops the staged file.
func (s *EditSession) StageEdit(path string, value interface{}) error {
	return s.StageEdits([]FieldEdit{{Path: path, Value: value}})
}

// StageEdits applies edits in order as one step: if any path is invalid or
// does not fit the draft, the draft is left as it was.
func (s *EditSession) StageEdits(edits []FieldEdit) error {
	if len(edits) == 0 {
		return errors.NewValidationError("edits cannot be empty")
	}
	paths := make([]docpath.FieldPath, len(edits))
	for i, e := range edits {
		p, err := docpath.ParseFieldPath(e.Path)
		if err != nil {
			return err
		}
		paths[i] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving {
		return errors.NewConflictError("commit already in progress").WithCause(errors.ErrCommitInProgress)
	}
	next := document.Clone(s.draft)
	for i, p := range paths {
		if err := document.Set(next, p, edits[i].Value); err != nil {
			return err
		}
	}
	s.status = model.EditDraft
	s.detail = ""
	s.draft = next
	for _, p := range paths {
		s.removeStagedLocked(p.String())
	}
	return nil
}

// StageUpload records file for slot and puts a transient preview reference
// in the draft. The upload happens on Commit. Staging a slot again replaces
// the earlier file.
func (s *EditSession) StageUpload(slot string, file model.StagedFile) (string, error) {
	p, err := docpath.ParseFieldPath(slot)
	if err != nil {
		return "", err
	}
	if idx, ok := gallerySlotIndex(p); ok && idx >= s.editor.cfg.GallerySlots {
		return "", errors.NewValidationError("gallery slot out of range").
			WithCause(errors.ErrInvalidPath).
			WithDetail("slot", slot).
			WithDetail("slots", s.editor.cfg.GallerySlots)
	}
	if len(file.Data) == 0 {
		return "", errors.NewValidationError("staged file is empty").WithDetail("slot", slot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginEditLocked(); err != nil {
		return "", err
	}

	up := &model.StagedUpload{
		Slot:       p.String(),
		File:       file,
		PreviewRef: PreviewScheme + uuid.NewString(),
		StagedAt:   s.editor.now(),
	}
	if err := document.Set(s.draft, p, up.PreviewRef); err != nil {
		return "", err
	}
	s.removeStagedLocked(up.Slot)
	s.staged = append(s.staged, up)
	s.failedSlot = ""
	return up.PreviewRef, nil
}

// Unstage drops the staged file for slot and restores the slot's value from
// the document the session started from.
func (s *EditSession) Unstage(slot string) error {
	p, err := docpath.ParseFieldPath(slot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginEditLocked(); err != nil {
		return err
	}
	if !s.removeStagedLocked(p.String()) {
		return errors.NewNotFoundError("staged upload").WithCause(errors.ErrNothingStaged).WithDetail("slot", slot)
	}
	original, _ := document.Get(s.base, p)
	return document.Set(s.draft, p, original)
}

func (s *EditSession) removeStagedLocked(slot string) bool {
	for i, up := range s.staged {
		if up.Slot == slot {
			s.staged = append(s.staged[:i:i], s.staged[i+1:]...)
			return true
		}
	}
	return false
}

// NextFreeGallerySlot returns the first unused gallery slot of the product at
// productPath, counting staged files as used.
func (s *EditSession) NextFreeGallerySlot(productPath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := make(map[string]bool, len(s.staged))
	for _, up := range s.staged {
		taken[up.Slot] = true
	}
	return NextFreeGallerySlot(s.draft, productPath, s.editor.cfg.GallerySlots, taken)
}

// Reset discards the draft and staged files and starts again from the
// current content.
func (s *EditSession) Reset() error {
	doc := s.editor.startingDocument()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving {
		return errors.NewConflictError("commit already in progress").WithCause(errors.ErrCommitInProgress)
	}
	s.rebase(doc)
	s.status = model.EditIdle
	s.detail = ""
	return nil
}

// Commit uploads staged files, then writes the whole draft. On failure the
// draft and staged files are kept for a retry and the store is untouched.
func (s *EditSession) Commit(ctx context.Context) error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return errors.NewConflictError("commit already in progress").WithCause(errors.ErrCommitInProgress)
	}
	if s.status != model.EditDraft && s.status != model.EditError {
		s.mu.Unlock()
		return errors.NewValidationError("no changes to commit").WithCause(errors.ErrNothingStaged)
	}
	s.saving = true
	s.status = model.EditSaving
	s.detail = "saving"
	s.failedSlot = ""
	working := document.Clone(s.draft)
	staged := append([]*model.StagedUpload(nil), s.staged...)
	s.progress = model.UploadProgress{Total: len(staged)}
	s.mu.Unlock()

	started := time.Now()
	doc, err := s.editor.publish(ctx, s, working, staged)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		s.status = model.EditError
		s.detail = err.Error()
		if appErr, ok := errors.AsAppError(err); ok && appErr.Type == errors.ErrorTypeUpload {
			if slot, ok := appErr.Details["slot"].(string); ok {
				s.failedSlot = slot
			}
		}
		return err
	}

	progress := s.progress
	s.rebase(doc)
	s.progress = progress
	s.status = model.EditSuccess
	s.detail = "content saved"
	s.editor.log.Debug("commit finished", zap.String("session", s.id), zap.Duration("took", time.Since(started)))
	return nil
}

// View returns a copy of the session state.
func (s *EditSession) View() model.EditSessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := make([]model.StagedUpload, len(s.staged))
	for i, up := range s.staged {
		staged[i] = *up
	}
	return model.EditSessionView{
		ID:         s.id,
		Status:     s.status,
		Detail:     s.detail,
		Draft:      document.Clone(s.draft),
		Staged:     staged,
		Progress:   s.progress,
		FailedSlot: s.failedSlot,
	}
}

// Status returns the session status and detail message.
func (s *EditSession) Status() (model.EditStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.detail
}

// Draft returns a copy of the current draft.
func (s *EditSession) Draft() model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return document.Clone(s.draft)
}

func (s *EditSession) uploadDone() {
	s.mu.Lock()
	s.progress.Completed++
	s.mu.Unlock()
}

// previewRefs lists the transient preview references of staged files.
func (s *EditSession) previewRefs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]string, len(s.staged))
	for i, up := range s.staged {
		refs[i] = up.PreviewRef
	}
	return refs
}
