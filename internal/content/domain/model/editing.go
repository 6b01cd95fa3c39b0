package model

import "time"

// EditStatus is the state of one admin edit session.
//
//	Idle -> Draft (first local edit) -> Saving (commit) -> Success -> Idle
//	                                                    -> Error   -> Draft
type EditStatus string

const (
	EditIdle    EditStatus = "Idle"
	EditDraft   EditStatus = "Draft"
	EditSaving  EditStatus = "Saving"
	EditSuccess EditStatus = "Success"
	EditError   EditStatus = "Error"
)

// StagedFile is a file selected for upload but not yet sent to the asset host.
type StagedFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// StagedUpload pairs a staged file with the content path it will fill and the
// transient preview reference shown until commit.
type StagedUpload struct {
	Slot       string     `json:"slot"`
	File       StagedFile `json:"file"`
	PreviewRef string     `json:"previewRef"`
	StagedAt   time.Time  `json:"stagedAt"`
}

// UploadProgress counts finished uploads during a commit.
type UploadProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// EditSessionView is what the admin surface shows for a session.
type EditSessionView struct {
	ID       string         `json:"id"`
	Status   EditStatus     `json:"status"`
	Detail   string         `json:"detail"`
	Draft    Document       `json:"draft"`
	Staged   []StagedUpload `json:"staged"`
	Progress UploadProgress `json:"progress"`
	// FailedSlot names the upload that aborted the last commit, if any.
	FailedSlot string `json:"failedSlot,omitempty"`
}
