package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlobStore is the upload surface of the blob service.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64, progress func(pct int)) (string, error)
}

// AttachmentStore patches the owning content document once its blob is
// durable.
type AttachmentStore interface {
	SetContentAttachment(ctx context.Context, id primitive.ObjectID, fileURL, fileType string) error
}

type TaskState string

const (
	TaskUploading TaskState = "uploading"
	TaskSuccess   TaskState = "success"
	TaskError     TaskState = "error"
	TaskCancelled TaskState = "cancelled"
)

// TaskStatus is a point-in-time snapshot of an upload task.
type TaskStatus struct {
	ID        string             `json:"id"`
	ContentID primitive.ObjectID `json:"contentId"`
	State     TaskState          `json:"state"`
	Progress  int                `json:"progress"`
	FileURL   string             `json:"fileUrl,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// UploadTask is the handle for one background attachment upload. The caller
// that started it (and anyone polling the registry) can read progress, wait
// on Done, or cancel explicitly. Owner is the author uid the task was started
// for; the poll and cancel endpoints check it.
type UploadTask struct {
	ID        string
	ContentID primitive.ObjectID
	Owner     string

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    TaskState
	progress int
	fileURL  string
	errMsg   string
}

// Done is closed once the task reaches a terminal state.
func (t *UploadTask) Done() <-chan struct{} { return t.done }

// Cancel stops the in-flight upload. The metadata document keeps whatever it
// already has; the attachment fields stay empty.
func (t *UploadTask) Cancel() { t.cancel() }

func (t *UploadTask) Snapshot() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskStatus{
		ID:        t.ID,
		ContentID: t.ContentID,
		State:     t.state,
		Progress:  t.progress,
		FileURL:   t.fileURL,
		Error:     t.errMsg,
	}
}

func (t *UploadTask) setProgress(pct int) {
	t.mu.Lock()
	if t.state == TaskUploading && pct > t.progress {
		t.progress = pct
	}
	t.mu.Unlock()
}

func (t *UploadTask) finish(state TaskState, fileURL, errMsg string) {
	t.mu.Lock()
	t.state = state
	t.fileURL = fileURL
	t.errMsg = errMsg
	if state == TaskSuccess {
		t.progress = 100
	}
	t.mu.Unlock()
	close(t.done)
}

// defaultRetainFinished keeps terminal tasks pollable long enough for a
// client to read the outcome before the registry drops them.
const defaultRetainFinished = 10 * time.Minute

// Uploader runs attachment uploads detached from the request that started
// them, and patches the content document when each one completes. Tasks for
// independent submissions run concurrently with no ordering between them.
type Uploader struct {
	blobs          BlobStore
	contents       AttachmentStore
	retainFinished time.Duration

	mu    sync.Mutex
	tasks map[string]*UploadTask
}

func NewUploader(blobs BlobStore, contents AttachmentStore) *Uploader {
	return &Uploader{
		blobs:          blobs,
		contents:       contents,
		retainFinished: defaultRetainFinished,
		tasks:          make(map[string]*UploadTask),
	}
}

// evictLater removes a finished task from the registry once the retention
// window has passed, so the map does not grow for the life of the process.
func (u *Uploader) evictLater(id string) {
	time.AfterFunc(u.retainFinished, func() {
		u.mu.Lock()
		delete(u.tasks, id)
		u.mu.Unlock()
	})
}

// Start begins uploading data in the background and returns the task handle
// immediately. It must only be called after the content metadata write has
// been acknowledged; completion patches fileUrl/fileType on that same
// document, failure leaves both empty so the author can re-attach.
func (u *Uploader) Start(contentID primitive.ObjectID, authorUID, filename, contentType string, data []byte) *UploadTask {
	ctx, cancel := context.WithCancel(context.Background())
	t := &UploadTask{
		ID:        uuid.New().String(),
		ContentID: contentID,
		Owner:     authorUID,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     TaskUploading,
	}
	u.mu.Lock()
	u.tasks[t.ID] = t
	u.mu.Unlock()

	if u.blobs == nil {
		cancel()
		t.finish(TaskError, "", "attachment storage is not configured")
		u.evictLater(t.ID)
		return t
	}

	key := fmt.Sprintf("content/%s/%d-%s", authorUID, time.Now().UnixMilli(), filename)
	go func() {
		defer u.evictLater(t.ID)
		defer cancel()
		url, err := u.blobs.Upload(ctx, key, contentType, bytes.NewReader(data), int64(len(data)), t.setProgress)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				t.finish(TaskCancelled, "", "upload cancelled")
				return
			}
			log.Printf("upload %s: %v", t.ID, err)
			t.finish(TaskError, "", "attachment upload failed; re-open the item and attach the file again")
			return
		}
		patchCtx, patchCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer patchCancel()
		if err := u.contents.SetContentAttachment(patchCtx, contentID, url, contentType); err != nil {
			log.Printf("attachment patch %s: %v", t.ID, err)
			t.finish(TaskError, "", "attachment upload failed; re-open the item and attach the file again")
			return
		}
		t.finish(TaskSuccess, url, "")
	}()
	return t
}

// Task looks up an in-flight or finished task by id.
func (u *Uploader) Task(id string) (*UploadTask, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	t, ok := u.tasks[id]
	return t, ok
}
