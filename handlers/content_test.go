package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/studyhive/backend/middleware"
	"github.com/studyhive/backend/models"
	"github.com/studyhive/backend/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "content-test-secret"

type fakeContentStore struct {
	mu          sync.Mutex
	items       map[primitive.ObjectID]*models.Content
	insertCalls int
	updateCalls int
	deleteCalls int
	listCalls   int
	lastClear   bool
	failInsert  bool
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{items: map[primitive.ObjectID]*models.Content{}}
}

func (f *fakeContentStore) InsertContent(_ context.Context, c *models.Content) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.failInsert {
		return primitive.NilObjectID, errors.New("write failed")
	}
	id := primitive.NewObjectID()
	cp := *c
	cp.ID = id
	f.items[id] = &cp
	return id, nil
}

func (f *fakeContentStore) ContentByID(_ context.Context, id primitive.ObjectID) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContentStore) ListContent(_ context.Context) ([]models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []models.Content
	for _, c := range f.items {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeContentStore) SearchContent(_ context.Context, q string) ([]models.Content, error) {
	return f.ListContent(context.Background())
}

func (f *fakeContentStore) UpdateContentMeta(_ context.Context, id primitive.ObjectID, c *models.Content, clearAttachment bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.lastClear = clearAttachment
	existing, ok := f.items[id]
	if !ok {
		return errors.New("not found")
	}
	existing.Title = c.Title
	existing.Subject = c.Subject
	existing.Type = c.Type
	existing.Body = c.Body
	existing.Stream = c.Stream
	existing.Year = c.Year
	existing.UpdatedAt = time.Now()
	if clearAttachment {
		existing.FileURL = ""
		existing.FileType = ""
	}
	return nil
}

func (f *fakeContentStore) SetContentAttachment(_ context.Context, id primitive.ObjectID, fileURL, fileType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return errors.New("not found")
	}
	c.FileURL = fileURL
	c.FileType = fileType
	return nil
}

func (f *fakeContentStore) DeleteContent(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	delete(f.items, id)
	return nil
}

func (f *fakeContentStore) item(t *testing.T, hex string) *models.Content {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		t.Fatalf("bad id %q: %v", hex, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		t.Fatalf("no stored item %s", hex)
	}
	cp := *c
	return &cp
}

type fakeProfileLoader struct {
	users map[primitive.ObjectID]*models.User
}

func (f *fakeProfileLoader) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return f.users[id], nil
}

// testBlobs blocks uploads until released, which lets tests observe the
// metadata document before the attachment lands.
type testBlobs struct {
	mu      sync.Mutex
	release chan struct{}
	err     error
	uploads int
}

func (b *testBlobs) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64, progress func(pct int)) (string, error) {
	b.mu.Lock()
	b.uploads++
	release := b.release
	err := b.err
	b.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	io.Copy(io.Discard, body)
	if progress != nil {
		progress(100)
	}
	return "https://blobs.test/" + key, nil
}

func (b *testBlobs) uploadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploads
}

func newContentRouter(profile *models.User, cs *fakeContentStore, blobs service.BlobStore) (http.Handler, *service.Uploader) {
	return newContentRouterUsers(cs, blobs, profile)
}

func newContentRouterUsers(cs *fakeContentStore, blobs service.BlobStore, users ...*models.User) (http.Handler, *service.Uploader) {
	uploader := service.NewUploader(blobs, cs)
	h := &ContentHandler{DB: cs, Uploader: uploader}
	profiles := &fakeProfileLoader{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		if u != nil {
			profiles.users[u.ID] = u
		}
	}
	r := chi.NewRouter()
	r.Use(middleware.Auth(testSecret))
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireProfile(profiles))
		r.Get("/api/content", h.List)
		r.Get("/api/content/search", h.Search)
		r.Get("/api/content/{id}", h.Get)
		r.Post("/api/content", h.Create)
		r.Put("/api/content/{id}", h.Update)
		r.Delete("/api/content/{id}", h.Delete)
		r.Get("/api/uploads/{taskId}", h.UploadStatus)
		r.Post("/api/uploads/{taskId}/cancel", h.CancelUpload)
	})
	return r, uploader
}

func studentProfile() *models.User {
	return &models.User{
		ID:     primitive.NewObjectID(),
		Name:   "Asha",
		Roles:  []models.Role{models.RoleStudent},
		Status: models.StatusActive,
	}
}

func authHeader(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := SessionToken(testSecret, u, false)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func submission(t *testing.T, fields map[string]string, filename string, fileBytes []byte, fileContentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if filename != "" {
		hdr := make(map[string][]string)
		hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		hdr["Content-Type"] = []string{fileContentType}
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(fileBytes); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"title":   "Laplace Transforms",
		"subject": "Mathematics III",
		"type":    models.TypeClassNotes,
		"body":    "Definition, properties, worked examples.",
		"stream":  "engineering",
		"year":    "2",
	}
}

func doCreate(t *testing.T, router http.Handler, u *models.User, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/content", body)
	req.Header.Set("Authorization", authHeader(t, u))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateWithoutFile(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	router, _ := newContentRouter(profile, cs, &testBlobs{})

	body, ct := submission(t, validFields(), "", nil, "")
	rec := doCreate(t, router, profile, body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp SaveContentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UploadTaskID != "" {
		t.Fatal("no file was sent, no upload task expected")
	}
	stored := cs.item(t, resp.ID)
	if stored.Title != "Laplace Transforms" || stored.Subject != "Mathematics III" ||
		stored.Type != models.TypeClassNotes || stored.Body != "Definition, properties, worked examples." {
		t.Fatalf("stored item mismatch: %+v", stored)
	}
	if stored.FileURL != "" || stored.FileType != "" {
		t.Fatal("attachment fields must stay empty without a file")
	}
	if stored.AuthorID != profile.ID || stored.AuthorName != "Asha" {
		t.Fatalf("author stamp wrong: %s/%s", stored.AuthorID.Hex(), stored.AuthorName)
	}
}

func TestCreateValidationFailsBeforeStore(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	blobs := &testBlobs{}
	router, _ := newContentRouter(profile, cs, blobs)

	fields := validFields()
	delete(fields, "title")
	body, ct := submission(t, fields, "", nil, "")
	rec := doCreate(t, router, profile, body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Fields["title"] == "" {
		t.Fatalf("expected a field-level error for title, got %+v", resp.Fields)
	}
	if cs.insertCalls != 0 || blobs.uploadCount() != 0 {
		t.Fatal("validation failure must not reach the store or blob service")
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	router, _ := newContentRouter(profile, cs, &testBlobs{})

	fields := validFields()
	fields["type"] = "Homework"
	body, ct := submission(t, fields, "", nil, "")
	rec := doCreate(t, router, profile, body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if cs.insertCalls != 0 {
		t.Fatal("invalid type must not reach the store")
	}
}

func TestCreateRejectsOversizeFile(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	blobs := &testBlobs{}
	router, _ := newContentRouter(profile, cs, blobs)

	big := make([]byte, 6<<20)
	body, ct := submission(t, validFields(), "huge.pdf", big, "application/pdf")
	rec := doCreate(t, router, profile, body, ct)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if cs.insertCalls != 0 || blobs.uploadCount() != 0 {
		t.Fatal("oversize file must be rejected before any store or blob call")
	}
}

func TestCreatePersistenceFailure(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	cs.failInsert = true
	blobs := &testBlobs{}
	router, _ := newContentRouter(profile, cs, blobs)

	pdf := make([]byte, 2<<20)
	body, ct := submission(t, validFields(), "notes.pdf", pdf, "application/pdf")
	rec := doCreate(t, router, profile, body, ct)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "failed to save content" {
		t.Fatalf("error = %q, want the generic save message", resp["error"])
	}
	if len(cs.items) != 0 {
		t.Fatal("failed save left a document behind")
	}
	if blobs.uploadCount() != 0 {
		t.Fatal("failed metadata write must not start an upload")
	}
}

func TestCreateWithAttachmentPatchesAfterSave(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	blobs := &testBlobs{release: make(chan struct{})}
	router, uploader := newContentRouter(profile, cs, blobs)

	pdf := make([]byte, 2<<20)
	body, ct := submission(t, validFields(), "pyq-2023.pdf", pdf, "application/pdf")
	rec := doCreate(t, router, profile, body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp SaveContentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UploadTaskID == "" {
		t.Fatal("expected an upload task id")
	}

	// The save already completed: the document is readable with empty
	// attachment fields while the upload is still in flight.
	stored := cs.item(t, resp.ID)
	if stored.FileURL != "" {
		t.Fatal("fileUrl set before upload completion")
	}

	task, ok := uploader.Task(resp.UploadTaskID)
	if !ok {
		t.Fatal("task not registered")
	}
	if s := task.Snapshot(); s.State != service.TaskUploading {
		t.Fatalf("state = %s, want uploading", s.State)
	}

	close(blobs.release)
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("upload never finished")
	}
	if s := task.Snapshot(); s.State != service.TaskSuccess {
		t.Fatalf("state = %s, want success (%s)", s.State, s.Error)
	}

	stored = cs.item(t, resp.ID)
	if stored.FileURL == "" || stored.FileType != "application/pdf" {
		t.Fatalf("attachment not patched: %q/%q", stored.FileURL, stored.FileType)
	}
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	router, _ := newContentRouter(profile, cs, &testBlobs{})

	body, ct := submission(t, validFields(), "", nil, "")
	rec := doCreate(t, router, profile, body, ct)
	var created SaveContentResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	req := httptest.NewRequest(http.MethodGet, "/api/content/"+created.ID, nil)
	req.Header.Set("Authorization", authHeader(t, profile))
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d", getRec.Code)
	}
	var got models.Content
	if err := json.Unmarshal(getRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := validFields()
	if got.Title != want["title"] || got.Subject != want["subject"] || got.Type != want["type"] || got.Body != want["body"] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.FileURL != "" || got.FileType != "" {
		t.Fatal("round trip grew attachment fields")
	}
}

// Saving twice with an identical payload must converge on one document
// state; only updatedAt moves.
func TestUpdateIsIdempotent(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	router, _ := newContentRouter(profile, cs, &testBlobs{})

	id := primitive.NewObjectID()
	cs.items[id] = &models.Content{ID: id, Title: "Old", Subject: "S", Type: models.TypePYQ, Body: "b", AuthorID: profile.ID}

	for i := 0; i < 2; i++ {
		body, ct := submission(t, validFields(), "", nil, "")
		req := httptest.NewRequest(http.MethodPut, "/api/content/"+id.Hex(), body)
		req.Header.Set("Authorization", authHeader(t, profile))
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("update %d status = %d", i, rec.Code)
		}
	}
	if cs.updateCalls != 2 {
		t.Fatalf("updateCalls = %d, want 2", cs.updateCalls)
	}
	stored := cs.item(t, id.Hex())
	if stored.Title != "Laplace Transforms" || stored.AuthorID != profile.ID {
		t.Fatalf("converged state wrong: %+v", stored)
	}
}

func TestUpdatePreservesAttachmentWithoutNewFile(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	router, _ := newContentRouter(profile, cs, &testBlobs{})

	id := primitive.NewObjectID()
	cs.items[id] = &models.Content{
		ID: id, Title: "Old", Subject: "Phys", Type: models.TypePYQ, Body: "old",
		AuthorID: profile.ID, AuthorName: profile.Name,
		FileURL: "https://blobs.test/existing.pdf", FileType: "application/pdf",
	}

	body, ct := submission(t, validFields(), "", nil, "")
	req := httptest.NewRequest(http.MethodPut, "/api/content/"+id.Hex(), body)
	req.Header.Set("Authorization", authHeader(t, profile))
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if cs.lastClear {
		t.Fatal("attachment must not be cleared when no new file is chosen")
	}
	stored := cs.item(t, id.Hex())
	if stored.FileURL != "https://blobs.test/existing.pdf" {
		t.Fatalf("fileUrl lost on edit: %q", stored.FileURL)
	}
	if stored.Title != "Laplace Transforms" {
		t.Fatalf("title not updated: %q", stored.Title)
	}
}

func TestUpdateWithNewFileClearsOldAttachment(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	blobs := &testBlobs{release: make(chan struct{})}
	router, uploader := newContentRouter(profile, cs, blobs)

	id := primitive.NewObjectID()
	cs.items[id] = &models.Content{
		ID: id, Title: "Old", Subject: "Phys", Type: models.TypePYQ, Body: "old",
		AuthorID: profile.ID,
		FileURL:  "https://blobs.test/old.pdf", FileType: "application/pdf",
	}

	body, ct := submission(t, validFields(), "new.pdf", []byte("new pdf"), "application/pdf")
	req := httptest.NewRequest(http.MethodPut, "/api/content/"+id.Hex(), body)
	req.Header.Set("Authorization", authHeader(t, profile))
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !cs.lastClear {
		t.Fatal("old attachment must be cleared when a new file is chosen")
	}
	stored := cs.item(t, id.Hex())
	if stored.FileURL != "" {
		t.Fatalf("old fileUrl still present mid-upload: %q", stored.FileURL)
	}

	var resp SaveContentResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	task, _ := uploader.Task(resp.UploadTaskID)
	close(blobs.release)
	<-task.Done()
	stored = cs.item(t, id.Hex())
	if stored.FileURL == "" {
		t.Fatal("new attachment not patched in")
	}
}

func TestUpdateForbiddenForStrangers(t *testing.T) {
	author := studentProfile()
	stranger := studentProfile()
	cs := newFakeContentStore()
	router, _ := newContentRouter(stranger, cs, &testBlobs{})

	id := primitive.NewObjectID()
	cs.items[id] = &models.Content{ID: id, Title: "T", Subject: "S", Type: models.TypePYQ, Body: "b", AuthorID: author.ID}

	body, ct := submission(t, validFields(), "", nil, "")
	req := httptest.NewRequest(http.MethodPut, "/api/content/"+id.Hex(), body)
	req.Header.Set("Authorization", authHeader(t, stranger))
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if cs.updateCalls != 0 {
		t.Fatal("stranger edit must not reach the store")
	}
}

func TestDeleteRemovesMetadataOnly(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	blobs := &testBlobs{}
	router, _ := newContentRouter(profile, cs, blobs)

	id := primitive.NewObjectID()
	cs.items[id] = &models.Content{
		ID: id, Title: "T", Subject: "S", Type: models.TypePYQ, Body: "b",
		AuthorID: profile.ID, FileURL: "https://blobs.test/keep.pdf", FileType: "application/pdf",
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/content/"+id.Hex(), nil)
	req.Header.Set("Authorization", authHeader(t, profile))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if cs.deleteCalls != 1 {
		t.Fatalf("deleteCalls = %d, want 1", cs.deleteCalls)
	}
	if len(cs.items) != 0 {
		t.Fatal("metadata document not removed")
	}
	// The blob is an acknowledged orphan: nothing in this flow touches the
	// blob store on delete.
	if blobs.uploadCount() != 0 {
		t.Fatal("delete must not talk to the blob store")
	}
}

func TestDisabledAccountGetsNoContent(t *testing.T) {
	profile := studentProfile()
	profile.Disabled = true
	profile.Status = models.StatusBlocked
	cs := newFakeContentStore()
	router, _ := newContentRouter(profile, cs, &testBlobs{})

	req := httptest.NewRequest(http.MethodGet, "/api/content", nil)
	req.Header.Set("Authorization", authHeader(t, profile))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["reason"] != string(middleware.ReasonAccountDisabled) {
		t.Fatalf("reason = %q, want account-disabled", body["reason"])
	}
	if cs.listCalls != 0 {
		t.Fatal("disabled account reached protected data")
	}
}

func TestUploadEndpointsCheckOwnership(t *testing.T) {
	author := studentProfile()
	stranger := studentProfile()
	official := studentProfile()
	official.Roles = []models.Role{models.RoleOfficial}
	cs := newFakeContentStore()
	blobs := &testBlobs{release: make(chan struct{})}
	router, _ := newContentRouterUsers(cs, blobs, author, stranger, official)

	body, ct := submission(t, validFields(), "slow.pdf", []byte("pdf"), "application/pdf")
	rec := doCreate(t, router, author, body, ct)
	var resp SaveContentResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.UploadTaskID == "" {
		t.Fatal("expected an upload task id")
	}

	poll := func(u *models.User, method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", authHeader(t, u))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	statusPath := "/api/uploads/" + resp.UploadTaskID
	cancelPath := statusPath + "/cancel"

	if code := poll(stranger, http.MethodGet, statusPath); code != http.StatusForbidden {
		t.Fatalf("stranger poll = %d, want 403", code)
	}
	if code := poll(stranger, http.MethodPost, cancelPath); code != http.StatusForbidden {
		t.Fatalf("stranger cancel = %d, want 403", code)
	}
	if code := poll(author, http.MethodGet, statusPath); code != http.StatusOK {
		t.Fatalf("author poll = %d, want 200", code)
	}
	if code := poll(official, http.MethodGet, statusPath); code != http.StatusOK {
		t.Fatalf("official poll = %d, want 200", code)
	}

	close(blobs.release)
}

func TestCancelUploadEndpoint(t *testing.T) {
	profile := studentProfile()
	cs := newFakeContentStore()
	blobs := &testBlobs{release: make(chan struct{})}
	router, uploader := newContentRouter(profile, cs, blobs)

	body, ct := submission(t, validFields(), "slow.pdf", []byte("pdf"), "application/pdf")
	rec := doCreate(t, router, profile, body, ct)
	var resp SaveContentResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)

	req := httptest.NewRequest(http.MethodPost, "/api/uploads/"+resp.UploadTaskID+"/cancel", nil)
	req.Header.Set("Authorization", authHeader(t, profile))
	cancelRec := httptest.NewRecorder()
	router.ServeHTTP(cancelRec, req)
	if cancelRec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", cancelRec.Code)
	}

	task, _ := uploader.Task(resp.UploadTaskID)
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not settle after cancel")
	}
	if s := task.Snapshot(); s.State != service.TaskCancelled {
		t.Fatalf("state = %s, want cancelled", s.State)
	}
	if stored := cs.item(t, resp.ID); stored.FileURL != "" {
		t.Fatal("cancelled upload must not patch the document")
	}
}
