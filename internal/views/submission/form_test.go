package submission

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/client"
	"github.com/spec-kit/helpdesk/internal/storage"
)

var pngData = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type fakeAPI struct {
	mu        sync.Mutex
	uploads   []string
	failOn    string
	uploadErr error
	created   []dto.CreateTicketRequest
	createErr error
	started   chan struct{}
	release   chan struct{}
}

func (f *fakeAPI) Upload(_ context.Context, bucket, fileName string, _ []byte) (*dto.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fileName == f.failOn {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, fileName)
	return &dto.UploadResponse{Path: fileName, URL: "http://cdn/" + bucket + "/" + fileName}, nil
}

func (f *fakeAPI) CreateTicket(_ context.Context, req dto.CreateTicketRequest) (*dto.TicketResponse, error) {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &dto.TicketResponse{ID: "t1", Title: req.Title, Status: "open", ImageURLs: req.ImageURLs}, nil
}

func filledForm(api API) *Form {
	form := NewForm(api, "ticket-images", 0)
	form.SetFields(Fields{Name: "Ana", Email: "ana@example.com", Title: "Printer", Description: "Jammed"})
	return form
}

func TestAddFilesRejectsNonImagesAndLargeFiles(t *testing.T) {
	form := NewForm(&fakeAPI{}, "ticket-images", 0)

	big := bytes.Repeat([]byte{0}, int(storage.MaxImageBytes)+1)
	rejected := form.AddFiles(
		File{Name: "manual.pdf", Data: []byte("%PDF-1.4")},
		File{Name: "huge.png", ContentType: "image/png", Data: big},
		File{Name: "shot.png", Data: pngData},
		File{Name: "noext", Data: pngData},
	)

	require.Len(t, rejected, 2)
	assert.EqualError(t, rejected[0], "manual.pdf is not an image file")
	assert.EqualError(t, rejected[1], "huge.png is too large (max 5MB)")
	assert.Equal(t, "manual.pdf is not an image file\nhuge.png is too large (max 5MB)", form.Message())
	assert.Equal(t, []string{"shot.png", "noext"}, form.Files())
}

func TestPreviewsAndRemoveFile(t *testing.T) {
	form := NewForm(&fakeAPI{}, "ticket-images", 0)
	form.AddFiles(File{Name: "a.png", Data: pngData}, File{Name: "b.png", Data: pngData})
	form.WaitPreviews()

	preview, ok := form.Preview(1)
	require.True(t, ok)
	assert.Contains(t, preview, "data:image/png;base64,")

	assert.True(t, form.RemoveFile(0))
	assert.False(t, form.RemoveFile(5))
	assert.Equal(t, []string{"b.png"}, form.Files())
	_, ok = form.Preview(1)
	assert.False(t, ok)
}

func TestSubmitUploadsSequentiallyThenCreates(t *testing.T) {
	api := &fakeAPI{}
	form := filledForm(api)
	form.AddFiles(File{Name: "a.png", Data: pngData}, File{Name: "b.png", Data: pngData})

	ticket, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", ticket.ID)

	assert.Equal(t, []string{"a.png", "b.png"}, api.uploads)
	require.Len(t, api.created, 1)
	assert.Equal(t, []string{"http://cdn/ticket-images/a.png", "http://cdn/ticket-images/b.png"}, api.created[0].ImageURLs)

	assert.Equal(t, Succeeded, form.State())
	assert.Equal(t, MsgSucceeded, form.Message())
	assert.Equal(t, Fields{}, form.Fields())
	assert.Empty(t, form.Files())
}

func TestSubmitWithoutFilesOmitsImageURLs(t *testing.T) {
	api := &fakeAPI{}
	_, err := filledForm(api).Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, api.created, 1)
	assert.Nil(t, api.created[0].ImageURLs)
}

func TestSubmitRequiresAllFields(t *testing.T) {
	api := &fakeAPI{}
	form := NewForm(api, "ticket-images", 0)
	form.SetFields(Fields{Name: "Ana", Email: "ana@example.com", Title: "  "})

	_, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, Failed, form.State())
	assert.Equal(t, MsgRequired, form.Message())
	assert.Empty(t, api.created)
}

func TestUploadFailureAbortsSubmission(t *testing.T) {
	api := &fakeAPI{failOn: "b.png", uploadErr: &client.APIError{Status: 500, Message: "Failed to upload b.png"}}
	form := filledForm(api)
	form.AddFiles(File{Name: "a.png", Data: pngData}, File{Name: "b.png", Data: pngData}, File{Name: "c.png", Data: pngData})

	_, err := form.Submit(context.Background())
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "b.png", uploadErr.FileName)

	assert.Equal(t, []string{"a.png"}, api.uploads, "uploads stop at the first failure")
	assert.Empty(t, api.created)
	assert.Equal(t, Failed, form.State())
	assert.Equal(t, "Failed to upload b.png", form.Message())
	assert.Equal(t, "Ana", form.Fields().Name)
	assert.Len(t, form.Files(), 3)
}

func TestCancelledContextAbortsUploads(t *testing.T) {
	api := &fakeAPI{}
	form := filledForm(api)
	form.AddFiles(File{Name: "a.png", Data: pngData})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := form.Submit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.uploads)
	assert.Empty(t, api.created)
}

func TestFailureMessages(t *testing.T) {
	api := &fakeAPI{createErr: &client.APIError{Status: 400, Message: "All fields are required"}}
	form := filledForm(api)
	_, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "All fields are required", form.Message())

	api.createErr = &client.NetworkError{Op: "create ticket", Err: errors.New("connection refused")}
	_, err = form.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgNetworkFailed, form.Message())
	assert.Equal(t, "Printer", form.Fields().Title)
}

func TestOnlyOneSubmissionInFlight(t *testing.T) {
	api := &fakeAPI{started: make(chan struct{}), release: make(chan struct{})}
	form := filledForm(api)

	done := make(chan error, 1)
	go func() {
		_, err := form.Submit(context.Background())
		done <- err
	}()
	<-api.started

	assert.Equal(t, Submitting, form.State())
	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(api.release)
	require.NoError(t, <-done)
	assert.Equal(t, Succeeded, form.State())

	form.SetFields(Fields{Name: "Bo"})
	assert.Equal(t, Idle, form.State())
}

func TestEditsDuringSubmissionSurviveSuccess(t *testing.T) {
	api := &fakeAPI{started: make(chan struct{}), release: make(chan struct{})}
	form := filledForm(api)
	form.AddFiles(File{Name: "first.png", Data: pngData})

	done := make(chan error, 1)
	go func() {
		_, err := form.Submit(context.Background())
		done <- err
	}()
	<-api.started

	next := Fields{Name: "Bo", Email: "bo@example.com", Title: "VPN", Description: "Drops hourly"}
	form.SetFields(next)
	form.AddFiles(File{Name: "late.png", Data: pngData})
	assert.Equal(t, Submitting, form.State())

	close(api.release)
	require.NoError(t, <-done)
	form.WaitPreviews()

	assert.Equal(t, Succeeded, form.State())
	assert.Equal(t, []string{"first.png"}, api.uploads)
	assert.Equal(t, []string{"late.png"}, form.Files())
	assert.Equal(t, next, form.Fields())
}

func TestSuccessClearsUnchangedInputs(t *testing.T) {
	form := filledForm(&fakeAPI{})
	form.AddFiles(File{Name: "shot.png", Data: pngData})

	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	form.WaitPreviews()
	assert.Empty(t, form.Files())
	assert.Equal(t, Fields{}, form.Fields())
}
