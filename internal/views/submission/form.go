// Package submission is the headless model behind the public ticket form.
// It validates the form and attached images locally, uploads the images one at
// a time and then posts the ticket.
package submission

import (
	"context"
	"encoding/base64"
	"errors"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/client"
	"github.com/spec-kit/helpdesk/internal/storage"
)

const (
	MsgSucceeded     = "Ticket submitted successfully! We'll get back to you soon."
	MsgRequired      = "All fields are required"
	MsgNetworkFailed = "Failed to submit ticket. Please try again."
)

// ErrSubmissionInFlight is returned when Submit is called while another
// submission of the same form is pending.
var ErrSubmissionInFlight = errors.New("submission already in flight")

// State is the position of the form in its submission cycle.
type State int

const (
	Idle State = iota
	Validating
	Uploading
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Uploading:
		return "uploading"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Uploader stores one image and returns its public location.
type Uploader interface {
	Upload(ctx context.Context, bucket, fileName string, data []byte) (*dto.UploadResponse, error)
}

// TicketCreator posts the intake payload.
type TicketCreator interface {
	CreateTicket(ctx context.Context, req dto.CreateTicketRequest) (*dto.TicketResponse, error)
}

// API is what the form needs from the server. *client.Client satisfies it.
type API interface {
	Uploader
	TicketCreator
}

// Fields are the text inputs of the form.
type Fields struct {
	Name        string
	Email       string
	Title       string
	Description string
}

func (f Fields) complete() bool {
	return strings.TrimSpace(f.Name) != "" &&
		strings.TrimSpace(f.Email) != "" &&
		strings.TrimSpace(f.Title) != "" &&
		strings.TrimSpace(f.Description) != ""
}

// File is a locally selected attachment. ContentType may be empty.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadError aborts a submission when one image could not be stored.
type UploadError struct {
	FileName string
	Err      error
}

func (e *UploadError) Error() string { return "Failed to upload " + e.FileName }

func (e *UploadError) Unwrap() error { return e.Err }

type queued struct {
	file    File
	preview string
}

// Form holds one submission form. It is safe for concurrent use.
type Form struct {
	api    API
	bucket string
	limit  int64

	mu       sync.Mutex
	fields   Fields
	files    []*queued
	state    State
	message  string
	inFlight bool

	previews sync.WaitGroup
}

// NewForm builds a form that uploads to bucket. A limit of zero means
// storage.MaxImageBytes.
func NewForm(api API, bucket string, limit int64) *Form {
	if limit <= 0 {
		limit = storage.MaxImageBytes
	}
	return &Form{api: api, bucket: bucket, limit: limit}
}

// SetFields replaces the text inputs. A finished form becomes idle again.
func (f *Form) SetFields(fields Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = fields
	if !f.inFlight {
		f.state = Idle
	}
}

// Fields returns the current text inputs.
func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// State returns the current position in the submission cycle.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Message is the last user-visible outcome or rejection.
func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// AddFiles queues every acceptable image and returns the rejections. The type
// comes from the declared content type, then the extension, then the content.
func (f *Form) AddFiles(files ...File) []error {
	var rejected []error
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range files {
		contentType := file.ContentType
		if contentType == "" {
			contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(file.Name)))
		}
		if err := storage.CheckImage(file.Name, contentType, file.Data, f.limit); err != nil {
			rejected = append(rejected, err)
			continue
		}
		if file.ContentType == "" {
			file.ContentType = contentType
		}
		entry := &queued{file: file}
		f.files = append(f.files, entry)
		f.previews.Add(1)
		go f.decodePreview(entry)
	}
	if len(rejected) > 0 {
		msgs := make([]string, len(rejected))
		for i, err := range rejected {
			msgs[i] = err.Error()
		}
		f.message = strings.Join(msgs, "\n")
	}
	return rejected
}

func (f *Form) decodePreview(entry *queued) {
	defer f.previews.Done()
	contentType := entry.file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(entry.file.Data)
	f.mu.Lock()
	entry.preview = url
	f.mu.Unlock()
}

// WaitPreviews blocks until every queued preview has been decoded.
func (f *Form) WaitPreviews() {
	f.previews.Wait()
}

// Files lists the names of the queued attachments in order.
func (f *Form) Files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.files))
	for i, q := range f.files {
		names[i] = q.file.Name
	}
	return names
}

// Preview returns the data URL of the i-th queued file once decoded.
func (f *Form) Preview(i int) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.files) || f.files[i].preview == "" {
		return "", false
	}
	return f.files[i].preview, true
}

// RemoveFile drops the i-th queued file and its preview.
func (f *Form) RemoveFile(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.files) {
		return false
	}
	f.files = append(f.files[:i:i], f.files[i+1:]...)
	return true
}

// Submit validates the form, uploads the queued images in order and creates
// the ticket. The first failed upload aborts the submission before the ticket
// is posted. On failure the inputs are kept. On success only what was sent is
// cleared: files queued and fields edited while in flight survive.
func (f *Form) Submit(ctx context.Context) (*dto.TicketResponse, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	f.inFlight = true
	f.state = Validating
	fields := f.fields
	sent := append([]*queued(nil), f.files...)
	files := make([]File, len(sent))
	for i, q := range sent {
		files[i] = q.file
	}
	f.mu.Unlock()

	ticket, err := f.submit(ctx, fields, files)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if err != nil {
		f.state = Failed
		f.message = failureMessage(err)
		return nil, err
	}
	f.state = Succeeded
	f.message = MsgSucceeded
	if f.fields == fields {
		f.fields = Fields{}
	}
	f.files = unsent(f.files, sent)
	return ticket, nil
}

// unsent keeps the queue entries that were not part of sent, in order.
func unsent(queue, sent []*queued) []*queued {
	done := make(map[*queued]bool, len(sent))
	for _, q := range sent {
		done[q] = true
	}
	var rest []*queued
	for _, q := range queue {
		if !done[q] {
			rest = append(rest, q)
		}
	}
	return rest
}

func (f *Form) submit(ctx context.Context, fields Fields, files []File) (*dto.TicketResponse, error) {
	if !fields.complete() {
		return nil, errors.New(MsgRequired)
	}

	var urls []string
	if len(files) > 0 {
		f.setState(Uploading)
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, &UploadError{FileName: file.Name, Err: err}
			}
			res, err := f.api.Upload(ctx, f.bucket, file.Name, file.Data)
			if err != nil {
				return nil, &UploadError{FileName: file.Name, Err: err}
			}
			urls = append(urls, res.URL)
		}
	}

	f.setState(Submitting)
	return f.api.CreateTicket(ctx, dto.CreateTicketRequest{
		Name:        strings.TrimSpace(fields.Name),
		Email:       strings.TrimSpace(fields.Email),
		Title:       strings.TrimSpace(fields.Title),
		Description: strings.TrimSpace(fields.Description),
		ImageURLs:   urls,
	})
}

func (f *Form) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func failureMessage(err error) string {
	var uploadErr *UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.Error()
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var netErr *client.NetworkError
	if errors.As(err, &netErr) {
		return MsgNetworkFailed
	}
	return err.Error()
}
