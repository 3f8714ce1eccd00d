package prescription

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lianamed/pharmacy-api/internal/domain/user"
)

// --- Mock implementations ---

type mockPrescriptionRepo struct {
	byID map[string]*Prescription
}

func newMockPrescriptionRepo() *mockPrescriptionRepo {
	return &mockPrescriptionRepo{byID: make(map[string]*Prescription)}
}

func (m *mockPrescriptionRepo) Create(_ context.Context, p *Prescription) error {
	m.byID[p.ID] = p
	return nil
}

func (m *mockPrescriptionRepo) GetByID(_ context.Context, id string) (*Prescription, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPrescriptionRepo) ListByUser(_ context.Context, userID string) ([]Prescription, error) {
	var out []Prescription
	for _, p := range m.byID {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPrescriptionRepo) ListAll(context.Context) ([]Prescription, error) {
	var out []Prescription
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockPrescriptionRepo) UpdateStatus(_ context.Context, id string, status Status, reviewedBy string) error {
	p, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.ReviewedBy = reviewedBy
	return nil
}

type mockFileStore struct {
	saved map[string]string
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{saved: make(map[string]string)}
}

func (m *mockFileStore) Save(_ context.Context, ref string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.saved[ref] = string(data)
	return nil
}

func (m *mockFileStore) Open(ref string) (io.ReadCloser, error) {
	data, ok := m.saved[ref]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

type mockNotifier struct {
	userIDs  []string
	messages []string
}

func (m *mockNotifier) Notify(_ context.Context, userID, message string) error {
	m.userIDs = append(m.userIDs, userID)
	m.messages = append(m.messages, message)
	return nil
}

type mockReviewers struct {
	staff []user.User
}

func (m *mockReviewers) ListByRole(_ context.Context, roles ...user.Role) ([]user.User, error) {
	var out []user.User
	for _, u := range m.staff {
		for _, r := range roles {
			if u.Role == r {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

// --- Tests ---

func TestUpload(t *testing.T) {
	repo := newMockPrescriptionRepo()
	files := newMockFileStore()
	svc := NewService(repo, files, nil, nil, zap.NewNop())

	p, err := svc.Upload(context.Background(), UploadRequest{
		UserID:   "u1",
		FileName: "scan.PDF",
		Size:     512,
		File:     strings.NewReader("pdf-bytes"),
		Notes:    "for chronic medication",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, p.ID+".pdf", p.FileRef)
	assert.Equal(t, "pdf-bytes", files.saved[p.FileRef])
	assert.Equal(t, "for chronic medication", p.Notes)
}

func TestUpload_NotifiesReviewers(t *testing.T) {
	notifier := &mockNotifier{}
	reviewers := &mockReviewers{staff: []user.User{
		{ID: "ph1", Role: user.RolePharmacist},
		{ID: "adm1", Role: user.RoleAdmin},
		{ID: "cust1", Role: user.RoleCustomer},
	}}
	svc := NewService(newMockPrescriptionRepo(), newMockFileStore(), notifier, reviewers, zap.NewNop())

	p, err := svc.Upload(context.Background(), UploadRequest{
		UserID:   "u1",
		FileName: "scan.jpg",
		Size:     256,
		File:     strings.NewReader("jpg-bytes"),
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ph1", "adm1"}, notifier.userIDs)
	for _, msg := range notifier.messages {
		assert.Contains(t, msg, p.ID)
	}
}

func TestOpenFile(t *testing.T) {
	repo := newMockPrescriptionRepo()
	files := newMockFileStore()
	svc := NewService(repo, files, nil, nil, zap.NewNop())

	p, err := svc.Upload(context.Background(), UploadRequest{
		UserID:   "u1",
		FileName: "scan.png",
		Size:     128,
		File:     strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)

	got, rc, err := svc.OpenFile(context.Background(), p.ID)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, p.UserID, got.UserID)
	assert.Equal(t, "scan.png", got.FileName)
}

func TestOpenFile_UnknownID(t *testing.T) {
	svc := NewService(newMockPrescriptionRepo(), newMockFileStore(), nil, nil, zap.NewNop())

	_, _, err := svc.OpenFile(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	svc := NewService(newMockPrescriptionRepo(), newMockFileStore(), nil, nil, zap.NewNop())

	_, err := svc.Upload(context.Background(), UploadRequest{
		UserID:   "u1",
		FileName: "malware.exe",
		File:     strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	svc := NewService(newMockPrescriptionRepo(), newMockFileStore(), nil, nil, zap.NewNop())

	_, err := svc.Upload(context.Background(), UploadRequest{
		UserID:   "u1",
		FileName: "scan.jpg",
		Size:     11 << 20,
		File:     strings.NewReader("x"),
	})
	require.Error(t, err)
}

func TestReview(t *testing.T) {
	repo := newMockPrescriptionRepo()
	notifier := &mockNotifier{}
	svc := NewService(repo, newMockFileStore(), notifier, nil, zap.NewNop())

	p, err := svc.Upload(context.Background(), UploadRequest{
		UserID: "u1", FileName: "scan.jpg", File: strings.NewReader("x"),
	})
	require.NoError(t, err)

	reviewed, err := svc.Review(context.Background(), p.ID, StatusApproved, "pharm-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, reviewed.Status)
	assert.Equal(t, "pharm-1", reviewed.ReviewedBy)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "approved")

	// A decided prescription stays decided.
	_, err = svc.Review(context.Background(), p.ID, StatusRejected, "pharm-2")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestReview_InvalidTarget(t *testing.T) {
	svc := NewService(newMockPrescriptionRepo(), newMockFileStore(), nil, nil, zap.NewNop())

	_, err := svc.Review(context.Background(), "any", StatusPending, "pharm-1")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.Review(context.Background(), "missing", StatusApproved, "pharm-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
