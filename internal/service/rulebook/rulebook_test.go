package rulebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"ludoforge/internal/domain"
	models "ludoforge/internal/domain/models/rulebook"
	"ludoforge/internal/domain/repositories"
	rbSvc "ludoforge/internal/domain/services/rulebook"
)

// fakeRulebookRepo is an in-memory RulebookRepository.
type fakeRulebookRepo struct {
	rulebooks map[string]*models.Rulebook // keyed by project ID
	versions  []models.Version
	nextID    int

	failUpdate        error
	failAppendVersion error
}

func newFakeRulebookRepo() *fakeRulebookRepo {
	return &fakeRulebookRepo{rulebooks: make(map[string]*models.Rulebook)}
}

func (f *fakeRulebookRepo) Create(ctx context.Context, rb *models.Rulebook) error {
	if _, exists := f.rulebooks[rb.ProjectID]; exists {
		return fmt.Errorf("rulebook for project %s already exists: %w", rb.ProjectID, domain.ErrConflict)
	}
	f.nextID++
	rb.ID = fmt.Sprintf("rb-%d", f.nextID)
	stored := *rb
	f.rulebooks[rb.ProjectID] = &stored
	return nil
}

func (f *fakeRulebookRepo) GetByID(ctx context.Context, id string) (*models.Rulebook, error) {
	for _, rb := range f.rulebooks {
		if rb.ID == id {
			copied := *rb
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("rulebook %s: %w", id, domain.ErrNotFound)
}

func (f *fakeRulebookRepo) GetByProject(ctx context.Context, projectID string) (*models.Rulebook, error) {
	rb, ok := f.rulebooks[projectID]
	if !ok {
		return nil, fmt.Errorf("rulebook %s: %w", projectID, domain.ErrNotFound)
	}
	copied := *rb
	return &copied, nil
}

func (f *fakeRulebookRepo) Update(ctx context.Context, rb *models.Rulebook) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	stored, ok := f.rulebooks[rb.ProjectID]
	if !ok {
		return fmt.Errorf("rulebook %s: %w", rb.ID, domain.ErrNotFound)
	}
	*stored = *rb
	return nil
}

func (f *fakeRulebookRepo) AppendVersion(ctx context.Context, v *models.Version) error {
	if f.failAppendVersion != nil {
		return f.failAppendVersion
	}
	v.ID = fmt.Sprintf("v-%d", len(f.versions)+1)
	f.versions = append(f.versions, *v)
	return nil
}

func (f *fakeRulebookRepo) ListVersions(ctx context.Context, rulebookID string) ([]models.VersionMeta, error) {
	var metas []models.VersionMeta
	for i := len(f.versions) - 1; i >= 0; i-- {
		v := f.versions[i]
		if v.RulebookID != rulebookID {
			continue
		}
		metas = append(metas, models.VersionMeta{
			ID:            v.ID,
			RulebookID:    v.RulebookID,
			VersionNumber: v.VersionNumber,
			ChangeSummary: v.ChangeSummary,
			CreatedBy:     v.CreatedBy,
			CreatedAt:     v.CreatedAt,
		})
	}
	return metas, nil
}

func (f *fakeRulebookRepo) GetVersion(ctx context.Context, rulebookID string, versionNumber int) (*models.Version, error) {
	for _, v := range f.versions {
		if v.RulebookID == rulebookID && v.VersionNumber == versionNumber {
			copied := v
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("version %d of rulebook %s: %w", versionNumber, rulebookID, domain.ErrNotFound)
}

// fakeProjectRepo knows one project per user.
type fakeProjectRepo struct {
	projects map[string]*models.Project // keyed by ID
}

func newFakeProjectRepo(projects ...*models.Project) *fakeProjectRepo {
	f := &fakeProjectRepo{projects: make(map[string]*models.Project)}
	for _, p := range projects {
		f.projects[p.ID] = p
	}
	return f
}

func (f *fakeProjectRepo) Create(ctx context.Context, project *models.Project) error {
	project.ID = fmt.Sprintf("proj-%d", len(f.projects)+1)
	f.projects[project.ID] = project
	return nil
}

func (f *fakeProjectRepo) GetByID(ctx context.Context, id, userID string) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (f *fakeProjectRepo) List(ctx context.Context, userID string) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// fakeTxManager runs the function directly; the fakes have no
// transactional state to isolate.
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

const (
	testUser    = "user-1"
	testProject = "proj-1"
)

func newTestService(t *testing.T) (rbSvc.RulebookService, *fakeRulebookRepo) {
	t.Helper()
	repo := newFakeRulebookRepo()
	projects := newFakeProjectRepo(&models.Project{ID: testProject, UserID: testUser, Name: "Catan Clone"})
	svc := NewRulebookService(repo, projects, fakeTxManager{}, slog.Default())
	return svc, repo
}

func docContent(text string) json.RawMessage {
	return json.RawMessage(`{"type":"doc","content":[{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Catan Clone"}]},{"type":"paragraph","content":[{"type":"text","text":"` + text + `"}]}]}`)
}

func TestWrite_FirstSaveCreatesVersionOne(t *testing.T) {
	svc, repo := newTestService(t)

	rb, err := svc.Write(context.Background(), &rbSvc.WriteRequest{
		ProjectID: testProject,
		EditorID:  testUser,
		Content:   docContent("Shuffle the deck"),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if rb.Version != 1 {
		t.Errorf("expected version 1, got %d", rb.Version)
	}
	if rb.Title != "Catan Clone" {
		t.Errorf("expected title from the H1, got %q", rb.Title)
	}
	if rb.WordCount != 5 {
		t.Errorf("expected word count 5, got %d", rb.WordCount)
	}
	if rb.PageCount != 1 {
		t.Errorf("expected page count 1, got %d", rb.PageCount)
	}
	if rb.LastEditedBy != testUser {
		t.Errorf("expected last_edited_by %q, got %q", testUser, rb.LastEditedBy)
	}

	if len(repo.versions) != 1 {
		t.Fatalf("expected one version row, got %d", len(repo.versions))
	}
	if repo.versions[0].VersionNumber != 1 {
		t.Errorf("expected version row 1, got %d", repo.versions[0].VersionNumber)
	}
}

func TestWrite_MaterialChangeBumpsVersion(t *testing.T) {
	svc, repo := newTestService(t)

	first, err := svc.Write(context.Background(), &rbSvc.WriteRequest{
		ProjectID: testProject,
		EditorID:  testUser,
		Content:   docContent("Shuffle the deck"),
	})
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	second, err := svc.Write(context.Background(), &rbSvc.WriteRequest{
		ProjectID: testProject,
		EditorID:  testUser,
		Content:   docContent("Deal five cards"),
	})
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	if second.Version != first.Version+1 {
		t.Errorf("expected version bump %d -> %d, got %d", first.Version, first.Version+1, second.Version)
	}
	if len(repo.versions) != 2 {
		t.Errorf("expected two version rows, got %d", len(repo.versions))
	}
}

func TestWrite_UnchangedContentIsNoOp(t *testing.T) {
	svc, repo := newTestService(t)

	content := docContent("Shuffle the deck")
	if _, err := svc.Write(context.Background(), &rbSvc.WriteRequest{ProjectID: testProject, EditorID: testUser, Content: content}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	// Same document, different key order and whitespace.
	reordered := json.RawMessage(`{"content":[{"content":[{"text":"Catan Clone","type":"text"}],"attrs":{"level":1},"type":"heading"},  {"type":"paragraph","content":[{"type":"text","text":"Shuffle the deck"}]}],"type":"doc"}`)
	rb, err := svc.Write(context.Background(), &rbSvc.WriteRequest{ProjectID: testProject, EditorID: testUser, Content: reordered})
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	if rb.Version != 1 {
		t.Errorf("no-op save bumped the version to %d", rb.Version)
	}
	if len(repo.versions) != 1 {
		t.Errorf("no-op save appended a version row: %d rows", len(repo.versions))
	}
}

func TestWrite_RejectsMalformedAndOversized(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Write(context.Background(), &rbSvc.WriteRequest{
		ProjectID: testProject,
		EditorID:  testUser,
		Content:   json.RawMessage(`{"type":"paragraph"}`),
	}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for non-doc root, got %v", err)
	}

	if _, err := svc.Write(context.Background(), &rbSvc.WriteRequest{
		ProjectID: testProject,
		EditorID:  testUser,
	}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for missing content, got %v", err)
	}
}

func TestWrite_UnknownProjectOrWrongUser(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Write(context.Background(), &rbSvc.WriteRequest{
		ProjectID: "proj-nope",
		EditorID:  testUser,
		Content:   docContent("x"),
	}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not-found for unknown project, got %v", err)
	}

	if _, err := svc.Write(context.Background(), &rbSvc.WriteRequest{
		ProjectID: testProject,
		EditorID:  "intruder",
		Content:   docContent("x"),
	}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not-found for wrong user, got %v", err)
	}
}

func TestLoad_NoRulebookYet(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Load(context.Background(), testProject, testUser); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not-found before first save, got %v", err)
	}
}

func TestUpdateRulebook_TitleAndPublish(t *testing.T) {
	svc, _ := newTestService(t)

	rb, err := svc.Write(context.Background(), &rbSvc.WriteRequest{ProjectID: testProject, EditorID: testUser, Content: docContent("x")})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	title := "Catan Clone Rules"
	published := true
	updated, err := svc.UpdateRulebook(context.Background(), rb.ID, testUser, &rbSvc.UpdateRulebookRequest{
		Title:       &title,
		IsPublished: &published,
	})
	if err != nil {
		t.Fatalf("UpdateRulebook failed: %v", err)
	}
	if updated.Title != title || !updated.IsPublished {
		t.Errorf("update not applied: %+v", updated)
	}

	empty := ""
	if _, err := svc.UpdateRulebook(context.Background(), rb.ID, testUser, &rbSvc.UpdateRulebookRequest{Title: &empty}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for empty title, got %v", err)
	}
	if _, err := svc.UpdateRulebook(context.Background(), rb.ID, testUser, &rbSvc.UpdateRulebookRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for empty update, got %v", err)
	}
}

func TestVersionHistoryAndRestore(t *testing.T) {
	svc, _ := newTestService(t)

	rb, err := svc.Write(context.Background(), &rbSvc.WriteRequest{ProjectID: testProject, EditorID: testUser, Content: docContent("Shuffle the deck")})
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if _, err := svc.Write(context.Background(), &rbSvc.WriteRequest{ProjectID: testProject, EditorID: testUser, Content: docContent("Deal five cards")}); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	metas, err := svc.ListVersions(context.Background(), rb.ID, testUser)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(metas))
	}
	if metas[0].VersionNumber != 2 || metas[1].VersionNumber != 1 {
		t.Errorf("expected newest first, got %d then %d", metas[0].VersionNumber, metas[1].VersionNumber)
	}

	v1, err := svc.GetVersion(context.Background(), rb.ID, testUser, 1)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}

	restored, err := svc.RestoreVersion(context.Background(), rb.ID, testUser, 1)
	if err != nil {
		t.Fatalf("RestoreVersion failed: %v", err)
	}
	if restored.Version != 3 {
		t.Errorf("expected restore to create version 3, got %d", restored.Version)
	}
	if string(restored.Content) != string(v1.Content) {
		t.Errorf("restored content mismatch:\n got: %s\nwant: %s", restored.Content, v1.Content)
	}

	metas, err = svc.ListVersions(context.Background(), rb.ID, testUser)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(metas) != 3 {
		t.Errorf("expected restore to append, got %d versions", len(metas))
	}
	if metas[0].ChangeSummary == nil || *metas[0].ChangeSummary != "Restored from version 1" {
		t.Errorf("expected restore summary, got %v", metas[0].ChangeSummary)
	}
}

func TestSessionPersistence_ClassifiesFailures(t *testing.T) {
	svc, repo := newTestService(t)

	// Unknown project: the backend will never accept this write.
	persist := NewSessionPersistence(svc, "proj-nope", testUser)
	err := persist.Write(context.Background(), docContent("x"))
	var pe *domain.PersistenceError
	if !errors.As(err, &pe) || !pe.Permanent {
		t.Errorf("expected permanent persistence error, got %v", err)
	}

	// Backend hiccup: worth retrying.
	persist = NewSessionPersistence(svc, testProject, testUser)
	if err := persist.Write(context.Background(), docContent("x")); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	repo.failUpdate = errors.New("connection reset by peer")
	err = persist.Write(context.Background(), docContent("y"))
	if !errors.As(err, &pe) || pe.Permanent {
		t.Errorf("expected transient persistence error, got %v", err)
	}
}
