package committer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gameplanrepo "github.com/campaignops/mediaplanner/internal/domain/gameplan/repository"
	"github.com/campaignops/mediaplanner/internal/domain/import/mapper"
	"github.com/campaignops/mediaplanner/internal/domain/import/session"
	"github.com/campaignops/mediaplanner/internal/domain/import/validator"
	"github.com/campaignops/mediaplanner/internal/domain/masterdata"
)

// fakeRepo records upserts in memory and can fail individual campaigns
type fakeRepo struct {
	ids         map[string]uuid.UUID
	plans       []*gameplanrepo.GamePlan
	failFor     map[string]error
	writeCalls  int
	lastAutoNew bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{ids: make(map[string]uuid.UUID), failFor: make(map[string]error)}
}

func (f *fakeRepo) idFor(key string) uuid.UUID {
	if id, ok := f.ids[key]; ok {
		return id
	}
	id := uuid.New()
	f.ids[key] = id
	return id
}

func (f *fakeRepo) upsert(kind, name string) (uuid.UUID, error) {
	f.writeCalls++
	if err, ok := f.failFor[name]; ok {
		return uuid.Nil, err
	}
	return f.idFor(kind + ":" + name), nil
}

func (f *fakeRepo) UpsertCountry(_ context.Context, name string) (uuid.UUID, error) {
	return f.upsert("country", name)
}
func (f *fakeRepo) UpsertCategory(_ context.Context, name string) (uuid.UUID, error) {
	return f.upsert("category", name)
}
func (f *fakeRepo) UpsertRange(_ context.Context, name string, _ *uuid.UUID) (uuid.UUID, error) {
	return f.upsert("range", name)
}
func (f *fakeRepo) UpsertMediaType(_ context.Context, name string) (uuid.UUID, error) {
	return f.upsert("mediatype", name)
}
func (f *fakeRepo) UpsertMediaSubType(_ context.Context, name string, _ uuid.UUID) (uuid.UUID, error) {
	return f.upsert("subtype", name)
}
func (f *fakeRepo) UpsertBusinessUnit(_ context.Context, name string) (uuid.UUID, error) {
	return f.upsert("bu", name)
}
func (f *fakeRepo) UpsertPMType(_ context.Context, name string) (uuid.UUID, error) {
	return f.upsert("pmtype", name)
}
func (f *fakeRepo) UpsertCampaign(_ context.Context, params gameplanrepo.UpsertCampaignParams) (uuid.UUID, error) {
	f.lastAutoNew = params.AutoCreated
	return f.upsert("campaign", params.Name)
}
func (f *fakeRepo) CreateGamePlan(_ context.Context, plan *gameplanrepo.GamePlan) error {
	f.writeCalls++
	if err, ok := f.failFor["gameplan"]; ok {
		return err
	}
	f.plans = append(f.plans, plan)
	return nil
}

func (f *fakeRepo) GetGamePlan(context.Context, uuid.UUID) (*gameplanrepo.GamePlan, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRepo) UpdateGamePlan(context.Context, *gameplanrepo.GamePlan) error {
	return errors.New("not implemented")
}
func (f *fakeRepo) DeleteGamePlan(context.Context, uuid.UUID) error {
	return errors.New("not implemented")
}
func (f *fakeRepo) ListGamePlans(context.Context, gameplanrepo.GamePlanFilter) ([]*gameplanrepo.GamePlan, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRepo) ListCampaigns(context.Context, int, int) ([]*gameplanrepo.Campaign, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRepo) CampaignMediaFamily(context.Context, string, string, string) (*gameplanrepo.MediaFamily, error) {
	return &gameplanrepo.MediaFamily{}, nil
}

func record(campaign string) mapper.TransformedRecord {
	return mapper.TransformedRecord{
		mapper.FieldYear:         "2025",
		mapper.FieldCountry:      "Germany",
		mapper.FieldCategory:     "Face Care",
		mapper.FieldRange:        "Luminous",
		mapper.FieldCampaign:     campaign,
		mapper.FieldMedia:        "TV",
		mapper.FieldMediaSubtype: "Open TV",
		mapper.FieldInitialDate:  "01-Mar-25",
		mapper.FieldEndDate:      "30-Apr-25",
		mapper.FieldTotalBudget:  "150000",
		mapper.FieldBurst:        "1",
	}
}

func testSession(t *testing.T, records []mapper.TransformedRecord) (*session.Session, *session.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store, err := session.NewStore(t.TempDir(), 4, logger)
	require.NoError(t, err)

	sess := &session.Session{
		FileName:       "plans.csv",
		Country:        "Germany",
		FinancialCycle: "FC25",
		RecordCount:    len(records),
		Status:         session.StatusValidated,
		Records:        records,
		MasterData: &masterdata.MasterData{
			Campaigns: []masterdata.Entity{{Name: "Summer Push"}},
			Ranges:    []masterdata.Entity{{Name: "Luminous"}},
		},
		Validation: &validator.Result{},
	}
	require.NoError(t, store.Create(sess))
	return sess, store
}

func newTestCommitter(repo gameplanrepo.Repository, store *session.Store) *Committer {
	return New(repo, store, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestCommitHappyPath(t *testing.T) {
	repo := newFakeRepo()
	sess, store := testSession(t, []mapper.TransformedRecord{
		record("Summer Push"),
		record("Summer Push"),
	})

	result, err := newTestCommitter(repo, store).Commit(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, 2, result.RecordsTotal)
	assert.Equal(t, 2, result.RecordsCommitted)
	assert.Equal(t, 0, result.RecordsFailed)
	assert.Len(t, repo.plans, 2)
	assert.Equal(t, session.StatusImported, sess.Status)
	assert.Equal(t, 100, sess.Progress.Percentage)
	assert.Empty(t, result.AutoCreated, "known campaign and range are not auto-created")
}

func TestCommitRejectsCriticalIssuesBeforeAnyWrite(t *testing.T) {
	repo := newFakeRepo()
	sess, store := testSession(t, []mapper.TransformedRecord{record("Summer Push")})
	sess.Validation = &validator.Result{
		Summary: validator.Summary{Critical: 2, Total: 2},
	}

	_, err := newTestCommitter(repo, store).Commit(context.Background(), sess)

	var critical *ErrCriticalIssues
	require.ErrorAs(t, err, &critical)
	assert.Equal(t, 2, critical.Count)
	assert.Zero(t, repo.writeCalls, "no write may happen before the gate")
}

func TestCommitSkipsRowsWithCriticalIssues(t *testing.T) {
	repo := newFakeRepo()
	sess, store := testSession(t, []mapper.TransformedRecord{
		record("Summer Push"),
		record("Broken Row"),
	})
	// Summary says zero critical (the gate passes) but one retained issue
	// still marks row 1; the row-level guard must skip it.
	sess.Validation = &validator.Result{
		Issues: []validator.Issue{{RowIndex: 1, Severity: validator.SeverityCritical}},
	}

	result, err := newTestCommitter(repo, store).Commit(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, 1, result.RecordsCommitted)
	assert.Equal(t, 1, result.RecordsSkipped)
	assert.Len(t, repo.plans, 1)
}

func TestCommitToleratesPerRecordFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.failFor["Doomed"] = errors.New("constraint violation")

	sess, store := testSession(t, []mapper.TransformedRecord{
		record("Summer Push"),
		record("Doomed"),
		record("Summer Push"),
	})

	result, err := newTestCommitter(repo, store).Commit(context.Background(), sess)
	require.NoError(t, err, "a failing record must not abort the commit")

	assert.Equal(t, 2, result.RecordsCommitted)
	assert.Equal(t, 1, result.RecordsFailed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].RowIndex)
	assert.Contains(t, result.Errors[0].Message, "constraint violation")
	assert.Equal(t, session.StatusImported, sess.Status)
}

func TestCommitTracksAutoCreatedEntities(t *testing.T) {
	repo := newFakeRepo()
	rec := record("Brand New Launch")
	rec[mapper.FieldRange] = "Unknown Range"
	sess, store := testSession(t, []mapper.TransformedRecord{rec})

	result, err := newTestCommitter(repo, store).Commit(context.Background(), sess)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"campaign:Brand New Launch", "range:Unknown Range"}, result.AutoCreated)
	assert.True(t, repo.lastAutoNew, "campaign upsert must carry the auto-created flag")
}

func TestCommitSkipsRecordsMissingKeys(t *testing.T) {
	repo := newFakeRepo()
	rec := record("Summer Push")
	rec[mapper.FieldCountry] = ""
	sess, store := testSession(t, []mapper.TransformedRecord{rec})

	result, err := newTestCommitter(repo, store).Commit(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, 0, result.RecordsCommitted)
	assert.Equal(t, 1, result.RecordsSkipped)
	assert.Empty(t, repo.plans)
}

func TestCommitRespectsContextCancellation(t *testing.T) {
	repo := newFakeRepo()
	sess, store := testSession(t, []mapper.TransformedRecord{record("Summer Push")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCommitter(repo, store).Commit(ctx, sess)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, repo.plans)
}

func TestHasCriticalIssueForRow(t *testing.T) {
	res := &validator.Result{
		Issues: []validator.Issue{
			{RowIndex: 0, Severity: validator.SeverityWarning},
			{RowIndex: 2, Severity: validator.SeverityCritical},
		},
	}

	assert.False(t, HasCriticalIssueForRow(res, 0))
	assert.False(t, HasCriticalIssueForRow(res, 1))
	assert.True(t, HasCriticalIssueForRow(res, 2))
	assert.False(t, HasCriticalIssueForRow(nil, 2))
}
