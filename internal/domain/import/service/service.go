// Package service orchestrates the game-plan import pipeline: upload,
// field mapping, master-data load, chunked validation, session persistence
// and the background commit.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	gameplanrepo "github.com/campaignops/mediaplanner/internal/domain/gameplan/repository"
	"github.com/campaignops/mediaplanner/internal/domain/import/committer"
	"github.com/campaignops/mediaplanner/internal/domain/import/mapper"
	"github.com/campaignops/mediaplanner/internal/domain/import/parser"
	"github.com/campaignops/mediaplanner/internal/domain/import/session"
	"github.com/campaignops/mediaplanner/internal/domain/import/validator"
	"github.com/campaignops/mediaplanner/internal/domain/masterdata"
	"github.com/campaignops/mediaplanner/pkg/storage"
)

var (
	importsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaplanner_imports_started_total",
		Help: "Number of import sessions created.",
	})
	importsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaplanner_imports_committed_total",
		Help: "Number of import sessions committed.",
	})
	validationIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaplanner_validation_issues_total",
		Help: "Validation issues found, by severity.",
	}, []string{"severity"})
)

// maxPreviewIssues bounds how many issues an upload response carries
const maxPreviewIssues = 100

// UploadInput is the multipart upload payload
type UploadInput struct {
	FileName       string
	Data           []byte
	Country        string
	FinancialCycle string
	BusinessUnit   string
}

// UploadResult is returned to the admin UI after upload+validation
type UploadResult struct {
	SessionID       string              `json:"sessionId"`
	RecordCount     int                 `json:"recordCount"`
	FieldMappings   mapper.FieldMapping `json:"fieldMappings"`
	Summary         validator.Summary   `json:"validationSummary"`
	Issues          []validator.Issue   `json:"validationIssues"`
	IsLargeDataset  bool                `json:"isLargeDataset"`
	TotalIssueCount int                 `json:"totalIssueCount"`
}

// ProgressResult is returned to polling clients during commit
type ProgressResult struct {
	Status      session.Status `json:"status"`
	Progress    int            `json:"progress"`
	Current     int            `json:"currentRecord"`
	LastMessage string         `json:"lastMessage"`
}

// Service wires the import pipeline together
type Service struct {
	mapper    *mapper.Mapper
	mdLoader  *masterdata.Loader
	planRepo  gameplanrepo.Repository
	store     *session.Store
	committer *committer.Committer
	files     storage.Storage
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates the import service
func New(
	mdLoader *masterdata.Loader,
	planRepo gameplanrepo.Repository,
	store *session.Store,
	comm *committer.Committer,
	files storage.Storage,
	logger *slog.Logger,
) *Service {
	return &Service{
		mapper:    mapper.New(),
		mdLoader:  mdLoader,
		planRepo:  planRepo,
		store:     store,
		committer: comm,
		files:     files,
		logger:    logger,
		tracer:    otel.Tracer("import"),
	}
}

// Upload runs the full pre-commit pipeline and persists the session
func (s *Service) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "import.upload",
		trace.WithAttributes(attribute.String("file", input.FileName)))
	defer span.End()

	parsed, err := parser.ParseUpload(input.FileName, input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}
	if len(parsed.Headers) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}

	mapping := s.mapper.MapHeaders(parsed.Headers)

	records := make([]mapper.TransformedRecord, len(parsed.Records))
	for i, raw := range parsed.Records {
		records[i] = mapper.TransformRecord(raw, mapping)
	}

	master := s.mdLoader.Load(ctx)

	mediaContext, err := s.buildMediaContext(ctx, records, input)
	if err != nil {
		// Validation degrades without context rather than failing the
		// upload; rows just skip the TV/Digital rule.
		s.logger.Warn("failed to build campaign media context", slog.Any("error", err))
		mediaContext = nil
	}

	result, err := s.validate(ctx, master, mediaContext, records)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		ID:             session.NewID(),
		FileName:       input.FileName,
		FileSize:       int64(len(input.Data)),
		Country:        input.Country,
		FinancialCycle: input.FinancialCycle,
		BusinessUnit:   input.BusinessUnit,
		RecordCount:    len(records),
		Status:         session.StatusValidated,
		FieldMappings:  mapping,
		MasterData:     master,
		Records:        records,
		Validation:     result,
	}

	if s.files != nil {
		info, err := s.files.Save(ctx, sess.ID, input.FileName, input.Data)
		if err != nil {
			s.logger.Warn("failed to persist uploaded file", slog.Any("error", err))
		} else {
			sess.FilePath = info.Path
		}
	}

	if err := s.store.Create(sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	importsStarted.Inc()
	validationIssues.WithLabelValues(string(validator.SeverityCritical)).Add(float64(result.Summary.Critical))
	validationIssues.WithLabelValues(string(validator.SeverityWarning)).Add(float64(result.Summary.Warning))
	validationIssues.WithLabelValues(string(validator.SeveritySuggestion)).Add(float64(result.Summary.Suggestion))

	preview := result.Issues
	if len(preview) > maxPreviewIssues {
		preview = preview[:maxPreviewIssues]
	}

	return &UploadResult{
		SessionID:       sess.ID,
		RecordCount:     len(records),
		FieldMappings:   mapping,
		Summary:         result.Summary,
		Issues:          preview,
		IsLargeDataset:  result.IsLargeDataset,
		TotalIssueCount: result.TotalIssueCount,
	}, nil
}

func (s *Service) validate(ctx context.Context, master *masterdata.MasterData, mediaContext map[string]validator.MediaContext, records []mapper.TransformedRecord) (*validator.Result, error) {
	ctx, span := s.tracer.Start(ctx, "import.validate",
		trace.WithAttributes(attribute.Int("records", len(records))))
	defer span.End()

	rv := validator.NewRowValidator(master, mediaContext)
	result, err := validator.Run(ctx, rv, records)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return result, nil
}

// buildMediaContext queries committed game plans once per distinct
// campaign name in the upload.
func (s *Service) buildMediaContext(ctx context.Context, records []mapper.TransformedRecord, input UploadInput) (map[string]validator.MediaContext, error) {
	if s.planRepo == nil {
		return nil, nil
	}

	families := make(map[string]validator.MediaContext)
	for _, record := range records {
		campaign := strings.TrimSpace(record[mapper.FieldCampaign])
		if campaign == "" {
			continue
		}
		if _, done := families[campaign]; done {
			continue
		}

		family, err := s.planRepo.CampaignMediaFamily(ctx, campaign, input.Country, input.FinancialCycle)
		if err != nil {
			return nil, err
		}
		families[campaign] = validator.MediaContext{
			HasTV:      family.HasTV,
			HasDigital: family.HasDigital,
			Known:      family.PlanCount > 0,
		}
	}
	return families, nil
}

// GetValidation returns the stored validation results for review
func (s *Service) GetValidation(id string) (*UploadResult, error) {
	sess, err := s.store.GetValid(id)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{
		SessionID:     sess.ID,
		RecordCount:   sess.RecordCount,
		FieldMappings: sess.FieldMappings,
	}
	if sess.Validation != nil {
		result.Summary = sess.Validation.Summary
		result.Issues = sess.Validation.Issues
		result.IsLargeDataset = sess.Validation.IsLargeDataset
		result.TotalIssueCount = sess.Validation.TotalIssueCount
	}
	return result, nil
}

// StartImport launches the commit in a background goroutine and returns
// immediately. The client observes progress via GetProgress. There is no
// cancellation beyond process shutdown.
func (s *Service) StartImport(id string) error {
	sess, err := s.store.GetValid(id)
	if err != nil {
		return err
	}

	if sess.Validation != nil && sess.Validation.Summary.Critical > 0 {
		return &committer.ErrCriticalIssues{Count: sess.Validation.Summary.Critical}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		ctx, span := s.tracer.Start(ctx, "import.commit",
			trace.WithAttributes(attribute.String("session", sess.ID)))
		defer span.End()

		result, err := s.committer.Commit(ctx, sess)
		if err != nil {
			s.logger.Error("import commit failed",
				slog.String("session", sess.ID), slog.Any("error", err))
			sess.Status = session.StatusError
			if sess.Progress == nil {
				sess.Progress = &session.Progress{}
			}
			sess.Progress.LastMessage = err.Error()
			if saveErr := s.store.Save(sess); saveErr != nil {
				s.logger.Warn("failed to persist error state", slog.Any("error", saveErr))
			}
			return
		}

		importsCommitted.Inc()
		s.logger.Info("import committed",
			slog.String("session", sess.ID),
			slog.Int("committed", result.RecordsCommitted),
			slog.Int("skipped", result.RecordsSkipped),
			slog.Int("failed", result.RecordsFailed),
		)
	}()

	return nil
}

// Cancel discards a session and its stored upload. Sessions mid-commit
// cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id string) error {
	sess, err := s.store.GetValid(id)
	if err != nil {
		return err
	}
	if sess.Status == session.StatusImporting {
		return fmt.Errorf("session %s is committing and cannot be cancelled", id)
	}

	if s.files != nil {
		if err := s.files.DeleteSession(ctx, id); err != nil {
			s.logger.Warn("failed to delete stored upload", slog.Any("error", err))
		}
	}
	return s.store.Delete(id)
}

// GetProgress reports the state of a running or finished import
func (s *Service) GetProgress(id string) (*ProgressResult, error) {
	sess, err := s.store.GetValid(id)
	if err != nil {
		return nil, err
	}

	result := &ProgressResult{Status: sess.Status}
	if sess.Progress != nil {
		result.Progress = sess.Progress.Percentage
		result.Current = sess.Progress.Current
		result.LastMessage = sess.Progress.LastMessage
	}
	return result, nil
}
