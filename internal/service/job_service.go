package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"equity-research/internal/dto"
	"equity-research/internal/model"
	"equity-research/internal/repository"
	"equity-research/pkg/logger"
	"equity-research/pkg/timer"
	"equity-research/pkg/utils"

	"gorm.io/gorm"
)

const (
	// MaxActiveJobs is the admission ceiling: the number of jobs allowed in
	// pending or running status at once.
	MaxActiveJobs = 5

	// MaxJobAttempts caps automatic retries of a single job.
	MaxJobAttempts = 3

	// RetryBaseDelay is the backoff unit; attempt n waits RetryBaseDelay << (n-1).
	RetryBaseDelay = 5 * time.Second

	// MaxResultLength bounds persisted result text.
	MaxResultLength = 500_000

	// TruncationMarker is appended to results cut at MaxResultLength.
	TruncationMarker = "\n\n[truncated]"

	cancelledByUserError = "cancelled by user"
)

// MaxRetriesError is the terminal error recorded when a job exhausts its
// attempts.
func MaxRetriesError() string {
	return fmt.Sprintf("exceeded maximum retries (%d)", MaxJobAttempts)
}

// RetryDelay returns the backoff before re-invoking start after the n-th
// failed attempt (1-indexed): 5s, 10s, 20s.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return RetryBaseDelay << (attempt - 1)
}

// TruncateResult bounds result text at MaxResultLength characters, appending
// the truncation marker when anything was cut.
func TruncateResult(s string) string {
	if len(s) <= MaxResultLength {
		return s
	}
	return s[:MaxResultLength] + TruncationMarker
}

type JobService interface {
	Create(ctx context.Context, req dto.CreateJobRequest) (*model.ResearchJob, error)
	CreateForSchedule(ctx context.Context, schedule *model.Schedule, stockIDs []uint) (*model.ResearchJob, error)
	Start(ctx context.Context, jobID uint) error
	StartAsync(jobID uint)
	FinalizeCompleted(ctx context.Context, jobID uint, output string, costUSD *float64, durationMs *int64) (bool, error)
	HandleFailure(ctx context.Context, jobID uint, errMsg string) (bool, error)
	Cancel(ctx context.Context, jobID uint) error
	Retry(ctx context.Context, jobID uint) (*model.ResearchJob, error)
	Delete(ctx context.Context, jobID uint) error
	Get(ctx context.Context, jobID uint) (*model.ResearchJob, error)
	List(ctx context.Context, param *model.GetResearchJobParam) ([]model.ResearchJob, error)
	SetFavorite(ctx context.Context, jobID uint, favorite bool) error
}

type jobService struct {
	log         *logger.Logger
	jobRepo     repository.JobRepository
	promptRepo  repository.PromptRepository
	stockRepo   repository.StockRepository
	costLogRepo repository.CostLogRepository
	uow         repository.UnitOfWork
	providers   map[string]repository.ResearchProvider
	timers      *timer.Registry
	notifier    Notifier
}

func NewJobService(
	log *logger.Logger,
	jobRepo repository.JobRepository,
	promptRepo repository.PromptRepository,
	stockRepo repository.StockRepository,
	costLogRepo repository.CostLogRepository,
	uow repository.UnitOfWork,
	providers map[string]repository.ResearchProvider,
	timers *timer.Registry,
	notifier Notifier,
) JobService {
	return &jobService{
		log:         log,
		jobRepo:     jobRepo,
		promptRepo:  promptRepo,
		stockRepo:   stockRepo,
		costLogRepo: costLogRepo,
		uow:         uow,
		providers:   providers,
		timers:      timers,
		notifier:    notifier,
	}
}

// Create validates the prompt, snapshots its text, and inserts a pending job.
// The admission count and the insert run in one transaction so concurrent
// creators cannot both squeeze under the ceiling.
func (s *jobService) Create(ctx context.Context, req dto.CreateJobRequest) (*model.ResearchJob, error) {
	if _, ok := s.providers[req.Provider]; !ok {
		return nil, ErrUnknownProvider
	}
	return s.create(ctx, req.PromptID, req.StockIDs, req.Provider, nil)
}

func (s *jobService) CreateForSchedule(ctx context.Context, schedule *model.Schedule, stockIDs []uint) (*model.ResearchJob, error) {
	return s.create(ctx, schedule.PromptID, stockIDs, schedule.Provider, &schedule.ID)
}

func (s *jobService) create(ctx context.Context, promptID uint, stockIDs []uint, provider string, scheduleID *uint) (*model.ResearchJob, error) {
	prompt, err := s.promptRepo.GetByID(ctx, promptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, fmt.Errorf("failed to load prompt: %w", err)
	}

	if len(stockIDs) > 0 {
		stocks, err := s.stockRepo.FindByIDs(ctx, stockIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load stocks: %w", err)
		}
		if len(stocks) != len(stockIDs) {
			return nil, ErrStockNotFound
		}
	}

	rawIDs, err := utils.EncodeJSON(stockIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stock ids: %w", err)
	}

	job := &model.ResearchJob{
		PromptID:       promptID,
		PromptSnapshot: prompt.Text,
		StockIDs:       rawIDs,
		Provider:       provider,
		Status:         model.JobStatusPending,
		Attempts:       0,
		ScheduleID:     scheduleID,
	}

	err = s.uow.Run(func(opts ...utils.DBOption) error {
		count, err := s.jobRepo.CountActive(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to count active jobs: %w", err)
		}
		if count >= MaxActiveJobs {
			return ErrTooManyActiveJobs
		}
		return s.jobRepo.Create(ctx, job, opts...)
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Research job created",
		logger.IntField("job_id", int(job.ID)),
		logger.StringField("provider", provider),
		logger.IntField("stock_count", len(stockIDs)),
	)
	return job, nil
}

// StartAsync kicks Start on a fresh background context; the caller's request
// lifetime must not bound the provider submission.
func (s *jobService) StartAsync(jobID uint) {
	utils.GoSafe(func() {
		if err := s.Start(context.Background(), jobID); err != nil {
			s.log.Error("Failed to start research job",
				logger.ErrorField(err),
				logger.IntField("job_id", int(jobID)),
			)
		}
	})
}

// Start moves a pending or failed job to running, increments attempts, and
// submits the prompt to the provider. Beyond the attempt cap the job fails
// terminally without touching the provider.
func (s *jobService) Start(ctx context.Context, jobID uint) error {
	// The previous submission's external id is cleared so the new one can be
	// persisted and stale completion callbacks stop matching this job.
	rows, err := s.jobRepo.UpdateWhereStatus(ctx, jobID,
		[]model.JobStatus{model.JobStatusPending, model.JobStatusFailed},
		map[string]interface{}{
			"status":          model.JobStatusRunning,
			"attempts":        gorm.Expr("attempts + 1"),
			"error_message":   nil,
			"completed_at":    nil,
			"external_job_id": nil,
		})
	if err != nil {
		return fmt.Errorf("failed to transition job to running: %w", err)
	}
	if rows == 0 {
		// A concurrent writer already moved the job; nothing to do.
		s.log.WarnContext(ctx, "Start skipped, job not in a startable status",
			logger.IntField("job_id", int(jobID)),
		)
		return nil
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to reload job: %w", err)
	}

	if job.Attempts > MaxJobAttempts {
		return s.failTerminally(ctx, job, MaxRetriesError())
	}

	promptText, err := s.renderPrompt(ctx, job)
	if err != nil {
		return s.handleStartFailure(ctx, job, err)
	}

	provider, ok := s.providers[job.Provider]
	if !ok {
		return s.failTerminally(ctx, job, fmt.Sprintf("unknown provider %q", job.Provider))
	}

	externalID, err := provider.Submit(ctx, job.ID, promptText)
	if err != nil {
		return s.handleStartFailure(ctx, job, err)
	}

	if err := s.jobRepo.SetExternalJobID(ctx, job.ID, externalID); err != nil {
		return fmt.Errorf("failed to record external job id: %w", err)
	}

	s.log.InfoContext(ctx, "Research job submitted",
		logger.IntField("job_id", int(job.ID)),
		logger.IntField("attempt", job.Attempts),
		logger.StringField("provider", job.Provider),
		logger.StringField("external_job_id", externalID),
	)
	return nil
}

// renderPrompt substitutes the ticker list, single ticker, and current date
// into the prompt snapshot taken at creation time.
func (s *jobService) renderPrompt(ctx context.Context, job *model.ResearchJob) (string, error) {
	stockIDs, err := utils.DecodeJSONSlice[uint](job.StockIDs)
	if err != nil {
		return "", fmt.Errorf("failed to decode stock ids: %w", err)
	}

	var tickers []string
	if len(stockIDs) > 0 {
		stocks, err := s.stockRepo.FindByIDs(ctx, stockIDs)
		if err != nil {
			return "", fmt.Errorf("failed to resolve stock tickers: %w", err)
		}
		for _, stock := range stocks {
			tickers = append(tickers, stock.Ticker)
		}
	}

	text := job.PromptSnapshot
	replacer := strings.NewReplacer(
		"{{tickers}}", strings.Join(tickers, ", "),
		"{{ticker}}", firstOrEmpty(tickers),
		"{{date}}", time.Now().UTC().Format("2006-01-02"),
	)
	return replacer.Replace(text), nil
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

// handleStartFailure records the provider-call error and applies the backoff
// policy: attempts at or under the cap get a delayed re-start; the re-start
// that pushes attempts past the cap fails terminally in Start.
func (s *jobService) handleStartFailure(ctx context.Context, job *model.ResearchJob, cause error) error {
	now := time.Now().UTC()
	msg := cause.Error()
	rows, err := s.jobRepo.UpdateWhereStatus(ctx, job.ID,
		[]model.JobStatus{model.JobStatusRunning},
		map[string]interface{}{
			"status":        model.JobStatusFailed,
			"error_message": msg,
			"completed_at":  now,
		})
	if err != nil {
		return fmt.Errorf("failed to record start failure: %w", err)
	}
	if rows == 0 {
		return nil
	}

	s.scheduleRetry(ctx, job.ID, job.Attempts)
	return nil
}

// HandleFailure applies a provider-signaled failure: the job moves
// running → failed with the error recorded, then either a retry is scheduled
// or, with attempts exhausted, the failure is terminal and the user is
// notified. Duplicate deliveries find the job already failed and no-op.
func (s *jobService) HandleFailure(ctx context.Context, jobID uint, errMsg string) (bool, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrJobNotFound
		}
		return false, err
	}

	now := time.Now().UTC()
	rows, err := s.jobRepo.UpdateWhereStatus(ctx, jobID,
		[]model.JobStatus{model.JobStatusRunning},
		map[string]interface{}{
			"status":        model.JobStatusFailed,
			"error_message": errMsg,
			"completed_at":  now,
		})
	if err != nil {
		return false, fmt.Errorf("failed to record job failure: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	s.scheduleRetry(ctx, jobID, job.Attempts)
	return true, nil
}

// scheduleRetry arms the delayed re-start for the n-th failure. When the cap
// is already exceeded there is nothing left to arm.
func (s *jobService) scheduleRetry(ctx context.Context, jobID uint, attempt int) {
	if attempt > MaxJobAttempts {
		return
	}

	delay := RetryDelay(attempt)
	s.log.InfoContext(ctx, "Scheduling job retry",
		logger.IntField("job_id", int(jobID)),
		logger.IntField("attempt", attempt),
		logger.DurationField("delay", delay),
	)
	s.timers.Arm(delay, func() {
		s.StartAsync(jobID)
	})
}

// failTerminally marks the job permanently failed and notifies the user. The
// guarded update keeps a duplicate call from firing a second notification.
func (s *jobService) failTerminally(ctx context.Context, job *model.ResearchJob, msg string) error {
	now := time.Now().UTC()
	rows, err := s.jobRepo.UpdateWhereStatus(ctx, job.ID,
		[]model.JobStatus{model.JobStatusRunning},
		map[string]interface{}{
			"status":        model.JobStatusFailed,
			"error_message": msg,
			"completed_at":  now,
		})
	if err != nil {
		return fmt.Errorf("failed to mark job permanently failed: %w", err)
	}
	if rows == 0 {
		return nil
	}

	s.log.WarnContext(ctx, "Research job permanently failed",
		logger.IntField("job_id", int(job.ID)),
		logger.StringField("error", msg),
	)
	s.notifier.NotifyJobFailed(ctx, job.ID, job.Provider, msg)
	return nil
}

// FinalizeCompleted applies a success outcome exactly once. The status guard
// and the cost-log append share a transaction, so a duplicate delivery can
// produce neither a second result write nor a second cost row. The boolean
// reports whether this call applied the outcome.
func (s *jobService) FinalizeCompleted(ctx context.Context, jobID uint, output string, costUSD *float64, durationMs *int64) (bool, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrJobNotFound
		}
		return false, err
	}

	applied := false
	now := time.Now().UTC()
	err = s.uow.Run(func(opts ...utils.DBOption) error {
		rows, err := s.jobRepo.UpdateWhereStatus(ctx, jobID,
			[]model.JobStatus{model.JobStatusRunning},
			map[string]interface{}{
				"status":       model.JobStatusCompleted,
				"result":       TruncateResult(output),
				"cost_usd":     costUSD,
				"duration_ms":  durationMs,
				"completed_at": now,
			}, opts...)
		if err != nil {
			return fmt.Errorf("failed to finalize job: %w", err)
		}
		if rows == 0 {
			return nil
		}
		applied = true

		if costUSD != nil {
			entry := &model.CostLogEntry{
				JobID:    jobID,
				Provider: job.Provider,
				CostUSD:  *costUSD,
			}
			if err := s.costLogRepo.Create(ctx, entry, opts...); err != nil {
				return fmt.Errorf("failed to append cost log: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if applied {
		s.log.InfoContext(ctx, "Research job completed",
			logger.IntField("job_id", int(jobID)),
			logger.StringField("provider", job.Provider),
		)
	}
	return applied, nil
}

// Cancel is valid only while the job is pending or running.
func (s *jobService) Cancel(ctx context.Context, jobID uint) error {
	if _, err := s.jobRepo.GetByID(ctx, jobID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		return err
	}

	now := time.Now().UTC()
	rows, err := s.jobRepo.UpdateWhereStatus(ctx, jobID,
		[]model.JobStatus{model.JobStatusPending, model.JobStatusRunning},
		map[string]interface{}{
			"status":        model.JobStatusFailed,
			"error_message": cancelledByUserError,
			"completed_at":  now,
		})
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	if rows == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Retry re-admits a failed job under the ceiling and starts it again. When
// the retry cap was hit, attempts reset so the job gets a fresh budget.
func (s *jobService) Retry(ctx context.Context, jobID uint) (*model.ResearchJob, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if job.Status != model.JobStatusFailed {
		return nil, ErrInvalidTransition
	}

	updates := map[string]interface{}{
		"status":        model.JobStatusPending,
		"error_message": nil,
		"completed_at":  nil,
	}
	if job.Attempts >= MaxJobAttempts {
		updates["attempts"] = 0
	}

	err = s.uow.Run(func(opts ...utils.DBOption) error {
		count, err := s.jobRepo.CountActive(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to count active jobs: %w", err)
		}
		if count >= MaxActiveJobs {
			return ErrTooManyActiveJobs
		}

		rows, err := s.jobRepo.UpdateWhereStatus(ctx, jobID,
			[]model.JobStatus{model.JobStatusFailed}, updates, opts...)
		if err != nil {
			return fmt.Errorf("failed to reset job for retry: %w", err)
		}
		if rows == 0 {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.StartAsync(jobID)
	return s.jobRepo.GetByID(ctx, jobID)
}

// Delete removes a terminal job together with its cost-log rows.
func (s *jobService) Delete(ctx context.Context, jobID uint) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	if !job.Status.IsTerminal() {
		return ErrDeleteNonTerminal
	}

	return s.uow.Run(func(opts ...utils.DBOption) error {
		if err := s.costLogRepo.DeleteByJobID(ctx, jobID, opts...); err != nil {
			return fmt.Errorf("failed to delete cost logs: %w", err)
		}
		return s.jobRepo.Delete(ctx, jobID, opts...)
	})
}

func (s *jobService) Get(ctx context.Context, jobID uint) (*model.ResearchJob, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	return job, err
}

func (s *jobService) List(ctx context.Context, param *model.GetResearchJobParam) ([]model.ResearchJob, error) {
	return s.jobRepo.List(ctx, param)
}

func (s *jobService) SetFavorite(ctx context.Context, jobID uint, favorite bool) error {
	if _, err := s.Get(ctx, jobID); err != nil {
		return err
	}
	return s.jobRepo.SetFavorite(ctx, jobID, favorite)
}
