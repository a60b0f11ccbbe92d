package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"equity-research/internal/dto"
	"equity-research/internal/model"
	"equity-research/internal/repository"
	"equity-research/pkg/cron"
	"equity-research/pkg/logger"
	"equity-research/pkg/timer"
	"equity-research/pkg/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// SchedulerService manages recurring job schedules. Each enabled schedule
// carries exactly one armed one-shot timer for its next occurrence; firing
// creates the job and re-arms for the occurrence after that, so the chain is
// self-perpetuating until the schedule is disabled or deleted.
type SchedulerService interface {
	CreateSchedule(ctx context.Context, req dto.CreateScheduleRequest) (*model.Schedule, error)
	UpdateSchedule(ctx context.Context, id uint, req dto.UpdateScheduleRequest) (*model.Schedule, error)
	ToggleSchedule(ctx context.Context, id uint, enabled bool) (*model.Schedule, error)
	DeleteSchedule(ctx context.Context, id uint) error
	GetSchedule(ctx context.Context, id uint) (*model.Schedule, error)
	ListSchedules(ctx context.Context) ([]model.Schedule, error)

	// SetGlobalPause flips the scheduler-wide pause flag. Pausing disarms
	// every enabled schedule's timer; unpausing re-arms them in one sweep.
	SetGlobalPause(ctx context.Context, paused bool) error
	IsPaused(ctx context.Context) (bool, error)

	// RearmAll rebuilds the in-memory timers for every enabled schedule.
	// Called once at startup, since armed timers do not survive a restart.
	RearmAll(ctx context.Context) error
}

type schedulerService struct {
	log             *logger.Logger
	scheduleRepo    repository.ScheduleRepository
	stockRepo       repository.StockRepository
	promptRepo      repository.PromptRepository
	systemParamRepo repository.SystemParamRepository
	jobService      JobService
	timers          *timer.Registry
}

func NewSchedulerService(
	log *logger.Logger,
	scheduleRepo repository.ScheduleRepository,
	stockRepo repository.StockRepository,
	promptRepo repository.PromptRepository,
	systemParamRepo repository.SystemParamRepository,
	jobService JobService,
	timers *timer.Registry,
) SchedulerService {
	return &schedulerService{
		log:             log,
		scheduleRepo:    scheduleRepo,
		stockRepo:       stockRepo,
		promptRepo:      promptRepo,
		systemParamRepo: systemParamRepo,
		jobService:      jobService,
		timers:          timers,
	}
}

func (s *schedulerService) CreateSchedule(ctx context.Context, req dto.CreateScheduleRequest) (*model.Schedule, error) {
	if !utils.ContainsString(dto.KnownProviders(), req.Provider) {
		return nil, ErrUnknownProvider
	}
	if err := validateCronSpec(req.CronExpression, req.Timezone); err != nil {
		return nil, err
	}
	if _, err := s.promptRepo.GetByID(ctx, req.PromptID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}

	tags, err := utils.EncodeJSON(req.SelectionTags)
	if err != nil {
		return nil, err
	}
	stockIDs, err := utils.EncodeJSON(req.SelectionIDs)
	if err != nil {
		return nil, err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	schedule := &model.Schedule{
		Name:              req.Name,
		PromptID:          req.PromptID,
		Provider:          req.Provider,
		Selection:         model.StockSelection(req.Selection),
		SelectionTags:     tags,
		SelectionStockIDs: stockIDs,
		CronExpression:    req.CronExpression,
		Timezone:          req.Timezone,
		Enabled:           enabled,
	}
	if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	if schedule.Enabled {
		if err := s.arm(ctx, schedule); err != nil {
			return nil, err
		}
	}
	return schedule, nil
}

func (s *schedulerService) UpdateSchedule(ctx context.Context, id uint, req dto.UpdateScheduleRequest) (*model.Schedule, error) {
	schedule, err := s.getSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.PromptID != nil {
		if _, err := s.promptRepo.GetByID(ctx, *req.PromptID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPromptNotFound
			}
			return nil, err
		}
		schedule.PromptID = *req.PromptID
	}
	if req.Provider != nil {
		if !utils.ContainsString(dto.KnownProviders(), *req.Provider) {
			return nil, ErrUnknownProvider
		}
		schedule.Provider = *req.Provider
	}
	if req.Selection != nil {
		schedule.Selection = model.StockSelection(*req.Selection)
	}
	if req.SelectionTags != nil {
		tags, err := utils.EncodeJSON(req.SelectionTags)
		if err != nil {
			return nil, err
		}
		schedule.SelectionTags = tags
	}
	if req.SelectionIDs != nil {
		stockIDs, err := utils.EncodeJSON(req.SelectionIDs)
		if err != nil {
			return nil, err
		}
		schedule.SelectionStockIDs = stockIDs
	}
	if req.CronExpression != nil {
		schedule.CronExpression = *req.CronExpression
	}
	if req.Timezone != nil {
		schedule.Timezone = *req.Timezone
	}
	if err := validateCronSpec(schedule.CronExpression, schedule.Timezone); err != nil {
		return nil, err
	}

	if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	// The next occurrence may have moved; rebuild the timer from the new spec.
	if schedule.Enabled {
		if err := s.arm(ctx, schedule); err != nil {
			return nil, err
		}
	}
	return schedule, nil
}

func (s *schedulerService) ToggleSchedule(ctx context.Context, id uint, enabled bool) (*model.Schedule, error) {
	schedule, err := s.getSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.scheduleRepo.SetEnabled(ctx, id, enabled); err != nil {
		return nil, fmt.Errorf("failed to toggle schedule: %w", err)
	}
	schedule.Enabled = enabled

	if enabled {
		if err := s.arm(ctx, schedule); err != nil {
			return nil, err
		}
	} else {
		if err := s.disarm(ctx, schedule); err != nil {
			return nil, err
		}
	}
	return schedule, nil
}

func (s *schedulerService) DeleteSchedule(ctx context.Context, id uint) error {
	schedule, err := s.getSchedule(ctx, id)
	if err != nil {
		return err
	}
	if schedule.NextTimerID != nil {
		s.timers.Cancel(*schedule.NextTimerID)
	}
	return s.scheduleRepo.Delete(ctx, id)
}

func (s *schedulerService) GetSchedule(ctx context.Context, id uint) (*model.Schedule, error) {
	return s.getSchedule(ctx, id)
}

func (s *schedulerService) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	return s.scheduleRepo.List(ctx)
}

func (s *schedulerService) SetGlobalPause(ctx context.Context, paused bool) error {
	if err := s.systemParamRepo.Set(ctx, model.SysParamSchedulerPaused, paused); err != nil {
		return fmt.Errorf("failed to set scheduler pause flag: %w", err)
	}
	s.log.InfoContext(ctx, "Scheduler pause flag updated", logger.BoolField("paused", paused))

	if !paused {
		return s.RearmAll(ctx)
	}

	schedules, err := s.scheduleRepo.FindEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load enabled schedules: %w", err)
	}
	for i := range schedules {
		if err := s.disarm(ctx, &schedules[i]); err != nil {
			s.log.ErrorContext(ctx, "Failed to disarm schedule on pause",
				logger.ErrorField(err),
				logger.IntField("schedule_id", int(schedules[i].ID)),
			)
		}
	}
	s.log.InfoContext(ctx, "Schedules disarmed", logger.IntField("count", len(schedules)))
	return nil
}

func (s *schedulerService) IsPaused(ctx context.Context) (bool, error) {
	return s.systemParamRepo.IsSchedulerPaused(ctx)
}

func (s *schedulerService) RearmAll(ctx context.Context) error {
	schedules, err := s.scheduleRepo.FindEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load enabled schedules: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(10)
	for i := range schedules {
		schedule := schedules[i]
		group.Go(func() error {
			if err := s.arm(groupCtx, &schedule); err != nil {
				s.log.ErrorContext(groupCtx, "Failed to arm schedule at startup",
					logger.ErrorField(err),
					logger.IntField("schedule_id", int(schedule.ID)),
				)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "Schedules re-armed", logger.IntField("count", len(schedules)))
	return nil
}

func (s *schedulerService) getSchedule(ctx context.Context, id uint) (*model.Schedule, error) {
	schedule, err := s.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return schedule, nil
}

// arm replaces the schedule's timer with one for the next cron occurrence and
// persists next_run_at and the timer handle together.
func (s *schedulerService) arm(ctx context.Context, schedule *model.Schedule) error {
	if schedule.NextTimerID != nil {
		s.timers.Cancel(*schedule.NextTimerID)
	}

	expr, err := cron.Parse(schedule.CronExpression)
	if err != nil {
		return err
	}
	next, err := cron.Next(expr, schedule.Timezone, time.Now().UTC())
	if err != nil {
		return err
	}

	scheduleID := schedule.ID
	timerID := s.timers.Arm(time.Until(next), func() {
		s.onFire(scheduleID)
	})
	if err := s.scheduleRepo.SetTimerState(ctx, schedule.ID, &next, &timerID); err != nil {
		s.timers.Cancel(timerID)
		return fmt.Errorf("failed to persist timer state: %w", err)
	}

	schedule.NextRunAt = &next
	schedule.NextTimerID = &timerID
	s.log.InfoContext(ctx, "Schedule armed",
		logger.IntField("schedule_id", int(schedule.ID)),
		logger.StringField("next_run_at", next.Format(time.RFC3339)),
	)
	return nil
}

func (s *schedulerService) disarm(ctx context.Context, schedule *model.Schedule) error {
	if schedule.NextTimerID != nil {
		s.timers.Cancel(*schedule.NextTimerID)
	}
	schedule.NextRunAt = nil
	schedule.NextTimerID = nil
	return s.scheduleRepo.SetTimerState(ctx, schedule.ID, nil, nil)
}

// onFire runs on timer expiry. Every gate is re-read fresh from the database:
// a schedule disabled or deleted after arming must not fire, and the global
// pause flag is checked at fire time, never at arm time.
func (s *schedulerService) onFire(scheduleID uint) {
	ctx := context.Background()

	schedule, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error("Failed to reload schedule on fire",
				logger.ErrorField(err),
				logger.IntField("schedule_id", int(scheduleID)),
			)
		}
		return
	}
	if !schedule.Enabled {
		return
	}

	paused, err := s.systemParamRepo.IsSchedulerPaused(ctx)
	if err != nil {
		s.log.Error("Failed to read scheduler pause flag",
			logger.ErrorField(err),
			logger.IntField("schedule_id", int(scheduleID)),
		)
		paused = false
	}

	// A fire that races the pause sweep lands here: skip the run and leave
	// the schedule disarmed, matching the sweep's end state. Unpause re-arms.
	if paused {
		s.log.Info("Schedule fire skipped, scheduler paused",
			logger.IntField("schedule_id", int(scheduleID)),
		)
		if err := s.disarm(ctx, schedule); err != nil {
			s.log.Error("Failed to disarm schedule on paused fire",
				logger.ErrorField(err),
				logger.IntField("schedule_id", int(scheduleID)),
			)
		}
		return
	}

	s.runSchedule(ctx, schedule)

	if err := s.arm(ctx, schedule); err != nil {
		s.log.Error("Failed to re-arm schedule",
			logger.ErrorField(err),
			logger.IntField("schedule_id", int(scheduleID)),
		)
	}
}

// runSchedule resolves the stock selection and creates the job. A full
// admission queue drops this occurrence; the chain continues regardless.
func (s *schedulerService) runSchedule(ctx context.Context, schedule *model.Schedule) {
	stockIDs, err := s.resolveStockIDs(ctx, schedule)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to resolve schedule stock selection",
			logger.ErrorField(err),
			logger.IntField("schedule_id", int(schedule.ID)),
		)
		return
	}

	job, err := s.jobService.CreateForSchedule(ctx, schedule, stockIDs)
	if err != nil {
		if errors.Is(err, ErrTooManyActiveJobs) {
			s.log.WarnContext(ctx, "Scheduled run dropped, active job ceiling reached",
				logger.IntField("schedule_id", int(schedule.ID)),
			)
			return
		}
		s.log.ErrorContext(ctx, "Failed to create scheduled job",
			logger.ErrorField(err),
			logger.IntField("schedule_id", int(schedule.ID)),
		)
		return
	}

	now := time.Now().UTC()
	if err := s.scheduleRepo.SetLastRunAt(ctx, schedule.ID, now); err != nil {
		s.log.ErrorContext(ctx, "Failed to record schedule last run",
			logger.ErrorField(err),
			logger.IntField("schedule_id", int(schedule.ID)),
		)
	}

	s.jobService.StartAsync(job.ID)
}

func (s *schedulerService) resolveStockIDs(ctx context.Context, schedule *model.Schedule) ([]uint, error) {
	switch schedule.Selection {
	case model.SelectionAll:
		stocks, err := s.stockRepo.List(ctx)
		if err != nil {
			return nil, err
		}
		return stockModelIDs(stocks), nil

	case model.SelectionTagged:
		tags, err := utils.DecodeJSONSlice[string](schedule.SelectionTags)
		if err != nil {
			return nil, err
		}
		stocks, err := s.stockRepo.FindByTags(ctx, tags)
		if err != nil {
			return nil, err
		}
		return stockModelIDs(stocks), nil

	case model.SelectionSpecific:
		return utils.DecodeJSONSlice[uint](schedule.SelectionStockIDs)

	case model.SelectionNone:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown stock selection %q", schedule.Selection)
	}
}

func stockModelIDs(stocks []model.Stock) []uint {
	ids := make([]uint, 0, len(stocks))
	for _, stock := range stocks {
		ids = append(ids, stock.ID)
	}
	return ids
}

func validateCronSpec(expression, timezone string) error {
	if _, err := cron.Parse(expression); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScheduleSpec, err)
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("%w: invalid timezone %q", ErrInvalidScheduleSpec, timezone)
	}
	return nil
}
