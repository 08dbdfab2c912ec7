// Package engagement runs the earning side of the app: daily logins with
// streak bonuses, survey submissions and daily missions. Every reward is
// credited through the points service so it lands in the ledger like any
// other earn.
package engagement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/pointledger/internal/app/points"
	"github.com/tutu-network/pointledger/internal/domain"
	"github.com/tutu-network/pointledger/internal/infra/observability"
)

// DayLayout keys daily mission state.
const DayLayout = "2006-01-02"

// MissionTemplate describes a mission handed out every day.
type MissionTemplate struct {
	Kind        domain.MissionKind
	Title       string
	Description string
	Required    int
	Reward      domain.Amount
}

// Config controls engagement rewards.
type Config struct {
	LoginBonus domain.Amount // flat DAILY_LOGIN credit on the first login of a day
	Missions   []MissionTemplate
}

// DefaultMissions is the standard daily mission set.
func DefaultMissions() []MissionTemplate {
	return []MissionTemplate{
		{
			Kind:        domain.MissionLogin,
			Title:       "Daily check-in",
			Description: "Log in today.",
			Required:    1,
			Reward:      domain.MustAmount(5),
		},
		{
			Kind:        domain.MissionAnswerSurveys,
			Title:       "Survey sprint",
			Description: "Answer 3 surveys today.",
			Required:    3,
			Reward:      domain.MustAmount(30),
		},
	}
}

// DefaultConfig returns the standard reward settings.
func DefaultConfig() Config {
	return Config{
		LoginBonus: domain.MustAmount(1),
		Missions:   DefaultMissions(),
	}
}

// Service coordinates logins, surveys and missions per account.
type Service struct {
	store   domain.PointStore
	surveys domain.SurveySource
	points  *points.Service
	config  Config
	log     *zap.Logger
	locks   points.KeyedMutex
}

// New creates an engagement service. The points service's clock is used
// for every timestamp.
func New(store domain.PointStore, surveys domain.SurveySource, pts *points.Service, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		surveys: surveys,
		points:  pts,
		config:  cfg,
		log:     logger.Named("engagement"),
	}
}

// ─── Login & Streak ─────────────────────────────────────────────────────────

// LoginResult reports what a login changed.
type LoginResult struct {
	Streak   domain.Streak         `json:"streak"`
	NewDay   bool                  `json:"new_day"`
	Awarded  domain.Amount         `json:"awarded"`
	Missions []domain.DailyMission `json:"completed_missions,omitempty"`
}

// Login records a login at the current instant. The first login of a
// calendar day advances the streak and pays the login bonus, the streak
// bonus and the login mission; later logins that day change nothing.
func (s *Service) Login(ctx context.Context, account string) (LoginResult, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return LoginResult{}, err
	}
	unlock := s.locks.Lock(account)
	defer unlock()

	streak, err := s.store.LoadStreak(ctx, account)
	if err != nil {
		return LoginResult{}, fmt.Errorf("load streak %s: %w", account, err)
	}
	at := s.points.Now()
	newDay := streak.RecordLogin(at)
	observability.RecordLogin(newDay)
	if !newDay {
		return LoginResult{Streak: streak}, nil
	}
	// Persist before crediting: a retried login must not pay twice.
	if err := s.store.SaveStreak(ctx, account, streak); err != nil {
		return LoginResult{}, fmt.Errorf("save streak %s: %w", account, err)
	}

	res := LoginResult{Streak: streak, NewDay: true}
	dayKey := at.Format(DayLayout)
	if !s.config.LoginBonus.IsZero() {
		if err := s.credit(ctx, account, s.config.LoginBonus, domain.ReasonDailyLogin, dayKey); err != nil {
			return res, err
		}
		res.Awarded = res.Awarded.Add(s.config.LoginBonus)
	}
	bonus := streak.BonusPoints()
	if err := s.credit(ctx, account, bonus, domain.ReasonStreakBonus, fmt.Sprintf("day-%d", streak.CurrentDays)); err != nil {
		return res, err
	}
	res.Awarded = res.Awarded.Add(bonus)

	finished, paid, err := s.advanceMission(ctx, account, domain.MissionLogin, at)
	if err != nil {
		return res, err
	}
	res.Missions = finished
	res.Awarded = res.Awarded.Add(paid)

	s.log.Info("login",
		zap.String("account", account),
		zap.Int("streak_days", streak.CurrentDays),
		zap.Int64("awarded", res.Awarded.Value()))
	return res, nil
}

// Streak returns the account's login streak.
func (s *Service) Streak(ctx context.Context, account string) (domain.Streak, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return domain.Streak{}, err
	}
	return s.store.LoadStreak(ctx, account)
}

// ─── Surveys ────────────────────────────────────────────────────────────────

// Surveys lists surveys available now, optionally filtered by category.
func (s *Service) Surveys(ctx context.Context, category string) ([]domain.Survey, error) {
	at := s.points.Now()
	if category == "" {
		return s.surveys.Available(ctx, at)
	}
	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.surveys.ByCategory(ctx, c, at)
}

// Survey returns one survey by ID.
func (s *Service) Survey(ctx context.Context, id string) (domain.Survey, error) {
	return s.surveys.Find(ctx, id)
}

// SubmitResult reports what a survey submission paid.
type SubmitResult struct {
	Completion domain.SurveyCompletion `json:"completion"`
	Awarded    domain.Amount           `json:"awarded"`
	Missions   []domain.DailyMission   `json:"completed_missions,omitempty"`
}

// Submit validates answers for a survey and pays its reward. A survey pays
// at most once per account.
func (s *Service) Submit(ctx context.Context, account, surveyID string, answers []domain.Answer, took time.Duration) (SubmitResult, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return SubmitResult{}, err
	}
	survey, err := s.surveys.Find(ctx, surveyID)
	if err != nil {
		return SubmitResult{}, err
	}

	unlock := s.locks.Lock(account)
	defer unlock()

	at := s.points.Now()
	if !survey.IsAvailable(at) {
		return SubmitResult{}, fmt.Errorf("%w: %s", domain.ErrSurveyExpired, survey.ID)
	}
	history, err := s.history(ctx, account)
	if err != nil {
		return SubmitResult{}, err
	}
	if history.IsCompleted(survey.ID) {
		return SubmitResult{}, fmt.Errorf("%w: %s", domain.ErrAlreadyAnswered, survey.ID)
	}
	if err := survey.ValidateAnswers(answers); err != nil {
		return SubmitResult{}, err
	}

	completion := domain.NewSurveyCompletion(survey, at, took)
	if err := s.store.AddCompletion(ctx, account, completion); err != nil {
		return SubmitResult{}, fmt.Errorf("record completion: %w", err)
	}
	res := SubmitResult{Completion: completion}
	if !survey.Reward.IsZero() {
		if err := s.credit(ctx, account, survey.Reward, domain.ReasonSurveyCompleted, survey.ID); err != nil {
			return res, err
		}
		res.Awarded = survey.Reward
	}

	finished, paid, err := s.advanceMission(ctx, account, domain.MissionAnswerSurveys, at)
	if err != nil {
		return res, err
	}
	res.Missions = finished
	res.Awarded = res.Awarded.Add(paid)

	observability.SurveysCompleted.WithLabelValues(string(survey.Category)).Inc()
	s.log.Info("survey completed",
		zap.String("account", account),
		zap.String("survey", survey.ID),
		zap.Int64("awarded", res.Awarded.Value()),
		zap.Duration("took", took))
	return res, nil
}

// CompletionStats summarizes an account's survey activity.
type CompletionStats struct {
	Count       int                       `json:"count"`
	TotalEarned domain.Amount             `json:"total_earned"`
	TodayCount  int                       `json:"today_count"`
	TodayEarned domain.Amount             `json:"today_earned"`
	Recent      []domain.SurveyCompletion `json:"recent"`
}

// Completions returns survey statistics with up to recent completions,
// newest first.
func (s *Service) Completions(ctx context.Context, account string, recent int) (CompletionStats, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return CompletionStats{}, err
	}
	h, err := s.history(ctx, account)
	if err != nil {
		return CompletionStats{}, err
	}
	at := s.points.Now()
	return CompletionStats{
		Count:       h.Count(),
		TotalEarned: h.TotalEarned(),
		TodayCount:  h.CountOn(at),
		TodayEarned: h.EarnedOn(at),
		Recent:      h.Recent(recent),
	}, nil
}

// ─── Missions ───────────────────────────────────────────────────────────────

// Missions returns today's missions with their progress.
func (s *Service) Missions(ctx context.Context, account string) (domain.MissionTracker, error) {
	if err := domain.ValidateAccount(account); err != nil {
		return domain.MissionTracker{}, err
	}
	return s.today(ctx, account, s.points.Now())
}

// advanceMission steps every mission of kind and pays the ones it finished.
// Callers hold the account lock.
func (s *Service) advanceMission(ctx context.Context, account string, kind domain.MissionKind, at time.Time) ([]domain.DailyMission, domain.Amount, error) {
	tracker, err := s.today(ctx, account, at)
	if err != nil {
		return nil, domain.Zero, err
	}
	finished := tracker.Advance(kind)
	if err := s.store.SaveMissions(ctx, account, at.Format(DayLayout), tracker); err != nil {
		return nil, domain.Zero, fmt.Errorf("save missions %s: %w", account, err)
	}

	var paid domain.Amount
	for _, m := range finished {
		observability.MissionsCompleted.WithLabelValues(string(m.Kind)).Inc()
		if m.Reward.IsZero() {
			continue
		}
		if err := s.credit(ctx, account, m.Reward, domain.ReasonMissionCompleted, m.ID); err != nil {
			return finished, paid, err
		}
		paid = paid.Add(m.Reward)
	}
	return finished, paid, nil
}

func (s *Service) today(ctx context.Context, account string, at time.Time) (domain.MissionTracker, error) {
	tracker, ok, err := s.store.LoadMissions(ctx, account, at.Format(DayLayout))
	if err != nil {
		return domain.MissionTracker{}, fmt.Errorf("load missions %s: %w", account, err)
	}
	if ok {
		return tracker, nil
	}
	for _, tpl := range s.config.Missions {
		m := domain.NewDailyMission(tpl.Kind, tpl.Title, tpl.Required, tpl.Reward)
		m.Description = tpl.Description
		tracker.Add(m)
	}
	return tracker, nil
}

func (s *Service) history(ctx context.Context, account string) (*domain.CompletionHistory, error) {
	cs, err := s.store.Completions(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("load completions %s: %w", account, err)
	}
	return domain.NewCompletionHistory(cs), nil
}

// credit earns amount for account. Zero rewards are skipped.
//
// Callers persist the triggering state (streak, completion, mission
// progress) first so a retry cannot pay twice. A failed credit therefore
// leaves an unpaid reward, which is logged at error level for
// reconciliation.
func (s *Service) credit(ctx context.Context, account string, amount domain.Amount, reason domain.TransactionReason, ref string) error {
	if amount.IsZero() {
		return nil
	}
	if _, err := s.points.Earn(ctx, account, points.EarnRequest{Amount: amount, Reason: reason, Ref: ref}); err != nil {
		s.log.Error("reward not paid",
			zap.String("account", account),
			zap.String("reason", string(reason)),
			zap.String("ref", ref),
			zap.Int64("amount", amount.Value()),
			zap.Error(err))
		return fmt.Errorf("credit %s %s: %w", reason, ref, err)
	}
	return nil
}
