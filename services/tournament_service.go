package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Dosada05/tournament-arena/hub"
	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"github.com/Dosada05/tournament-arena/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxTournamentPlayers = 10000

type TournamentService interface {
	Create(ctx context.Context, actor models.Actor, input TournamentInput) (*models.Tournament, error)
	Update(ctx context.Context, actor models.Actor, id string, input TournamentInput) (*models.Tournament, error)
	GoLive(ctx context.Context, actor models.Actor, id string, input GoLiveInput) (*models.Tournament, error)
	Cancel(ctx context.Context, actor models.Actor, id string) (*models.Tournament, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Tournament, error)
	List(ctx context.Context, filter models.TournamentFilter) ([]models.Tournament, error)
	UploadBanner(ctx context.Context, actor models.Actor, id string, contentType string, body io.Reader) (*models.Tournament, error)
	ListJoined(ctx context.Context, actor models.Actor) ([]models.JoinedTournament, error)
	ListWon(ctx context.Context, actor models.Actor) ([]models.WonTournament, error)
	// CancelStale отменяет турниры, оставшиеся upcoming после даты окончания, и возвращает их число.
	CancelStale(ctx context.Context) (int, error)
}

type TournamentInput struct {
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	CategoryID      string    `json:"category_id"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	EntryFee        int64     `json:"entry_fee"`
	MaxPlayers      int       `json:"max_players"`
	PrizePoolFirst  int64     `json:"prize_pool_first"`
	PrizePoolSecond int64     `json:"prize_pool_second"`
	PrizePoolThird  int64     `json:"prize_pool_third"`
}

type GoLiveInput struct {
	RoomID       string `json:"room_id"`
	RoomPassword string `json:"room_password"`
}

type tournamentService struct {
	store    repositories.Store
	uploader storage.FileUploader
	notifier Notifier
	logger   *zap.Logger
	clock    Clock
}

func NewTournamentService(
	store repositories.Store,
	uploader storage.FileUploader,
	notifier Notifier,
	logger *zap.Logger,
	clock Clock,
) TournamentService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &tournamentService{
		store:    store,
		uploader: uploader,
		notifier: notifier,
		logger:   logger.Named("tournaments"),
		clock:    clock,
	}
}

func (in TournamentInput) validate() (TournamentInput, error) {
	name, err := requireText("name", in.Name, 3, 100)
	if err != nil {
		return in, err
	}
	in.Name = name
	in.Description = cleanOptional(in.Description)
	if in.CategoryID == "" {
		return in, validationError("category_id is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return in, validationError("start_date and end_date are required")
	}
	if !in.EndDate.After(in.StartDate) {
		return in, validationError("end_date must be after start_date")
	}
	if in.EntryFee < 0 {
		return in, validationError("entry_fee must not be negative")
	}
	if in.MaxPlayers <= 0 || in.MaxPlayers > maxTournamentPlayers {
		return in, validationError("max_players must be between 1 and %d", maxTournamentPlayers)
	}
	if in.PrizePoolFirst < 0 || in.PrizePoolSecond < 0 || in.PrizePoolThird < 0 {
		return in, validationError("prize pools must not be negative")
	}
	in.StartDate, in.EndDate = in.StartDate.UTC(), in.EndDate.UTC()
	return in, nil
}

func (in TournamentInput) apply(t *models.Tournament) {
	t.Name = in.Name
	t.Description = in.Description
	t.CategoryID = in.CategoryID
	t.StartDate = in.StartDate
	t.EndDate = in.EndDate
	t.EntryFee = in.EntryFee
	t.MaxPlayers = in.MaxPlayers
	t.PrizePoolFirst = in.PrizePoolFirst
	t.PrizePoolSecond = in.PrizePoolSecond
	t.PrizePoolThird = in.PrizePoolThird
}

func mapTournamentRepoError(err error, action string) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentInvalidCategory):
		return ErrCategoryNotFound
	case errors.Is(err, repositories.ErrTournamentCapacity):
		return validationError("max_players is below the number of registered players")
	}
	return fmt.Errorf("failed to %s tournament: %w", action, err)
}

func (s *tournamentService) Create(ctx context.Context, actor models.Actor, input TournamentInput) (*models.Tournament, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	input, err := input.validate()
	if err != nil {
		return nil, err
	}

	t := &models.Tournament{
		ID:        uuid.NewString(),
		Status:    models.StatusUpcoming,
		CreatedBy: actor.UserID,
		CreatedAt: s.clock.now(),
	}
	input.apply(t)
	if err := s.store.Tournaments().Create(ctx, t); err != nil {
		return nil, mapTournamentRepoError(err, "create")
	}
	s.logger.Info("tournament created", zap.String("tournament_id", t.ID), zap.String("created_by", actor.UserID))
	return s.present(t), nil
}

func (s *tournamentService) Update(ctx context.Context, actor models.Actor, id string, input TournamentInput) (*models.Tournament, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	input, err := input.validate()
	if err != nil {
		return nil, err
	}

	var updated *models.Tournament
	err = s.store.WithTx(ctx, func(tx repositories.Repos) error {
		t, err := tx.Tournaments().GetByIDForUpdate(ctx, id)
		if err != nil {
			return mapTournamentRepoError(err, "load")
		}
		if t.Status != models.StatusUpcoming {
			return fmt.Errorf("%w: only upcoming tournaments can be edited", ErrTournamentInvalidStatusTransition)
		}
		if input.MaxPlayers < t.RegisteredCount {
			return validationError("max_players must be at least %d", t.RegisteredCount)
		}
		input.apply(t)
		if err := tx.Tournaments().UpdateDetails(ctx, t); err != nil {
			return mapTournamentRepoError(err, "update")
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return s.present(updated), nil
}

// transition блокирует турнир, сверяет статус с allowed и вызывает apply.
func (s *tournamentService) transition(
	ctx context.Context,
	id string,
	allowed []models.TournamentStatus,
	apply func(tx repositories.Repos, t *models.Tournament) error,
) (*models.Tournament, error) {
	var result *models.Tournament
	err := s.store.WithTx(ctx, func(tx repositories.Repos) error {
		t, err := tx.Tournaments().GetByIDForUpdate(ctx, id)
		if err != nil {
			return mapTournamentRepoError(err, "load")
		}
		ok := false
		for _, st := range allowed {
			if t.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: tournament is %s", ErrTournamentInvalidStatusTransition, t.Status)
		}
		if err := apply(tx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return result, nil
}

func (s *tournamentService) GoLive(ctx context.Context, actor models.Actor, id string, input GoLiveInput) (*models.Tournament, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	roomID, err := requireText("room_id", input.RoomID, 1, 64)
	if err != nil {
		return nil, err
	}
	roomPassword, err := requireText("room_password", input.RoomPassword, 1, 64)
	if err != nil {
		return nil, err
	}

	t, err := s.transition(ctx, id, []models.TournamentStatus{models.StatusUpcoming}, func(tx repositories.Repos, t *models.Tournament) error {
		if err := tx.Tournaments().MarkLive(ctx, t.ID, roomID, roomPassword); err != nil {
			return mapTournamentRepoError(err, "start")
		}
		t.Status = models.StatusLive
		t.RoomID, t.RoomPassword = &roomID, &roomPassword
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tournament is live", zap.String("tournament_id", t.ID))
	// данные комнаты не рассылаются; зарегистрированные игроки получают их из деталей турнира
	s.notifier.Publish(t.ID, hub.EventTournamentLive, map[string]interface{}{"tournament_id": t.ID})
	return s.present(t), nil
}

func (s *tournamentService) Cancel(ctx context.Context, actor models.Actor, id string) (*models.Tournament, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	t, err := s.cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tournament cancelled", zap.String("tournament_id", t.ID), zap.String("cancelled_by", actor.UserID))
	return s.present(t), nil
}

func (s *tournamentService) cancel(ctx context.Context, id string) (*models.Tournament, error) {
	allowed := []models.TournamentStatus{models.StatusUpcoming, models.StatusLive}
	t, err := s.transition(ctx, id, allowed, func(tx repositories.Repos, t *models.Tournament) error {
		if err := tx.Tournaments().UpdateStatus(ctx, t.ID, models.StatusCancelled); err != nil {
			return mapTournamentRepoError(err, "cancel")
		}
		t.Status = models.StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(t.ID, hub.EventTournamentCancelled, map[string]interface{}{"tournament_id": t.ID})
	return t, nil
}

func (s *tournamentService) Get(ctx context.Context, actor models.Actor, id string) (*models.Tournament, error) {
	var (
		t          *models.Tournament
		registered bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.store.Tournaments().GetByID(gctx, id)
		if err != nil {
			return mapTournamentRepoError(err, "get")
		}
		return nil
	})
	if actor.UserID != "" && !actor.Role.IsStaff() {
		g.Go(func() error {
			_, err := s.store.Registrations().Get(gctx, id, actor.UserID)
			switch {
			case err == nil:
				registered = true
			case errors.Is(err, repositories.ErrRegistrationNotFound):
			default:
				return fmt.Errorf("failed to check registration: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !actor.Role.IsStaff() && !registered {
		t.RoomID, t.RoomPassword = nil, nil
	}
	return s.present(t), nil
}

func (s *tournamentService) List(ctx context.Context, filter models.TournamentFilter) ([]models.Tournament, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, validationError("unknown status %q", *filter.Status)
	}
	filter.Limit, filter.Offset = normalizeLimit(filter.Limit, filter.Offset)
	list, err := s.store.Tournaments().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range list {
		list[i].RoomID, list[i].RoomPassword = nil, nil
		s.present(&list[i])
	}
	return list, nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, actor models.Actor, id string, contentType string, body io.Reader) (*models.Tournament, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, err := storage.ImageExtension(contentType)
	if err != nil {
		return nil, validationError("%v", err)
	}
	t, err := s.store.Tournaments().GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentRepoError(err, "get")
	}

	key := storage.ObjectKey("tournaments", t.ID, "banner", ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, body); err != nil {
		return nil, fmt.Errorf("failed to upload banner: %w", err)
	}
	if err := s.store.Tournaments().UpdateBannerKey(ctx, t.ID, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to delete orphaned banner", zap.String("key", key), zap.Error(delErr))
		}
		return nil, mapTournamentRepoError(err, "update banner of")
	}
	if old := t.BannerKey; old != nil && *old != "" {
		if err := s.uploader.Delete(ctx, *old); err != nil {
			s.logger.Warn("failed to delete previous banner", zap.String("key", *old), zap.Error(err))
		}
	}
	t.BannerKey = &key
	return s.present(t), nil
}

func (s *tournamentService) ListJoined(ctx context.Context, actor models.Actor) ([]models.JoinedTournament, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	joined, err := s.store.UserTournaments().ListJoined(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined tournaments: %w", err)
	}
	return joined, nil
}

func (s *tournamentService) ListWon(ctx context.Context, actor models.Actor) ([]models.WonTournament, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	won, err := s.store.UserTournaments().ListWon(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list won tournaments: %w", err)
	}
	return won, nil
}

func (s *tournamentService) CancelStale(ctx context.Context) (int, error) {
	stale, err := s.store.Tournaments().ListStaleUpcoming(ctx, s.clock.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list stale tournaments: %w", err)
	}
	cancelled := 0
	for _, t := range stale {
		if _, err := s.cancel(ctx, t.ID); err != nil {
			// турнир мог успеть перейти в live
			if errors.Is(err, ErrTournamentInvalidStatusTransition) {
				continue
			}
			return cancelled, err
		}
		cancelled++
		s.logger.Info("stale tournament cancelled", zap.String("tournament_id", t.ID))
	}
	return cancelled, nil
}

func (s *tournamentService) present(t *models.Tournament) *models.Tournament {
	t.BannerURL = publicURL(s.uploader, t.BannerKey)
	return t
}
