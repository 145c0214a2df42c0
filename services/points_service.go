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
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const pointsSheet = "Points"

type PointsService interface {
	// Upsert перезаписывает строки таблицы по ключу: id пользователя, если задан, иначе имя игрока.
	Upsert(ctx context.Context, actor models.Actor, tournamentID string, entries []PointsInput) ([]models.RankedPointsEntry, error)
	Table(ctx context.Context, tournamentID string) ([]models.RankedPointsEntry, error)
	// Export пишет ранжированную таблицу в книгу XLSX.
	Export(ctx context.Context, tournamentID string, w io.Writer) error
}

type PointsInput struct {
	UserID      *string `json:"user_id,omitempty"`
	PlayerName  string  `json:"player_name"`
	Wins        int     `json:"wins"`
	Kills       int     `json:"kills"`
	TotalPoints int     `json:"total_points"`
}

type pointsService struct {
	store    repositories.Store
	notifier Notifier
	logger   *zap.Logger
	clock    Clock
}

func NewPointsService(store repositories.Store, notifier Notifier, logger *zap.Logger, clock Clock) PointsService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &pointsService{store: store, notifier: notifier, logger: logger.Named("points"), clock: clock}
}

func validatePoints(entries []PointsInput) error {
	if len(entries) == 0 {
		return validationError("at least one entry is required")
	}
	seen := make(map[string]bool, len(entries))
	for i := range entries {
		e := &entries[i]
		e.PlayerName = cleanText(e.PlayerName)
		if e.UserID != nil && *e.UserID == "" {
			e.UserID = nil
		}
		key := e.PlayerName
		if e.UserID != nil {
			key = *e.UserID
		}
		if key == "" {
			return validationError("entry %d: player_name or user_id is required", i)
		}
		if seen[key] {
			return validationError("entry %d: duplicate player %q", i, key)
		}
		seen[key] = true
		if e.Wins < 0 || e.Kills < 0 || e.TotalPoints < 0 {
			return validationError("entry %d: wins, kills and total_points must not be negative", i)
		}
	}
	return nil
}

func (s *pointsService) Upsert(ctx context.Context, actor models.Actor, tournamentID string, entries []PointsInput) ([]models.RankedPointsEntry, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := validatePoints(entries); err != nil {
		return nil, err
	}

	var stored []models.PointsEntry
	err := s.store.WithTx(ctx, func(tx repositories.Repos) error {
		// блокировка турнира упорядочивает параллельные апсерты, иначе новые строки получат одинаковый seq
		t, err := tx.Tournaments().GetByIDForUpdate(ctx, tournamentID)
		if err != nil {
			return mapTournamentRepoError(err, "load")
		}
		if t.Status == models.StatusCancelled {
			return fmt.Errorf("%w: tournament is cancelled", ErrTournamentInvalidStatusTransition)
		}

		now := s.clock.now()
		for _, in := range entries {
			e := &models.PointsEntry{
				TournamentID: t.ID,
				Key:          in.PlayerName,
				PlayerName:   in.PlayerName,
				Wins:         in.Wins,
				Kills:        in.Kills,
				TotalPoints:  in.TotalPoints,
				UpdatedAt:    now,
			}
			if in.UserID != nil {
				user, err := tx.Users().GetByID(ctx, *in.UserID)
				if err != nil {
					if errors.Is(err, repositories.ErrUserNotFound) {
						return fmt.Errorf("%w: %s", ErrUserNotFound, *in.UserID)
					}
					return fmt.Errorf("failed to load player %s: %w", *in.UserID, err)
				}
				e.Key, e.UserID = user.ID, &user.ID
				if e.PlayerName == "" {
					e.PlayerName = user.Username
				}
			}
			if err := tx.Points().Upsert(ctx, e); err != nil {
				return mapTournamentRepoError(err, "update points of")
			}
		}

		stored, err = tx.Points().ListByTournament(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("failed to reload points: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}

	ranked := models.RankPoints(stored)
	s.logger.Info("points table updated", zap.String("tournament_id", tournamentID), zap.Int("entries", len(entries)))
	s.notifier.Publish(tournamentID, hub.EventPointsUpdated, ranked)
	return ranked, nil
}

func (s *pointsService) Table(ctx context.Context, tournamentID string) ([]models.RankedPointsEntry, error) {
	if _, err := s.store.Tournaments().GetByID(ctx, tournamentID); err != nil {
		return nil, mapTournamentRepoError(err, "get")
	}
	entries, err := s.store.Points().ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list points: %w", err)
	}
	return models.RankPoints(entries), nil
}

func (s *pointsService) Export(ctx context.Context, tournamentID string, w io.Writer) error {
	ranked, err := s.Table(ctx, tournamentID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", pointsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	header := []interface{}{"Rank", "Player", "Wins", "Kills", "Total points", "Updated at"}
	if err := f.SetSheetRow(pointsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(pointsSheet, "A1", "F1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, e := range ranked {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{e.Rank, e.PlayerName, e.Wins, e.Kills, e.TotalPoints, e.UpdatedAt.Format(time.RFC3339)}
		if err := f.SetSheetRow(pointsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(pointsSheet, "B", "B", 28); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
