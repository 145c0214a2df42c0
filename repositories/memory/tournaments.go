package memory

import (
	"context"
	"time"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
)

type tournamentRepo struct{ repos }

func (r tournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	return r.write(ctx, func(st *state) error {
		if _, ok := st.categories[t.CategoryID]; !ok {
			return repositories.ErrTournamentInvalidCategory
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = r.now()
		}
		st.tournaments[t.ID] = copyTournament(*t)
		return nil
	})
}

func (r tournamentRepo) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	var found *models.Tournament
	err := r.read(ctx, func(st *state) error {
		t, ok := st.tournaments[id]
		if !ok {
			return repositories.ErrTournamentNotFound
		}
		t = copyTournament(t)
		found = &t
		return nil
	})
	return found, err
}

func (r tournamentRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Tournament, error) {
	return r.GetByID(ctx, id)
}

func (r tournamentRepo) List(ctx context.Context, filter models.TournamentFilter) ([]models.Tournament, error) {
	var out []models.Tournament
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.tournaments,
			func(t models.Tournament) bool {
				if filter.Status != nil && t.Status != *filter.Status {
					return false
				}
				return filter.CategoryID == nil || t.CategoryID == *filter.CategoryID
			},
			newestTournamentFirst)
		return nil
	})
	out = paginate(out, filter.Limit, filter.Offset)
	for i := range out {
		out[i] = copyTournament(out[i])
	}
	return out, err
}

func (r tournamentRepo) update(ctx context.Context, id string, fn func(t *models.Tournament) error) error {
	return r.write(ctx, func(st *state) error {
		t, ok := st.tournaments[id]
		if !ok {
			return repositories.ErrTournamentNotFound
		}
		t = copyTournament(t)
		if err := fn(&t); err != nil {
			return err
		}
		st.tournaments[id] = t
		return nil
	})
}

func (r tournamentRepo) UpdateDetails(ctx context.Context, in *models.Tournament) error {
	return r.write(ctx, func(st *state) error {
		if _, ok := st.categories[in.CategoryID]; !ok {
			return repositories.ErrTournamentInvalidCategory
		}
		t, ok := st.tournaments[in.ID]
		if !ok {
			return repositories.ErrTournamentNotFound
		}
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
		st.tournaments[in.ID] = t
		return nil
	})
}

func (r tournamentRepo) UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) error {
	return r.update(ctx, id, func(t *models.Tournament) error {
		t.Status = status
		return nil
	})
}

func (r tournamentRepo) MarkLive(ctx context.Context, id, roomID, roomPassword string) error {
	return r.update(ctx, id, func(t *models.Tournament) error {
		t.Status = models.StatusLive
		t.RoomID = &roomID
		t.RoomPassword = &roomPassword
		return nil
	})
}

func (r tournamentRepo) MarkCompleted(ctx context.Context, id string, winners []models.Winner) error {
	return r.update(ctx, id, func(t *models.Tournament) error {
		t.Status = models.StatusCompleted
		t.Winners = append([]models.Winner(nil), winners...)
		return nil
	})
}

func (r tournamentRepo) IncrementRegisteredCount(ctx context.Context, id string) error {
	return r.update(ctx, id, func(t *models.Tournament) error {
		if t.RegisteredCount >= t.MaxPlayers {
			return repositories.ErrTournamentCapacity
		}
		t.RegisteredCount++
		return nil
	})
}

func (r tournamentRepo) UpdateBannerKey(ctx context.Context, id string, key *string) error {
	return r.update(ctx, id, func(t *models.Tournament) error {
		t.BannerKey = key
		return nil
	})
}

func (r tournamentRepo) ListStaleUpcoming(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	var out []models.Tournament
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.tournaments,
			func(t models.Tournament) bool {
				return t.Status == models.StatusUpcoming && !t.EndDate.After(now)
			},
			newestTournamentFirst)
		return nil
	})
	return out, err
}

func newestTournamentFirst(a, b models.Tournament) bool {
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.After(b.StartDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func copyTournament(t models.Tournament) models.Tournament {
	if t.Winners != nil {
		t.Winners = append([]models.Winner(nil), t.Winners...)
	}
	return t
}

type registrationRepo struct{ repos }

func (r registrationRepo) Create(ctx context.Context, reg *models.Registration) error {
	return r.write(ctx, func(st *state) error {
		key := pairKey{reg.TournamentID, reg.UserID}
		if _, ok := st.registrations[key]; ok {
			return repositories.ErrRegistrationConflict
		}
		if _, ok := st.tournaments[reg.TournamentID]; !ok {
			return repositories.ErrTournamentNotFound
		}
		stored := *reg
		stored.PlayerIDs = cloneStrings(reg.PlayerIDs)
		st.registrations[key] = stored
		return nil
	})
}

func (r registrationRepo) Get(ctx context.Context, tournamentID, userID string) (*models.Registration, error) {
	var found *models.Registration
	err := r.read(ctx, func(st *state) error {
		reg, ok := st.registrations[pairKey{tournamentID, userID}]
		if !ok {
			return repositories.ErrRegistrationNotFound
		}
		reg.PlayerIDs = cloneStrings(reg.PlayerIDs)
		found = &reg
		return nil
	})
	return found, err
}

func (r registrationRepo) ListByTournament(ctx context.Context, tournamentID string) ([]models.Registration, error) {
	var out []models.Registration
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.registrations,
			func(reg models.Registration) bool { return reg.TournamentID == tournamentID },
			func(a, b models.Registration) bool { return a.SlotNumber < b.SlotNumber })
		return nil
	})
	for i := range out {
		out[i].PlayerIDs = cloneStrings(out[i].PlayerIDs)
	}
	return out, err
}

type userTournamentRepo struct{ repos }

func (r userTournamentRepo) CreateJoined(ctx context.Context, v *models.JoinedTournament) error {
	return r.write(ctx, func(st *state) error {
		key := pairKey{v.UserID, v.TournamentID}
		if _, ok := st.joined[key]; ok {
			return repositories.ErrRegistrationConflict
		}
		st.joined[key] = *v
		return nil
	})
}

func (r userTournamentRepo) DeleteJoined(ctx context.Context, userID, tournamentID string) error {
	return r.write(ctx, func(st *state) error {
		delete(st.joined, pairKey{userID, tournamentID})
		return nil
	})
}

func (r userTournamentRepo) ListJoined(ctx context.Context, userID string) ([]models.JoinedTournament, error) {
	var out []models.JoinedTournament
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.joined,
			func(v models.JoinedTournament) bool { return v.UserID == userID },
			func(a, b models.JoinedTournament) bool {
				if !a.StartDate.Equal(b.StartDate) {
					return a.StartDate.Before(b.StartDate)
				}
				return a.TournamentID < b.TournamentID
			})
		return nil
	})
	return out, err
}

func (r userTournamentRepo) CreateWon(ctx context.Context, rec *models.WonTournament) error {
	return r.write(ctx, func(st *state) error {
		key := pairKey{rec.UserID, rec.TournamentID}
		if _, ok := st.won[key]; ok {
			return repositories.ErrWonRecordConflict
		}
		st.won[key] = *rec
		return nil
	})
}

func (r userTournamentRepo) ListWon(ctx context.Context, userID string) ([]models.WonTournament, error) {
	var out []models.WonTournament
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.won,
			func(rec models.WonTournament) bool { return rec.UserID == userID },
			func(a, b models.WonTournament) bool {
				if !a.CompletionDate.Equal(b.CompletionDate) {
					return a.CompletionDate.After(b.CompletionDate)
				}
				return a.TournamentID < b.TournamentID
			})
		return nil
	})
	return out, err
}
