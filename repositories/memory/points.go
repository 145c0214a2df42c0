package memory

import (
	"context"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
)

type pointsRepo struct{ repos }

func (r pointsRepo) Upsert(ctx context.Context, e *models.PointsEntry) error {
	return r.write(ctx, func(st *state) error {
		if _, ok := st.tournaments[e.TournamentID]; !ok {
			return repositories.ErrTournamentNotFound
		}
		key := pairKey{e.TournamentID, e.Key}
		if existing, ok := st.points[key]; ok {
			e.Seq = existing.Seq
		} else {
			maxSeq := 0
			for k, p := range st.points {
				if k.a == e.TournamentID && p.Seq > maxSeq {
					maxSeq = p.Seq
				}
			}
			e.Seq = maxSeq + 1
		}
		st.points[key] = *e
		return nil
	})
}

func (r pointsRepo) ListByTournament(ctx context.Context, tournamentID string) ([]models.PointsEntry, error) {
	var out []models.PointsEntry
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.points,
			func(p models.PointsEntry) bool { return p.TournamentID == tournamentID },
			func(a, b models.PointsEntry) bool { return a.Seq < b.Seq })
		return nil
	})
	return out, err
}
