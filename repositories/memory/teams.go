package memory

import (
	"context"
	"maps"
	"time"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
)

type teamRepo struct{ repos }

func (r teamRepo) Create(ctx context.Context, team *models.Team) error {
	return r.write(ctx, func(st *state) error {
		for _, t := range st.teams {
			if t.Name == team.Name {
				return repositories.ErrTeamNameConflict
			}
		}
		if team.CreatedAt.IsZero() {
			team.CreatedAt = r.now()
		}
		st.teams[team.ID] = copyTeam(*team)
		return nil
	})
}

func (r teamRepo) GetByID(ctx context.Context, id string) (*models.Team, error) {
	var found *models.Team
	err := r.read(ctx, func(st *state) error {
		t, ok := st.teams[id]
		if !ok {
			return repositories.ErrTeamNotFound
		}
		t = copyTeam(t)
		found = &t
		return nil
	})
	return found, err
}

func (r teamRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Team, error) {
	return r.GetByID(ctx, id)
}

func (r teamRepo) ListByMember(ctx context.Context, userID string) ([]models.Team, error) {
	var out []models.Team
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.teams,
			func(t models.Team) bool { return t.HasMember(userID) },
			func(a, b models.Team) bool { return a.Name < b.Name })
		return nil
	})
	for i := range out {
		out[i] = copyTeam(out[i])
	}
	return out, err
}

func (r teamRepo) update(ctx context.Context, id string, fn func(t *models.Team) error) error {
	return r.write(ctx, func(st *state) error {
		t, ok := st.teams[id]
		if !ok {
			return repositories.ErrTeamNotFound
		}
		t = copyTeam(t)
		if err := fn(&t); err != nil {
			return err
		}
		st.teams[id] = t
		return nil
	})
}

func (r teamRepo) AddMember(ctx context.Context, teamID, userID, username string) error {
	return r.update(ctx, teamID, func(t *models.Team) error {
		if t.HasMember(userID) {
			return repositories.ErrTeamMemberConflict
		}
		t.Members = append(t.Members, userID)
		t.MemberNames[userID] = username
		return nil
	})
}

func (r teamRepo) RemoveMember(ctx context.Context, teamID, userID string) error {
	return r.update(ctx, teamID, func(t *models.Team) error {
		if !t.HasMember(userID) {
			return repositories.ErrTeamMemberNotFound
		}
		members := t.Members[:0]
		for _, id := range t.Members {
			if id != userID {
				members = append(members, id)
			}
		}
		t.Members = members
		delete(t.MemberNames, userID)
		return nil
	})
}

func (r teamRepo) UpdateLogoKey(ctx context.Context, teamID string, key *string) error {
	return r.update(ctx, teamID, func(t *models.Team) error {
		t.LogoKey = key
		return nil
	})
}

func copyTeam(t models.Team) models.Team {
	t.Members = cloneStrings(t.Members)
	if t.Members == nil {
		t.Members = []string{}
	}
	t.MemberNames = maps.Clone(t.MemberNames)
	if t.MemberNames == nil {
		t.MemberNames = make(map[string]string)
	}
	return t
}

type invitationRepo struct{ repos }

func (r invitationRepo) Create(ctx context.Context, inv *models.TeamInvitation) error {
	return r.write(ctx, func(st *state) error {
		if _, ok := st.teams[inv.TeamID]; !ok {
			return repositories.ErrTeamNotFound
		}
		for _, existing := range st.invitations {
			if existing.TeamID == inv.TeamID && existing.ToUserID == inv.ToUserID && existing.Status == models.InvitationPending {
				return repositories.ErrInvitationConflict
			}
		}
		st.invitations[inv.ID] = *inv
		return nil
	})
}

func (r invitationRepo) GetByID(ctx context.Context, id string) (*models.TeamInvitation, error) {
	var found *models.TeamInvitation
	err := r.read(ctx, func(st *state) error {
		inv, ok := st.invitations[id]
		if !ok {
			return repositories.ErrInvitationNotFound
		}
		found = &inv
		return nil
	})
	return found, err
}

func (r invitationRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.TeamInvitation, error) {
	return r.GetByID(ctx, id)
}

func (r invitationRepo) ListForUser(ctx context.Context, userID string, status *models.InvitationStatus) ([]models.TeamInvitation, error) {
	var out []models.TeamInvitation
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.invitations,
			func(inv models.TeamInvitation) bool {
				return inv.ToUserID == userID && (status == nil || inv.Status == *status)
			},
			func(a, b models.TeamInvitation) bool {
				if !a.CreatedAt.Equal(b.CreatedAt) {
					return a.CreatedAt.After(b.CreatedAt)
				}
				return a.ID < b.ID
			})
		return nil
	})
	return out, err
}

func (r invitationRepo) FindPending(ctx context.Context, teamID, toUserID string) (*models.TeamInvitation, error) {
	var found *models.TeamInvitation
	err := r.read(ctx, func(st *state) error {
		for _, inv := range st.invitations {
			if inv.TeamID == teamID && inv.ToUserID == toUserID && inv.Status == models.InvitationPending {
				inv := inv
				found = &inv
				return nil
			}
		}
		return repositories.ErrInvitationNotFound
	})
	return found, err
}

func (r invitationRepo) UpdateStatus(ctx context.Context, id string, status models.InvitationStatus, respondedAt time.Time) error {
	return r.write(ctx, func(st *state) error {
		inv, ok := st.invitations[id]
		if !ok {
			return repositories.ErrInvitationNotFound
		}
		inv.Status = status
		inv.RespondedAt = &respondedAt
		st.invitations[id] = inv
		return nil
	})
}
