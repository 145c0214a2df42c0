package services

import (
	"bytes"
	"testing"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTeamInviteFlow(t *testing.T) {
	f := newFixture(t)
	teams := NewTeamService(f.store, nil, zap.NewNop(), fixedClock())
	invites := NewInviteService(f.store, zap.NewNop(), fixedClock())
	owner := f.addUser(t, "owner", 0)
	guest := f.addUser(t, "guest", 0)

	team, err := teams.Create(f.ctx, actorOf(owner), "Red Foxes")
	require.NoError(t, err)
	assert.Equal(t, []string{owner.ID}, team.Members)

	_, err = teams.Create(f.ctx, actorOf(guest), "Red Foxes")
	assert.ErrorIs(t, err, ErrTeamNameConflict)

	_, err = invites.Invite(f.ctx, actorOf(guest), team.ID, "owner")
	assert.ErrorIs(t, err, ErrOwnerActionForbidden)
	_, err = invites.Invite(f.ctx, actorOf(owner), team.ID, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = invites.Invite(f.ctx, actorOf(owner), team.ID, "owner")
	assert.ErrorIs(t, err, ErrAlreadyTeamMember)

	inv, err := invites.Invite(f.ctx, actorOf(owner), team.ID, "GUEST")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, inv.Status)
	assert.Equal(t, guest.ID, inv.ToUserID)

	_, err = invites.Invite(f.ctx, actorOf(owner), team.ID, "guest")
	assert.ErrorIs(t, err, ErrInvitationConflict)

	pending := models.InvitationPending
	mine, err := invites.ListMine(f.ctx, actorOf(guest), &pending)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	// чужое приглашение выглядит как несуществующее
	_, err = invites.Respond(f.ctx, actorOf(owner), inv.ID, true)
	assert.ErrorIs(t, err, ErrInvitationNotFound)

	accepted, err := invites.Respond(f.ctx, actorOf(guest), inv.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)

	_, err = invites.Respond(f.ctx, actorOf(guest), inv.ID, false)
	assert.ErrorIs(t, err, ErrInvitationResolved)

	got, err := teams.Get(f.ctx, team.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{owner.ID, guest.ID}, got.Members)

	guestTeams, err := teams.ListMine(f.ctx, actorOf(guest))
	require.NoError(t, err)
	require.Len(t, guestTeams, 1)

	assert.ErrorIs(t, teams.Leave(f.ctx, actorOf(owner), team.ID), ErrOwnerCannotLeave)
	require.NoError(t, teams.Leave(f.ctx, actorOf(guest), team.ID))
	assert.ErrorIs(t, teams.Leave(f.ctx, actorOf(guest), team.ID), ErrNotTeamMember)

	got, err = teams.Get(f.ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{owner.ID}, got.Members)
}

func TestInviteDecline(t *testing.T) {
	f := newFixture(t)
	teams := NewTeamService(f.store, nil, nil, fixedClock())
	invites := NewInviteService(f.store, nil, fixedClock())
	owner := f.addUser(t, "owner", 0)
	f.addUser(t, "guest", 0)

	team, err := teams.Create(f.ctx, actorOf(owner), "Blue Jays")
	require.NoError(t, err)
	inv, err := invites.Invite(f.ctx, actorOf(owner), team.ID, "guest")
	require.NoError(t, err)

	guest, err := f.store.Users().GetByUsername(f.ctx, "guest")
	require.NoError(t, err)
	declined, err := invites.Respond(f.ctx, actorOf(*guest), inv.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationDeclined, declined.Status)

	got, err := teams.Get(f.ctx, team.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)

	// после отказа можно пригласить снова
	_, err = invites.Invite(f.ctx, actorOf(owner), team.ID, "guest")
	require.NoError(t, err)
}

func TestTeamUploadLogoOwnerOnly(t *testing.T) {
	f := newFixture(t)
	uploader := newMemoryUploader()
	teams := NewTeamService(f.store, uploader, nil, fixedClock())
	owner := f.addUser(t, "owner", 0)
	other := f.addUser(t, "other", 0)

	team, err := teams.Create(f.ctx, actorOf(owner), "Logo Lords")
	require.NoError(t, err)

	_, err = teams.UploadLogo(f.ctx, actorOf(other), team.ID, "image/png", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, ErrOwnerActionForbidden)

	updated, err := teams.UploadLogo(f.ctx, actorOf(owner), team.ID, "image/png", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	require.NotNil(t, updated.LogoURL)
	assert.Len(t, uploader.objects, 1)
}
