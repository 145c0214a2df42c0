// Package memory реализует repositories.Store в памяти процесса для тестов
// и локального запуска без DATABASE_URL.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
)

type pairKey struct {
	a, b string
}

// state это весь набор данных. Значения заменяются, а не меняются на месте, поэтому
// поверхностная копия всех map дает согласованный снимок.
type state struct {
	users            map[string]models.UserAccount
	coinRequests     map[string]models.CoinRequest
	userCoinRequests map[pairKey]models.CoinRequest // (user, request)
	categories       map[string]models.Category
	tournaments      map[string]models.Tournament
	registrations    map[pairKey]models.Registration     // (tournament, user)
	joined           map[pairKey]models.JoinedTournament // (user, tournament)
	won              map[pairKey]models.WonTournament    // (user, tournament)
	teams            map[string]models.Team
	invitations      map[string]models.TeamInvitation
	points           map[pairKey]models.PointsEntry // (tournament, key)
}

func newState() *state {
	return &state{
		users:            make(map[string]models.UserAccount),
		coinRequests:     make(map[string]models.CoinRequest),
		userCoinRequests: make(map[pairKey]models.CoinRequest),
		categories:       make(map[string]models.Category),
		tournaments:      make(map[string]models.Tournament),
		registrations:    make(map[pairKey]models.Registration),
		joined:           make(map[pairKey]models.JoinedTournament),
		won:              make(map[pairKey]models.WonTournament),
		teams:            make(map[string]models.Team),
		invitations:      make(map[string]models.TeamInvitation),
		points:           make(map[pairKey]models.PointsEntry),
	}
}

func (s *state) clone() *state {
	return &state{
		users:            maps.Clone(s.users),
		coinRequests:     maps.Clone(s.coinRequests),
		userCoinRequests: maps.Clone(s.userCoinRequests),
		categories:       maps.Clone(s.categories),
		tournaments:      maps.Clone(s.tournaments),
		registrations:    maps.Clone(s.registrations),
		joined:           maps.Clone(s.joined),
		won:              maps.Clone(s.won),
		teams:            maps.Clone(s.teams),
		invitations:      maps.Clone(s.invitations),
		points:           maps.Clone(s.points),
	}
}

// Store выполняет транзакции по одной: WithTx работает с личным снимком и публикует его
// при успехе. Чтения вне транзакции видят последний закоммиченный снимок.
type Store struct {
	repos
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

var _ repositories.Store = (*Store)(nil)

func NewStore() *Store {
	s := &Store{state: newState(), now: time.Now}
	s.repos = repos{store: s}
	return s
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repositories.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	if err := fn(repos{store: s, tx: snapshot}); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = snapshot
	s.mu.Unlock()
	return nil
}

// repos привязывает репозитории к снимку транзакции (tx != nil) или к самому хранилищу.
type repos struct {
	store *Store
	tx    *state
}

func (r repos) Users() repositories.UserRepository { return userRepo{r} }
func (r repos) CoinRequests() repositories.CoinRequestLedger { return ledger{r} }
func (r repos) Categories() repositories.CategoryRepository { return categoryRepo{r} }
func (r repos) Tournaments() repositories.TournamentRepository { return tournamentRepo{r} }
func (r repos) Registrations() repositories.RegistrationRepository { return registrationRepo{r} }
func (r repos) UserTournaments() repositories.UserTournamentRepository {
	return userTournamentRepo{r}
}
func (r repos) Teams() repositories.TeamRepository { return teamRepo{r} }
func (r repos) Invitations() repositories.InvitationRepository { return invitationRepo{r} }
func (r repos) Points() repositories.PointsRepository { return pointsRepo{r} }

func (r repos) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return fn(r.store.state)
}

// write вне транзакции выполняется как отдельная транзакция из одного выражения.
func (r repos) write(ctx context.Context, fn func(st *state) error) error {
	if r.tx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(r.tx)
	}
	return r.store.WithTx(ctx, func(tx repositories.Repos) error {
		return fn(tx.(repos).tx)
	})
}

func (r repos) now() time.Time {
	return r.store.now().UTC()
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortedValues[K comparable, V any](m map[K]V, keep func(V) bool, less func(a, b V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
