package memory

import (
	"context"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
)

type ledger struct{ repos }

func (r ledger) Create(ctx context.Context, req *models.CoinRequest) error {
	return r.write(ctx, func(st *state) error {
		if _, ok := st.users[req.UserID]; !ok {
			return repositories.ErrUserNotFound
		}
		st.coinRequests[req.ID] = *req
		st.userCoinRequests[pairKey{req.UserID, req.ID}] = *req
		return nil
	})
}

func (r ledger) GetByID(ctx context.Context, id string) (*models.CoinRequest, error) {
	var found *models.CoinRequest
	err := r.read(ctx, func(st *state) error {
		req, ok := st.coinRequests[id]
		if !ok {
			return repositories.ErrCoinRequestNotFound
		}
		found = &req
		return nil
	})
	return found, err
}

func (r ledger) GetByIDForUpdate(ctx context.Context, id string) (*models.CoinRequest, error) {
	return r.GetByID(ctx, id)
}

func (r ledger) RecordDecision(ctx context.Context, req *models.CoinRequest) error {
	return r.write(ctx, func(st *state) error {
		global, ok := st.coinRequests[req.ID]
		if !ok {
			return repositories.ErrCoinRequestNotFound
		}
		key := pairKey{global.UserID, global.ID}
		mirror, ok := st.userCoinRequests[key]
		if !ok {
			return repositories.ErrCoinRequestNotFound
		}
		for _, p := range []*models.CoinRequest{&global, &mirror} {
			p.Status = req.Status
			p.DecisionDate = req.DecisionDate
			p.DecidedBy = req.DecidedBy
		}
		st.coinRequests[req.ID] = global
		st.userCoinRequests[key] = mirror
		return nil
	})
}

func (r ledger) List(ctx context.Context, filter models.CoinRequestFilter) ([]models.CoinRequest, error) {
	var out []models.CoinRequest
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.coinRequests, coinRequestFilter(filter), newestRequestFirst)
		return nil
	})
	return paginate(out, filter.Limit, filter.Offset), err
}

func (r ledger) ListByUser(ctx context.Context, userID string, filter models.CoinRequestFilter) ([]models.CoinRequest, error) {
	var out []models.CoinRequest
	keep := coinRequestFilter(filter)
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.userCoinRequests,
			func(req models.CoinRequest) bool { return req.UserID == userID && keep(req) },
			newestRequestFirst)
		return nil
	})
	return paginate(out, filter.Limit, filter.Offset), err
}

func coinRequestFilter(filter models.CoinRequestFilter) func(models.CoinRequest) bool {
	return func(req models.CoinRequest) bool {
		if filter.Status != nil && req.Status != *filter.Status {
			return false
		}
		return filter.Kind == nil || req.Kind == *filter.Kind
	}
}

func newestRequestFirst(a, b models.CoinRequest) bool {
	if !a.RequestDate.Equal(b.RequestDate) {
		return a.RequestDate.After(b.RequestDate)
	}
	return a.ID < b.ID
}

type categoryRepo struct{ repos }

func (r categoryRepo) Create(ctx context.Context, c *models.Category) error {
	return r.write(ctx, func(st *state) error {
		if _, ok := st.categories[c.ID]; ok {
			return repositories.ErrCategoryConflict
		}
		st.categories[c.ID] = *c
		return nil
	})
}

func (r categoryRepo) GetByID(ctx context.Context, id string) (*models.Category, error) {
	var found *models.Category
	err := r.read(ctx, func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return repositories.ErrCategoryNotFound
		}
		found = &c
		return nil
	})
	return found, err
}

func (r categoryRepo) List(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := r.read(ctx, func(st *state) error {
		out = sortedValues(st.categories, nil, func(a, b models.Category) bool { return a.Name < b.Name })
		return nil
	})
	return out, err
}
