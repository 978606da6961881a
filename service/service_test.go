package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pizza-api/auth"
	"pizza-api/config"
	"pizza-api/metrics"
	"pizza-api/models"
	"pizza-api/policy"
	"pizza-api/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	repo       *repository.Repository
	reg        *metrics.Registry
	sessions   *Sessions
	franchises *Franchises
	orders     *Orders
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, ":memory:")
}

func newFixtureAt(t *testing.T, path string) *fixture {
	t.Helper()
	db, err := config.InitDB(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := repository.New(db)
	reg := metrics.NewRegistry()
	ledger := auth.NewLedger([]byte("test-secret"), time.Hour, auth.NewMemoryRevocations())
	return &fixture{
		repo:       repo,
		reg:        reg,
		sessions:   NewSessions(repo, auth.BcryptHasher{Cost: bcrypt.MinCost}, ledger, reg),
		franchises: NewFranchises(repo, reg),
		orders:     NewOrders(repo, reg),
	}
}

// register signs up a diner and returns its token identity
func (f *fixture) register(t *testing.T, name, email string) (auth.Identity, string) {
	t.Helper()
	ctx := context.Background()
	_, token, err := f.sessions.Register(ctx, name, email, "pw")
	require.NoError(t, err)
	id, err := f.sessions.Authenticate(ctx, token.Value)
	require.NoError(t, err)
	return id, token.Value
}

func (f *fixture) admin(t *testing.T) auth.Identity {
	t.Helper()
	ctx := context.Background()
	_, err := f.sessions.EnsureAdmin(ctx, "admin", "a@jwt.com", "admin")
	require.NoError(t, err)
	_, token, err := f.sessions.Login(ctx, "a@jwt.com", "admin")
	require.NoError(t, err)
	id, err := f.sessions.Authenticate(ctx, token.Value)
	require.NoError(t, err)
	return id
}

func TestKindStatus(t *testing.T) {
	assert.Equal(t, 400, KindValidation.Status())
	assert.Equal(t, 404, KindUnknownUser.Status())
	assert.Equal(t, 401, KindUnauthenticated.Status())
	assert.Equal(t, 403, KindForbidden.Status())
	assert.Equal(t, 404, KindNotFound.Status())
	assert.Equal(t, 500, KindStorage.Status())
	assert.Equal(t, 500, KindUnknown.Status())
	assert.Equal(t, KindUnknown, KindOf(assert.AnError))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("no")))
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, token, err := f.sessions.Register(ctx, "pizza diner", "d@jwt.com", "pw")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, []models.Role{models.RoleDiner}, user.RoleSet())
	assert.NotEmpty(t, token.Value)
	assert.NotEqual(t, "pw", user.PasswordDigest)

	_, _, err = f.sessions.Register(ctx, "pizza diner", "d@jwt.com", "pw")
	assert.Equal(t, KindValidation, KindOf(err))

	_, _, err = f.sessions.Register(ctx, "", "x@jwt.com", "pw")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "name, email, and password are required", err.(*Error).Message)

	_, again, err := f.sessions.Login(ctx, "d@jwt.com", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, token.Value, again.Value)

	_, _, err = f.sessions.Login(ctx, "d@jwt.com", "wrong")
	assert.Equal(t, KindUnknownUser, KindOf(err))
	_, _, err = f.sessions.Login(ctx, "nobody@jwt.com", "pw")
	assert.Equal(t, KindUnknownUser, KindOf(err))

	assert.Equal(t, int64(1), f.reg.Value(metrics.UsersRegistered))
	assert.Equal(t, int64(1), f.reg.Value(metrics.UsersLoggedIn))
	assert.Equal(t, int64(2), f.reg.Value(metrics.AuthFailed))
	assert.Equal(t, int64(2), f.reg.Value(metrics.AuthTokensCreated))
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, first := f.register(t, "pizza diner", "d@jwt.com")
	_, second, err := f.sessions.Login(ctx, "d@jwt.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, first))
	_, err = f.sessions.Authenticate(ctx, first)
	assert.Equal(t, KindUnauthenticated, KindOf(err))
	assert.Equal(t, KindUnauthenticated, KindOf(f.sessions.Logout(ctx, first)))

	_, err = f.sessions.Authenticate(ctx, second.Value)
	assert.NoError(t, err)

	_, err = f.sessions.Authenticate(ctx, "")
	assert.Equal(t, KindUnauthenticated, KindOf(err))
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, _ := f.register(t, "a", "a1@jwt.com")
	b, _ := f.register(t, "b", "b1@jwt.com")
	admin := f.admin(t)

	user, err := f.sessions.UpdateProfile(ctx, a, a.UserID, ProfileUpdate{Email: "a2@jwt.com", Password: "new"})
	require.NoError(t, err)
	assert.Equal(t, "a2@jwt.com", user.Email)
	assert.Equal(t, "a", user.Name)

	_, _, err = f.sessions.Login(ctx, "a2@jwt.com", "new")
	assert.NoError(t, err)
	_, _, err = f.sessions.Login(ctx, "a1@jwt.com", "pw")
	assert.Equal(t, KindUnknownUser, KindOf(err))

	_, err = f.sessions.UpdateProfile(ctx, a, b.UserID, ProfileUpdate{Name: "hijack"})
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = f.sessions.UpdateProfile(ctx, admin, b.UserID, ProfileUpdate{Name: "hijack"})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.sessions.UpdateProfile(ctx, b, b.UserID, ProfileUpdate{Email: "a2@jwt.com"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, _ := f.register(t, "a", "a@x.com")
	b, _ := f.register(t, "b", "b@x.com")
	c, _ := f.register(t, "c", "c@x.com")
	admin := f.admin(t)

	assert.Equal(t, KindForbidden, KindOf(f.sessions.DeleteAccount(ctx, a, b.UserID)))
	require.NoError(t, f.sessions.DeleteAccount(ctx, admin, b.UserID))
	require.NoError(t, f.sessions.DeleteAccount(ctx, c, c.UserID))
	assert.Equal(t, KindNotFound, KindOf(f.sessions.DeleteAccount(ctx, admin, b.UserID)))

	_, err := f.sessions.Me(ctx, c)
	assert.Equal(t, KindNotFound, KindOf(err))
	me, err := f.sessions.Me(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", me.Email)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first, err := f.sessions.EnsureAdmin(ctx, "admin", "a@jwt.com", "admin")
	require.NoError(t, err)
	second, err := f.sessions.EnsureAdmin(ctx, "admin", "a@jwt.com", "other")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.HasRole(models.RoleAdmin))

	_, err = f.sessions.EnsureAdmin(ctx, "admin", "b@jwt.com", "")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestFranchiseLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.admin(t)
	owner, _ := f.register(t, "pizza franchisee", "f@jwt.com")
	diner, _ := f.register(t, "pizza diner", "d@jwt.com")

	_, err := f.franchises.CreateFranchise(ctx, diner, FranchiseInput{Name: "pizzaPocket"})
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, "unable to create a franchise", err.(*Error).Message)

	_, err = f.franchises.CreateFranchise(ctx, admin, FranchiseInput{Name: "  "})
	assert.Equal(t, KindValidation, KindOf(err))

	fr, err := f.franchises.CreateFranchise(ctx, admin, FranchiseInput{Name: "pizzaPocket", Admins: []string{"f@jwt.com"}})
	require.NoError(t, err)
	require.Len(t, fr.Admins, 1)
	assert.Equal(t, owner.UserID, fr.Admins[0].UserID)

	_, err = f.franchises.CreateStore(ctx, diner, fr.ID, StoreInput{Name: "SLC"})
	assert.Equal(t, KindForbidden, KindOf(err))
	store, err := f.franchises.CreateStore(ctx, owner, fr.ID, StoreInput{Name: "SLC"})
	require.NoError(t, err)
	assert.Equal(t, fr.ID, store.FranchiseID)
	_, err = f.franchises.CreateStore(ctx, owner, 999, StoreInput{Name: "SLC"})
	assert.Equal(t, KindNotFound, KindOf(err))

	mine, err := f.franchises.ListUserFranchises(ctx, owner, owner.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Stores, 1)
	theirs, err := f.franchises.ListUserFranchises(ctx, diner, owner.UserID)
	require.NoError(t, err)
	assert.Empty(t, theirs)
	asAdmin, err := f.franchises.ListUserFranchises(ctx, admin, owner.UserID)
	require.NoError(t, err)
	assert.Len(t, asAdmin, 1)

	assert.Equal(t, KindForbidden, KindOf(f.franchises.DeleteStore(ctx, diner, fr.ID, store.ID)))
	require.NoError(t, f.franchises.DeleteStore(ctx, owner, fr.ID, store.ID))
	assert.Equal(t, KindNotFound, KindOf(f.franchises.DeleteStore(ctx, owner, fr.ID, store.ID)))

	err = f.franchises.DeleteFranchise(ctx, owner, fr.ID)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, "unable to delete a franchise", err.(*Error).Message)
	require.NoError(t, f.franchises.DeleteFranchise(ctx, admin, fr.ID))
	assert.Equal(t, KindNotFound, KindOf(f.franchises.DeleteFranchise(ctx, admin, fr.ID)))

	assert.Equal(t, int64(1), f.reg.Value(metrics.FranchisesCreated))
	assert.Equal(t, int64(1), f.reg.Value(metrics.StoresCreated))
}

func TestListFranchisesAnonymous(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.admin(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := f.franchises.CreateFranchise(ctx, admin, FranchiseInput{Name: name})
		require.NoError(t, err)
	}

	page, err := f.franchises.ListFranchises(ctx, auth.Identity{}, 0, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Franchises, 2)
	assert.True(t, page.More)

	page, err = f.franchises.ListFranchises(ctx, auth.Identity{}, 1, 10, "zzz")
	require.NoError(t, err)
	assert.NotNil(t, page.Franchises)
	assert.Empty(t, page.Franchises)
	assert.False(t, page.More)
}

func TestMenu(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.admin(t)
	diner, _ := f.register(t, "pizza diner", "d@jwt.com")

	_, err := f.orders.AddMenuItem(ctx, diner, MenuItemInput{Title: "Veggie", Price: 0.0038})
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, "unable to add menu item", err.(*Error).Message)

	_, err = f.orders.AddMenuItem(ctx, admin, MenuItemInput{Title: "Veggie", Price: -1})
	assert.Equal(t, KindValidation, KindOf(err))

	menu, err := f.orders.AddMenuItem(ctx, admin, MenuItemInput{Title: "Veggie", Price: 0.0038})
	require.NoError(t, err)
	assert.Len(t, menu, 1)
	menu, err = f.orders.AddMenuItem(ctx, admin, MenuItemInput{Title: "Pepperoni", Price: 0.0042})
	require.NoError(t, err)
	require.Len(t, menu, 2)
	assert.Equal(t, "Pepperoni", menu[1].Title)
}

func TestOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, _ := f.register(t, "a", "a@x.com")
	b, _ := f.register(t, "b", "b@x.com")

	_, err := f.orders.CreateOrder(ctx, auth.Identity{}, OrderInput{Items: []OrderItemInput{{MenuID: 1, Price: 1}}})
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = f.orders.CreateOrder(ctx, a, OrderInput{FranchiseID: 1, StoreID: 1})
	assert.Equal(t, KindValidation, KindOf(err))

	order, err := f.orders.CreateOrder(ctx, a, OrderInput{
		FranchiseID: 1,
		StoreID:     1,
		Items: []OrderItemInput{
			{MenuID: 1, Description: "Veggie", Price: 0.0038},
			{MenuID: 2, Description: "Pepperoni", Price: 0.0042},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, a.UserID, order.DinerID)
	assert.InDelta(t, 0.008, order.Total, 1e-12)
	assert.Equal(t, int64(8000), f.reg.Value(metrics.RevenueMicros))

	for i := 0; i < 11; i++ {
		_, err := f.orders.CreateOrder(ctx, a, OrderInput{Items: []OrderItemInput{{MenuID: 1, Price: 1}}})
		require.NoError(t, err)
	}

	seen := map[uint]bool{}
	for p := 1; ; p++ {
		page, err := f.orders.ListOrders(ctx, a, p)
		require.NoError(t, err)
		assert.Equal(t, a.UserID, page.DinerID)
		assert.LessOrEqual(t, len(page.Orders), OrdersPageSize)
		for _, o := range page.Orders {
			assert.False(t, seen[o.ID], "order %d listed twice", o.ID)
			seen[o.ID] = true
		}
		if !page.More {
			break
		}
	}
	assert.Len(t, seen, 12)

	other, err := f.orders.ListOrders(ctx, b, 1)
	require.NoError(t, err)
	assert.Empty(t, other.Orders)
	assert.False(t, other.More)
}

func TestLongPasswordIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	long := strings.Repeat("p", 73)

	_, _, err := f.sessions.Register(ctx, "d", "long@x.com", long)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "password is too long", err.(*Error).Message)

	a, _ := f.register(t, "a", "a@x.com")
	_, err = f.sessions.UpdateProfile(ctx, a, a.UserID, ProfileUpdate{Password: long})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "password is too long", err.(*Error).Message)
}

func TestNegativeItemPriceIsRejected(t *testing.T) {
	f := newFixture(t)
	a, _ := f.register(t, "a", "a@x.com")
	_, err := f.orders.CreateOrder(context.Background(), a, OrderInput{Items: []OrderItemInput{{MenuID: 1, Price: -1}}})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestAuthorizeChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.admin(t)
	owner, _ := f.register(t, "pizza franchisee", "f@jwt.com")
	diner, _ := f.register(t, "pizza diner", "d@jwt.com")

	assert.NoError(t, Authorize(admin, policy.AddMenuItem, policy.Target{}))
	err := Authorize(diner, policy.AddMenuItem, policy.Target{})
	require.Error(t, err)
	assert.Equal(t, "unable to add menu item", err.(*Error).Message)

	fr, err := f.franchises.CreateFranchise(ctx, admin, FranchiseInput{Name: "pizzaPocket", Admins: []string{"f@jwt.com"}})
	require.NoError(t, err)
	assert.NoError(t, f.franchises.AuthorizeStore(ctx, owner, fr.ID, policy.CreateStore))
	assert.Equal(t, KindForbidden, KindOf(f.franchises.AuthorizeStore(ctx, diner, fr.ID, policy.CreateStore)))
	assert.Equal(t, KindNotFound, KindOf(f.franchises.AuthorizeStore(ctx, owner, 999, policy.CreateStore)))
}

func TestConcurrentCreatesGetUniqueIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixtureAt(t, filepath.Join(t.TempDir(), "pizza.db"))
	const n = 20

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		users = map[uint]bool{}
		errs  []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, _, err := f.sessions.Register(ctx, "diner", fmt.Sprintf("d%d@jwt.com", i), "pw")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			users[user.ID] = true
		}(i)
	}
	wg.Wait()
	require.Empty(t, errs)
	assert.Len(t, users, n)

	diner, _ := f.register(t, "orders", "orders@jwt.com")
	orders := map[uint]bool{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := f.orders.CreateOrder(ctx, diner, OrderInput{FranchiseID: 1, StoreID: 1,
				Items: []OrderItemInput{{MenuID: 1, Description: "Veggie", Price: 0.0038}}})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			orders[o.ID] = true
		}()
	}
	wg.Wait()
	require.Empty(t, errs)
	assert.Len(t, orders, n)
	assert.Equal(t, int64(n), f.reg.Value(metrics.OrdersCreated))
}

func TestConcurrentDuplicateRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFixtureAt(t, filepath.Join(t.TempDir(), "pizza.db"))
	const n = 15

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		kinds     []Kind
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.sessions.Register(ctx, "diner", "same@jwt.com", "pw")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			kinds = append(kinds, KindOf(err))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, kinds, n-1)
	for _, k := range kinds {
		assert.Equal(t, KindValidation, k)
	}
}
