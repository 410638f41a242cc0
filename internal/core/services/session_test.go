// internal/core/services/session_test.go
package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/cartsync/internal/core/services"
	"github.com/ammerola/cartsync/test/helpers"
)

// fakeSessionCart records the calls made by the observer
type fakeSessionCart struct {
	mu        sync.Mutex
	calls     []string
	session   int64
	reloadErr error
	resetErr  error
	expired   func(ctx context.Context)
}

func (f *fakeSessionCart) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSessionCart) SetSession(userID int64) {
	f.record("set_session")
	f.mu.Lock()
	f.session = userID
	f.mu.Unlock()
}

func (f *fakeSessionCart) ReloadFromServer(context.Context) error {
	f.record("reload")
	return f.reloadErr
}

func (f *fakeSessionCart) MergeUnsynced(context.Context) error {
	f.record("merge")
	return f.reloadErr
}

func (f *fakeSessionCart) Reset(context.Context) error {
	f.record("reset")
	return f.resetErr
}

func (f *fakeSessionCart) OnAuthExpired(fn func(ctx context.Context)) {
	f.expired = fn
}

func (f *fakeSessionCart) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestSessionObserver_Login(t *testing.T) {
	tests := []struct {
		name          string
		policy        services.LoginPolicy
		reloadErr     error
		expectedCalls []string
		wantErr       bool
	}{
		{
			name:          "replace_policy_reloads",
			policy:        services.LoginPolicyReplace,
			expectedCalls: []string{"set_session", "reload"},
		},
		{
			name:          "merge_policy_merges",
			policy:        services.LoginPolicyMerge,
			expectedCalls: []string{"set_session", "merge"},
		},
		{
			name:          "empty_policy_defaults_to_replace",
			expectedCalls: []string{"set_session", "reload"},
		},
		{
			name:          "reload_failure_keeps_session",
			policy:        services.LoginPolicyReplace,
			reloadErr:     errors.New("server unavailable"),
			expectedCalls: []string{"set_session", "reload"},
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := &fakeSessionCart{reloadErr: tt.reloadErr}
			observer := services.NewSessionObserver(cart, tt.policy, helpers.TestLogger())

			err := observer.Login(context.Background(), userID)

			if tt.wantErr {
				assert.ErrorContains(t, err, "failed to load cart after login")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expectedCalls, cart.Calls())

			state, id := observer.State()
			assert.Equal(t, services.SessionAuthenticated, state)
			assert.Equal(t, userID, id)
		})
	}
}

func TestSessionObserver_LoginSameUserIsNoop(t *testing.T) {
	cart := &fakeSessionCart{}
	observer := services.NewSessionObserver(cart, services.LoginPolicyReplace, helpers.TestLogger())
	ctx := context.Background()

	require.NoError(t, observer.Login(ctx, userID))
	require.NoError(t, observer.Login(ctx, userID))

	assert.Equal(t, []string{"set_session", "reload"}, cart.Calls())
}

func TestSessionObserver_UserSwitchResetsFirst(t *testing.T) {
	cart := &fakeSessionCart{}
	observer := services.NewSessionObserver(cart, services.LoginPolicyReplace, helpers.TestLogger())
	ctx := context.Background()

	require.NoError(t, observer.Login(ctx, userID))
	require.NoError(t, observer.Login(ctx, 8))

	assert.Equal(t, []string{"set_session", "reload", "reset", "set_session", "reload"}, cart.Calls())
	assert.Equal(t, int64(8), cart.session)
}

func TestSessionObserver_LoginRejectsInvalidUser(t *testing.T) {
	cart := &fakeSessionCart{}
	observer := services.NewSessionObserver(cart, services.LoginPolicyReplace, helpers.TestLogger())

	err := observer.Login(context.Background(), 0)

	assert.Error(t, err)
	assert.Empty(t, cart.Calls())
	state, _ := observer.State()
	assert.Equal(t, services.SessionAnonymous, state)
}

func TestSessionObserver_Logout(t *testing.T) {
	t.Run("anonymous_logout_does_nothing", func(t *testing.T) {
		cart := &fakeSessionCart{}
		observer := services.NewSessionObserver(cart, services.LoginPolicyReplace, helpers.TestLogger())

		require.NoError(t, observer.Logout(context.Background()))
		assert.Empty(t, cart.Calls())
	})

	t.Run("authenticated_logout_resets", func(t *testing.T) {
		cart := &fakeSessionCart{}
		observer := services.NewSessionObserver(cart, services.LoginPolicyReplace, helpers.TestLogger())
		ctx := context.Background()

		require.NoError(t, observer.Login(ctx, userID))
		require.NoError(t, observer.Logout(ctx))

		assert.Equal(t, []string{"set_session", "reload", "reset"}, cart.Calls())
		state, id := observer.State()
		assert.Equal(t, services.SessionAnonymous, state)
		assert.Zero(t, id)
	})

	t.Run("reset_failure_is_returned", func(t *testing.T) {
		cart := &fakeSessionCart{resetErr: errors.New("disk full")}
		observer := services.NewSessionObserver(cart, services.LoginPolicyReplace, helpers.TestLogger())
		ctx := context.Background()

		require.NoError(t, observer.Login(ctx, userID))
		err := observer.Logout(ctx)

		assert.ErrorContains(t, err, "disk full")
		state, _ := observer.State()
		assert.Equal(t, services.SessionAnonymous, state)
	})
}

func TestSessionObserver_AuthExpiredHook(t *testing.T) {
	cart := &fakeSessionCart{}
	observer := services.NewSessionObserver(cart, services.LoginPolicyReplace, helpers.TestLogger())
	require.NotNil(t, cart.expired)

	observer.Restore(userID)
	cart.expired(context.Background())

	// the cart resets itself before calling the hook
	assert.Equal(t, []string{"set_session"}, cart.Calls())
	state, _ := observer.State()
	assert.Equal(t, services.SessionAnonymous, state)

	cart.expired(context.Background())
	assert.Equal(t, []string{"set_session"}, cart.Calls())
}

func TestSessionObserver_Restore(t *testing.T) {
	cart := &fakeSessionCart{}
	observer := services.NewSessionObserver(cart, services.LoginPolicyReplace, helpers.TestLogger())

	observer.Restore(0)
	assert.Empty(t, cart.Calls())

	observer.Restore(userID)
	assert.Equal(t, []string{"set_session"}, cart.Calls())
	state, id := observer.State()
	assert.Equal(t, services.SessionAuthenticated, state)
	assert.Equal(t, userID, id)
}

func TestParseLoginPolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected services.LoginPolicy
		wantErr  bool
	}{
		{input: "", expected: services.LoginPolicyReplace},
		{input: "replace", expected: services.LoginPolicyReplace},
		{input: " MERGE ", expected: services.LoginPolicyMerge},
		{input: "union", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("policy_"+tt.input, func(t *testing.T) {
			policy, err := services.ParseLoginPolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, policy)
		})
	}
}
