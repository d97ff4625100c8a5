package mock

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	securebridge "github.com/opengovern/secure-bridge"
	"github.com/opengovern/secure-bridge/jsonvalue"
)

func newBridge(t *testing.T, backend *Backend) *securebridge.SecureBridge {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := securebridge.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RateLimit.MaxAttempts = 1000
	return securebridge.NewSecureBridge(cfg, nil)
}

func login(t *testing.T, bridge *securebridge.SecureBridge, backend *Backend, role string) {
	t.Helper()
	u := backend.AddUser(User{Email: role + "@clinic.test", Password: "s3cret-pass", Role: role})
	tok, err := bridge.Login(context.Background(), securebridge.Credentials{Email: u.Email, Password: u.Password})
	require.NoError(t, err)
	require.Equal(t, u.ID, tok.Subject())
}

func TestBackendCRUD(t *testing.T) {
	backend := NewBackend()
	bridge := newBridge(t, backend)
	login(t, bridge, backend, "manager")
	ctx := context.Background()

	created, err := bridge.Post(ctx, "/patients", map[string]interface{}{"name": "Ada <b>Lovelace</b>", "age": 36})
	require.NoError(t, err)
	obj := created.Data.(jsonvalue.Object)
	id := string(obj["id"].(jsonvalue.String))
	require.NotEmpty(t, id)
	assert.Equal(t, jsonvalue.String("Ada Lovelace"), obj["name"], "payload sanitized before storage")

	got, err := bridge.Get(ctx, "/patients/"+id)
	require.NoError(t, err)
	assert.True(t, jsonvalue.Equal(created.Data, got.Data))

	_, err = bridge.Patch(ctx, "/patients/"+id, map[string]interface{}{"age": 37})
	require.NoError(t, err)
	got, err = bridge.Get(ctx, "/patients/"+id)
	require.NoError(t, err)
	age, err := got.Data.(jsonvalue.Object)["age"].(jsonvalue.Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(37), age)
	assert.Equal(t, jsonvalue.String("Ada Lovelace"), got.Data.(jsonvalue.Object)["name"])

	list, err := bridge.Get(ctx, "/patients?page=1&limit=10")
	require.NoError(t, err)
	total, _ := list.Data.(jsonvalue.Object)["total"].(jsonvalue.Number).Int64()
	assert.Equal(t, int64(1), total)

	_, err = bridge.Delete(ctx, "/patients/"+id)
	require.NoError(t, err)
	_, err = bridge.Get(ctx, "/patients/"+id)
	assert.ErrorIs(t, err, securebridge.ErrNotFound)

	_, err = bridge.Get(ctx, "/spaceships")
	assert.ErrorIs(t, err, securebridge.ErrNotFound)
}

func TestBackendFaultInjection(t *testing.T) {
	backend := NewBackend()
	bridge := newBridge(t, backend)
	login(t, bridge, backend, "manager")
	ctx := context.Background()

	backend.InjectFault(http.MethodGet, "/claims", Fault{Status: http.StatusTooManyRequests, RetryAfter: 12, Body: `{"message":"slow down"}`})
	_, err := bridge.Get(ctx, "/claims")
	e, ok := securebridge.AsError(err)
	require.True(t, ok)
	assert.Equal(t, securebridge.KindRateLimited, e.Kind)
	assert.Equal(t, 12*time.Second, e.RetryAfter)

	backend.InjectFault(http.MethodGet, "/claims", Fault{Status: http.StatusInternalServerError, Body: `{"message":"ledger <i>offline</i>"}`})
	_, err = bridge.Get(ctx, "/claims")
	e, ok = securebridge.AsError(err)
	require.True(t, ok)
	assert.Equal(t, securebridge.KindServerError, e.Kind)
	assert.Equal(t, "ledger offline", e.Message)

	backend.InjectFault(http.MethodGet, "/claims", Fault{Delay: time.Second})
	_, err = bridge.Get(ctx, "/claims", securebridge.WithTimeout(30*time.Millisecond))
	assert.ErrorIs(t, err, securebridge.ErrTimeout)

	_, err = bridge.Get(ctx, "/claims")
	assert.NoError(t, err, "faults are consumed once")
}

func TestBackendRolesAndLogout(t *testing.T) {
	backend := NewBackend()
	bridge := newBridge(t, backend)
	login(t, bridge, backend, "viewer")
	ctx := context.Background()

	_, err := bridge.Get(ctx, "/invoices")
	require.NoError(t, err)
	_, err = bridge.Post(ctx, "/invoices", map[string]interface{}{"amount": 10})
	assert.ErrorIs(t, err, securebridge.ErrForbidden)

	require.NoError(t, bridge.Logout(ctx))
	_, err = bridge.Get(ctx, "/invoices")
	assert.ErrorIs(t, err, securebridge.ErrUnauthorized)
}

func TestBackendRejectsRevokedToken(t *testing.T) {
	backend := NewBackend()
	bridge := newBridge(t, backend)
	login(t, bridge, backend, "manager")
	ctx := context.Background()

	// keep a copy of the session, log out, then put it back
	stored, err := bridge.ClientContext().Tokens.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, bridge.Logout(ctx))
	require.NoError(t, bridge.ClientContext().Tokens.Save(ctx, stored))

	_, err = bridge.Get(ctx, "/staff")
	assert.ErrorIs(t, err, securebridge.ErrUnauthorized)
	after, err := bridge.ClientContext().Tokens.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, after)
}

func TestBackendRequiresClientHeaders(t *testing.T) {
	backend := NewBackend()
	srv := httptest.NewServer(backend)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/patients")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBackendFinancialSummary(t *testing.T) {
	backend := NewBackend()
	_, err := backend.Seed("invoices", map[string]interface{}{"amount": 1200.0, "status": "paid"})
	require.NoError(t, err)
	_, err = backend.Seed("invoices", map[string]interface{}{"amount": 300.0, "status": "pending"})
	require.NoError(t, err)
	_, err = backend.Seed("expenses", map[string]interface{}{"amount": 450.5})
	require.NoError(t, err)
	_, err = backend.Seed("nope", map[string]interface{}{})
	require.Error(t, err)

	bridge := newBridge(t, backend)
	login(t, bridge, backend, "manager")

	resp, err := bridge.Get(context.Background(), "/reports/financial-summary")
	require.NoError(t, err)
	obj := resp.Data.(jsonvalue.Object)
	net, err := obj["netIncome"].(jsonvalue.Number).Float64()
	require.NoError(t, err)
	assert.InDelta(t, 749.5, net, 0.001)
	outstanding, _ := obj["outstanding"].(jsonvalue.Number).Float64()
	assert.InDelta(t, 300.0, outstanding, 0.001)
}

func TestMockAdapterScripts(t *testing.T) {
	adapter := &MockAdapter{RequestsUntilRateLimit: 2, RetryAfterSecs: 5}
	cfg := securebridge.DefaultConfig()
	cfg.RateLimit.MaxAttempts = 100
	bridge := securebridge.NewSecureBridge(cfg, nil, securebridge.WithTransport(adapter))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := bridge.Get(ctx, "/status", securebridge.WithoutAuth())
		require.NoError(t, err)
	}
	_, err := bridge.Get(ctx, "/status", securebridge.WithoutAuth())
	e, ok := securebridge.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, e.RetryAfter)
	assert.Equal(t, 3, adapter.CallCount())
	assert.Equal(t, cfg.BaseURL+"/status", adapter.Calls()[0].URL)

	hanging := &MockAdapter{Hang: true}
	bridge = securebridge.NewSecureBridge(cfg, nil, securebridge.WithTransport(hanging))
	_, err = bridge.Get(ctx, "/status", securebridge.WithoutAuth(), securebridge.WithTimeout(10*time.Millisecond))
	assert.ErrorIs(t, err, securebridge.ErrTimeout)

	broken := &MockAdapter{Err: errors.New("connection refused")}
	bridge = securebridge.NewSecureBridge(cfg, nil, securebridge.WithTransport(broken))
	_, err = bridge.Get(ctx, "/status", securebridge.WithoutAuth())
	assert.ErrorIs(t, err, securebridge.ErrNetwork)
}

func TestBackendListClampsPaging(t *testing.T) {
	backend := NewBackend()
	bridge := newBridge(t, backend)
	login(t, bridge, backend, "manager")
	ctx := context.Background()
	_, err := backend.Seed("branches", map[string]interface{}{"name": "North"})
	require.NoError(t, err)

	resp, err := bridge.Get(ctx, "/branches?page=9223372036854775807&limit=9223372036854775807")
	require.NoError(t, err)
	obj := resp.Data.(jsonvalue.Object)
	assert.Equal(t, jsonvalue.Array{}, obj["items"])
	assert.Equal(t, jsonvalue.Number("1"), obj["total"])
	assert.Equal(t, jsonvalue.Number("500"), obj["limit"])
	assert.Equal(t, jsonvalue.Number("1000000"), obj["page"])

	resp, err = bridge.Get(ctx, "/branches?limit=9223372036854775807")
	require.NoError(t, err)
	assert.Len(t, resp.Data.(jsonvalue.Object)["items"], 1)
}
