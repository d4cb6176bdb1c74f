package gateway

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"yieldhub/gateway/middleware"
	"yieldhub/native/stake"
	"yieldhub/native/token"
)

const (
	testSecret = "gateway-test-secret"
	aliceHex   = "0x00000000000000000000000000000000000000a1"
)

type fixedClock struct{ now uint64 }

func (c *fixedClock) Now() uint64 { return c.now }

type testHarness struct {
	server *Server
	http   *httptest.Server
	clock  *fixedClock
	reward *token.Ledger
	owner  stake.Address
	alice  stake.Address
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	var owner, alice, poolAddr stake.Address
	owner[19] = 0x01
	alice[19] = 0xA1
	poolAddr[19] = 0x10

	clock := &fixedClock{now: 1_000_000}
	reward := token.NewLedger("YLD", owner)
	escrow := token.NewLedger("sYLD", owner)

	factory := stake.NewFactory(clock, nil, stake.FactoryConfig{
		Owner:            owner,
		RewardToken:      reward,
		EscrowToken:      escrow,
		RewardTokenName:  "YLD",
		RewardPerSecond:  big.NewInt(1_000_000_000),
		SecondsPerUpdate: 1 << 40,
		InitTime:         clock.now,
		EndTime:          clock.now + 1<<30,
	})
	pool := stake.NewPool(factory, clock, nil, stake.PoolConfig{
		Address:       poolAddr,
		PoolToken:     reward,
		PoolTokenName: "YLD",
		Weight:        200,
		InitTime:      clock.now,
	})
	require.NoError(t, factory.RegisterPool(owner, pool))

	server := NewServer(Config{
		Factory:     factory,
		RewardToken: reward,
		EscrowToken: escrow,
		PoolTokens:  map[string]*token.Ledger{"YLD": reward},
		Owner:       owner,
		Auth:        middleware.NewAuthenticator(testSecret),
	})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testHarness{server: server, http: ts, clock: clock, reward: reward, owner: owner, alice: alice}
}

func (h *testHarness) post(t *testing.T, path string, payload interface{}, headers map[string]string) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, h.http.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (h *testHarness) getJSON(t *testing.T, path string, into interface{}) {
	t.Helper()
	resp, err := http.Get(h.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.http.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestStakeFlow(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.reward.Mint(h.owner, h.alice, big.NewInt(100)))

	resp := h.post(t, "/v1/tokens/YLD/approve", map[string]string{
		"owner":   aliceHex,
		"spender": "0x0000000000000000000000000000000000000010",
		"value":   "100",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.post(t, "/v1/pools/YLD/stake", map[string]interface{}{
		"addr":     aliceHex,
		"value":    "100",
		"flexible": true,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var balance map[string]string
	h.getJSON(t, "/v1/pools/YLD/users/"+aliceHex+"/balance", &balance)
	require.Equal(t, "100", balance["balance"])

	h.clock.now += 10
	var pending map[string]string
	h.getJSON(t, "/v1/pools/YLD/users/"+aliceHex+"/pending", &pending)
	require.Equal(t, "10000000000", pending["pendingYield"])

	resp = h.post(t, "/v1/pools/YLD/claim", map[string]interface{}{
		"addr":      aliceHex,
		"useEscrow": false,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var user userView
	h.getJSON(t, "/v1/pools/YLD/users/"+aliceHex, &user)
	require.Len(t, user.Stakes, 1)
	require.True(t, user.Stakes[0].IsYield)
	require.Equal(t, "10000000000", user.Stakes[0].Value)
}

func TestStakeRejectsBadAmount(t *testing.T) {
	h := newHarness(t)
	for _, amount := range []string{"", "-5", "1.5", "not-a-number"} {
		resp := h.post(t, "/v1/pools/YLD/stake", map[string]interface{}{
			"addr":     aliceHex,
			"value":    amount,
			"flexible": true,
		}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "amount %q", amount)
		resp.Body.Close()
	}
}

func TestUnknownPoolIs404(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.http.URL + "/v1/pools/NOPE/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRequiresBearerToken(t *testing.T) {
	h := newHarness(t)
	resp := h.post(t, "/v1/admin/end-time", map[string]uint64{"endTime": 2_000_000}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	resp = h.post(t, "/v1/admin/end-time", map[string]uint64{"endTime": 2_000_000}, map[string]string{
		"Authorization": "Bearer " + bad,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	good, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	resp = h.post(t, "/v1/admin/end-time", map[string]uint64{"endTime": 2_000_000}, map[string]string{
		"Authorization": "Bearer " + good,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The decay interval has not elapsed, which surfaces as a conflict.
	resp = h.post(t, "/v1/admin/ratio", map[string]string{}, map[string]string{
		"Authorization": "Bearer " + good,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}
