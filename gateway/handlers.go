package gateway

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"yieldhub/config"
	nativecommon "yieldhub/native/common"
	"yieldhub/native/stake"
	"yieldhub/native/token"
	"yieldhub/observability"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, stake.ErrUnknownPool), errors.Is(err, stake.ErrUnknownStake):
		status = http.StatusNotFound
	case errors.Is(err, stake.ErrAccessDenied), errors.Is(err, stake.ErrNotFactory),
		errors.Is(err, stake.ErrNotRouter), errors.Is(err, stake.ErrNotVault):
		status = http.StatusForbidden
	case errors.Is(err, stake.ErrTooSoon), errors.Is(err, stake.ErrAlreadyMigrated),
		errors.Is(err, stake.ErrDestinationNotEmpty), errors.Is(err, stake.ErrReentrancy):
		status = http.StatusConflict
	case errors.Is(err, nativecommon.ErrModulePaused):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, into interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}

// parseAmount decodes a decimal token amount, rejecting malformed and
// over-256-bit values at the edge before they reach the engine.
func parseAmount(raw string) (*big.Int, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.New("gateway: invalid amount")
	}
	return v.ToBig(), nil
}

func parseAddr(raw string) (stake.Address, error) {
	return config.ParseAddress(raw)
}

func (s *Server) pool(r *http.Request) (*stake.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.factory.GetPool(chi.URLParam(r, "token"))
}

func (s *Server) guard() error {
	return nativecommon.Guard(s.pauses, moduleName)
}

type poolSummary struct {
	Token                 string `json:"token"`
	Weight                uint32 `json:"weight"`
	IsFlash               bool   `json:"isFlash"`
	GlobalWeight          string `json:"globalWeight"`
	PoolTokenReserve      string `json:"poolTokenReserve"`
	YieldRewardsPerWeight string `json:"yieldRewardsPerWeight"`
	VaultRewardsPerWeight string `json:"vaultRewardsPerWeight"`
	LastYieldDistribution uint64 `json:"lastYieldDistribution"`
}

func summarise(p *stake.Pool) poolSummary {
	return poolSummary{
		Token:                 p.PoolToken(),
		Weight:                p.Weight(),
		IsFlash:               p.IsFlashPool(),
		GlobalWeight:          p.GlobalWeight().String(),
		PoolTokenReserve:      p.PoolTokenReserve().String(),
		YieldRewardsPerWeight: p.YieldRewardsPerWeight().String(),
		VaultRewardsPerWeight: p.VaultRewardsPerWeight().String(),
		LastYieldDistribution: p.LastYieldDistribution(),
	}
}

func (s *Server) handleListPools(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pools := s.factory.Pools()
	out := make([]poolSummary, 0, len(pools))
	for _, p := range pools {
		out = append(out, summarise(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePoolInfo(w http.ResponseWriter, r *http.Request) {
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, summarise(p))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	p.Sync()
	observability.Staking().Syncs.WithLabelValues(p.PoolToken()).Inc()
	summary := summarise(p)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, summary)
}

type stakeRequest struct {
	Addr      string `json:"addr"`
	Value     string `json:"value"`
	LockUntil uint64 `json:"lockUntil"`
	Flexible  bool   `json:"flexible"`
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	if err := s.guard(); err != nil {
		writeError(w, err)
		return
	}
	var req stakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(req.Addr)
	if err != nil {
		writeError(w, err)
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	if req.Flexible {
		err = p.StakeFlexible(addr, value)
	} else {
		err = p.StakeAndLock(addr, value, req.LockUntil)
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	kind := "locked"
	if req.Flexible {
		kind = "flexible"
	}
	metrics := observability.Staking()
	metrics.Stakes.WithLabelValues(p.PoolToken(), kind).Inc()
	s.updateGauges(p)
	writeJSON(w, http.StatusOK, map[string]string{"status": "staked"})
}

type unstakeRequest struct {
	Addr     string `json:"addr"`
	Value    string `json:"value"`
	Flexible bool   `json:"flexible"`
	StakeID  int    `json:"stakeId"`
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	if err := s.guard(); err != nil {
		writeError(w, err)
		return
	}
	var req unstakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(req.Addr)
	if err != nil {
		writeError(w, err)
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	if req.Flexible {
		err = p.UnstakeFlexible(addr, value)
	} else {
		err = p.UnstakeLocked(addr, req.StakeID, value)
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	kind := "locked"
	if req.Flexible {
		kind = "flexible"
	}
	observability.Staking().Unstakes.WithLabelValues(p.PoolToken(), kind).Inc()
	s.updateGauges(p)
	writeJSON(w, http.StatusOK, map[string]string{"status": "unstaked"})
}

type batchItem struct {
	StakeID int    `json:"stakeId"`
	Value   string `json:"value"`
}

type batchUnstakeRequest struct {
	Addr    string      `json:"addr"`
	IsYield bool        `json:"isYield"`
	Items   []batchItem `json:"items"`
}

func (s *Server) handleUnstakeBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.guard(); err != nil {
		writeError(w, err)
		return
	}
	var req batchUnstakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(req.Addr)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]stake.UnstakeItem, len(req.Items))
	for i, item := range req.Items {
		value, err := parseAmount(item.Value)
		if err != nil {
			writeError(w, err)
			return
		}
		items[i] = stake.UnstakeItem{StakeID: item.StakeID, Value: value}
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err = p.UnstakeLockedMultiple(addr, items, req.IsYield)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	observability.Staking().Unstakes.WithLabelValues(p.PoolToken(), "batch").Inc()
	s.updateGauges(p)
	writeJSON(w, http.StatusOK, map[string]string{"status": "unstaked"})
}

type extendLockRequest struct {
	Addr      string `json:"addr"`
	StakeID   int    `json:"stakeId"`
	LockUntil uint64 `json:"lockUntil"`
}

func (s *Server) handleExtendLock(w http.ResponseWriter, r *http.Request) {
	if err := s.guard(); err != nil {
		writeError(w, err)
		return
	}
	var req extendLockRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(req.Addr)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err = p.UpdateStakeLock(addr, req.StakeID, req.LockUntil)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	s.updateGauges(p)
	writeJSON(w, http.StatusOK, map[string]string{"status": "extended"})
}

type claimRequest struct {
	Addr      string `json:"addr"`
	UseEscrow bool   `json:"useEscrow"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	if err := s.guard(); err != nil {
		writeError(w, err)
		return
	}
	var req claimRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(req.Addr)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err = p.ClaimRewards(addr, req.UseEscrow)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	escrow := "false"
	if req.UseEscrow {
		escrow = "true"
	}
	observability.Staking().Claims.WithLabelValues(p.PoolToken(), escrow).Inc()
	s.updateGauges(p)
	writeJSON(w, http.StatusOK, map[string]string{"status": "claimed"})
}

type migrateUserRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleMigrateUser(w http.ResponseWriter, r *http.Request) {
	if err := s.guard(); err != nil {
		writeError(w, err)
		return
	}
	var req migrateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	from, err := parseAddr(req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseAddr(req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err = p.MigrateUser(from, to)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "migrated"})
}

type migrateV1Request struct {
	Addr string   `json:"addr"`
	IDs  []string `json:"ids"`
}

func parseIDs(raw []string) ([]*big.Int, error) {
	ids := make([]*big.Int, len(raw))
	for i, s := range raw {
		id, err := parseAmount(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (s *Server) handleMigrateV1(w http.ResponseWriter, r *http.Request) {
	if err := s.guard(); err != nil {
		writeError(w, err)
		return
	}
	var req migrateV1Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(req.Addr)
	if err != nil {
		writeError(w, err)
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err = p.MigrateLockedStake(addr, ids)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "migrated"})
}

type fillV1Request struct {
	Addr     string `json:"addr"`
	Position int    `json:"position"`
}

func (s *Server) handleFillV1(w http.ResponseWriter, r *http.Request) {
	if err := s.guard(); err != nil {
		writeError(w, err)
		return
	}
	var req fillV1Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(req.Addr)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err = p.FillStakeID(addr, req.Position)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	s.updateGauges(p)
	writeJSON(w, http.StatusOK, map[string]string{"status": "filled"})
}

func (s *Server) handleMintV1Yield(w http.ResponseWriter, r *http.Request) {
	if err := s.guard(); err != nil {
		writeError(w, err)
		return
	}
	var req migrateV1Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(req.Addr)
	if err != nil {
		writeError(w, err)
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err = p.MintV1YieldMultiple(addr, ids)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "minted"})
}

type vaultDepositRequest struct {
	Vault  string `json:"vault"`
	Amount string `json:"amount"`
}

func (s *Server) handleVaultDeposit(w http.ResponseWriter, r *http.Request) {
	if err := s.guard(); err != nil {
		writeError(w, err)
		return
	}
	var req vaultDepositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	vault, err := parseAddr(req.Vault)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err = p.ReceiveVaultRewards(vault, amount)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

type stakeView struct {
	Value       string `json:"value"`
	LockedFrom  uint64 `json:"lockedFrom"`
	LockedUntil uint64 `json:"lockedUntil"`
	IsYield     bool   `json:"isYield"`
}

type userView struct {
	FlexibleBalance string      `json:"flexibleBalance"`
	TotalWeight     string      `json:"totalWeight"`
	PendingYield    string      `json:"pendingYield"`
	Stakes          []stakeView `json:"stakes"`
	V1StakeIDs      []string    `json:"v1StakeIds"`
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	u := p.Users(addr)
	s.mu.Unlock()
	if u == nil {
		writeError(w, stake.ErrUnknownStake)
		return
	}
	view := userView{
		FlexibleBalance: u.FlexibleBalance.String(),
		TotalWeight:     u.TotalWeight.String(),
		PendingYield:    u.PendingYield.String(),
		Stakes:          make([]stakeView, len(u.Stakes)),
		V1StakeIDs:      make([]string, len(u.V1StakeIDs)),
	}
	for i, st := range u.Stakes {
		view.Stakes[i] = stakeView{
			Value:       st.Value.String(),
			LockedFrom:  st.LockedFrom,
			LockedUntil: st.LockedUntil,
			IsYield:     st.IsYield,
		}
	}
	for i, id := range u.V1StakeIDs {
		view.V1StakeIDs[i] = id.String()
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	pending := p.PendingRewards(addr)
	vault := p.PendingVaultRewards(addr)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{
		"pendingYield": pending.String(),
		"pendingVault": vault.String(),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	addr, err := parseAddr(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	balance := p.BalanceOf(addr)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

func (s *Server) ledger(name string) *token.Ledger {
	if name == s.reward.Name() {
		return s.reward
	}
	if name == s.escrow.Name() {
		return s.escrow
	}
	return s.tokens[name]
}

func (s *Server) handleTokenSupply(w http.ResponseWriter, r *http.Request) {
	l := s.ledger(chi.URLParam(r, "token"))
	if l == nil {
		writeError(w, stake.ErrUnknownPool)
		return
	}
	s.mu.Lock()
	supply := l.TotalSupply()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"totalSupply": supply.String()})
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	l := s.ledger(chi.URLParam(r, "token"))
	if l == nil {
		writeError(w, stake.ErrUnknownPool)
		return
	}
	addr, err := parseAddr(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	balance := l.BalanceOf(addr)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

type approveRequest struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Value   string `json:"value"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	l := s.ledger(chi.URLParam(r, "token"))
	if l == nil {
		writeError(w, stake.ErrUnknownPool)
		return
	}
	var req approveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	owner, err := parseAddr(req.Owner)
	if err != nil {
		writeError(w, err)
		return
	}
	spender, err := parseAddr(req.Spender)
	if err != nil {
		writeError(w, err)
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	l.Approve(owner, spender, value)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

type weightRequest struct {
	Weight uint32 `json:"weight"`
}

func (s *Server) handleChangeWeight(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err = s.factory.ChangePoolWeight(s.owner, p, req.Weight)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type setVaultRequest struct {
	Vault string `json:"vault"`
}

func (s *Server) handleSetVault(w http.ResponseWriter, r *http.Request) {
	var req setVaultRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	vault, err := parseAddr(req.Vault)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.pool(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err = p.SetVault(s.owner, vault)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

type endTimeRequest struct {
	EndTime uint64 `json:"endTime"`
}

func (s *Server) handleSetEndTime(w http.ResponseWriter, r *http.Request) {
	var req endTimeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	err := s.factory.SetEndTime(s.owner, req.EndTime)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

func (s *Server) handleUpdateRatio(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	err := s.factory.UpdateRewardPerSecond()
	rate := s.factory.RewardPerSecond()
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"rewardPerSecond": rate.String()})
}

func (s *Server) updateGauges(p *stake.Pool) {
	metrics := observability.Staking()
	s.mu.Lock()
	global := p.GlobalWeight()
	reserve := p.PoolTokenReserve()
	s.mu.Unlock()
	observability.GaugeBig(metrics.GlobalWeight.WithLabelValues(p.PoolToken()), global)
	observability.GaugeBig(metrics.Reserve.WithLabelValues(p.PoolToken()), reserve)
}
