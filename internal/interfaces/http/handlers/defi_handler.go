package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// ErrDeFiDisabled is returned by every DeFi endpoint when market.enable_defi
// is off.
var ErrDeFiDisabled = errors.New(errors.ErrCodeFeatureDisabled, "DeFi integration is disabled")

// Simulated transaction hashes, one per operation.
var (
	liquidityTxHash  = "0x" + strings.Repeat("b", 64)
	yieldFarmTxHash  = "0x" + strings.Repeat("c", 64)
	collateralTxHash = "0x" + strings.Repeat("d", 64)
)

// TxStatusConfirmed is reported by every simulated operation.
const TxStatusConfirmed = "confirmed"

// DeFiHandler serves /api/v1/defi.  Every response is simulated; nothing is
// submitted to a ledger.
type DeFiHandler struct {
	enabled bool
}

// NewDeFiHandler creates a new DeFiHandler.
func NewDeFiHandler(enabled bool) *DeFiHandler {
	return &DeFiHandler{enabled: enabled}
}

// LiquidityRequest is the body of add_liquidity.
type LiquidityRequest struct {
	TokenA  string  `json:"token_a"`
	TokenB  string  `json:"token_b"`
	AmountA float64 `json:"amount_a"`
	AmountB float64 `json:"amount_b"`
}

// LiquidityResponse is the result of add_liquidity.
type LiquidityResponse struct {
	TxHash    string  `json:"txHash"`
	LPTokens  float64 `json:"lp_tokens"`
	PoolShare float64 `json:"pool_share"`
	Status    string  `json:"status"`
}

// YieldFarmRequest is the body of stake_yield_farm.
type YieldFarmRequest struct {
	Pool   string  `json:"pool"`
	Amount float64 `json:"amount"`
}

// YieldFarmResponse is the result of stake_yield_farm.
type YieldFarmResponse struct {
	TxHash        string  `json:"txHash"`
	StakedAmount  float64 `json:"staked_amount"`
	APY           float64 `json:"apy"`
	RewardsPerDay float64 `json:"rewards_per_day"`
	Status        string  `json:"status"`
}

// CollateralRequest is the body of use_as_collateral.
type CollateralRequest struct {
	TokenID     string `json:"token_id"`
	LendingPool string `json:"lending_pool"`
}

// CollateralResponse is the result of use_as_collateral.
type CollateralResponse struct {
	TxHash          string  `json:"txHash"`
	CollateralValue float64 `json:"collateral_value"`
	BorrowingPower  float64 `json:"borrowing_power"`
	Status          string  `json:"status"`
}

// TokenBalance is one holding inside a portfolio asset group.
type TokenBalance struct {
	Symbol   string   `json:"symbol"`
	Balance  float64  `json:"balance"`
	ValueUSD float64  `json:"value_usd"`
	APY      *float64 `json:"apy,omitempty"`
}

// AssetGroup groups holdings of one kind.
type AssetGroup struct {
	Type   string         `json:"type"`
	Tokens []TokenBalance `json:"tokens"`
}

// Rewards summarises farming rewards.
type Rewards struct {
	Daily  float64 `json:"daily"`
	Weekly float64 `json:"weekly"`
	Total  float64 `json:"total"`
}

// PortfolioResponse is the body of GET portfolio.
type PortfolioResponse struct {
	TotalValueUSD float64      `json:"total_value_usd"`
	Assets        []AssetGroup `json:"assets"`
	RewardsEarned Rewards      `json:"rewards_earned"`
}

// Pool describes one liquidity pool.
type Pool struct {
	ID        string  `json:"id"`
	TokenA    string  `json:"token_a"`
	TokenB    string  `json:"token_b"`
	TVLUSD    float64 `json:"tvl_usd"`
	Volume24h float64 `json:"volume_24h"`
	APY       float64 `json:"apy"`
	Fee       float64 `json:"fee"`
}

// RegisterRoutes mounts the DeFi endpoints on r.
func (h *DeFiHandler) RegisterRoutes(r chi.Router) {
	r.Post("/add_liquidity", h.AddLiquidity)
	r.Post("/stake_yield_farm", h.StakeYieldFarm)
	r.Post("/use_as_collateral", h.UseAsCollateral)
	r.Get("/portfolio", h.Portfolio)
	r.Get("/pools", h.Pools)
}

// AddLiquidity handles POST /api/v1/defi/add_liquidity.
func (h *DeFiHandler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guard(w, r)
	if !ok {
		return
	}
	var req LiquidityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if req.TokenA == "" || req.TokenB == "" {
		writeAppError(w, r, errors.Validation("token_a and token_b are required"))
		return
	}
	if req.AmountA <= 0 || req.AmountB <= 0 {
		writeAppError(w, r, errors.Validation("amounts must be positive"))
		return
	}

	logging.FromContext(r.Context()).Info("Liquidity added",
		logging.String(logging.FieldUserID, id),
		logging.String("token_a", req.TokenA),
		logging.String("token_b", req.TokenB),
		logging.String("tx_hash", liquidityTxHash),
	)
	writeJSON(w, http.StatusOK, LiquidityResponse{
		TxHash:    liquidityTxHash,
		LPTokens:  0.02,
		PoolShare: 0.001,
		Status:    TxStatusConfirmed,
	})
}

// StakeYieldFarm handles POST /api/v1/defi/stake_yield_farm.
func (h *DeFiHandler) StakeYieldFarm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guard(w, r)
	if !ok {
		return
	}
	var req YieldFarmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if req.Amount < 0 {
		writeAppError(w, r, errors.Validation("amount must not be negative"))
		return
	}

	logging.FromContext(r.Context()).Info("Yield farm stake",
		logging.String(logging.FieldUserID, id),
		logging.String("pool", req.Pool),
		logging.Float64("amount", req.Amount),
	)
	writeJSON(w, http.StatusOK, YieldFarmResponse{
		TxHash:        yieldFarmTxHash,
		StakedAmount:  req.Amount,
		APY:           0.352,
		RewardsPerDay: 0.001,
		Status:        TxStatusConfirmed,
	})
}

// UseAsCollateral handles POST /api/v1/defi/use_as_collateral.
func (h *DeFiHandler) UseAsCollateral(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guard(w, r)
	if !ok {
		return
	}
	var req CollateralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	if req.TokenID == "" {
		writeAppError(w, r, errors.Validation("token_id is required"))
		return
	}

	logging.FromContext(r.Context()).Info("Collateral deposit",
		logging.String(logging.FieldUserID, id),
		logging.String("token_id", req.TokenID),
		logging.String("lending_pool", req.LendingPool),
	)
	writeJSON(w, http.StatusOK, CollateralResponse{
		TxHash:          collateralTxHash,
		CollateralValue: 1000.0,
		BorrowingPower:  750.0,
		Status:          TxStatusConfirmed,
	})
}

// Portfolio handles GET /api/v1/defi/portfolio.
func (h *DeFiHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	farmAPY := 0.352
	writeJSON(w, http.StatusOK, PortfolioResponse{
		TotalValueUSD: 4150.0,
		Assets: []AssetGroup{
			{Type: "prediction_tokens", Tokens: []TokenBalance{
				{Symbol: "yesBTC", Balance: 0.025, ValueUSD: 1250.0},
				{Symbol: "noBTC", Balance: 0.018, ValueUSD: 900.0},
			}},
			{Type: "lp_tokens", Tokens: []TokenBalance{
				{Symbol: "yesBTC-noBTC-LP", Balance: 0.020, ValueUSD: 1000.0},
			}},
			{Type: "staked_lp", Tokens: []TokenBalance{
				{Symbol: "yesBTC-noBTC-LP", Balance: 0.020, ValueUSD: 1000.0, APY: &farmAPY},
			}},
		},
		RewardsEarned: Rewards{Daily: 0.001, Weekly: 0.007, Total: 0.045},
	})
}

// Pools handles GET /api/v1/defi/pools.
func (h *DeFiHandler) Pools(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		writeAppError(w, r, ErrDeFiDisabled)
		return
	}
	writeJSON(w, http.StatusOK, []Pool{
		{ID: "yesBTC-noBTC", TokenA: "yesBTC", TokenB: "noBTC", TVLUSD: 50000.0, Volume24h: 5000.0, APY: 0.125, Fee: 0.003},
		{ID: "yesBTC-USDC", TokenA: "yesBTC", TokenB: "USDC", TVLUSD: 25000.0, Volume24h: 2500.0, APY: 0.089, Fee: 0.003},
	})
}

// guard checks the feature flag and the caller, returning the caller's id.
func (h *DeFiHandler) guard(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !h.enabled {
		writeAppError(w, r, ErrDeFiDisabled)
		return "", false
	}
	id, ok := requireIdentity(w, r)
	if !ok {
		return "", false
	}
	return id.UserID, true
}
