package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"krx-autotrade/config"
	"krx-autotrade/internal/dto"
	"krx-autotrade/pkg/httpclient"
	"krx-autotrade/pkg/logger"
	"krx-autotrade/pkg/utils"

	"golang.org/x/time/rate"
)

var (
	// ErrCreditLimit marks a credit buy rejected for exhausted credit line.
	// The order layer retries these as cash orders.
	ErrCreditLimit = errors.New("credit limit exceeded")
	// ErrOrderRejected marks any other broker-side order rejection.
	ErrOrderRejected = errors.New("order rejected")
	// ErrPriceUnavailable marks a quote request that returned no usable price.
	ErrPriceUnavailable = errors.New("price unavailable")
)

const (
	kiwoomPathToken   = "/oauth2/token"
	kiwoomPathAccount = "/api/dostk/acnt"
	kiwoomPathQuote   = "/api/dostk/stkinfo"
	kiwoomPathOrder   = "/api/dostk/ordr"

	tokenExpiryMargin = 5 * time.Minute
)

type KiwoomRepository interface {
	GetQuote(ctx context.Context, stockCode string) (*dto.Quote, error)
	// IsSecondaryVenueTradable reports whether the symbol quotes on NXT.
	// Callers memoize the answer per trading day.
	IsSecondaryVenueTradable(ctx context.Context, stockCode string) (bool, error)
	GetHoldings(ctx context.Context) ([]dto.KiwoomHoldingItem, error)
	GetAccountSummary(ctx context.Context) (*dto.AccountSummary, error)
	GetTradeHistory(ctx context.Context, orderDate string) ([]dto.KiwoomTradeFillItem, error)
	PlaceBuyOrder(ctx context.Context, stockCode string, quantity int64, price float64, useCredit bool) (*dto.OrderResult, error)
	PlaceSellOrder(ctx context.Context, stockCode string, quantity int64, price float64, creditLoanDate string) (*dto.OrderResult, error)
}

type kiwoomRepository struct {
	cfg     *config.Config
	log     *logger.Logger
	client  httpclient.HTTPClient
	limiter *rate.Limiter

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewKiwoomRepository(cfg *config.Config, log *logger.Logger) (KiwoomRepository, error) {
	if cfg.Kiwoom.BaseURL == "" {
		return nil, fmt.Errorf("kiwoom base url is required")
	}

	perMin := cfg.Kiwoom.MaxRequestPerMin
	if perMin <= 0 {
		perMin = 60
	}

	return &kiwoomRepository{
		cfg:     cfg,
		log:     log,
		client:  httpclient.New(cfg.Kiwoom.BaseURL, cfg.Kiwoom.Timeout),
		limiter: rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin/6+1),
	}, nil
}

func (r *kiwoomRepository) getAccessToken(ctx context.Context) (string, error) {
	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()

	if r.accessToken != "" && time.Now().Before(r.tokenExpiry) {
		return r.accessToken, nil
	}

	var result dto.KiwoomTokenResponse
	body := dto.KiwoomTokenRequest{
		GrantType: "client_credentials",
		AppKey:    r.cfg.Kiwoom.AppKey,
		SecretKey: r.cfg.Kiwoom.SecretKey,
	}
	resp, err := r.client.Post(ctx, kiwoomPathToken, body, nil, &result)
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w", err)
	}
	if resp.StatusCode >= 400 || result.Token == "" {
		return "", fmt.Errorf("token request rejected: status=%d msg=%s", resp.StatusCode, result.ReturnMsg)
	}

	r.accessToken = result.Token

	// expires_dt is yyyyMMddHHmmss in KST.
	expiry := time.Now().Add(12 * time.Hour)
	if t, perr := time.ParseInLocation("20060102150405", result.ExpiresDt, utils.GetKSTLocation()); perr == nil {
		expiry = t
	}
	r.tokenExpiry = expiry.Add(-tokenExpiryMargin)

	return r.accessToken, nil
}

func (r *kiwoomRepository) headers(ctx context.Context, apiID string) (map[string]string, error) {
	token, err := r.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization":       "Bearer " + token,
		"Content-Type":        "application/json;charset=UTF-8",
		dto.KiwoomHeaderAPIID: apiID,
	}, nil
}

func (r *kiwoomRepository) GetQuote(ctx context.Context, stockCode string) (*dto.Quote, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	headers, err := r.headers(ctx, dto.KiwoomAPIQuote)
	if err != nil {
		return nil, err
	}

	var result dto.KiwoomQuoteResponse
	body := map[string]string{"stk_cd": stockCode}
	resp, err := r.client.Post(ctx, kiwoomPathQuote, body, headers, &result)
	if err != nil {
		return nil, fmt.Errorf("quote request failed for %s: %w", stockCode, err)
	}
	if resp.StatusCode >= 400 || result.ReturnCode != 0 {
		return nil, fmt.Errorf("%w: %s status=%d msg=%s", ErrPriceUnavailable, stockCode, resp.StatusCode, result.ReturnMsg)
	}

	cur := dto.KiwoomAbsPrice(result.CurrentPrice)
	if cur <= 0 {
		return nil, fmt.Errorf("%w: %s returned zero price", ErrPriceUnavailable, stockCode)
	}

	return &dto.Quote{
		StockCode:    stockCode,
		StockName:    result.StockName,
		CurrentPrice: cur,
		OpenPrice:    dto.KiwoomAbsPrice(result.OpenPrice),
		HighPrice:    dto.KiwoomAbsPrice(result.HighPrice),
		LowPrice:     dto.KiwoomAbsPrice(result.LowPrice),
		FetchedAt:    utils.TimeNowKST(),
	}, nil
}

func (r *kiwoomRepository) IsSecondaryVenueTradable(ctx context.Context, stockCode string) (bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return false, err
	}

	headers, err := r.headers(ctx, dto.KiwoomAPIQuote)
	if err != nil {
		return false, err
	}

	var result dto.KiwoomQuoteResponse
	body := map[string]string{"stk_cd": stockCode + dto.NXTCodeSuffix}
	resp, err := r.client.Post(ctx, kiwoomPathQuote, body, headers, &result)
	if err != nil {
		return false, fmt.Errorf("venue check failed for %s: %w", stockCode, err)
	}
	if resp.StatusCode >= 400 || result.ReturnCode != 0 {
		// Not an error: the suffixed code simply has no NXT listing.
		return false, nil
	}
	return dto.KiwoomAbsPrice(result.CurrentPrice) > 0, nil
}

func (r *kiwoomRepository) GetHoldings(ctx context.Context) ([]dto.KiwoomHoldingItem, error) {
	headers, err := r.headers(ctx, dto.KiwoomAPIHoldings)
	if err != nil {
		return nil, err
	}

	body := dto.KiwoomHoldingsRequest{QueryType: "0", DomesticVenue: dto.VenueKRX}

	var all []dto.KiwoomHoldingItem
	nextKey := ""
	for page := 0; page < 50; page++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if nextKey != "" {
			headers[dto.KiwoomHeaderContYn] = "Y"
			headers[dto.KiwoomHeaderNextKey] = nextKey
		}

		var result dto.KiwoomHoldingsResponse
		resp, err := r.client.Post(ctx, kiwoomPathAccount, body, headers, &result)
		if err != nil {
			return nil, fmt.Errorf("holdings request failed: %w", err)
		}
		if resp.StatusCode >= 400 || result.ReturnCode != 0 {
			return nil, fmt.Errorf("holdings request rejected: status=%d msg=%s", resp.StatusCode, result.ReturnMsg)
		}

		all = append(all, result.Holdings...)

		if resp.Headers.Get(dto.KiwoomHeaderContYn) != "Y" {
			break
		}
		nextKey = resp.Headers.Get(dto.KiwoomHeaderNextKey)
	}
	return all, nil
}

func (r *kiwoomRepository) GetAccountSummary(ctx context.Context) (*dto.AccountSummary, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	headers, err := r.headers(ctx, dto.KiwoomAPIDailyStatus)
	if err != nil {
		return nil, err
	}

	var result dto.KiwoomDailyStatusResponse
	body := map[string]string{"qry_tp": "0", "dmst_stex_tp": dto.VenueKRX}
	resp, err := r.client.Post(ctx, kiwoomPathAccount, body, headers, &result)
	if err != nil {
		return nil, fmt.Errorf("account status request failed: %w", err)
	}
	if resp.StatusCode >= 400 || result.ReturnCode != 0 {
		return nil, fmt.Errorf("account status rejected: status=%d msg=%s", resp.StatusCode, result.ReturnMsg)
	}

	netAssets := dto.KiwoomFloat(result.PresumedAssets)
	if netAssets <= 0 {
		return nil, fmt.Errorf("account status returned zero net assets")
	}

	return &dto.AccountSummary{
		NetAssets:     netAssets,
		TotalPurchase: dto.KiwoomFloat(result.TotalPurchase),
		Deposit:       dto.KiwoomFloat(result.Deposit),
	}, nil
}

func (r *kiwoomRepository) GetTradeHistory(ctx context.Context, orderDate string) ([]dto.KiwoomTradeFillItem, error) {
	headers, err := r.headers(ctx, dto.KiwoomAPITradeHistory)
	if err != nil {
		return nil, err
	}

	body := dto.KiwoomTradeHistoryRequest{
		OrderDate:     orderDate,
		QueryType:     "1",
		StockBondType: "1",
		SellBuyType:   "0",
		FromOrderNo:   "",
		DomesticVenue: "%",
	}

	var all []dto.KiwoomTradeFillItem
	nextKey := ""
	for page := 0; page < 50; page++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if nextKey != "" {
			headers[dto.KiwoomHeaderContYn] = "Y"
			headers[dto.KiwoomHeaderNextKey] = nextKey
		}

		var result dto.KiwoomTradeHistoryResponse
		resp, err := r.client.Post(ctx, kiwoomPathAccount, body, headers, &result)
		if err != nil {
			return nil, fmt.Errorf("trade history request failed: %w", err)
		}
		if resp.StatusCode >= 400 || result.ReturnCode != 0 {
			return nil, fmt.Errorf("trade history rejected: status=%d msg=%s", resp.StatusCode, result.ReturnMsg)
		}

		all = append(all, result.Fills...)

		if resp.Headers.Get(dto.KiwoomHeaderContYn) != "Y" {
			break
		}
		nextKey = resp.Headers.Get(dto.KiwoomHeaderNextKey)
	}
	return all, nil
}

func (r *kiwoomRepository) PlaceBuyOrder(ctx context.Context, stockCode string, quantity int64, price float64, useCredit bool) (*dto.OrderResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	apiID := dto.KiwoomAPICashOrder
	if useCredit {
		apiID = dto.KiwoomAPICreditOrder
	}
	headers, err := r.headers(ctx, apiID)
	if err != nil {
		return nil, err
	}

	body := dto.KiwoomOrderRequest{
		DomesticVenue: dto.VenueKRX,
		StockCode:     stockCode,
		OrderQuantity: strconv.FormatInt(quantity, 10),
		OrderPrice:    strconv.FormatInt(int64(price), 10),
		TradeType:     dto.PriceTypeLimit,
	}
	if useCredit {
		// Flag-type credit deal: the broker assigns the loan date.
		body.CreditDealType = "99"
	}

	var result dto.KiwoomOrderResponse
	resp, err := r.client.Post(ctx, kiwoomPathOrder, body, headers, &result)
	if err != nil {
		return nil, fmt.Errorf("buy order request failed for %s: %w", stockCode, err)
	}
	if resp.StatusCode >= 400 || result.ReturnCode != 0 {
		if useCredit && isCreditLimitMessage(result.ReturnMsg) {
			return nil, fmt.Errorf("%w: %s: %s", ErrCreditLimit, stockCode, result.ReturnMsg)
		}
		return nil, fmt.Errorf("%w: buy %s status=%d msg=%s", ErrOrderRejected, stockCode, resp.StatusCode, result.ReturnMsg)
	}

	return &dto.OrderResult{
		OrderNo:    result.OrderNo,
		StockCode:  stockCode,
		Side:       dto.OrderSideBuy,
		Quantity:   quantity,
		LimitPrice: price,
		UsedCredit: useCredit,
		PlacedAt:   utils.TimeNowKST(),
	}, nil
}

func (r *kiwoomRepository) PlaceSellOrder(ctx context.Context, stockCode string, quantity int64, price float64, creditLoanDate string) (*dto.OrderResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	isCredit := creditLoanDate != ""
	apiID := dto.KiwoomAPISellOrder
	if isCredit {
		apiID = dto.KiwoomAPICreditRepay
	}
	headers, err := r.headers(ctx, apiID)
	if err != nil {
		return nil, err
	}

	body := dto.KiwoomOrderRequest{
		DomesticVenue: dto.VenueKRX,
		StockCode:     stockCode,
		OrderQuantity: strconv.FormatInt(quantity, 10),
		OrderPrice:    strconv.FormatInt(int64(price), 10),
		TradeType:     dto.PriceTypeLimit,
	}
	if isCredit {
		body.CreditDealType = "33"
		body.LoanDate = creditLoanDate
	}

	var result dto.KiwoomOrderResponse
	resp, err := r.client.Post(ctx, kiwoomPathOrder, body, headers, &result)
	if err != nil {
		return nil, fmt.Errorf("sell order request failed for %s: %w", stockCode, err)
	}
	if resp.StatusCode >= 400 || result.ReturnCode != 0 {
		return nil, fmt.Errorf("%w: sell %s status=%d msg=%s", ErrOrderRejected, stockCode, resp.StatusCode, result.ReturnMsg)
	}

	return &dto.OrderResult{
		OrderNo:    result.OrderNo,
		StockCode:  stockCode,
		Side:       dto.OrderSideSell,
		Quantity:   quantity,
		LimitPrice: price,
		UsedCredit: isCredit,
		PlacedAt:   utils.TimeNowKST(),
	}, nil
}

// isCreditLimitMessage recognizes the broker's credit-line rejection text.
func isCreditLimitMessage(msg string) bool {
	return strings.Contains(msg, "신용한도") || strings.Contains(msg, "한도초과") ||
		(strings.Contains(msg, "신용") && strings.Contains(msg, "한도"))
}
