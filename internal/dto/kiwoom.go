package dto

import (
	"strconv"
	"strings"
)

// Kiwoom REST responses carry numbers as strings, often signed ("+73400",
// "-1200") and sometimes empty. These helpers normalize them.

func KiwoomInt(s string) int64 {
	s = strings.TrimSpace(strings.TrimPrefix(s, "+"))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(v)
}

func KiwoomFloat(s string) float64 {
	s = strings.TrimSpace(strings.TrimPrefix(s, "+"))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// KiwoomAbsPrice parses a signed price string to its absolute value. The
// quote API signs prices with the day's direction.
func KiwoomAbsPrice(s string) float64 {
	v := KiwoomFloat(s)
	if v < 0 {
		return -v
	}
	return v
}

type KiwoomTokenRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	SecretKey string `json:"secretkey"`
}

type KiwoomTokenResponse struct {
	Token      string `json:"token"`
	TokenType  string `json:"token_type"`
	ExpiresDt  string `json:"expires_dt"`
	ReturnCode int    `json:"return_code"`
	ReturnMsg  string `json:"return_msg"`
}

// KiwoomQuoteResponse is the ka10001 single-stock quote payload.
type KiwoomQuoteResponse struct {
	StockCode    string `json:"stk_cd"`
	StockName    string `json:"stk_nm"`
	CurrentPrice string `json:"cur_prc"`
	OpenPrice    string `json:"open_pric"`
	HighPrice    string `json:"high_pric"`
	LowPrice     string `json:"low_pric"`
	BasePrice    string `json:"base_pric"`
	ChangeRate   string `json:"flu_rt"`
	Volume       string `json:"trde_qty"`
	ReturnCode   int    `json:"return_code"`
	ReturnMsg    string `json:"return_msg"`
}

// KiwoomHoldingsRequest is the kt00004 body. Paging rides in the cont-yn and
// next-key headers, not the body.
type KiwoomHoldingsRequest struct {
	QueryType     string `json:"qry_tp"`
	DomesticVenue string `json:"dmst_stex_tp"`
	AccountPasswd string `json:"acnt_pwd,omitempty"`
}

type KiwoomHoldingItem struct {
	StockCode     string `json:"stk_cd"`
	StockName     string `json:"stk_nm"`
	Quantity      string `json:"rmnd_qty"`
	AvgPrice      string `json:"avg_prc"`
	CurrentPrice  string `json:"cur_prc"`
	EvalAmount    string `json:"evlt_amt"`
	ProfitLoss    string `json:"pl_amt"`
	ProfitRate    string `json:"pl_rt"`
	CreditType    string `json:"crd_tp"`
	LoanDate      string `json:"loan_dt"`
	PurchaseValue string `json:"pur_amt"`
}

type KiwoomHoldingsResponse struct {
	TotalPurchase string              `json:"tot_pur_amt"`
	TotalEval     string              `json:"tot_evlt_amt"`
	Holdings      []KiwoomHoldingItem `json:"stk_acnt_evlt_prst"`
	ReturnCode    int                 `json:"return_code"`
	ReturnMsg     string              `json:"return_msg"`
}

// KiwoomDailyStatusResponse is the kt00017 daily account status payload.
type KiwoomDailyStatusResponse struct {
	Deposit        string `json:"entr"`
	D2Deposit      string `json:"d2_entra"`
	TotalEstimate  string `json:"tot_est_amt"`
	AssetEval      string `json:"aset_evlt_amt"`
	TotalPurchase  string `json:"tot_pur_amt"`
	PresumedAssets string `json:"prsm_dpst_aset_amt"`
	TotalGuarantee string `json:"tot_grnt_sella"`
	ReturnCode     int    `json:"return_code"`
	ReturnMsg      string `json:"return_msg"`
}

// KiwoomTradeHistoryRequest is the kt00007 body.
type KiwoomTradeHistoryRequest struct {
	OrderDate     string `json:"ord_dt"`
	QueryType     string `json:"qry_tp"`
	StockBondType string `json:"stk_bond_tp"`
	SellBuyType   string `json:"sell_tp"`
	StockCode     string `json:"stk_cd"`
	FromOrderNo   string `json:"fr_ord_no"`
	DomesticVenue string `json:"dmst_stex_tp"`
}

type KiwoomTradeFillItem struct {
	OrderNo    string `json:"ord_no"`
	StockCode  string `json:"stk_cd"`
	StockName  string `json:"stk_nm"`
	SideName   string `json:"io_tp_nm"`
	Quantity   string `json:"cntr_qty"`
	UnitPrice  string `json:"cntr_uv"`
	LoanDate   string `json:"loan_dt"`
	CreditType string `json:"crd_tp"`
	TradeTime  string `json:"cntr_tm"`
}

type KiwoomTradeHistoryResponse struct {
	Fills      []KiwoomTradeFillItem `json:"acnt_ord_cntr_prps_dtl"`
	ReturnCode int                   `json:"return_code"`
	ReturnMsg  string                `json:"return_msg"`
}

// KiwoomOrderRequest covers the kt10000/kt10006 buy bodies and the
// kt10001/kt10007 sell bodies; credit orders add the credit deal type.
type KiwoomOrderRequest struct {
	DomesticVenue  string `json:"dmst_stex_tp"`
	StockCode      string `json:"stk_cd"`
	OrderQuantity  string `json:"ord_qty"`
	OrderPrice     string `json:"ord_uv"`
	TradeType      string `json:"trde_tp"`
	CreditDealType string `json:"crd_deal_tp,omitempty"`
	LoanDate       string `json:"crd_loan_dt,omitempty"`
}

type KiwoomOrderResponse struct {
	OrderNo    string `json:"ord_no"`
	ReturnCode int    `json:"return_code"`
	ReturnMsg  string `json:"return_msg"`
}

// Paging header keys shared by the account APIs.
const (
	KiwoomHeaderContYn  = "cont-yn"
	KiwoomHeaderNextKey = "next-key"
	KiwoomHeaderAPIID   = "api-id"
)
