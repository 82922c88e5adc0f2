package dto

// Kiwoom REST API identifiers.
const (
	KiwoomAPIQuote        = "ka10001" // single-stock quote
	KiwoomAPIHoldings     = "kt00004" // account holdings with paging
	KiwoomAPITradeHistory = "kt00007" // account trade fills by date
	KiwoomAPIDailyStatus  = "kt00017" // daily account status (net assets)
	KiwoomAPICashOrder    = "kt10000" // cash buy order
	KiwoomAPICreditOrder  = "kt10006" // credit buy order
	KiwoomAPISellOrder    = "kt10001" // sell order
	KiwoomAPICreditRepay  = "kt10007" // credit repayment sell
)

// Korean fill-side names as the broker reports them.
const (
	SideNameBuy       = "매수"
	SideNameSell      = "매도"
	SideNameCreditPay = "상환"
)

// Trading venues an order may route to.
const (
	VenueKRX = "KRX"
	VenueNXT = "NXT"
)

// NXT listings are addressed with a suffixed stock code in quote requests;
// symbols without an NXT listing reject the suffixed form.
const NXTCodeSuffix = "_NX"

// Order price types.
const (
	PriceTypeLimit  = "0"
	PriceTypeMarket = "3"
)
