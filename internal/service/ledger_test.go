package service

import (
	"testing"
	"time"

	"krx-autotrade/internal/model"

	"github.com/stretchr/testify/assert"
)

func lotOn(day int, qty int64, avgPrice float64) model.Lot {
	return model.Lot{
		ID:               uint(day),
		StockCode:        "005930",
		CreditClass:      model.CreditClassCash,
		TradeDate:        time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC),
		NetQuantity:      qty,
		AvgPurchasePrice: avgPrice,
		TotalCost:        avgPrice * float64(qty),
	}
}

func TestReduceLotsLIFO(t *testing.T) {
	closeDate := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	t.Run("newest lot closes first", func(t *testing.T) {
		// Ordered newest-first, the way the repository returns them.
		lots := []model.Lot{lotOn(25, 10, 71000), lotOn(24, 10, 70000)}

		touched, remaining := ReduceLotsLIFO(lots, 10, closeDate, 72000)

		assert.Zero(t, remaining)
		assert.Len(t, touched, 1)
		assert.Equal(t, uint(25), touched[0].ID)
		assert.True(t, touched[0].IsClosed)
		assert.Equal(t, int64(0), touched[0].NetQuantity)
		assert.Equal(t, float64(10000), touched[0].RealizedPnl)
	})

	t.Run("partial reduction keeps lot open", func(t *testing.T) {
		lots := []model.Lot{lotOn(25, 10, 71000)}

		touched, remaining := ReduceLotsLIFO(lots, 4, closeDate, 72000)

		assert.Zero(t, remaining)
		assert.Len(t, touched, 1)
		assert.False(t, touched[0].IsClosed)
		assert.Equal(t, int64(6), touched[0].NetQuantity)
		assert.Equal(t, float64(71000*6), touched[0].TotalCost)
		assert.Nil(t, touched[0].ClosedDate)
	})

	t.Run("reduction spans lots", func(t *testing.T) {
		lots := []model.Lot{lotOn(25, 10, 71000), lotOn(24, 10, 70000)}

		touched, remaining := ReduceLotsLIFO(lots, 15, closeDate, 0)

		assert.Zero(t, remaining)
		assert.Len(t, touched, 2)
		assert.True(t, touched[0].IsClosed)
		assert.Equal(t, int64(5), touched[1].NetQuantity)
		assert.False(t, touched[1].IsClosed)
		// No sell price given, so no realized P&L is booked.
		assert.Zero(t, touched[0].RealizedPnl)
	})

	t.Run("quantity beyond lots reported as remainder", func(t *testing.T) {
		lots := []model.Lot{lotOn(25, 10, 71000)}

		touched, remaining := ReduceLotsLIFO(lots, 13, closeDate, 71500)

		assert.Equal(t, int64(3), remaining)
		assert.Len(t, touched, 1)
		assert.True(t, touched[0].IsClosed)
	})

	t.Run("loss is booked negative", func(t *testing.T) {
		lots := []model.Lot{lotOn(25, 10, 71000)}

		touched, _ := ReduceLotsLIFO(lots, 10, closeDate, 69000)

		assert.Equal(t, float64(-20000), touched[0].RealizedPnl)
	})
}

func TestGroupFills(t *testing.T) {
	day := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	fills := []model.TradeFill{
		{OrderNo: "1", StockCode: "005930", SideName: "현금매수", CreditClass: model.CreditClassCash, TradeDate: day, Quantity: 10, Price: 70000},
		{OrderNo: "2", StockCode: "005930", SideName: "신용매수", CreditClass: model.CreditClassCredit, LoanDate: "20260826", TradeDate: day, Quantity: 5, Price: 70100},
		{OrderNo: "3", StockCode: "005930", SideName: "현금매도", CreditClass: model.CreditClassCash, TradeDate: day, Quantity: 4, Price: 70500},
		{OrderNo: "4", StockCode: "000660", SideName: "현금매수", CreditClass: model.CreditClassCash, TradeDate: day, Quantity: 3, Price: 250000},
	}

	groups := groupFills(fills)

	assert.Len(t, groups, 3)
	// First-seen order is preserved.
	assert.Equal(t, "005930", groups[0].key.StockCode)
	assert.Equal(t, model.CreditClassCash, groups[0].key.CreditClass)
	assert.Equal(t, model.CreditClassCredit, groups[1].key.CreditClass)
	assert.Equal(t, "000660", groups[2].key.StockCode)

	buyQty, sellQty, buyValue, sellValue := groups[0].totals()
	assert.Equal(t, int64(10), buyQty)
	assert.Equal(t, int64(4), sellQty)
	assert.Equal(t, float64(700000), buyValue)
	assert.Equal(t, float64(282000), sellValue)
}

func TestTradeFillSides(t *testing.T) {
	tests := []struct {
		sideName string
		isBuy    bool
		isSell   bool
	}{
		{"현금매수", true, false},
		{"신용매수", true, false},
		{"현금매도", false, true},
		{"신용매도", false, true},
		{"융자상환매도", false, true},
		{"매도정정매수", true, false}, // 매수 wins when both appear
		{"배당입고", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.sideName, func(t *testing.T) {
			f := model.TradeFill{SideName: tt.sideName}
			assert.Equal(t, tt.isBuy, f.IsBuy())
			assert.Equal(t, tt.isSell, f.IsSell())
		})
	}
}
