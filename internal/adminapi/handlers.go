package adminapi

import (
	"net/http"
	"strings"

	"futures-gateway/internal/ledger"

	"github.com/gin-gonic/gin"
)

// getBalance is the JSON mirror of the U1/U2 balance query round trip.
func (s *Server) getBalance(c *gin.Context) {
	acct, ok := s.accounts.Get(accountIDFromPath(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account_id":      acct.AccountID,
		"balance":         acct.Balance,
		"available":       acct.Available,
		"frozen_margin":   acct.FrozenMargin,
		"used_margin":     acct.UsedMargin,
		"position_profit": acct.PositionProfit,
	})
}

// getPositions is the JSON mirror of the U3/U4 position query round trip,
// optionally narrowed to one instrument via ?instrument_id=.
func (s *Server) getPositions(c *gin.Context) {
	accountID := accountIDFromPath(c)
	if instrumentID := c.Query("instrument_id"); instrumentID != "" {
		pos, ok := s.positions.Get(accountID, instrumentID)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"positions": []any{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"positions": []any{positionJSON(pos)}})
		return
	}

	positions := s.positions.AllForAccount(accountID)
	out := make([]any, 0, len(positions))
	for _, p := range positions {
		out = append(out, positionJSON(p))
	}
	c.JSON(http.StatusOK, gin.H{"positions": out})
}

func positionJSON(p ledger.Position) gin.H {
	return gin.H{
		"instrument_id":   p.InstrumentID,
		"long_qty":        p.LongQty,
		"long_avg_px":     p.LongAvgPx,
		"short_qty":       p.ShortQty,
		"short_avg_px":    p.ShortAvgPx,
		"position_profit": p.PositionProfit,
	}
}

// searchInstruments is the JSON mirror of the U7/U8 instrument search.
func (s *Server) searchInstruments(c *gin.Context) {
	prefix := c.Query("prefix")
	var out []gin.H
	for _, inst := range s.catalog.All() {
		if prefix != "" && !strings.HasPrefix(inst.InstrumentID, prefix) {
			continue
		}
		out = append(out, gin.H{
			"instrument_id":   inst.InstrumentID,
			"exchange":        inst.Exchange,
			"product_id":      inst.ProductID,
			"price_tick":      inst.PriceTick,
			"volume_multiple": inst.VolumeMultiple,
			"margin_rate":     inst.MarginRate,
		})
	}
	c.JSON(http.StatusOK, gin.H{"instruments": out})
}

// getOrderHistory is the JSON mirror of the U9/U10 historical order
// query, optionally narrowed to one symbol via ?symbol=.
func (s *Server) getOrderHistory(c *gin.Context) {
	accountID := accountIDFromPath(c)
	orders, err := s.store.LoadAllOrders(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if symbol := c.Query("symbol"); symbol != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.Symbol == symbol {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
