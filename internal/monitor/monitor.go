// Package monitor watches the gateway's events.Bus for risk alerts and
// order fills and turns them into operator-facing alert lines and event
// counters, decoupled from the gateway itself the same way the bus
// decouples every other subscriber.
package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"futures-gateway/internal/events"
)

// Monitor subscribes to a Bus and turns RiskAlert/OrderFilled payloads into
// operator-facing lines delivered through Sink. Bus and Sink may both be
// nil, in which case Start is a no-op — monitoring is ambient, never
// load-bearing for the trading path.
type Monitor struct {
	Bus     *events.Bus
	Sink    AlertSink
	Metrics *SystemMetrics
}

// Start runs until ctx is canceled, in its own goroutine.
func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil {
		return
	}

	riskCh, unsubRisk := m.Bus.Subscribe(events.EventRiskAlert, 64)
	cancelCh, unsubCancel := m.Bus.Subscribe(events.EventOrderCanceled, 64)
	fillCh, unsubFill := m.Bus.Subscribe(events.EventOrderFilled, 64)

	go func() {
		defer unsubRisk()
		defer unsubCancel()
		defer unsubFill()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-riskCh:
				if !ok {
					return
				}
				m.onAlert(payload)
			case payload, ok := <-cancelCh:
				if !ok {
					return
				}
				m.onAlert(payload)
			case payload, ok := <-fillCh:
				if !ok {
					return
				}
				if m.Metrics != nil {
					m.Metrics.IncrementFills()
				}
				_ = payload
			}
		}
	}()
}

func (m *Monitor) onAlert(payload any) {
	if m.Metrics != nil {
		m.Metrics.IncrementRiskAlerts()
	}
	if m.Sink == nil {
		return
	}
	alert, ok := payload.(events.RiskAlert)
	if !ok {
		return
	}
	if err := m.Sink.Send(formatAlert(alert)); err != nil {
		log.Printf("monitor: alert sink delivery failed: %v", err)
	}
}

func formatAlert(a events.RiskAlert) string {
	return fmt.Sprintf("[%s] account=%s instrument=%s clOrdID=%s reason=%q",
		time.Now().Format(time.RFC3339), a.AccountID, a.InstrumentID, a.ClOrdID, a.Reason)
}
