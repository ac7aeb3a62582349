// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts vault operations. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	moved      *prometheus.CounterVec
}

// NewMetrics creates the vault collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apvault",
			Name:      "operations_total",
			Help:      "Vault operations by operation and result kind.",
		}, []string{"operation", "result"}),
		moved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apvault",
			Name:      "units_moved_total",
			Help:      "Native units moved into (deposit) or out of (withdraw) vaults.",
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{m.operations, m.moved} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register vault metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observe(operation string, amount uint64, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(KindOf(err))
	}
	m.operations.WithLabelValues(operation, result).Inc()
	if err == nil {
		m.moved.WithLabelValues(operation).Add(float64(amount))
	}
}
