package main

import (
	chstore "stakepool-custody/internal/storage/clickhouse"
	pgstore "stakepool-custody/internal/storage/postgres"
)

// newPersistentStores wires PostgreSQL for pools and receipts and ClickHouse
// for the penalty event log.
func newPersistentStores(pool *pgstore.Pool, conn *chstore.Conn) *stores {
	return &stores{
		pools:    pgstore.NewPoolStore(pool),
		receipts: pgstore.NewReceiptStore(pool),
		events:   chstore.NewPenaltyEventStore(conn),
	}
}
