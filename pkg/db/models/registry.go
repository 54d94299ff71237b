package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Address{},
		&Product{},
		&InventoryItem{},
		&InventoryLog{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderLineItem{},
		&OrderStatusHistory{},
		&Payment{},
		&MpesaTransaction{},
		&MpesaCallbackLog{},
		&Notification{},
		&OutboxEvent{},
	}
}

// PortableIndexes are constraints AutoMigrate cannot express through struct
// tags. The statements run on both Postgres and SQLite.
var PortableIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_order_open ON payments (order_id) WHERE status IN ('initiated', 'pending')`,
}
