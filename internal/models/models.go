package models

// All returns every persisted model, in migration order
func All() []interface{} {
	return []interface{}{
		&TrackedSku{},
		&InventoryRecord{},
		&Alert{},
		&SystemConfig{},
		&SearchConfig{},
		&Schedule{},
		&RunLog{},
	}
}
